package service

import (
	"context"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/evoting-dev/evoting/internal/config"
	"github.com/evoting-dev/evoting/internal/domain"
	"github.com/evoting-dev/evoting/internal/errors"
	"github.com/evoting-dev/evoting/internal/logger"
	"github.com/evoting-dev/evoting/internal/utils"
)

type AuthService interface {
	Register(ctx context.Context, reg domain.Registration) (domain.Voter, string, error)
	VerifyOTP(voterId domain.VoterId, otp string) (domain.Voter, string, error)
	Login(creds domain.Credentials) (domain.Voter, string, error)
	AdminLogin(creds domain.Credentials) (domain.Voter, string, error)
}

type AuthStorage interface {
	SaveVoter(voter domain.Voter) (domain.VoterId, error)
	Voter(id domain.VoterId) (domain.Voter, error)
	VoterByEmail(email domain.Email) (domain.Voter, error)
	MarkVerified(id domain.VoterId) error
}

type Email interface {
	SendOTP(recipientEmail, otp string) error
}

type Jwt interface {
	NewToken(voter domain.Voter) (string, error)
}

type FaceEncoder interface {
	EncodeFace(ctx context.Context, image string) (domain.FaceEncoding, error)
}

type Auth struct {
	storage AuthStorage
	email   Email
	jwt     Jwt
	encoder FaceEncoder
	cfg     *config.Public
}

func NewAuth(storage AuthStorage, email Email, jwt Jwt, encoder FaceEncoder, cfg *config.Public) *Auth {
	return &Auth{
		storage: storage,
		email:   email,
		jwt:     jwt,
		encoder: encoder,
		cfg:     cfg,
	}
}

// Register creates an unverified voter: validates identity fields, encodes
// the face image through the external matcher, hashes credentials, and
// dispatches the one-time code.
func (a *Auth) Register(ctx context.Context, reg domain.Registration) (domain.Voter, string, error) {
	email := strings.ToLower(reg.Email)

	if err := utils.ValidateEmail(email); err != nil {
		return domain.Voter{}, "", err
	}
	if err := utils.ValidatePhoneNumber(reg.PhoneNumber); err != nil {
		return domain.Voter{}, "", err
	}
	if utils.Age(reg.DateOfBirth, time.Now()) < a.cfg.MinVoterAge {
		return domain.Voter{}, "", &errors.ErrorWithStatusCode{
			Message:    "You must be at least 18 years old to register",
			StatusCode: http.StatusBadRequest,
		}
	}

	// Encoding happens before the insert so a face-less image never
	// creates a half-registered voter.
	encoding, err := a.encoder.EncodeFace(ctx, reg.FaceImage)
	if err != nil {
		return domain.Voter{}, "", err
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Log.Error("failed to hash password", "error", err)
		return domain.Voter{}, "", err
	}

	otp := utils.GenerateOTP()
	otpHash, err := bcrypt.GenerateFromPassword([]byte(otp), bcrypt.DefaultCost)
	if err != nil {
		logger.Log.Error("failed to hash otp", "error", err)
		return domain.Voter{}, "", err
	}

	voter := domain.Voter{
		Name:         reg.Name,
		Email:        email,
		PhoneNumber:  reg.PhoneNumber,
		PassHash:     string(passHash),
		DateOfBirth:  reg.DateOfBirth,
		FaceEncoding: encoding,
		Role:         domain.RoleVoter,
		IsVerified:   false,
		OtpHash:      string(otpHash),
		OtpExpires:   time.Now().UTC().Add(a.cfg.OtpTTL()),
	}

	id, err := a.storage.SaveVoter(voter)
	if err != nil {
		return domain.Voter{}, "", err
	}
	voter.Id = id

	if err := a.email.SendOTP(email, otp); err != nil {
		logger.Log.Error("failed to send otp email", "voter_id", id, "error", err)
		return domain.Voter{}, "", err
	}

	token, err := a.jwt.NewToken(voter)
	if err != nil {
		logger.Log.Error("failed to create jwt token", "voter_id", id, "error", err)
		return domain.Voter{}, "", err
	}

	return voter, token, nil
}

// VerifyOTP confirms the one-time code and flips the voter to verified.
func (a *Auth) VerifyOTP(voterId domain.VoterId, otp string) (domain.Voter, string, error) {
	voter, err := a.storage.Voter(voterId)
	if err != nil {
		return domain.Voter{}, "", err
	}

	if !voter.OtpExpires.IsZero() && voter.OtpExpires.Before(time.Now()) {
		return domain.Voter{}, "", &errors.ErrorWithStatusCode{
			Message:    "OTP has expired. Please request a new one.",
			StatusCode: http.StatusBadRequest,
		}
	}
	if voter.OtpHash == "" || bcrypt.CompareHashAndPassword([]byte(voter.OtpHash), []byte(otp)) != nil {
		return domain.Voter{}, "", &errors.ErrorWithStatusCode{
			Message:    "Invalid OTP. Please try again.",
			StatusCode: http.StatusBadRequest,
		}
	}

	if err := a.storage.MarkVerified(voterId); err != nil {
		return domain.Voter{}, "", err
	}
	voter.IsVerified = true
	voter.OtpHash = ""
	voter.OtpExpires = time.Time{}

	token, err := a.jwt.NewToken(voter)
	if err != nil {
		logger.Log.Error("failed to create jwt token", "voter_id", voterId, "error", err)
		return domain.Voter{}, "", err
	}

	return voter, token, nil
}

// Login checks credentials and returns an access token.
func (a *Auth) Login(creds domain.Credentials) (domain.Voter, string, error) {
	return a.login(creds, false)
}

// AdminLogin additionally requires the admin role, rejecting with the
// same message as unknown credentials to not leak account roles.
func (a *Auth) AdminLogin(creds domain.Credentials) (domain.Voter, string, error) {
	return a.login(creds, true)
}

func (a *Auth) login(creds domain.Credentials, adminOnly bool) (domain.Voter, string, error) {
	email := strings.ToLower(creds.Email)

	if err := utils.ValidateEmail(email); err != nil {
		return domain.Voter{}, "", err
	}

	invalidCreds := &errors.ErrorWithStatusCode{Message: "Invalid credentials", StatusCode: http.StatusUnauthorized}
	if adminOnly {
		invalidCreds = &errors.ErrorWithStatusCode{Message: "Invalid credentials or unauthorized access", StatusCode: http.StatusUnauthorized}
	}

	voter, err := a.storage.VoterByEmail(email)
	if err != nil {
		// to not leak existing users
		if errors.IsStatus(err, http.StatusNotFound) {
			return domain.Voter{}, "", invalidCreds
		}
		return domain.Voter{}, "", err
	}

	if adminOnly && voter.Role != domain.RoleAdmin {
		return domain.Voter{}, "", invalidCreds
	}

	if err := bcrypt.CompareHashAndPassword([]byte(voter.PassHash), []byte(creds.Password)); err != nil {
		logger.Log.Warn("password verification failed", "voter_id", voter.Id)
		return domain.Voter{}, "", invalidCreds
	}

	token, err := a.jwt.NewToken(voter)
	if err != nil {
		logger.Log.Error("failed to create jwt token", "voter_id", voter.Id, "error", err)
		return domain.Voter{}, "", err
	}

	return voter, token, nil
}
