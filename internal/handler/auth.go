package handler

import (
	"net/http"
	"time"

	"github.com/evoting-dev/evoting/internal/domain"
	"github.com/evoting-dev/evoting/internal/errors"
	"github.com/evoting-dev/evoting/internal/utils"
)

type registerRequest struct {
	Name        string `validate:"required" json:"name"`
	Email       string `validate:"required" json:"email"`
	PhoneNumber string `validate:"required" json:"phoneNumber"`
	Password    string `validate:"required" json:"password"`
	DateOfBirth string `validate:"required" json:"dateOfBirth"`
	FaceImage   string `validate:"required" json:"faceImage"`
}

type credentialsRequest struct {
	Email    string `validate:"required" json:"email"`
	Password string `validate:"required" json:"password"`
}

type verifyOTPRequest struct {
	UserId domain.VoterId `validate:"required" json:"userId"`
	Otp    string         `validate:"required" json:"otp"`
}

type authResponse struct {
	Message string       `json:"message,omitempty"`
	Token   string       `json:"token"`
	User    voterSummary `json:"user"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := utils.DecodeValidate(r.Body, &req); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	dob, err := parseDate(req.DateOfBirth)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	voter, token, err := h.auth.Register(r.Context(), domain.Registration{
		Name:        req.Name,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Password:    req.Password,
		DateOfBirth: dob,
		FaceImage:   req.FaceImage,
	})
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{
		Message: "Registration successful! Please verify your email with the OTP sent.",
		Token:   token,
		User:    summarize(voter),
	})
}

func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := utils.DecodeValidate(r.Body, &req); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	voter, token, err := h.auth.VerifyOTP(req.UserId, req.Otp)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		Message: "Email verified successfully",
		Token:   token,
		User:    summarize(voter),
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, false)
}

func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, true)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request, admin bool) {
	var creds credentialsRequest
	if err := utils.DecodeValidate(r.Body, &creds); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	domainCreds := domain.Credentials{Email: creds.Email, Password: creds.Password}

	var voter domain.Voter
	var token string
	var err error
	if admin {
		voter, token, err = h.auth.AdminLogin(domainCreds)
	} else {
		voter, token, err = h.auth.Login(domainCreds)
	}
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{Token: token, User: summarize(voter)})
}

// parseDate accepts both date-only and RFC3339 timestamps, the two shapes
// clients send.
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Time{}, &errors.ErrorWithStatusCode{Message: "Invalid date format", StatusCode: http.StatusBadRequest}
}
