package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/evoting-dev/evoting/internal/domain"
	"github.com/evoting-dev/evoting/internal/jwt"
	"github.com/evoting-dev/evoting/internal/utils"
)

// VoterStorage re-loads the current voter record on every authenticated
// request. Token claims are lookup keys only: verification and voted state
// must never be trusted from a possibly stale token.
type VoterStorage interface {
	Voter(id domain.VoterId) (domain.Voter, error)
}

// Key to store the voter in the request context
type key int

const VoterContextKey key = 0

type Auth struct {
	jwtService jwt.JwtService
	storage    VoterStorage
}

func NewAuth(jwtService jwt.JwtService, storage VoterStorage) *Auth {
	return &Auth{jwtService: jwtService, storage: storage}
}

// NeedAuth requires a valid token and an existing voter record.
func (a *Auth) NeedAuth() func(http.Handler) http.Handler {
	return a.auth(nil)
}

// AdminOnly additionally requires the admin role.
func (a *Auth) AdminOnly() func(http.Handler) http.Handler {
	return a.auth(func(voter *domain.Voter) error {
		if voter.Role != domain.RoleAdmin {
			return errForbidden("Not authorized as admin")
		}
		return nil
	})
}

// VerifiedVoter requires the voter role and a confirmed one-time code,
// both read live from storage.
func (a *Auth) VerifiedVoter() func(http.Handler) http.Handler {
	return a.auth(func(voter *domain.Voter) error {
		if voter.Role != domain.RoleVoter || !voter.IsVerified {
			return errForbidden("Not authorized as verified voter")
		}
		return nil
	})
}

func (a *Auth) auth(gate func(*domain.Voter) error) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			voter, err := a.extractVoter(r)
			if err != nil {
				utils.WriteErrorAndStatusCode(w, err)
				return
			}

			if gate != nil {
				if err := gate(voter); err != nil {
					utils.WriteErrorAndStatusCode(w, err)
					return
				}
			}

			ctx := context.WithValue(r.Context(), VoterContextKey, voter)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractVoter validates the bearer credential and re-reads the voter.
func (a *Auth) extractVoter(r *http.Request) (*domain.Voter, error) {
	var tokenString string
	if token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); found {
		tokenString = token
	} else if accessCookie, err := r.Cookie("accessToken"); err == nil {
		tokenString = accessCookie.Value
	}

	if tokenString == "" {
		return nil, errUnauthorized("Not authorized, no token provided")
	}

	claims, err := a.jwtService.DecodeToken(tokenString)
	if err != nil {
		return nil, err
	}

	voter, err := a.storage.Voter(claims.VoterId)
	if err != nil {
		return nil, errUnauthorized("Not authorized, user not found")
	}

	return &voter, nil
}

// GetVoterFromContext retrieves the authenticated voter from the context.
func GetVoterFromContext(r *http.Request) *domain.Voter {
	voter, ok := r.Context().Value(VoterContextKey).(*domain.Voter)
	if !ok {
		return nil
	}
	return voter
}
