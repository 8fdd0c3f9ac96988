package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/evoting-dev/evoting/internal/domain"
	"github.com/evoting-dev/evoting/internal/handler"
	"github.com/evoting-dev/evoting/internal/jwt"
	"github.com/evoting-dev/evoting/internal/middleware"
	"github.com/evoting-dev/evoting/internal/setup"
)

type emptyVoterStorage struct{}

func (emptyVoterStorage) Voter(id domain.VoterId) (domain.Voter, error) {
	return domain.Voter{}, nil
}

func testRouter() http.Handler {
	jwtService := jwt.New("test-secret", time.Hour)
	return New(&setup.Dependencies{
		Handler:        handler.New(nil, nil, nil, nil, nil),
		Jwt:            jwtService,
		AuthMiddleware: middleware.NewAuth(jwtService, emptyVoterStorage{}),
	})
}

// Unauthenticated requests to gated routes must reach the auth middleware,
// so a 401 proves the route is registered while a 404 would mean it is not.
func TestRoutesRegistered(t *testing.T) {
	r := testRouter()

	tests := []struct {
		name     string
		method   string
		path     string
		wantCode int
	}{
		{"health is open", "GET", "/health", http.StatusOK},
		{"election creation is gated", "POST", "/api/election/add", http.StatusUnauthorized},
		{"vote is gated", "POST", "/api/election/vote", http.StatusUnauthorized},
		{"verify-and-vote is gated", "POST", "/api/voter/verify-and-vote", http.StatusUnauthorized},
		{"verify-face is gated", "POST", "/api/voter/verify-face", http.StatusUnauthorized},
		{"admin results are gated", "GET", "/api/admin/results", http.StatusUnauthorized},
		{"old creation path is gone", "POST", "/api/admin/election", http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(tc.method, tc.path, nil)

			r.ServeHTTP(rr, req)
			assert.Equal(t, tc.wantCode, rr.Code)
		})
	}
}
