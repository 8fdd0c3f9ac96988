package handler

import (
	"encoding/json"
	"net/http"

	"github.com/evoting-dev/evoting/internal/config"
	"github.com/evoting-dev/evoting/internal/domain"
	"github.com/evoting-dev/evoting/internal/logger"
	"github.com/evoting-dev/evoting/internal/service"
)

type Handler struct {
	auth     service.AuthService
	election service.ElectionService
	ballot   service.BallotService
	party    service.PartyService
	cfg      *config.Config
}

func New(auth service.AuthService, election service.ElectionService, ballot service.BallotService, party service.PartyService, cfg *config.Config) *Handler {
	return &Handler{auth, election, ballot, party, cfg}
}

func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Error("failed to encode response", "error", err)
	}
}

// voterSummary is the safe subset of a voter record returned to clients.
type voterSummary struct {
	Id         domain.VoterId `json:"id"`
	Name       string         `json:"name"`
	Email      string         `json:"email"`
	Role       domain.Role    `json:"role"`
	IsVerified bool           `json:"isVerified"`
}

func summarize(v domain.Voter) voterSummary {
	return voterSummary{Id: v.Id, Name: v.Name, Email: v.Email, Role: v.Role, IsVerified: v.IsVerified}
}
