package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/evoting-dev/evoting/internal/domain"
	"github.com/evoting-dev/evoting/internal/errors"
	"github.com/evoting-dev/evoting/internal/utils"
)

type createElectionRequest struct {
	Title     string           `validate:"required" json:"title"`
	StartDate string           `validate:"required" json:"startDate"`
	EndDate   string           `validate:"required" json:"endDate"`
	Parties   []domain.PartyId `validate:"required,min=1" json:"parties"`
}

type electionsResponse struct {
	Elections []domain.Election `json:"elections"`
}

func (h *Handler) CreateElection(w http.ResponseWriter, r *http.Request) {
	var req createElectionRequest
	if err := utils.DecodeValidate(r.Body, &req); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	start, err := parseDate(req.StartDate)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	election, err := h.election.CreateElection(req.Title, start, end, req.Parties)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message":  "Election created successfully",
		"election": election,
	})
}

func (h *Handler) LiveElections(w http.ResponseWriter, r *http.Request) {
	elections, err := h.election.LiveElections()
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, http.StatusOK, electionsResponse{Elections: elections})
}

func (h *Handler) PreviousElections(w http.ResponseWriter, r *http.Request) {
	elections, err := h.election.PreviousElections()
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, http.StatusOK, electionsResponse{Elections: elections})
}

func (h *Handler) OpenElections(w http.ResponseWriter, r *http.Request) {
	elections, err := h.election.OpenElections()
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, http.StatusOK, electionsResponse{Elections: elections})
}

func (h *Handler) ElectionParties(w http.ResponseWriter, r *http.Request) {
	electionId, err := pathId(r, "id")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	parties, err := h.election.PartiesOf(electionId)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, http.StatusOK, parties)
}

func pathId(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &errors.ErrorWithStatusCode{Message: "Invalid " + name + ": must be an integer", StatusCode: http.StatusBadRequest}
	}
	return id, nil
}
