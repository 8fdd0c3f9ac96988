package handler

import (
	"net/http"

	"github.com/evoting-dev/evoting/internal/utils"
)

type addPartyRequest struct {
	Name        string `validate:"required" json:"name"`
	PartyName   string `validate:"required" json:"partyName"`
	PartySymbol string `validate:"required" json:"partySymbol"`
}

func (h *Handler) AddParty(w http.ResponseWriter, r *http.Request) {
	var req addPartyRequest
	if err := utils.DecodeValidate(r.Body, &req); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	party, err := h.party.AddParty(req.Name, req.PartyName, req.PartySymbol)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Candidate added successfully",
		"party":   party,
	})
}

func (h *Handler) ListParties(w http.ResponseWriter, r *http.Request) {
	parties, err := h.party.ActiveParties()
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, http.StatusOK, parties)
}

// DeactivateParty soft-deletes a single candidate.
func (h *Handler) DeactivateParty(w http.ResponseWriter, r *http.Request) {
	id, err := pathId(r, "id")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	if err := h.party.DeactivateParty(id); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Candidate removed successfully"})
}

func (h *Handler) DeactivateAllParties(w http.ResponseWriter, r *http.Request) {
	if err := h.party.DeactivateAllParties(); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "All candidates removed successfully"})
}

// ResetTallies zeroes active-party vote counts. Ballot records and voter
// histories stay, so voters cannot vote again in the same election.
func (h *Handler) ResetTallies(w http.ResponseWriter, r *http.Request) {
	count, err := h.ballot.ResetTallies()
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":           "Votes reset successfully",
		"candidatesUpdated": count,
	})
}

func (h *Handler) Results(w http.ResponseWriter, r *http.Request) {
	parties, err := h.ballot.Results()
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, http.StatusOK, parties)
}

// Users returns the voter roster without credential material.
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	voters, err := h.party.Voters()
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	summaries := make([]voterSummary, 0, len(voters))
	for _, v := range voters {
		summaries = append(summaries, summarize(v))
	}
	writeJSON(w, http.StatusOK, summaries)
}
