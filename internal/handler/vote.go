package handler

import (
	"net/http"

	"github.com/evoting-dev/evoting/internal/domain"
	"github.com/evoting-dev/evoting/internal/errors"
	"github.com/evoting-dev/evoting/internal/middleware"
	"github.com/evoting-dev/evoting/internal/utils"
)

type castVoteRequest struct {
	ElectionId domain.ElectionId `validate:"required" json:"electionId"`
	PartyId    domain.PartyId    `validate:"required" json:"partyId"`
	Method     string            `json:"verificationMethod"`
}

type verifyFaceRequest struct {
	FaceImage string `validate:"required" json:"faceImage"`
}

type verifyAndVoteRequest struct {
	ElectionId domain.ElectionId `validate:"required" json:"electionId"`
	PartyId    domain.PartyId    `validate:"required" json:"candidateId"`
	FaceImage  string            `validate:"required" json:"faceImage"`
}

// CastVote records a ballot for an already verified voter. The default
// verification method is the one-time code confirmed at registration.
func (h *Handler) CastVote(w http.ResponseWriter, r *http.Request) {
	voter := middleware.GetVoterFromContext(r)
	if voter == nil {
		utils.WriteErrorAndStatusCode(w, errNoVoterInContext())
		return
	}

	var req castVoteRequest
	if err := utils.DecodeValidate(r.Body, &req); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	method := domain.VerificationOTP
	if req.Method != "" {
		method = domain.VerificationMethod(req.Method)
	}

	ballot, err := h.ballot.CastVote(r.Context(), voter.Id, req.ElectionId, req.PartyId, method)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Vote cast successfully",
		"ballot":  ballot,
	})
}

// VerifyFace matches a captured image against the caller's stored
// encoding without casting anything.
func (h *Handler) VerifyFace(w http.ResponseWriter, r *http.Request) {
	voter := middleware.GetVoterFromContext(r)
	if voter == nil {
		utils.WriteErrorAndStatusCode(w, errNoVoterInContext())
		return
	}

	var req verifyFaceRequest
	if err := utils.DecodeValidate(r.Body, &req); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	distance, err := h.ballot.VerifyFace(r.Context(), voter.Id, req.FaceImage)
	if err != nil {
		if errors.IsStatus(err, http.StatusUnauthorized) {
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
				"message":  err.Error(),
				"distance": distance,
			})
			return
		}
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "Face verified successfully",
		"distance": distance,
	})
}

// VerifyAndCast runs face verification and the cast as one request.
func (h *Handler) VerifyAndCast(w http.ResponseWriter, r *http.Request) {
	voter := middleware.GetVoterFromContext(r)
	if voter == nil {
		utils.WriteErrorAndStatusCode(w, errNoVoterInContext())
		return
	}

	var req verifyAndVoteRequest
	if err := utils.DecodeValidate(r.Body, &req); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	ballot, distance, err := h.ballot.VerifyAndCast(r.Context(), voter.Id, req.ElectionId, req.PartyId, req.FaceImage)
	if err != nil {
		if errors.IsStatus(err, http.StatusUnauthorized) {
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
				"message":  err.Error(),
				"distance": distance,
			})
			return
		}
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "Vote cast successfully",
		"distance": distance,
		"ballot":   ballot,
	})
}

// Candidates lists the active parties a voter can choose from.
func (h *Handler) Candidates(w http.ResponseWriter, r *http.Request) {
	parties, err := h.party.ActiveParties()
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, http.StatusOK, parties)
}

func errNoVoterInContext() error {
	return &errors.ErrorWithStatusCode{Message: "Not authorized, user not found", StatusCode: http.StatusUnauthorized}
}
