package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/evoting-dev/evoting/internal/domain"
	internal_errors "github.com/evoting-dev/evoting/internal/errors"
	"github.com/evoting-dev/evoting/internal/middleware"
)

type MockBallotService struct {
	CastVoteFunc      func(ctx context.Context, voterId domain.VoterId, electionId domain.ElectionId, partyId domain.PartyId, method domain.VerificationMethod) (domain.Ballot, error)
	VerifyAndCastFunc func(ctx context.Context, voterId domain.VoterId, electionId domain.ElectionId, partyId domain.PartyId, faceImage string) (domain.Ballot, float64, error)
	VerifyFaceFunc    func(ctx context.Context, voterId domain.VoterId, faceImage string) (float64, error)
	ResultsFunc       func() ([]domain.Party, error)
	ResetTalliesFunc  func() (int, error)
}

func (m *MockBallotService) CastVote(ctx context.Context, voterId domain.VoterId, electionId domain.ElectionId, partyId domain.PartyId, method domain.VerificationMethod) (domain.Ballot, error) {
	if m.CastVoteFunc != nil {
		return m.CastVoteFunc(ctx, voterId, electionId, partyId, method)
	}
	return domain.Ballot{Id: 1, Voter: voterId, Election: electionId, Party: partyId, VerificationMethod: method}, nil
}

func (m *MockBallotService) VerifyAndCast(ctx context.Context, voterId domain.VoterId, electionId domain.ElectionId, partyId domain.PartyId, faceImage string) (domain.Ballot, float64, error) {
	if m.VerifyAndCastFunc != nil {
		return m.VerifyAndCastFunc(ctx, voterId, electionId, partyId, faceImage)
	}
	return domain.Ballot{Id: 1, Voter: voterId, Election: electionId, Party: partyId, VerificationMethod: domain.VerificationFace}, 0.31, nil
}

func (m *MockBallotService) VerifyFace(ctx context.Context, voterId domain.VoterId, faceImage string) (float64, error) {
	if m.VerifyFaceFunc != nil {
		return m.VerifyFaceFunc(ctx, voterId, faceImage)
	}
	return 0.31, nil
}

func (m *MockBallotService) Results() ([]domain.Party, error) {
	if m.ResultsFunc != nil {
		return m.ResultsFunc()
	}
	return nil, nil
}

func (m *MockBallotService) ResetTallies() (int, error) {
	if m.ResetTalliesFunc != nil {
		return m.ResetTalliesFunc()
	}
	return 0, nil
}

func withVoter(r *http.Request, voter *domain.Voter) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.VoterContextKey, voter)
	return r.WithContext(ctx)
}

func ballotHandler(ballot *MockBallotService) *Handler {
	return New(nil, nil, ballot, nil, nil)
}

func TestCastVoteHandler(t *testing.T) {
	voter := &domain.Voter{Id: 1, Role: domain.RoleVoter, IsVerified: true}

	t.Run("success defaults to otp method", func(t *testing.T) {
		var method domain.VerificationMethod
		ballot := &MockBallotService{
			CastVoteFunc: func(ctx context.Context, voterId domain.VoterId, electionId domain.ElectionId, partyId domain.PartyId, m domain.VerificationMethod) (domain.Ballot, error) {
				method = m
				return domain.Ballot{Id: 1, Voter: voterId, Election: electionId, Party: partyId, VerificationMethod: m}, nil
			},
		}
		h := ballotHandler(ballot)
		rr := httptest.NewRecorder()
		req := withVoter(createRequest(t, "POST", "/api/election/vote", []byte(`{"electionId":5,"partyId":10}`)), voter)

		h.CastVote(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, domain.VerificationOTP, method)
		assert.Contains(t, rr.Body.String(), "Vote cast successfully")
	})

	t.Run("explicit method is passed through", func(t *testing.T) {
		var method domain.VerificationMethod
		ballot := &MockBallotService{
			CastVoteFunc: func(ctx context.Context, voterId domain.VoterId, electionId domain.ElectionId, partyId domain.PartyId, m domain.VerificationMethod) (domain.Ballot, error) {
				method = m
				return domain.Ballot{}, nil
			},
		}
		h := ballotHandler(ballot)
		rr := httptest.NewRecorder()
		req := withVoter(createRequest(t, "POST", "/api/election/vote", []byte(`{"electionId":5,"partyId":10,"verificationMethod":"fingerprint"}`)), voter)

		h.CastVote(rr, req)
		assert.Equal(t, domain.VerificationFingerprint, method)
	})

	t.Run("no voter in context", func(t *testing.T) {
		h := ballotHandler(&MockBallotService{})
		rr := httptest.NewRecorder()

		h.CastVote(rr, createRequest(t, "POST", "/api/election/vote", []byte(`{"electionId":5,"partyId":10}`)))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("already voted", func(t *testing.T) {
		ballot := &MockBallotService{
			CastVoteFunc: func(ctx context.Context, voterId domain.VoterId, electionId domain.ElectionId, partyId domain.PartyId, m domain.VerificationMethod) (domain.Ballot, error) {
				return domain.Ballot{}, &internal_errors.ErrorWithStatusCode{Message: "You have already voted", StatusCode: http.StatusBadRequest}
			},
		}
		h := ballotHandler(ballot)
		rr := httptest.NewRecorder()
		req := withVoter(createRequest(t, "POST", "/api/election/vote", []byte(`{"electionId":5,"partyId":10}`)), voter)

		h.CastVote(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "already voted")
	})

	t.Run("missing fields", func(t *testing.T) {
		h := ballotHandler(&MockBallotService{})
		rr := httptest.NewRecorder()
		req := withVoter(createRequest(t, "POST", "/api/election/vote", []byte(`{"electionId":5}`)), voter)

		h.CastVote(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestVerifyFaceHandler(t *testing.T) {
	voter := &domain.Voter{Id: 1, Role: domain.RoleVoter, IsVerified: true}

	t.Run("match", func(t *testing.T) {
		h := ballotHandler(&MockBallotService{})
		rr := httptest.NewRecorder()
		req := withVoter(createRequest(t, "POST", "/api/voter/verify-face", []byte(`{"faceImage":"base64image"}`)), voter)

		h.VerifyFace(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "distance")
	})

	t.Run("mismatch", func(t *testing.T) {
		ballot := &MockBallotService{
			VerifyFaceFunc: func(ctx context.Context, voterId domain.VoterId, faceImage string) (float64, error) {
				return 0.82, &internal_errors.ErrorWithStatusCode{Message: "Face does not match", StatusCode: http.StatusUnauthorized}
			},
		}
		h := ballotHandler(ballot)
		rr := httptest.NewRecorder()
		req := withVoter(createRequest(t, "POST", "/api/voter/verify-face", []byte(`{"faceImage":"base64image"}`)), voter)

		h.VerifyFace(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Contains(t, rr.Body.String(), "Face does not match")
		assert.Contains(t, rr.Body.String(), "0.82")
	})
}

func TestVerifyAndCastHandler(t *testing.T) {
	voter := &domain.Voter{Id: 1, Role: domain.RoleVoter, IsVerified: true}
	body := []byte(`{"electionId":5,"candidateId":10,"faceImage":"base64image"}`)

	t.Run("success returns distance", func(t *testing.T) {
		var gotParty domain.PartyId
		ballot := &MockBallotService{
			VerifyAndCastFunc: func(ctx context.Context, voterId domain.VoterId, electionId domain.ElectionId, partyId domain.PartyId, faceImage string) (domain.Ballot, float64, error) {
				gotParty = partyId
				return domain.Ballot{Id: 1, Voter: voterId, Election: electionId, Party: partyId, VerificationMethod: domain.VerificationFace}, 0.31, nil
			},
		}
		h := ballotHandler(ballot)
		rr := httptest.NewRecorder()
		req := withVoter(createRequest(t, "POST", "/api/voter/verify-and-vote", body), voter)

		h.VerifyAndCast(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, domain.PartyId(10), gotParty)
		assert.Contains(t, rr.Body.String(), "0.31")
	})

	t.Run("mismatch returns distance with 401", func(t *testing.T) {
		ballot := &MockBallotService{
			VerifyAndCastFunc: func(ctx context.Context, voterId domain.VoterId, electionId domain.ElectionId, partyId domain.PartyId, faceImage string) (domain.Ballot, float64, error) {
				return domain.Ballot{}, 0.82, &internal_errors.ErrorWithStatusCode{Message: "Face does not match", StatusCode: http.StatusUnauthorized}
			},
		}
		h := ballotHandler(ballot)
		rr := httptest.NewRecorder()
		req := withVoter(createRequest(t, "POST", "/api/voter/verify-and-vote", body), voter)

		h.VerifyAndCast(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Contains(t, rr.Body.String(), "0.82")
	})

	t.Run("verification outage maps to 503", func(t *testing.T) {
		ballot := &MockBallotService{
			VerifyAndCastFunc: func(ctx context.Context, voterId domain.VoterId, electionId domain.ElectionId, partyId domain.PartyId, faceImage string) (domain.Ballot, float64, error) {
				return domain.Ballot{}, 0, &internal_errors.ErrorWithStatusCode{Message: "Verification service unavailable", StatusCode: http.StatusServiceUnavailable}
			},
		}
		h := ballotHandler(ballot)
		rr := httptest.NewRecorder()
		req := withVoter(createRequest(t, "POST", "/api/voter/verify-and-vote", body), voter)

		h.VerifyAndCast(rr, req)
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})
}
