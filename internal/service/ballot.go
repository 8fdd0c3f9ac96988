package service

import (
	"context"
	"net/http"
	"time"

	"github.com/evoting-dev/evoting/internal/domain"
	"github.com/evoting-dev/evoting/internal/errors"
	"github.com/evoting-dev/evoting/internal/face"
	"github.com/evoting-dev/evoting/internal/logger"
)

type BallotService interface {
	CastVote(ctx context.Context, voterId domain.VoterId, electionId domain.ElectionId, partyId domain.PartyId, method domain.VerificationMethod) (domain.Ballot, error)
	VerifyAndCast(ctx context.Context, voterId domain.VoterId, electionId domain.ElectionId, partyId domain.PartyId, faceImage string) (domain.Ballot, float64, error)
	VerifyFace(ctx context.Context, voterId domain.VoterId, faceImage string) (float64, error)
	Results() ([]domain.Party, error)
	ResetTallies() (int, error)
}

type BallotStorage interface {
	Voter(id domain.VoterId) (domain.Voter, error)
	Election(id domain.ElectionId) (domain.Election, error)
	Party(id domain.PartyId) (domain.Party, error)
	CastVote(ctx context.Context, ballot domain.Ballot, votedParty string) (domain.Ballot, error)
	Results() ([]domain.Party, error)
	ResetTallies() (int, error)
}

type FaceMatcher interface {
	MatchFace(ctx context.Context, stored domain.FaceEncoding, image string) (face.MatchResult, error)
}

// Ballot is the vote-casting core. Precondition checks here give callers
// precise failures in a fixed order; the storage transaction is what makes
// the cast safe under concurrency.
type Ballot struct {
	storage BallotStorage
	matcher FaceMatcher
}

func NewBallot(storage BallotStorage, matcher FaceMatcher) *Ballot {
	return &Ballot{storage: storage, matcher: matcher}
}

// CastVote checks, in order: voter exists, not already voted, election
// open, party active, party in election. First failure wins. On success
// the ballot insert, tally increment and voted-in append happen as one
// atomic storage operation.
func (b *Ballot) CastVote(ctx context.Context, voterId domain.VoterId, electionId domain.ElectionId, partyId domain.PartyId, method domain.VerificationMethod) (domain.Ballot, error) {
	if !method.Valid() {
		return domain.Ballot{}, &errors.ErrorWithStatusCode{Message: "Invalid verification method", StatusCode: http.StatusBadRequest}
	}

	voter, err := b.storage.Voter(voterId)
	if err != nil {
		return domain.Ballot{}, err
	}
	if voter.HasVotedIn(electionId) {
		return domain.Ballot{}, errAlreadyVoted()
	}

	election, err := b.storage.Election(electionId)
	if err != nil {
		return domain.Ballot{}, err
	}
	if !election.IsOpen(time.Now()) {
		return domain.Ballot{}, &errors.ErrorWithStatusCode{Message: "Election is not open", StatusCode: http.StatusBadRequest}
	}

	party, err := b.storage.Party(partyId)
	if err != nil {
		return domain.Ballot{}, err
	}
	if !party.IsActive {
		return domain.Ballot{}, &errors.ErrorWithStatusCode{Message: "Candidate not found", StatusCode: http.StatusNotFound}
	}

	if !election.HasParty(partyId) {
		return domain.Ballot{}, &errors.ErrorWithStatusCode{Message: "Party is not part of this election", StatusCode: http.StatusBadRequest}
	}

	ballot := domain.Ballot{
		Voter:              voterId,
		Election:           electionId,
		Party:              partyId,
		VerificationMethod: method,
	}
	return b.storage.CastVote(ctx, ballot, party.PartyName)
}

// VerifyFace compares a captured image against the voter's stored
// encoding. The distance is returned for display either way.
func (b *Ballot) VerifyFace(ctx context.Context, voterId domain.VoterId, faceImage string) (float64, error) {
	voter, err := b.storage.Voter(voterId)
	if err != nil {
		return 0, err
	}

	result, err := b.matcher.MatchFace(ctx, voter.FaceEncoding, faceImage)
	if err != nil {
		return 0, err
	}
	if !result.IsMatch {
		return result.Distance, &errors.ErrorWithStatusCode{Message: "Face does not match", StatusCode: http.StatusUnauthorized}
	}
	return result.Distance, nil
}

// VerifyAndCast runs face verification and the cast as one request. Any
// verification failure, including the matcher being unreachable, leaves
// zero ballots; a cast failure after a successful match mutates nothing
// either, because all effects live inside the storage transaction.
func (b *Ballot) VerifyAndCast(ctx context.Context, voterId domain.VoterId, electionId domain.ElectionId, partyId domain.PartyId, faceImage string) (domain.Ballot, float64, error) {
	voter, err := b.storage.Voter(voterId)
	if err != nil {
		return domain.Ballot{}, 0, err
	}
	if voter.HasVotedIn(electionId) {
		return domain.Ballot{}, 0, errAlreadyVoted()
	}

	result, err := b.matcher.MatchFace(ctx, voter.FaceEncoding, faceImage)
	if err != nil {
		return domain.Ballot{}, 0, err
	}
	if !result.IsMatch {
		logger.Log.Warn("face mismatch on vote attempt", "voter_id", voterId, "distance", result.Distance)
		return domain.Ballot{}, result.Distance, &errors.ErrorWithStatusCode{Message: "Face does not match", StatusCode: http.StatusUnauthorized}
	}

	ballot, err := b.CastVote(ctx, voterId, electionId, partyId, domain.VerificationFace)
	if err != nil {
		return domain.Ballot{}, result.Distance, err
	}
	return ballot, result.Distance, nil
}

// Results returns active parties ordered by tally, highest first.
func (b *Ballot) Results() ([]domain.Party, error) {
	return b.storage.Results()
}

// ResetTallies zeroes active-party tallies. Voter voted-in sets and ballot
// records are deliberately untouched: tallies and cast history diverge
// after a reset, which is the documented administrative behavior.
func (b *Ballot) ResetTallies() (int, error) {
	count, err := b.storage.ResetTallies()
	if err != nil {
		return 0, err
	}
	logger.Log.Info("tallies reset", "parties_updated", count)
	return count, nil
}

func errAlreadyVoted() error {
	return &errors.ErrorWithStatusCode{Message: "You have already voted", StatusCode: http.StatusBadRequest}
}
