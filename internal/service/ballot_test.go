package service

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evoting-dev/evoting/internal/domain"
	internal_errors "github.com/evoting-dev/evoting/internal/errors"
	"github.com/evoting-dev/evoting/internal/face"
)

// --- Mocks ---

type MockBallotStorage struct {
	VoterFunc        func(id domain.VoterId) (domain.Voter, error)
	ElectionFunc     func(id domain.ElectionId) (domain.Election, error)
	PartyFunc        func(id domain.PartyId) (domain.Party, error)
	CastVoteFunc     func(ctx context.Context, ballot domain.Ballot, votedParty string) (domain.Ballot, error)
	ResultsFunc      func() ([]domain.Party, error)
	ResetTalliesFunc func() (int, error)
}

func (m *MockBallotStorage) Voter(id domain.VoterId) (domain.Voter, error) {
	if m.VoterFunc != nil {
		return m.VoterFunc(id)
	}
	return domain.Voter{Id: id, Role: domain.RoleVoter, IsVerified: true, FaceEncoding: domain.FaceEncoding{0.1}}, nil
}

func (m *MockBallotStorage) Election(id domain.ElectionId) (domain.Election, error) {
	if m.ElectionFunc != nil {
		return m.ElectionFunc(id)
	}
	return openElection(id), nil
}

func (m *MockBallotStorage) Party(id domain.PartyId) (domain.Party, error) {
	if m.PartyFunc != nil {
		return m.PartyFunc(id)
	}
	return domain.Party{Id: id, PartyName: "Unity", IsActive: true}, nil
}

func (m *MockBallotStorage) CastVote(ctx context.Context, ballot domain.Ballot, votedParty string) (domain.Ballot, error) {
	if m.CastVoteFunc != nil {
		return m.CastVoteFunc(ctx, ballot, votedParty)
	}
	ballot.Id = 1
	ballot.CastAt = time.Now()
	return ballot, nil
}

func (m *MockBallotStorage) Results() ([]domain.Party, error) {
	if m.ResultsFunc != nil {
		return m.ResultsFunc()
	}
	return nil, nil
}

func (m *MockBallotStorage) ResetTallies() (int, error) {
	if m.ResetTalliesFunc != nil {
		return m.ResetTalliesFunc()
	}
	return 0, nil
}

type MockFaceMatcher struct {
	MatchFaceFunc func(ctx context.Context, stored domain.FaceEncoding, image string) (face.MatchResult, error)
}

func (m *MockFaceMatcher) MatchFace(ctx context.Context, stored domain.FaceEncoding, image string) (face.MatchResult, error) {
	if m.MatchFaceFunc != nil {
		return m.MatchFaceFunc(ctx, stored, image)
	}
	return face.MatchResult{IsMatch: true, Distance: 0.31}, nil
}

func openElection(id domain.ElectionId) domain.Election {
	return domain.Election{
		Id:        id,
		Title:     "General Election",
		StartDate: time.Now().Add(-time.Hour),
		EndDate:   time.Now().Add(time.Hour),
		Parties:   domain.PartyIds{10, 11},
		IsActive:  true,
	}
}

// --- CastVote preconditions ---

func TestCastVote(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		var captured domain.Ballot
		storage := &MockBallotStorage{
			CastVoteFunc: func(ctx context.Context, ballot domain.Ballot, votedParty string) (domain.Ballot, error) {
				captured = ballot
				assert.Equal(t, "Unity", votedParty)
				ballot.Id = 42
				return ballot, nil
			},
		}
		svc := NewBallot(storage, &MockFaceMatcher{})

		ballot, err := svc.CastVote(ctx, 1, 5, 10, domain.VerificationOTP)

		require.NoError(t, err)
		assert.Equal(t, int64(42), ballot.Id)
		assert.Equal(t, domain.VoterId(1), captured.Voter)
		assert.Equal(t, domain.ElectionId(5), captured.Election)
		assert.Equal(t, domain.PartyId(10), captured.Party)
		assert.Equal(t, domain.VerificationOTP, captured.VerificationMethod)
	})

	t.Run("invalid verification method", func(t *testing.T) {
		svc := NewBallot(&MockBallotStorage{}, &MockFaceMatcher{})

		_, err := svc.CastVote(ctx, 1, 5, 10, "carrier-pigeon")
		assert.True(t, internal_errors.IsStatus(err, http.StatusBadRequest))
	})

	t.Run("unknown voter", func(t *testing.T) {
		storage := &MockBallotStorage{
			VoterFunc: func(id domain.VoterId) (domain.Voter, error) {
				return domain.Voter{}, &internal_errors.ErrorWithStatusCode{Message: "Voter not found", StatusCode: http.StatusNotFound}
			},
		}
		svc := NewBallot(storage, &MockFaceMatcher{})

		_, err := svc.CastVote(ctx, 1, 5, 10, domain.VerificationOTP)
		assert.True(t, internal_errors.IsStatus(err, http.StatusNotFound))
	})

	t.Run("already voted", func(t *testing.T) {
		storage := &MockBallotStorage{
			VoterFunc: func(id domain.VoterId) (domain.Voter, error) {
				return domain.Voter{Id: id, VotedElections: domain.ElectionIds{5}}, nil
			},
		}
		svc := NewBallot(storage, &MockFaceMatcher{})

		_, err := svc.CastVote(ctx, 1, 5, 10, domain.VerificationOTP)
		require.Error(t, err)
		assert.Equal(t, "You have already voted", err.Error())
		assert.True(t, internal_errors.IsStatus(err, http.StatusBadRequest))
	})

	t.Run("election not started", func(t *testing.T) {
		storage := &MockBallotStorage{
			ElectionFunc: func(id domain.ElectionId) (domain.Election, error) {
				e := openElection(id)
				e.StartDate = time.Now().Add(time.Hour)
				e.EndDate = time.Now().Add(2 * time.Hour)
				return e, nil
			},
		}
		svc := NewBallot(storage, &MockFaceMatcher{})

		_, err := svc.CastVote(ctx, 1, 5, 10, domain.VerificationOTP)
		require.Error(t, err)
		assert.Equal(t, "Election is not open", err.Error())
	})

	t.Run("election ended", func(t *testing.T) {
		storage := &MockBallotStorage{
			ElectionFunc: func(id domain.ElectionId) (domain.Election, error) {
				e := openElection(id)
				e.StartDate = time.Now().Add(-2 * time.Hour)
				e.EndDate = time.Now().Add(-time.Hour)
				return e, nil
			},
		}
		svc := NewBallot(storage, &MockFaceMatcher{})

		_, err := svc.CastVote(ctx, 1, 5, 10, domain.VerificationOTP)
		require.Error(t, err)
		assert.Equal(t, "Election is not open", err.Error())
	})

	t.Run("inactive party looks like missing candidate", func(t *testing.T) {
		storage := &MockBallotStorage{
			PartyFunc: func(id domain.PartyId) (domain.Party, error) {
				return domain.Party{Id: id, IsActive: false}, nil
			},
		}
		svc := NewBallot(storage, &MockFaceMatcher{})

		_, err := svc.CastVote(ctx, 1, 5, 10, domain.VerificationOTP)
		require.Error(t, err)
		assert.Equal(t, "Candidate not found", err.Error())
		assert.True(t, internal_errors.IsStatus(err, http.StatusNotFound))
	})

	t.Run("party not in election", func(t *testing.T) {
		svc := NewBallot(&MockBallotStorage{}, &MockFaceMatcher{})

		_, err := svc.CastVote(ctx, 1, 5, 99, domain.VerificationOTP)
		require.Error(t, err)
		assert.Equal(t, "Party is not part of this election", err.Error())
	})

	t.Run("already-voted wins over closed election", func(t *testing.T) {
		electionLoaded := false
		storage := &MockBallotStorage{
			VoterFunc: func(id domain.VoterId) (domain.Voter, error) {
				return domain.Voter{Id: id, VotedElections: domain.ElectionIds{5}}, nil
			},
			ElectionFunc: func(id domain.ElectionId) (domain.Election, error) {
				electionLoaded = true
				e := openElection(id)
				e.EndDate = time.Now().Add(-time.Hour)
				return e, nil
			},
		}
		svc := NewBallot(storage, &MockFaceMatcher{})

		_, err := svc.CastVote(ctx, 1, 5, 10, domain.VerificationOTP)
		require.Error(t, err)
		assert.Equal(t, "You have already voted", err.Error())
		assert.False(t, electionLoaded)
	})
}

// --- Concurrency ---

// fakeLedger mimics the storage transaction: ballot insert, tally
// increment and voted-in append succeed or fail as one unit, with the
// (voter, election) pair unique.
type fakeLedger struct {
	mu      sync.Mutex
	voters  map[domain.VoterId]*domain.Voter
	ballots map[[2]int64]domain.Ballot
	tallies map[domain.PartyId]int
	nextId  int64
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		voters:  make(map[domain.VoterId]*domain.Voter),
		ballots: make(map[[2]int64]domain.Ballot),
		tallies: make(map[domain.PartyId]int),
	}
}

func (f *fakeLedger) addVoter(id domain.VoterId) {
	f.voters[id] = &domain.Voter{Id: id, Role: domain.RoleVoter, IsVerified: true}
}

func (f *fakeLedger) Voter(id domain.VoterId) (domain.Voter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.voters[id]
	if !ok {
		return domain.Voter{}, &internal_errors.ErrorWithStatusCode{Message: "Voter not found", StatusCode: http.StatusNotFound}
	}
	return *v, nil
}

func (f *fakeLedger) Election(id domain.ElectionId) (domain.Election, error) {
	return openElection(id), nil
}

func (f *fakeLedger) Party(id domain.PartyId) (domain.Party, error) {
	return domain.Party{Id: id, PartyName: "Unity", IsActive: true}, nil
}

func (f *fakeLedger) CastVote(ctx context.Context, ballot domain.Ballot, votedParty string) (domain.Ballot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := [2]int64{ballot.Voter, ballot.Election}
	if _, exists := f.ballots[key]; exists {
		return domain.Ballot{}, &internal_errors.ErrorWithStatusCode{Message: "You have already voted", StatusCode: http.StatusBadRequest}
	}

	f.nextId++
	ballot.Id = f.nextId
	ballot.CastAt = time.Now()
	f.ballots[key] = ballot
	f.tallies[ballot.Party]++
	v := f.voters[ballot.Voter]
	v.VotedElections = append(v.VotedElections, ballot.Election)
	v.VotedFor = &ballot.Party
	v.VotedParty = votedParty
	return ballot, nil
}

func (f *fakeLedger) Results() ([]domain.Party, error) { return nil, nil }

func (f *fakeLedger) ResetTallies() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.tallies)
	f.tallies = make(map[domain.PartyId]int)
	return n, nil
}

func TestCastVoteConcurrent(t *testing.T) {
	const attempts = 50

	ledger := newFakeLedger()
	ledger.addVoter(1)
	svc := NewBallot(ledger, &MockFaceMatcher{})

	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CastVote(context.Background(), 1, 5, 10, domain.VerificationOTP)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded, alreadyVoted := 0, 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.Equal(t, "You have already voted", err.Error())
		alreadyVoted++
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, alreadyVoted)
	assert.Equal(t, 1, ledger.tallies[10])
	assert.Len(t, ledger.ballots, 1)
}

func TestCastVoteTallyConservation(t *testing.T) {
	const voters = 20

	ledger := newFakeLedger()
	for i := int64(1); i <= voters; i++ {
		ledger.addVoter(i)
	}
	svc := NewBallot(ledger, &MockFaceMatcher{})

	var wg sync.WaitGroup
	for i := int64(1); i <= voters; i++ {
		wg.Add(1)
		go func(id domain.VoterId) {
			defer wg.Done()
			party := domain.PartyId(10)
			if id%2 == 0 {
				party = 11
			}
			_, err := svc.CastVote(context.Background(), id, 5, party, domain.VerificationOTP)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	total := 0
	for _, n := range ledger.tallies {
		total += n
	}
	assert.Equal(t, voters, total)
	assert.Len(t, ledger.ballots, voters)
}

func TestResetTalliesKeepsVoterHistory(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addVoter(1)
	svc := NewBallot(ledger, &MockFaceMatcher{})

	_, err := svc.CastVote(context.Background(), 1, 5, 10, domain.VerificationOTP)
	require.NoError(t, err)

	count, err := svc.ResetTallies()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// history survives the reset, so a second cast still fails
	_, err = svc.CastVote(context.Background(), 1, 5, 10, domain.VerificationOTP)
	require.Error(t, err)
	assert.Equal(t, "You have already voted", err.Error())
	assert.Len(t, ledger.ballots, 1)
}

// --- Face verification ---

func TestVerifyFace(t *testing.T) {
	ctx := context.Background()

	t.Run("match", func(t *testing.T) {
		svc := NewBallot(&MockBallotStorage{}, &MockFaceMatcher{})

		distance, err := svc.VerifyFace(ctx, 1, "image")
		require.NoError(t, err)
		assert.InDelta(t, 0.31, distance, 1e-9)
	})

	t.Run("mismatch still reports distance", func(t *testing.T) {
		matcher := &MockFaceMatcher{
			MatchFaceFunc: func(ctx context.Context, stored domain.FaceEncoding, image string) (face.MatchResult, error) {
				return face.MatchResult{IsMatch: false, Distance: 0.82}, nil
			},
		}
		svc := NewBallot(&MockBallotStorage{}, matcher)

		distance, err := svc.VerifyFace(ctx, 1, "image")
		require.Error(t, err)
		assert.True(t, internal_errors.IsStatus(err, http.StatusUnauthorized))
		assert.InDelta(t, 0.82, distance, 1e-9)
	})
}

func TestVerifyAndCast(t *testing.T) {
	ctx := context.Background()

	t.Run("success records a face-verified ballot", func(t *testing.T) {
		ledger := newFakeLedger()
		ledger.addVoter(1)
		svc := NewBallot(ledger, &MockFaceMatcher{})

		ballot, distance, err := svc.VerifyAndCast(ctx, 1, 5, 10, "image")

		require.NoError(t, err)
		assert.Equal(t, domain.VerificationFace, ballot.VerificationMethod)
		assert.InDelta(t, 0.31, distance, 1e-9)
		assert.Equal(t, 1, ledger.tallies[10])
	})

	t.Run("mismatch casts nothing", func(t *testing.T) {
		ledger := newFakeLedger()
		ledger.addVoter(1)
		matcher := &MockFaceMatcher{
			MatchFaceFunc: func(ctx context.Context, stored domain.FaceEncoding, image string) (face.MatchResult, error) {
				return face.MatchResult{IsMatch: false, Distance: 0.9}, nil
			},
		}
		svc := NewBallot(ledger, matcher)

		_, _, err := svc.VerifyAndCast(ctx, 1, 5, 10, "image")
		require.Error(t, err)
		assert.True(t, internal_errors.IsStatus(err, http.StatusUnauthorized))
		assert.Empty(t, ledger.ballots)
	})

	t.Run("matcher outage casts nothing", func(t *testing.T) {
		ledger := newFakeLedger()
		ledger.addVoter(1)
		matcher := &MockFaceMatcher{
			MatchFaceFunc: func(ctx context.Context, stored domain.FaceEncoding, image string) (face.MatchResult, error) {
				return face.MatchResult{}, &internal_errors.ErrorWithStatusCode{
					Message:    "Verification service unavailable",
					StatusCode: http.StatusServiceUnavailable,
				}
			},
		}
		svc := NewBallot(ledger, matcher)

		_, _, err := svc.VerifyAndCast(ctx, 1, 5, 10, "image")
		require.Error(t, err)
		assert.True(t, internal_errors.IsStatus(err, http.StatusServiceUnavailable))
		assert.Empty(t, ledger.ballots)
	})

	t.Run("already voted skips face matching", func(t *testing.T) {
		matched := false
		storage := &MockBallotStorage{
			VoterFunc: func(id domain.VoterId) (domain.Voter, error) {
				return domain.Voter{Id: id, VotedElections: domain.ElectionIds{5}}, nil
			},
		}
		matcher := &MockFaceMatcher{
			MatchFaceFunc: func(ctx context.Context, stored domain.FaceEncoding, image string) (face.MatchResult, error) {
				matched = true
				return face.MatchResult{IsMatch: true}, nil
			},
		}
		svc := NewBallot(storage, matcher)

		_, _, err := svc.VerifyAndCast(ctx, 1, 5, 10, "image")
		require.Error(t, err)
		assert.Equal(t, "You have already voted", err.Error())
		assert.False(t, matched)
	})
}

func TestResults(t *testing.T) {
	storage := &MockBallotStorage{
		ResultsFunc: func() ([]domain.Party, error) {
			return []domain.Party{
				{Id: 11, PartyName: "Progress", Votes: 7, IsActive: true},
				{Id: 10, PartyName: "Unity", Votes: 3, IsActive: true},
			}, nil
		},
	}
	svc := NewBallot(storage, &MockFaceMatcher{})

	results, err := svc.Results()
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.GreaterOrEqual(t, results[0].Votes, results[1].Votes)
}
