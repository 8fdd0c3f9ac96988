package pg

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evoting-dev/evoting/internal/domain"
	internal_errors "github.com/evoting-dev/evoting/internal/errors"
)

func TestSaveParty(t *testing.T) {
	id := mustSaveParty(t)
	require.Greater(t, id, int64(0))

	party, err := storage.Party(id)
	require.NoError(t, err)
	assert.True(t, party.IsActive)
	assert.Equal(t, 0, party.Votes)
}

func TestPartyNotFound(t *testing.T) {
	_, err := storage.Party(999999)
	require.Error(t, err)
	assert.True(t, internal_errors.IsStatus(err, http.StatusNotFound))
}

func TestPartiesByIdsFiltersInactive(t *testing.T) {
	active := mustSaveParty(t)
	inactive := mustSaveParty(t)
	require.NoError(t, storage.DeactivateParty(inactive))

	parties, err := storage.PartiesByIds([]domain.PartyId{active, inactive})
	require.NoError(t, err)
	// the shrunken result is the caller's invalidity signal
	require.Len(t, parties, 1)
	assert.Equal(t, active, parties[0].Id)
}

func TestDeactivateParty(t *testing.T) {
	id := mustSaveParty(t)

	require.NoError(t, storage.DeactivateParty(id))

	// record survives the soft delete
	party, err := storage.Party(id)
	require.NoError(t, err)
	assert.False(t, party.IsActive)

	err = storage.DeactivateParty(999999)
	require.Error(t, err)
	assert.True(t, internal_errors.IsStatus(err, http.StatusNotFound))
}

func TestResetTallies(t *testing.T) {
	partyId := mustSaveParty(t)
	voterId, _ := mustSaveVoter(t)
	electionId := mustSaveElection(t, partyId)

	_, err := storage.CastVote(context.Background(), domain.Ballot{
		Voter: voterId, Election: electionId, Party: partyId,
		VerificationMethod: domain.VerificationOTP,
	}, "Party")
	require.NoError(t, err)

	party, err := storage.Party(partyId)
	require.NoError(t, err)
	require.Equal(t, 1, party.Votes)

	count, err := storage.ResetTallies()
	require.NoError(t, err)
	assert.Greater(t, count, 0)

	party, err = storage.Party(partyId)
	require.NoError(t, err)
	assert.Equal(t, 0, party.Votes)

	// ballots and voter history are untouched
	ballots, err := storage.BallotsCount(electionId)
	require.NoError(t, err)
	assert.Equal(t, 1, ballots)

	voter, err := storage.Voter(voterId)
	require.NoError(t, err)
	assert.True(t, voter.HasVotedIn(electionId))
}

func TestResultsOrder(t *testing.T) {
	results, err := storage.Results()
	require.NoError(t, err)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Votes, results[i].Votes)
	}
}
