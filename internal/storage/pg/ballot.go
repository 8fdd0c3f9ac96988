package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/lib/pq"

	"github.com/evoting-dev/evoting/internal/domain"
	internal_errors "github.com/evoting-dev/evoting/internal/errors"
	"github.com/evoting-dev/evoting/internal/logger"
)

// CastVote records a ballot, increments the party tally and appends the
// election to the voter's voted-in set as one transaction.
//
// Correctness does not rest on the service-level precondition checks: the
// unique constraint on (voter_id, election_id) makes a double vote fail at
// insert time, and the conditional voter update re-checks the voted-in set
// inside the same transaction. Two concurrent casts for the same pair get
// exactly one success and one AlreadyVoted, never two tally increments.
func (s *Storage) CastVote(ctx context.Context, ballot domain.Ballot, votedParty string) (domain.Ballot, error) {
	// Bound the whole atomic unit; a client disconnect or a slow database
	// aborts the transaction rather than leaving partial state.
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.insertBallot(tx, &ballot); err != nil {
			return err
		}
		if err := s.incrementTally(tx, ballot.Party); err != nil {
			return err
		}
		return s.recordVoterCast(tx, ballot, votedParty)
	})
	if err != nil {
		return domain.Ballot{}, err
	}

	logger.Log.Info("vote cast", "voter_id", ballot.Voter, "election_id", ballot.Election, "party_id", ballot.Party, "method", ballot.VerificationMethod)
	return ballot, nil
}

// BallotsCount returns the number of ballots recorded for an election.
func (s *Storage) BallotsCount(electionId domain.ElectionId) (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM ballots WHERE election_id = $1", electionId).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count ballots: %w", err)
	}
	return count, nil
}

// =========================================================================
// Internal methods
// =========================================================================

func (s *Storage) insertBallot(q Querier, ballot *domain.Ballot) error {
	err := q.QueryRow(`
		INSERT INTO ballots(voter_id, election_id, party_id, verification_method)
		VALUES($1, $2, $3, $4)
		RETURNING id, cast_at`,
		ballot.Voter, ballot.Election, ballot.Party, string(ballot.VerificationMethod),
	).Scan(&ballot.Id, &ballot.CastAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return &internal_errors.ErrorWithStatusCode{Message: "You have already voted", StatusCode: http.StatusBadRequest}
		}
		return fmt.Errorf("failed to insert ballot: %w", err)
	}
	return nil
}

// incrementTally is an atomic in-database increment, never read-modify-write.
func (s *Storage) incrementTally(q Querier, party domain.PartyId) error {
	result, err := q.Exec("UPDATE parties SET votes = votes + 1 WHERE id = $1 AND is_active", party)
	if err != nil {
		return fmt.Errorf("failed to increment tally: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows for tally increment: %w", err)
	}
	if rowsAffected == 0 {
		return &internal_errors.ErrorWithStatusCode{Message: "Candidate not found", StatusCode: http.StatusNotFound}
	}
	return nil
}

// recordVoterCast appends to the voted-in set and refreshes the
// denormalized voted_for/voted_party display fields. The guard clause
// re-checks set membership inside the transaction, so the cache can never
// diverge from the ballot ledger.
func (s *Storage) recordVoterCast(q Querier, ballot domain.Ballot, votedParty string) error {
	result, err := q.Exec(`
		UPDATE voters
		SET voted_elections = array_append(voted_elections, $2), voted_for = $3, voted_party = $4
		WHERE id = $1 AND NOT ($2 = ANY(voted_elections))`,
		ballot.Voter, ballot.Election, ballot.Party, votedParty)
	if err != nil {
		return fmt.Errorf("failed to record voter cast: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows for voter cast: %w", err)
	}
	if rowsAffected == 0 {
		return &internal_errors.ErrorWithStatusCode{Message: "You have already voted", StatusCode: http.StatusBadRequest}
	}
	return nil
}
