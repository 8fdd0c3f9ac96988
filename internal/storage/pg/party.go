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
)

const partyColumns = "id, name, party_name, party_symbol, votes, is_active, created_at"

func (s *Storage) SaveParty(party domain.Party) (domain.PartyId, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var id domain.PartyId
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = s.saveParty(tx, party)
		return err
	})
	return id, err
}

func (s *Storage) Party(id domain.PartyId) (domain.Party, error) {
	return s.party(s.db, id)
}

// ActiveParties returns all ballot options still visible to voters.
func (s *Storage) ActiveParties() ([]domain.Party, error) {
	return s.queryParties(s.db, "SELECT "+partyColumns+" FROM parties WHERE is_active ORDER BY id")
}

// PartiesByIds resolves a set of party ids to their active records.
// Callers compare the returned count to the requested count; any stale or
// inactive id silently shrinks the result, which is the validity signal.
func (s *Storage) PartiesByIds(ids []domain.PartyId) ([]domain.Party, error) {
	return s.queryParties(s.db,
		"SELECT "+partyColumns+" FROM parties WHERE id = ANY($1) AND is_active ORDER BY id",
		pq.Int64Array(ids))
}

// DeactivateParty soft-deletes: tally history is retained for audit.
func (s *Storage) DeactivateParty(id domain.PartyId) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.Exec("UPDATE parties SET is_active = FALSE WHERE id = $1", id)
		if err != nil {
			return fmt.Errorf("failed to deactivate party: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check affected rows for party deactivation: %w", err)
		}
		if rowsAffected == 0 {
			return &internal_errors.ErrorWithStatusCode{Message: "Candidate not found", StatusCode: http.StatusNotFound}
		}
		return nil
	})
}

func (s *Storage) DeactivateAllParties() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec("UPDATE parties SET is_active = FALSE"); err != nil {
			return fmt.Errorf("failed to deactivate parties: %w", err)
		}
		return nil
	})
}

// ResetTallies zeroes every active party's tally. Ballot records and voter
// history are left intact on purpose; see the admin reset semantics.
func (s *Storage) ResetTallies() (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var count int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.Exec("UPDATE parties SET votes = 0 WHERE is_active")
		if err != nil {
			return fmt.Errorf("failed to reset tallies: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check affected rows for tally reset: %w", err)
		}
		count = int(rowsAffected)
		return nil
	})
	return count, err
}

// Results returns active parties ordered by tally descending.
func (s *Storage) Results() ([]domain.Party, error) {
	return s.queryParties(s.db, "SELECT "+partyColumns+" FROM parties WHERE is_active ORDER BY votes DESC, id")
}

// =========================================================================
// Internal methods
// =========================================================================

func (s *Storage) saveParty(q Querier, party domain.Party) (domain.PartyId, error) {
	var id domain.PartyId
	err := q.QueryRow(`
		INSERT INTO parties(name, party_name, party_symbol) VALUES($1, $2, $3) RETURNING id`,
		party.Name, party.PartyName, party.PartySymbol,
	).Scan(&id)
	if err != nil {
		return -1, fmt.Errorf("failed to insert party: %w", err)
	}
	return id, nil
}

func (s *Storage) party(q Querier, id domain.PartyId) (domain.Party, error) {
	var p domain.Party
	err := q.QueryRow("SELECT "+partyColumns+" FROM parties WHERE id = $1", id).
		Scan(&p.Id, &p.Name, &p.PartyName, &p.PartySymbol, &p.Votes, &p.IsActive, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Party{}, &internal_errors.ErrorWithStatusCode{Message: "Candidate not found", StatusCode: http.StatusNotFound}
		}
		return domain.Party{}, fmt.Errorf("failed to query party: %w", err)
	}
	return p, nil
}

func (s *Storage) queryParties(q Querier, query string, args ...interface{}) ([]domain.Party, error) {
	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query parties: %w", err)
	}
	defer rows.Close()

	var parties []domain.Party
	for rows.Next() {
		var p domain.Party
		if err := rows.Scan(&p.Id, &p.Name, &p.PartyName, &p.PartySymbol, &p.Votes, &p.IsActive, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan party: %w", err)
		}
		parties = append(parties, p)
	}
	return parties, rows.Err()
}
