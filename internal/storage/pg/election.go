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

const electionColumns = "id, title, start_date, end_date, parties, is_active, created_at"

func (s *Storage) SaveElection(election domain.Election) (domain.ElectionId, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var id domain.ElectionId
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = s.saveElection(tx, election)
		return err
	})
	return id, err
}

func (s *Storage) Election(id domain.ElectionId) (domain.Election, error) {
	return s.election(s.db, id)
}

// LiveElections: not yet ended (open or upcoming).
func (s *Storage) LiveElections(now time.Time) ([]domain.Election, error) {
	return s.queryElections(s.db,
		"SELECT "+electionColumns+" FROM elections WHERE end_date >= $1 ORDER BY start_date", now)
}

// PreviousElections: already ended.
func (s *Storage) PreviousElections(now time.Time) ([]domain.Election, error) {
	return s.queryElections(s.db,
		"SELECT "+electionColumns+" FROM elections WHERE end_date < $1 ORDER BY end_date DESC", now)
}

// OpenElections: voting window currently open.
func (s *Storage) OpenElections(now time.Time) ([]domain.Election, error) {
	return s.queryElections(s.db,
		"SELECT "+electionColumns+" FROM elections WHERE is_active AND start_date <= $1 AND end_date >= $1 ORDER BY start_date", now)
}

// =========================================================================
// Internal methods
// =========================================================================

func (s *Storage) saveElection(q Querier, election domain.Election) (domain.ElectionId, error) {
	var id domain.ElectionId
	err := q.QueryRow(`
		INSERT INTO elections(title, start_date, end_date, parties) VALUES($1, $2, $3, $4) RETURNING id`,
		election.Title, election.StartDate, election.EndDate, pq.Int64Array(election.Parties),
	).Scan(&id)
	if err != nil {
		return -1, fmt.Errorf("failed to insert election: %w", err)
	}
	return id, nil
}

func (s *Storage) election(q Querier, id domain.ElectionId) (domain.Election, error) {
	var e domain.Election
	err := q.QueryRow("SELECT "+electionColumns+" FROM elections WHERE id = $1", id).
		Scan(&e.Id, &e.Title, &e.StartDate, &e.EndDate, (*pq.Int64Array)(&e.Parties), &e.IsActive, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Election{}, &internal_errors.ErrorWithStatusCode{Message: "Election not found", StatusCode: http.StatusNotFound}
		}
		return domain.Election{}, fmt.Errorf("failed to query election: %w", err)
	}
	return e, nil
}

func (s *Storage) queryElections(q Querier, query string, args ...interface{}) ([]domain.Election, error) {
	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query elections: %w", err)
	}
	defer rows.Close()

	var elections []domain.Election
	for rows.Next() {
		var e domain.Election
		if err := rows.Scan(&e.Id, &e.Title, &e.StartDate, &e.EndDate, (*pq.Int64Array)(&e.Parties), &e.IsActive, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan election: %w", err)
		}
		elections = append(elections, e)
	}
	return elections, rows.Err()
}
