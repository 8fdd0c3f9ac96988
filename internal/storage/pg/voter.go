package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/evoting-dev/evoting/internal/domain"
	internal_errors "github.com/evoting-dev/evoting/internal/errors"
)

const voterColumns = `id, name, email, phone_number, password_hash, date_of_birth, face_encoding,
	role, is_verified, otp_hash, (otp_expires_at at time zone 'utc'), voted_elections, voted_for, voted_party, created_at`

// SaveVoter inserts a new, unverified voter. Duplicate email and phone
// number map to distinct user-facing conflicts via the unique constraints.
func (s *Storage) SaveVoter(voter domain.Voter) (domain.VoterId, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var id domain.VoterId
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = s.saveVoter(tx, voter)
		return err
	})
	return id, err
}

func (s *Storage) Voter(id domain.VoterId) (domain.Voter, error) {
	return s.voter(s.db, id)
}

func (s *Storage) VoterByEmail(email domain.Email) (domain.Voter, error) {
	return s.voterByEmail(s.db, email)
}

// MarkVerified flips the verification flag and clears the one-time code
// in a single statement, so a confirmed code cannot be replayed.
func (s *Storage) MarkVerified(id domain.VoterId) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.markVerified(tx, id)
	})
}

// Voters returns the full roster without credential or OTP material.
func (s *Storage) Voters() ([]domain.Voter, error) {
	rows, err := s.db.Query(`
		SELECT id, name, email, phone_number, date_of_birth, role, is_verified, voted_elections, voted_for, voted_party, created_at
		FROM voters ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query voters: %w", err)
	}
	defer rows.Close()

	var voters []domain.Voter
	for rows.Next() {
		var v domain.Voter
		var votedFor sql.NullInt64
		var votedParty sql.NullString
		if err := rows.Scan(&v.Id, &v.Name, &v.Email, &v.PhoneNumber, &v.DateOfBirth, &v.Role,
			&v.IsVerified, (*pq.Int64Array)(&v.VotedElections), &votedFor, &votedParty, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan voter: %w", err)
		}
		if votedFor.Valid {
			v.VotedFor = &votedFor.Int64
		}
		v.VotedParty = votedParty.String
		voters = append(voters, v)
	}
	return voters, rows.Err()
}

// =========================================================================
// Internal methods
// =========================================================================

func (s *Storage) saveVoter(q Querier, voter domain.Voter) (domain.VoterId, error) {
	var id domain.VoterId
	err := q.QueryRow(`
		INSERT INTO voters(name, email, phone_number, password_hash, date_of_birth, face_encoding, role, is_verified, otp_hash, otp_expires_at)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		voter.Name, voter.Email, voter.PhoneNumber, voter.PassHash, voter.DateOfBirth,
		pq.Float64Array(voter.FaceEncoding), string(voter.Role), voter.IsVerified,
		nullString(voter.OtpHash), nullTime(voter.OtpExpires),
	).Scan(&id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			if strings.Contains(pqErr.Constraint, "phone") {
				return -1, &internal_errors.ErrorWithStatusCode{Message: "This phone number is already registered. Please use a different phone number.", StatusCode: http.StatusBadRequest}
			}
			return -1, &internal_errors.ErrorWithStatusCode{Message: "This email is already registered. Please use a different email address.", StatusCode: http.StatusBadRequest}
		}
		return -1, fmt.Errorf("failed to insert voter: %w", err)
	}
	return id, nil
}

func (s *Storage) voter(q Querier, id domain.VoterId) (domain.Voter, error) {
	row := q.QueryRow("SELECT "+voterColumns+" FROM voters WHERE id = $1", id)
	return scanVoter(row)
}

func (s *Storage) voterByEmail(q Querier, email domain.Email) (domain.Voter, error) {
	row := q.QueryRow("SELECT "+voterColumns+" FROM voters WHERE email = $1", email)
	return scanVoter(row)
}

func (s *Storage) markVerified(q Querier, id domain.VoterId) error {
	result, err := q.Exec("UPDATE voters SET is_verified = TRUE, otp_hash = NULL, otp_expires_at = NULL WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to mark voter verified: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows for verification: %w", err)
	}
	if rowsAffected == 0 {
		return &internal_errors.ErrorWithStatusCode{Message: "Voter not found", StatusCode: http.StatusNotFound}
	}
	return nil
}

func scanVoter(row *sql.Row) (domain.Voter, error) {
	var v domain.Voter
	var otpHash, votedParty sql.NullString
	var otpExpires sql.NullTime
	var votedFor sql.NullInt64

	err := row.Scan(&v.Id, &v.Name, &v.Email, &v.PhoneNumber, &v.PassHash, &v.DateOfBirth,
		(*pq.Float64Array)(&v.FaceEncoding), &v.Role, &v.IsVerified, &otpHash, &otpExpires,
		(*pq.Int64Array)(&v.VotedElections), &votedFor, &votedParty, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Voter{}, &internal_errors.ErrorWithStatusCode{Message: "Voter not found", StatusCode: http.StatusNotFound}
		}
		return domain.Voter{}, fmt.Errorf("failed to query voter: %w", err)
	}

	v.OtpHash = otpHash.String
	if otpExpires.Valid {
		v.OtpExpires = otpExpires.Time
	}
	if votedFor.Valid {
		v.VotedFor = &votedFor.Int64
	}
	v.VotedParty = votedParty.String
	return v, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
