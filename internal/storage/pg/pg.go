package pg

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/evoting-dev/evoting/internal/config"
	"github.com/evoting-dev/evoting/internal/logger"
)

// Querier abstracts over *sql.DB and *sql.Tx so the core query logic is
// transaction-agnostic.
type Querier interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

type Storage struct {
	db  *sql.DB
	cfg *config.Config
}

func New(cfg *config.Config) (*Storage, error) {
	logger.Log.Info("connecting to db", "host", cfg.Public.Pg.Host, "dbname", cfg.Public.Pg.Dbname)
	db, err := Connect(cfg)
	if err != nil {
		return nil, err
	}
	logger.Log.Info("successfully connected to db")

	storage := &Storage{db, cfg}
	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return storage, nil
}

func Connect(cfg *config.Config) (*sql.DB, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Public.Pg.Host, cfg.Public.Pg.Port, cfg.Public.Pg.User, cfg.Private.PgPassword, cfg.Public.Pg.Dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

func (s *Storage) Cleanup() error {
	return s.db.Close()
}

// withTx executes fn within a transaction. The deferred Rollback is a
// no-op once the transaction has been committed.
func (s *Storage) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// initSchema creates the tables if they do not exist. The unique
// constraint on ballots(voter_id, election_id) is the enforcement point
// of the one-vote-per-voter-per-election invariant.
func (s *Storage) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS voters (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		phone_number TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		date_of_birth DATE NOT NULL,
		face_encoding FLOAT8[] NOT NULL,
		role TEXT NOT NULL DEFAULT 'voter' CHECK (role IN ('voter', 'admin')),
		is_verified BOOLEAN NOT NULL DEFAULT FALSE,
		otp_hash TEXT,
		otp_expires_at TIMESTAMPTZ,
		voted_elections BIGINT[] NOT NULL DEFAULT '{}',
		voted_for BIGINT,
		voted_party TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS parties (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		party_name TEXT NOT NULL,
		party_symbol TEXT NOT NULL,
		votes INTEGER NOT NULL DEFAULT 0 CHECK (votes >= 0),
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS elections (
		id BIGSERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		start_date TIMESTAMPTZ NOT NULL,
		end_date TIMESTAMPTZ NOT NULL CHECK (end_date >= start_date),
		parties BIGINT[] NOT NULL CHECK (cardinality(parties) > 0),
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS ballots (
		id BIGSERIAL PRIMARY KEY,
		voter_id BIGINT NOT NULL REFERENCES voters(id),
		election_id BIGINT NOT NULL REFERENCES elections(id),
		party_id BIGINT NOT NULL REFERENCES parties(id),
		verification_method TEXT NOT NULL CHECK (verification_method IN ('face', 'otp', 'fingerprint')),
		cast_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (voter_id, election_id)
	);

	CREATE INDEX IF NOT EXISTS ballots_election_party_idx ON ballots (election_id, party_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}
	return nil
}
