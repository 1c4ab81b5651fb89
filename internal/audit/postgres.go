package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the audit table used by PostgresSink.
const Schema = `CREATE TABLE IF NOT EXISTS reveal_audit (
	id          BIGSERIAL PRIMARY KEY,
	request_id  TEXT NOT NULL,
	ceremony    UUID NOT NULL,
	outcome     TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	at          TIMESTAMPTZ NOT NULL
)`

// PostgresSink appends events to the reveal_audit table.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink creates a PostgreSQL-backed sink.
func NewPostgresSink(pool *pgxpool.Pool) *PostgresSink {
	return &PostgresSink{pool: pool}
}

// Migrate creates the audit table if it does not exist.
func (s *PostgresSink) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("migrate audit: %w", err)
	}
	return nil
}

func (s *PostgresSink) Record(ctx context.Context, ev Event) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO reveal_audit (request_id, ceremony, outcome, error, at)
		 VALUES ($1, $2, $3, $4, $5)`,
		ev.RequestID, ev.Ceremony.String(), ev.Outcome, ev.Error, ev.At,
	)
	if err != nil {
		return fmt.Errorf("record audit %s: %w", ev.RequestID, err)
	}
	return nil
}
