package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	audit "wmoned/pkg/platform/audit"
)

// Schema creates the audit_events table. Applied by EnsureSchema.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id              UUID PRIMARY KEY,
	category        TEXT NOT NULL,
	action          TEXT NOT NULL,
	subject         TEXT NOT NULL DEFAULT '',
	subject_id_hash TEXT NOT NULL DEFAULT '',
	decision        TEXT NOT NULL DEFAULT '',
	reason          TEXT NOT NULL DEFAULT '',
	request_id      TEXT NOT NULL DEFAULT '',
	client_ip       TEXT NOT NULL DEFAULT '',
	client_summary  TEXT NOT NULL DEFAULT '',
	record_count    INTEGER NOT NULL DEFAULT 0,
	occurred_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS audit_events_subject_idx ON audit_events (subject_id_hash, occurred_at);
`

// Store implements audit.Store on PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a new PostgreSQL audit store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Connect opens a pool for dsn and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping audit database: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the audit table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create audit schema: %w", err)
	}
	return nil
}

// Append inserts one audit event. Re-appending an event with the same ID is
// a no-op, so redelivered events are stored once.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	id := uuid.New()
	if event.ID != "" {
		parsed, err := uuid.Parse(event.ID)
		if err != nil {
			return fmt.Errorf("audit event id: %w", err)
		}
		id = parsed
	}
	category := event.Category
	if category == "" {
		category = audit.AuditEvent(event.Action).Category()
	}
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_events (id, category, action, subject, subject_id_hash, decision, reason,
			request_id, client_ip, client_summary, record_count, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING`,
		id, string(category), event.Action, event.Subject, event.SubjectIDHash,
		event.Decision, event.Reason, event.RequestID, event.ClientIP, event.ClientSummary,
		event.Count, ts,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListBySubject returns the events recorded for a hashed subject, oldest first.
func (s *Store) ListBySubject(ctx context.Context, subjectIDHash string) ([]audit.Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, category, action, subject, subject_id_hash, decision, reason,
			request_id, client_ip, client_summary, record_count, occurred_at
		FROM audit_events
		WHERE subject_id_hash = $1
		ORDER BY occurred_at ASC`, subjectIDHash)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (audit.Event, error) {
		var e audit.Event
		var id uuid.UUID
		var category string
		err := row.Scan(&id, &category, &e.Action, &e.Subject, &e.SubjectIDHash, &e.Decision, &e.Reason,
			&e.RequestID, &e.ClientIP, &e.ClientSummary, &e.Count, &e.Timestamp)
		e.ID = id.String()
		e.Category = audit.EventCategory(category)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan audit events: %w", err)
	}
	return events, nil
}
