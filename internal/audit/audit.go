// Package audit records one row per tool invocation.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// Event outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeError       = "error"
	OutcomeBlocked     = "blocked"
	OutcomeRateLimited = "rate_limited"
	OutcomeInvalid     = "invalid"
)

type Event struct {
	ID         uuid.UUID
	Tool       string
	Actor      string
	RequestID  string
	Mutates    bool
	Outcome    string
	ErrorKind  string
	Args       map[string]any
	StartedAt  time.Time
	FinishedAt time.Time
}

type Recorder interface {
	Record(ctx context.Context, e Event) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Record(context.Context, Event) error { return nil }

// Execer is the subset of *pgxpool.Pool the recorder needs.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS tool_invocations (
	id uuid PRIMARY KEY,
	tool text NOT NULL,
	actor_sub text,
	request_id text,
	mutates boolean NOT NULL DEFAULT false,
	outcome text NOT NULL,
	error_kind text,
	args jsonb,
	duration_ms int,
	started_at timestamptz NOT NULL,
	finished_at timestamptz NOT NULL
);
CREATE INDEX IF NOT EXISTS tool_invocations_started_idx ON tool_invocations (started_at DESC);
`

// Postgres writes events to the tool_invocations table.
type Postgres struct {
	db  Execer
	log *zap.SugaredLogger
}

func NewPostgres(db Execer, log *zap.SugaredLogger) *Postgres {
	return &Postgres{db: db, log: log.Named("audit")}
}

// EnsureSchema creates the table when missing.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := p.db.Exec(ctx, schema)
	return err
}

func (p *Postgres) Record(ctx context.Context, e Event) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	args, err := json.Marshal(e.Args)
	if err != nil {
		args = []byte("null")
	}
	_, err = p.db.Exec(ctx, `
		INSERT INTO tool_invocations(id, tool, actor_sub, request_id, mutates, outcome, error_kind, args, duration_ms, started_at, finished_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, e.ID, e.Tool, e.Actor, e.RequestID, e.Mutates, e.Outcome, e.ErrorKind, args,
		int(e.FinishedAt.Sub(e.StartedAt).Milliseconds()), e.StartedAt.UTC(), e.FinishedAt.UTC())
	if err != nil {
		p.log.Warnw("audit insert failed", "tool", e.Tool, "id", e.ID, "err", err)
	}
	return err
}
