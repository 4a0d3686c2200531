package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/subscan/internal/model"
)

// Pool is the subset of pgxpool.Pool the store needs. pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
	now     func() time.Time
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close, now: time.Now}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS scan_sessions (
	id              TEXT PRIMARY KEY,
	started_at      TIMESTAMPTZ NOT NULL,
	duration_ms     BIGINT NOT NULL DEFAULT 0,
	items_scanned   INTEGER NOT NULL DEFAULT 0,
	candidate_count INTEGER NOT NULL DEFAULT 0,
	error           TEXT NOT NULL DEFAULT '',
	result          JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS confirmed_subscriptions (
	id           TEXT PRIMARY KEY,
	session_id   TEXT NOT NULL DEFAULT '',
	display_name TEXT NOT NULL,
	origin       TEXT NOT NULL,
	data         JSONB NOT NULL,
	confirmed_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_scan_sessions_started_at ON scan_sessions(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_confirmed_session_id ON confirmed_subscriptions(session_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveSession(ctx context.Context, result *model.SessionResult) error {
	if result == nil {
		return eris.New("postgres: nil session")
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal session")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO scan_sessions (id, started_at, duration_ms, items_scanned, candidate_count, error, result)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		result.ID, result.StartedAt.UTC(), result.Duration.Milliseconds(), result.ItemsScanned,
		len(result.Candidates), result.Error, resultJSON,
	)
	return eris.Wrapf(err, "postgres: insert session %s", result.ID)
}

func (s *PostgresStore) SaveConfirmed(ctx context.Context, sessionID string, records []model.Candidate) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin confirm")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	now := s.now().UTC()
	for _, c := range records {
		data, err := json.Marshal(c)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal candidate %s", c.ID)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO confirmed_subscriptions (id, session_id, display_name, origin, data, confirmed_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (id) DO UPDATE SET
				session_id = EXCLUDED.session_id,
				display_name = EXCLUDED.display_name,
				origin = EXCLUDED.origin,
				data = EXCLUDED.data,
				confirmed_at = EXCLUDED.confirmed_at`,
			c.ID, sessionID, c.DisplayName, string(c.Origin), data, now,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: upsert confirmed %s", c.ID)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit confirm")
}

func (s *PostgresStore) ListSessions(ctx context.Context, limit int) ([]model.SessionResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT result FROM scan_sessions ORDER BY started_at DESC LIMIT $1`,
		listLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list sessions")
	}
	defer rows.Close()

	var sessions []model.SessionResult
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan session")
		}
		var r model.SessionResult
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal session")
		}
		sessions = append(sessions, r)
	}
	return sessions, eris.Wrap(rows.Err(), "postgres: list sessions iterate")
}

func (s *PostgresStore) ListConfirmed(ctx context.Context) ([]model.Subscription, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT session_id, data, confirmed_at FROM confirmed_subscriptions
		 ORDER BY lower(display_name), id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list confirmed")
	}
	defer rows.Close()

	var subs []model.Subscription
	for rows.Next() {
		var sub model.Subscription
		var data []byte
		if err := rows.Scan(&sub.SessionID, &data, &sub.ConfirmedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan confirmed")
		}
		if err := json.Unmarshal(data, &sub.Candidate); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal confirmed")
		}
		subs = append(subs, sub)
	}
	return subs, eris.Wrap(rows.Err(), "postgres: list confirmed iterate")
}
