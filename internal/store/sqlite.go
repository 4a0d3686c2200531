package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/subscan/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS scan_sessions (
	id              TEXT PRIMARY KEY,
	started_at      DATETIME NOT NULL,
	duration_ms     INTEGER NOT NULL DEFAULT 0,
	items_scanned   INTEGER NOT NULL DEFAULT 0,
	candidate_count INTEGER NOT NULL DEFAULT 0,
	error           TEXT NOT NULL DEFAULT '',
	result          TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS confirmed_subscriptions (
	id           TEXT PRIMARY KEY,
	session_id   TEXT NOT NULL DEFAULT '',
	display_name TEXT NOT NULL,
	origin       TEXT NOT NULL,
	data         TEXT NOT NULL,
	confirmed_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scan_sessions_started_at ON scan_sessions(started_at);
CREATE INDEX IF NOT EXISTS idx_confirmed_session_id ON confirmed_subscriptions(session_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveSession(ctx context.Context, result *model.SessionResult) error {
	if result == nil {
		return eris.New("sqlite: nil session")
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal session")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO scan_sessions (id, started_at, duration_ms, items_scanned, candidate_count, error, result)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		result.ID, result.StartedAt.UTC(), result.Duration.Milliseconds(), result.ItemsScanned,
		len(result.Candidates), result.Error, string(resultJSON),
	)
	return eris.Wrapf(err, "sqlite: insert session %s", result.ID)
}

func (s *SQLiteStore) SaveConfirmed(ctx context.Context, sessionID string, records []model.Candidate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin confirm")
	}
	defer tx.Rollback() //nolint:errcheck

	now := s.now().UTC()
	for _, c := range records {
		data, err := json.Marshal(c)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal candidate %s", c.ID)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO confirmed_subscriptions (id, session_id, display_name, origin, data, confirmed_at)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
				session_id = excluded.session_id,
				display_name = excluded.display_name,
				origin = excluded.origin,
				data = excluded.data,
				confirmed_at = excluded.confirmed_at`,
			c.ID, sessionID, c.DisplayName, string(c.Origin), string(data), now,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: upsert confirmed %s", c.ID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit confirm")
}

func (s *SQLiteStore) ListSessions(ctx context.Context, limit int) ([]model.SessionResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT result FROM scan_sessions ORDER BY started_at DESC LIMIT ?`,
		listLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list sessions")
	}
	defer rows.Close()

	var sessions []model.SessionResult
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan session")
		}
		var r model.SessionResult
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal session")
		}
		sessions = append(sessions, r)
	}
	return sessions, eris.Wrap(rows.Err(), "sqlite: list sessions iterate")
}

func (s *SQLiteStore) ListConfirmed(ctx context.Context) ([]model.Subscription, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, data, confirmed_at FROM confirmed_subscriptions
		 ORDER BY display_name COLLATE NOCASE, id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list confirmed")
	}
	defer rows.Close()

	var subs []model.Subscription
	for rows.Next() {
		var sub model.Subscription
		var data string
		if err := rows.Scan(&sub.SessionID, &data, &sub.ConfirmedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan confirmed")
		}
		if err := json.Unmarshal([]byte(data), &sub.Candidate); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal confirmed")
		}
		subs = append(subs, sub)
	}
	return subs, eris.Wrap(rows.Err(), "sqlite: list confirmed iterate")
}
