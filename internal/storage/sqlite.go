//go:build sqlite
// +build sqlite

package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	logx "trigsched/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// sqliteKeep bounds the table; older rows are pruned every pruneEvery appends.
const sqliteKeep = 10000

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger

	opCount    atomic.Uint64
	pruneEvery uint64
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log, pruneEvery: 500}

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) AppendFiring(ctx context.Context, r FiringRecord) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	var next any
	if !r.NextAt.IsZero() {
		next = r.NextAt.Format(time.RFC3339Nano)
	}
	ok := 0
	if r.OK {
		ok = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO firings(id, trigger, grp, dest, cmd, fired_at, next_at, ok, err)
		 VALUES(?,?,?,?,?,?,?,?,?)`,
		r.ID, r.TriggerID, r.Group, r.Destination, nullStr(r.Command),
		r.FiredAt.Format(time.RFC3339Nano), next, ok, nullStr(r.Error),
	)
	if err == nil && s.opCount.Add(1)%s.pruneEvery == 0 {
		pctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		if perr := s.prune(pctx); perr != nil {
			s.log.Debug("journal prune failed", logx.Err(perr))
		}
		cancel()
	}
	return err
}

func (s *sqliteStore) RecentFirings(ctx context.Context, limit int) ([]FiringRecord, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	if limit <= 0 {
		limit = sqliteKeep
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, trigger, grp, dest, cmd, fired_at, next_at, ok, err
		 FROM firings ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FiringRecord
	for rows.Next() {
		var (
			r              FiringRecord
			cmd, next, msg sql.NullString
			fired          string
			ok             int
		)
		if err := rows.Scan(&r.ID, &r.TriggerID, &r.Group, &r.Destination, &cmd, &fired, &next, &ok, &msg); err != nil {
			return nil, err
		}
		r.Command = cmd.String
		r.Error = msg.String
		r.OK = ok != 0
		r.FiredAt, _ = time.Parse(time.RFC3339Nano, fired)
		if next.Valid {
			r.NextAt, _ = time.Parse(time.RFC3339Nano, next.String)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *sqliteStore) prune(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM firings WHERE seq <= (SELECT MAX(seq) FROM firings) - ?`, sqliteKeep)
	return err
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
