package storage

import (
	"context"
	"database/sql"
	"fmt"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS market_snapshot (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT     NOT NULL,
	captured_at DATETIME NOT NULL,
	source      TEXT     NOT NULL,
	sport       TEXT,
	event_id    TEXT,
	market      TEXT,
	snapshot    TEXT     NOT NULL
);
CREATE INDEX IF NOT EXISTS ix_market_snapshot_source_captured ON market_snapshot (source, captured_at);
CREATE INDEX IF NOT EXISTS ix_market_snapshot_event_captured ON market_snapshot (event_id, captured_at);

CREATE TABLE IF NOT EXISTS odds_log (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT     NOT NULL,
	created_at  DATETIME NOT NULL,
	sport       TEXT     NOT NULL,
	event_id    TEXT     NOT NULL,
	bookmaker   TEXT     NOT NULL,
	market_type TEXT     NOT NULL,
	side        TEXT     NOT NULL,
	normalized  TEXT
);
CREATE INDEX IF NOT EXISTS ix_odds_log_sport_created ON odds_log (sport, created_at);
`

// SQLiteStorage implements Storage in a local SQLite file (pure Go, no cgo).
type SQLiteStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStorage opens (or creates) the database at path and applies the schema.
// Use ":memory:" for a throwaway database.
func NewSQLiteStorage(path string, logger *zap.Logger) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	// SQLite is single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, err = db.Exec(sqliteSchema)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}

	logger.Info("sqlite-storage-initialized", zap.String("path", path))

	return &SQLiteStorage{
		db:     db,
		logger: logger,
	}, nil
}

// StoreSnapshot writes the run in one transaction.
func (s *SQLiteStorage) StoreSnapshot(ctx context.Context, snap *Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for i := range snap.Opportunities {
		opp := &snap.Opportunities[i]
		body, err := json.Marshal(opp)
		if err != nil {
			return fmt.Errorf("marshal opportunity %s: %w", opp.ID, err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO market_snapshot (run_id, captured_at, source, sport, event_id, market, snapshot)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			snap.RunID.String(), snap.CapturedAt, opp.Source, nullString(opp.Sport),
			opp.EventID, opp.MarketID, string(body),
		)
		if err != nil {
			return fmt.Errorf("insert market snapshot: %w", err)
		}
	}

	for _, row := range oddsLogRows(snap) {
		body, err := json.Marshal(row.Normalized)
		if err != nil {
			return fmt.Errorf("marshal odds line: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO odds_log (run_id, created_at, sport, event_id, bookmaker, market_type, side, normalized)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			snap.RunID.String(), snap.CapturedAt, row.Sport, row.EventID,
			row.Bookmaker, row.MarketType, row.Side, string(body),
		)
		if err != nil {
			return fmt.Errorf("insert odds log: %w", err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}

	s.logger.Debug("snapshot-stored",
		zap.String("run-id", snap.RunID.String()),
		zap.Int("opportunities", len(snap.Opportunities)))
	return nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	s.logger.Info("closing-sqlite-storage")
	return s.db.Close()
}
