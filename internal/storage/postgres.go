package storage

import (
	"context"
	"database/sql"
	"fmt"

	json "github.com/goccy/go-json"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// PostgresSchema creates the snapshot tables if they are missing.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS market_snapshot (
	id          BIGSERIAL PRIMARY KEY,
	run_id      UUID         NOT NULL,
	captured_at TIMESTAMPTZ  NOT NULL,
	source      VARCHAR(50)  NOT NULL,
	sport       VARCHAR(50),
	event_id    VARCHAR(100),
	market      VARCHAR(100),
	snapshot    JSONB        NOT NULL
);
CREATE INDEX IF NOT EXISTS ix_market_snapshot_source_captured ON market_snapshot (source, captured_at);
CREATE INDEX IF NOT EXISTS ix_market_snapshot_event_captured ON market_snapshot (event_id, captured_at);

CREATE TABLE IF NOT EXISTS odds_log (
	id          BIGSERIAL PRIMARY KEY,
	run_id      UUID         NOT NULL,
	created_at  TIMESTAMPTZ  NOT NULL,
	sport       VARCHAR(50)  NOT NULL,
	event_id    VARCHAR(100) NOT NULL,
	bookmaker   VARCHAR(50)  NOT NULL,
	market_type VARCHAR(50)  NOT NULL,
	side        VARCHAR(100) NOT NULL,
	normalized  JSONB
);
CREATE INDEX IF NOT EXISTS ix_odds_log_event_bookmaker_created ON odds_log (event_id, bookmaker, created_at);
CREATE INDEX IF NOT EXISTS ix_odds_log_sport_created ON odds_log (sport, created_at);
`

const (
	insertMarketSnapshotPG = `
		INSERT INTO market_snapshot (run_id, captured_at, source, sport, event_id, market, snapshot)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	insertOddsLogPG = `
		INSERT INTO odds_log (run_id, created_at, sport, event_id, bookmaker, market_type, side, normalized)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
)

// PostgresStorage implements Storage using PostgreSQL.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStorage creates a new PostgreSQL storage and applies the schema.
func NewPostgresStorage(ctx context.Context, cfg *PostgresConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Test connection
	err = db.PingContext(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	p := &PostgresStorage{
		db:     db,
		logger: cfg.Logger,
	}

	err = p.Migrate(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	cfg.Logger.Info("postgres-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return p, nil
}

// Migrate creates the snapshot tables.
func (p *PostgresStorage) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, PostgresSchema)
	if err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// StoreSnapshot writes every opportunity to market_snapshot and every sportsbook line to
// odds_log in a single transaction.
func (p *PostgresStorage) StoreSnapshot(ctx context.Context, snap *Snapshot) error {
	tx, err := p.db.BeginTx(ctx, nil)
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

		_, err = tx.ExecContext(ctx, insertMarketSnapshotPG,
			snap.RunID.String(),
			snap.CapturedAt,
			opp.Source,
			nullString(opp.Sport),
			opp.EventID,
			opp.MarketID,
			string(body),
		)
		if err != nil {
			return fmt.Errorf("insert market snapshot: %w", err)
		}
	}

	rows := oddsLogRows(snap)
	for _, row := range rows {
		body, err := json.Marshal(row.Normalized)
		if err != nil {
			return fmt.Errorf("marshal odds line: %w", err)
		}

		_, err = tx.ExecContext(ctx, insertOddsLogPG,
			snap.RunID.String(),
			snap.CapturedAt,
			row.Sport,
			row.EventID,
			row.Bookmaker,
			row.MarketType,
			row.Side,
			string(body),
		)
		if err != nil {
			return fmt.Errorf("insert odds log: %w", err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}

	p.logger.Debug("snapshot-stored",
		zap.String("run-id", snap.RunID.String()),
		zap.Int("opportunities", len(snap.Opportunities)),
		zap.Int("odds-lines", len(rows)))

	return nil
}

// Close closes the database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
