package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/socialgrab/downorc/internal/config"
	"github.com/socialgrab/downorc/internal/models"
)

// PostgresDB is the telemetry store: one append-only action_logs table,
// plus the user-stats rollups the Gate needs to decide when to check
// for a subscription.
type PostgresDB struct {
	pool *pgxpool.Pool
	db   *sql.DB
}

func NewPostgresDB(cfg *config.PostgresConfig) (*PostgresDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode)

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	connConfig, err := pgx.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %w", err)
	}
	db := stdlib.OpenDB(*connConfig)

	pgdb := &PostgresDB{
		pool: pool,
		db:   db,
	}

	if err := pgdb.createTables(ctx); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return pgdb, nil
}

func (p *PostgresDB) createTables(ctx context.Context) error {
	createActionLogs := `
		CREATE TABLE IF NOT EXISTS action_logs (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_ref VARCHAR(255) NOT NULL,
			bot_ref VARCHAR(255) NOT NULL,
			action VARCHAR(50) NOT NULL,
			details JSONB,
			api_source VARCHAR(100),
			download_time_ms BIGINT,
			file_size_bytes BIGINT,
			download_speed_kbps DOUBLE PRECISION,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_action_logs_user_ref ON action_logs(user_ref);
		CREATE INDEX IF NOT EXISTS idx_action_logs_action ON action_logs(action);
		CREATE INDEX IF NOT EXISTS idx_action_logs_created_at ON action_logs(created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_action_logs_user_action ON action_logs(user_ref, action);
	`

	if _, err := p.pool.Exec(ctx, createActionLogs); err != nil {
		return fmt.Errorf("failed to create action_logs table: %w", err)
	}

	return nil
}

// InsertTelemetry appends one immutable action_logs row (§4.7). Never
// updated or deleted by the core once written.
func (p *PostgresDB) InsertTelemetry(ctx context.Context, rec *models.TelemetryRecord) error {
	detailsJSON, err := json.Marshal(rec.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal telemetry details: %w", err)
	}

	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO action_logs (id, user_ref, bot_ref, action, details, api_source,
			download_time_ms, file_size_bytes, download_speed_kbps, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = p.pool.Exec(ctx, query,
		rec.ID, rec.UserRef, rec.BotRef, rec.Action, detailsJSON, rec.APISource,
		rec.DownloadTimeMs, rec.FileSizeBytes, rec.DownloadSpeedKbps, rec.CreatedAt,
	)
	return err
}

// UserDownloadStats is the rollup the Gate (§4.9) evaluates before
// deciding whether a subscription proof is required. Mirrors the shape
// flyer_checker.py's get_user_stats computes.
type UserDownloadStats struct {
	FirstSeenAt      time.Time
	TotalDownloads   int
	YouTubeFullCount int
	InstagramCount   int
}

func (p *PostgresDB) GetUserDownloadStats(ctx context.Context, userRef string) (*UserDownloadStats, error) {
	stats := &UserDownloadStats{}

	var firstSeen *time.Time
	firstSeenQuery := `SELECT MIN(created_at) FROM action_logs WHERE user_ref = $1`
	if err := p.pool.QueryRow(ctx, firstSeenQuery, userRef).Scan(&firstSeen); err != nil {
		return nil, fmt.Errorf("failed to query first-seen: %w", err)
	}
	if firstSeen != nil {
		stats.FirstSeenAt = *firstSeen
	} else {
		stats.FirstSeenAt = time.Now()
	}

	totalQuery := `SELECT COUNT(*) FROM action_logs WHERE user_ref = $1 AND action = 'download_success'`
	if err := p.pool.QueryRow(ctx, totalQuery, userRef).Scan(&stats.TotalDownloads); err != nil {
		return nil, fmt.Errorf("failed to query total downloads: %w", err)
	}

	ytQuery := `
		SELECT COUNT(*) FROM action_logs
		WHERE user_ref = $1 AND action = 'download_success'
		AND details->>'bucket' IN ('full', 'youtube_full')`
	if err := p.pool.QueryRow(ctx, ytQuery, userRef).Scan(&stats.YouTubeFullCount); err != nil {
		return nil, fmt.Errorf("failed to query youtube_full downloads: %w", err)
	}

	igQuery := `
		SELECT COUNT(*) FROM action_logs
		WHERE user_ref = $1 AND action = 'download_success'
		AND details->>'platform' = 'instagram'`
	if err := p.pool.QueryRow(ctx, igQuery, userRef).Scan(&stats.InstagramCount); err != nil {
		return nil, fmt.Errorf("failed to query instagram downloads: %w", err)
	}

	return stats, nil
}

// WithTransaction runs fn inside a pgx transaction, committing on
// success and rolling back on error or panic.
func (p *PostgresDB) WithTransaction(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Ping is used by the health handler's readiness check.
func (p *PostgresDB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return p.pool.Ping(ctx)
}

// Close releases the pool and the compatibility sql.DB.
func (p *PostgresDB) Close() {
	p.pool.Close()
	p.db.Close()
}
