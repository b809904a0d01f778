package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"stratLab/internal/domain"
	"stratLab/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements the ports.RunRepository interface using SQLite.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/stratlab.db" // Default path
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// WAL mode for better concurrency
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("%w: failed to open database at '%s': %v", ports.ErrDBConnection, dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("%w: failed to ping database at '%s': %v", ports.ErrDBConnection, dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// SQLite handles concurrency internally; the Go driver benefits from
	// limiting connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	repo := &Repository{db: db, logger: cfg.Logger}
	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "SQLite run repository ready", map[string]interface{}{"path": dbPath})

	return repo, nil
}

// initializeSchema creates tables if they don't exist.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS backtest_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		strategy_name TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP NOT NULL,
		success INTEGER NOT NULL,
		error_message TEXT DEFAULT '',
		metrics_json TEXT NOT NULL DEFAULT '{}'
	);

	CREATE TABLE IF NOT EXISTS backtest_trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		shares REAL NOT NULL,
		price REAL NOT NULL,
		trade_date TIMESTAMP NOT NULL,
		cost REAL NOT NULL,
		realized_pnl REAL NOT NULL DEFAULT 0,
		reason TEXT DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_backtest_runs_strategy ON backtest_runs (strategy_name, started_at);
	CREATE INDEX IF NOT EXISTS idx_backtest_trades_run ON backtest_trades (run_id, trade_date);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("%w: %v", ports.ErrQueryFailed, err)
	}
	return nil
}

// SaveRun stores a run summary and returns its assigned ID.
func (r *Repository) SaveRun(ctx context.Context, run *ports.RunSummary) (int64, error) {
	metricsJSON, err := json.Marshal(run.Metrics)
	if err != nil {
		return 0, fmt.Errorf("failed to encode metrics: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO backtest_runs (strategy_name, started_at, finished_at, success, error_message, metrics_json)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.StrategyName, run.StartedAt, run.FinishedAt, run.Success, run.ErrorMessage, string(metricsJSON))
	if err != nil {
		return 0, fmt.Errorf("%w: insert run: %v", ports.ErrQueryFailed, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: last insert id: %v", ports.ErrQueryFailed, err)
	}
	return id, nil
}

// SaveTrades stores the ordered trade log for a run in one transaction.
func (r *Repository) SaveTrades(ctx context.Context, runID int64, trades []*domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", ports.ErrQueryFailed, err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO backtest_trades (run_id, symbol, side, shares, price, trade_date, cost, realized_pnl, reason)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("%w: prepare insert: %v", ports.ErrQueryFailed, err)
	}
	defer stmt.Close()

	for _, tr := range trades {
		if _, err := stmt.ExecContext(ctx,
			runID, tr.Symbol, string(tr.Side), tr.Shares, tr.Price, tr.Date, tr.Cost, tr.RealizedPnL, tr.Reason); err != nil {
			tx.Rollback()
			return fmt.Errorf("%w: insert trade: %v", ports.ErrQueryFailed, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ports.ErrQueryFailed, err)
	}
	return nil
}

// ListRuns returns the most recent run summaries, newest first.
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]*ports.RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, strategy_name, started_at, finished_at, success, error_message, metrics_json
		 FROM backtest_runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: query runs: %v", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	var runs []*ports.RunSummary
	for rows.Next() {
		var run ports.RunSummary
		var metricsJSON string
		if err := rows.Scan(&run.ID, &run.StrategyName, &run.StartedAt, &run.FinishedAt,
			&run.Success, &run.ErrorMessage, &metricsJSON); err != nil {
			return nil, fmt.Errorf("%w: scan run: %v", ports.ErrQueryFailed, err)
		}
		if err := json.Unmarshal([]byte(metricsJSON), &run.Metrics); err != nil {
			r.logger.Warn(ctx, "skipping unreadable metrics payload",
				map[string]interface{}{"run_id": run.ID})
			run.Metrics = map[string]float64{}
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

// Close closes the underlying database handle.
func (r *Repository) Close() error {
	return r.db.Close()
}
