package ports

import (
	"context"
	"time"

	"stratLab/internal/domain"
)

// RunSummary is the persisted record of one completed backtest run.
type RunSummary struct {
	ID           int64
	StrategyName string
	StartedAt    time.Time
	FinishedAt   time.Time
	Success      bool
	ErrorMessage string
	Metrics      map[string]float64
}

// RunRepository persists backtest run summaries and their trade logs.
type RunRepository interface {
	// SaveRun stores a run summary and returns its assigned ID.
	SaveRun(ctx context.Context, run *RunSummary) (int64, error)
	// SaveTrades stores the ordered trade log for a run.
	SaveTrades(ctx context.Context, runID int64, trades []*domain.Trade) error
	// ListRuns returns the most recent run summaries, newest first.
	ListRuns(ctx context.Context, limit int) ([]*RunSummary, error)
	// Close releases the underlying storage handle.
	Close() error
}
