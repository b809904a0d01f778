package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratLab/internal/domain"
	"stratLab/internal/ports"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// setupTestDB creates a temporary database for testing
func setupTestDB(t *testing.T) (*Repository, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "stratlab-test-*")
	require.NoError(t, err)

	repo, err := NewRepository(Config{
		DBPath: filepath.Join(tmpDir, "test.db"),
		Logger: &mockLogger{},
	})
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
		os.RemoveAll(tmpDir)
	}
	return repo, cleanup
}

func TestSaveAndListRuns(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	started := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	id, err := repo.SaveRun(ctx, &ports.RunSummary{
		StrategyName: "momentum-20",
		StartedAt:    started,
		FinishedAt:   started.Add(3 * time.Second),
		Success:      true,
		Metrics:      map[string]float64{"total_return": 0.12, "sharpe_ratio": 1.3},
	})
	require.NoError(t, err)
	assert.Positive(t, id)

	_, err = repo.SaveRun(ctx, &ports.RunSummary{
		StrategyName: "ml-broken",
		StartedAt:    started.Add(time.Minute),
		FinishedAt:   started.Add(time.Minute + time.Second),
		Success:      false,
		ErrorMessage: "unknown strategy type identity",
		Metrics:      map[string]float64{},
	})
	require.NoError(t, err)

	runs, err := repo.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "ml-broken", runs[0].StrategyName, "newest first")
	assert.False(t, runs[0].Success)
	assert.NotEmpty(t, runs[0].ErrorMessage)

	assert.Equal(t, "momentum-20", runs[1].StrategyName)
	assert.True(t, runs[1].Success)
	assert.InDelta(t, 0.12, runs[1].Metrics["total_return"], 1e-9)
}

func TestSaveTrades(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	started := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	id, err := repo.SaveRun(ctx, &ports.RunSummary{
		StrategyName: "momentum-20",
		StartedAt:    started,
		FinishedAt:   started.Add(time.Second),
		Success:      true,
		Metrics:      map[string]float64{},
	})
	require.NoError(t, err)

	trades := []*domain.Trade{
		{Symbol: "AAPL", Side: domain.Buy, Shares: 10, Price: 100, Date: started, Cost: 1},
		{Symbol: "AAPL", Side: domain.Sell, Shares: 10, Price: 110, Date: started.AddDate(0, 0, 5), Cost: 1.1, RealizedPnL: 97.9, Reason: "take_profit"},
	}
	require.NoError(t, repo.SaveTrades(ctx, id, trades))

	// Empty trade lists are accepted without touching the database.
	require.NoError(t, repo.SaveTrades(ctx, id, nil))
}
