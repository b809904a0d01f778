package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratLab/internal/analytics"
	"stratLab/internal/domain"
	"stratLab/internal/exits"
	"stratLab/internal/ports"
	"stratLab/internal/slippage"
	"stratLab/internal/strategy"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func datasetFromCloses(closes map[string][]float64) *domain.Dataset {
	var n int
	for _, series := range closes {
		n = len(series)
	}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	dates := make([]time.Time, n)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i)
	}
	panel := domain.NewPanel(dates)
	for sym, series := range closes {
		for i, v := range series {
			panel.Set(sym, dates[i], v)
		}
	}
	return &domain.Dataset{Closes: panel}
}

func TestRunRejectsEmptyData(t *testing.T) {
	e := New(&mockLogger{})
	strat := &strategy.Strategy{
		Name:     "x",
		Selector: &strategy.MomentumSelector{TopN: 1, Lookback: 1},
		Entry:    &strategy.ImmediateEntry{},
	}

	_, err := e.Run(context.Background(), strat, nil, RunConfig{InitialCash: 1000})
	assert.ErrorIs(t, err, ports.ErrNoPriceData)

	_, err = e.Run(context.Background(), strat, &domain.Dataset{Closes: domain.NewPanel(nil)}, RunConfig{InitialCash: 1000})
	assert.ErrorIs(t, err, ports.ErrNoPriceData)
}

// The canonical stop-loss scenario: 20 daily bars, one symbol, top-1
// momentum selection with immediate entry and a 10% stop. A 12% drop
// relative to entry must liquidate exactly on that bar with trigger
// stop_loss.
func TestStopLossScenarioLiquidatesOnTheDropBar(t *testing.T) {
	series := []float64{100, 100, 101, 102, 101, 88, 87, 86, 85, 84, 84, 84, 84, 84, 84, 84, 84, 84, 84, 84}
	ds := datasetFromCloses(map[string][]float64{"ONE": series})

	strat := &strategy.Strategy{
		Name:      "mom-stop",
		Selector:  &strategy.MomentumSelector{TopN: 1, Lookback: 1},
		Entry:     &strategy.ImmediateEntry{},
		ExitRules: []exits.Rule{exits.NewStopLoss(0.10)},
	}

	e := New(&mockLogger{})
	result, err := e.Run(context.Background(), strat, ds, RunConfig{
		InitialCash:    100000,
		RebalanceEvery: 1,
		Slippage:       &slippage.Fixed{Rate: 0},
	})
	require.NoError(t, err)
	require.True(t, result.Success)

	var stopSells []*domain.Trade
	for _, tr := range result.Trades {
		if tr.Side == domain.Sell && tr.Reason == string(domain.TriggerStopLoss) {
			stopSells = append(stopSells, tr)
		}
	}
	require.Len(t, stopSells, 1, "exactly one stop-loss liquidation")

	dropDate := ds.Closes.Dates()[5]
	assert.Equal(t, dropDate, stopSells[0].Date, "liquidation happens on the drop bar, not later")
	assert.InDelta(t, 88.0, stopSells[0].Price, 1e-9)
}

func TestEquityCurveIdentity(t *testing.T) {
	ds := datasetFromCloses(map[string][]float64{
		"A": {100, 101, 103, 102, 104, 106, 105, 107, 108, 110},
		"B": {50, 50.5, 50, 51, 52, 51, 52, 53, 52, 54},
	})
	strat := &strategy.Strategy{
		Name:      "mom",
		Selector:  &strategy.MomentumSelector{TopN: 2, Lookback: 2},
		Entry:     &strategy.ImmediateEntry{},
		ExitRules: []exits.Rule{exits.NewTakeProfit(0.05)},
	}

	e := New(&mockLogger{})
	result, err := e.Run(context.Background(), strat, ds, RunConfig{
		InitialCash:    10000,
		RebalanceEvery: 2,
		Slippage:       &slippage.Fixed{Rate: 0.001},
	})
	require.NoError(t, err)
	require.Len(t, result.DailyPortfolio, 10, "one equity snapshot per bar")

	// Every snapshot satisfies total = cash + position market value, so
	// cash never exceeds total for a long-only book.
	for _, p := range result.DailyPortfolio {
		assert.LessOrEqual(t, p.Cash, p.TotalValue+1e-9)
	}
	assert.Equal(t, result.Metrics[analytics.MetricFinalValue], result.DailyPortfolio[9].TotalValue)
}

func TestReverseEntryLiquidatesHeldLong(t *testing.T) {
	// UP rallies then collapses; the threshold entry flips to a short bias
	// which must liquidate the held long via a reverse-entry exit.
	series := []float64{100, 104, 108, 112, 116, 120, 110, 100, 90, 80}
	ds := datasetFromCloses(map[string][]float64{"UP": series})

	strat := &strategy.Strategy{
		Name:         "threshold",
		Selector:     &strategy.MomentumSelector{TopN: 1, Lookback: 2},
		Entry:        &strategy.ThresholdEntry{Lookback: 2, Threshold: 0.01},
		ReverseEntry: true,
	}

	e := New(&mockLogger{})
	result, err := e.Run(context.Background(), strat, ds, RunConfig{
		InitialCash:    10000,
		RebalanceEvery: 1,
		Slippage:       &slippage.Fixed{Rate: 0},
	})
	require.NoError(t, err)

	var reverseSells int
	for _, tr := range result.Trades {
		if tr.Side == domain.Sell && tr.Reason == string(domain.TriggerReverseEntry) {
			reverseSells++
		}
	}
	assert.Positive(t, reverseSells, "collapsing momentum must force a reverse-entry exit")
}

func TestMetricsPresent(t *testing.T) {
	ds := datasetFromCloses(map[string][]float64{"A": {100, 101, 102, 103, 104, 105}})
	strat := &strategy.Strategy{
		Name:     "mom",
		Selector: &strategy.MomentumSelector{TopN: 1, Lookback: 1},
		Entry:    &strategy.ImmediateEntry{},
	}

	e := New(&mockLogger{})
	result, err := e.Run(context.Background(), strat, ds, RunConfig{InitialCash: 1000})
	require.NoError(t, err)

	for _, key := range []string{
		analytics.MetricTotalReturn,
		analytics.MetricAnnualReturn,
		analytics.MetricSharpeRatio,
		analytics.MetricMaxDrawdown,
		analytics.MetricWinRate,
		analytics.MetricTotalTrades,
	} {
		_, ok := result.Metrics[key]
		assert.True(t, ok, "metric %s must always be reported", key)
	}
}
