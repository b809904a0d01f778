package strategy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratLab/internal/domain"
	"stratLab/internal/ports"
)

// mockPredictor implements ports.Predictor for testing
type mockPredictor struct {
	preds map[string]domain.Prediction
	err   error
}

func (m *mockPredictor) Predict(ctx context.Context, symbols []string, date time.Time) (map[string]domain.Prediction, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.preds, nil
}

func testDataset(t *testing.T) *domain.Dataset {
	t.Helper()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	dates := make([]time.Time, 10)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i)
	}
	// UP trends strongly, FLAT goes nowhere, DOWN sells off.
	closes := domain.NewPanel(dates)
	for i, d := range dates {
		closes.Set("UP", d, 100+float64(i)*5)
		closes.Set("FLAT", d, 100)
		closes.Set("DOWN", d, 100-float64(i)*4)
	}
	return &domain.Dataset{Closes: closes}
}

func TestMomentumSelectorTopN(t *testing.T) {
	ds := testDataset(t)
	sel := &MomentumSelector{TopN: 1, Lookback: 5}
	date := ds.Closes.Dates()[9]

	symbols, err := sel.Select(context.Background(), ds, date)
	require.NoError(t, err)
	assert.Equal(t, []string{"UP"}, symbols)

	sel.TopN = 2
	symbols, err = sel.Select(context.Background(), ds, date)
	require.NoError(t, err)
	assert.Equal(t, []string{"UP", "FLAT"}, symbols)
}

func TestMomentumSelectorEmptyPanel(t *testing.T) {
	sel := &MomentumSelector{TopN: 1, Lookback: 5}
	_, err := sel.Select(context.Background(), &domain.Dataset{Closes: domain.NewPanel(nil)}, time.Now())
	assert.ErrorIs(t, err, ports.ErrNoPriceData)
}

func TestNormalizeWeightsSumToOne(t *testing.T) {
	signals := []domain.EntrySignal{
		{Symbol: "A", Bias: domain.BiasLong, Weight: 3},
		{Symbol: "B", Bias: domain.BiasLong, Weight: 1},
		{Symbol: "C", Bias: domain.BiasShort, Weight: 7}, // shorts carry no weight
	}
	out := NormalizeWeights(signals)

	var sum float64
	for _, s := range out {
		if s.Bias == domain.BiasLong {
			sum += s.Weight
		} else {
			assert.Zero(t, s.Weight)
		}
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.InDelta(t, 0.75, out[0].Weight, 1e-9)
}

func TestImmediateEntryEqualWeight(t *testing.T) {
	e := &ImmediateEntry{}
	signals, err := e.Signals(context.Background(), nil, []string{"A", "B", "C", "D"}, time.Now())
	require.NoError(t, err)
	require.Len(t, signals, 4)
	for _, s := range signals {
		assert.Equal(t, domain.BiasLong, s.Bias)
		assert.InDelta(t, 0.25, s.Weight, 1e-9)
	}
}

func TestThresholdEntryBias(t *testing.T) {
	ds := testDataset(t)
	e := &ThresholdEntry{Lookback: 5, Threshold: 0.01}
	date := ds.Closes.Dates()[9]

	signals, err := e.Signals(context.Background(), ds, []string{"UP", "FLAT", "DOWN"}, date)
	require.NoError(t, err)

	bySymbol := map[string]domain.EntrySignal{}
	for _, s := range signals {
		bySymbol[s.Symbol] = s
	}
	require.Contains(t, bySymbol, "UP")
	require.Contains(t, bySymbol, "DOWN")
	assert.NotContains(t, bySymbol, "FLAT", "flat return clears neither threshold")
	assert.Equal(t, domain.BiasLong, bySymbol["UP"].Bias)
	assert.Equal(t, domain.BiasShort, bySymbol["DOWN"].Bias)
	assert.InDelta(t, 1.0, bySymbol["UP"].Weight, 1e-9)
}

func TestMLEntryConfidenceWeighting(t *testing.T) {
	predictor := &mockPredictor{preds: map[string]domain.Prediction{
		"A": {ExpectedReturn: 0.05, Confidence: 0.9},
		"B": {ExpectedReturn: 0.02, Confidence: 0.6},
		"C": {ExpectedReturn: -0.04, Confidence: 0.8},
		"D": {ExpectedReturn: 0.10, Confidence: 0.2}, // below the floor
	}}
	e := &MLEntry{Predictor: predictor, MinConfidence: 0.5}

	signals, err := e.Signals(context.Background(), nil, []string{"A", "B", "C", "D"}, time.Now())
	require.NoError(t, err)

	bySymbol := map[string]domain.EntrySignal{}
	for _, s := range signals {
		bySymbol[s.Symbol] = s
	}
	assert.NotContains(t, bySymbol, "D")
	assert.Equal(t, domain.BiasShort, bySymbol["C"].Bias)
	assert.InDelta(t, 0.6, bySymbol["A"].Weight, 1e-9) // 0.9 / (0.9+0.6)
	assert.InDelta(t, 0.4, bySymbol["B"].Weight, 1e-9)
}

func TestBuildUnknownTypeFailsFast(t *testing.T) {
	_, err := Build("quantum_oracle", "x", Params{}, Deps{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrUnknownStrategy)
}

func TestBuildMomentumWiresExitRules(t *testing.T) {
	s, err := Build(TypeMomentum, "mom-10", Params{
		"top_n":             1,
		"lookback":          5,
		"stop_loss_pct":     0.10,
		"take_profit_pct":   0.20,
		"trailing_stop_pct": 0.08,
		"max_holding_days":  30,
	}, Deps{})
	require.NoError(t, err)
	assert.Equal(t, "mom-10", s.Name)
	assert.Len(t, s.ExitRules, 4)
	assert.False(t, s.ReverseEntry)
}

func TestBuildMLRequiresPredictor(t *testing.T) {
	_, err := Build(TypeML, "ml", Params{}, Deps{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrInvalidConfig)

	s, err := Build(TypeML, "ml", Params{}, Deps{Predictor: &mockPredictor{}})
	require.NoError(t, err)
	assert.True(t, s.ReverseEntry)
}
