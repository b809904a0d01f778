package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"stratLab/internal/domain"
)

func curveFrom(values ...float64) []EquityPoint {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	curve := make([]EquityPoint, len(values))
	for i, v := range values {
		curve[i] = EquityPoint{Date: start.AddDate(0, 0, i), TotalValue: v}
	}
	return curve
}

func TestComputeEmptyInputs(t *testing.T) {
	metrics := Compute(nil, nil, 1000)
	assert.Zero(t, metrics[MetricTotalReturn])
	assert.Equal(t, 1000.0, metrics[MetricFinalValue])
}

func TestComputeTotalReturnAndDrawdown(t *testing.T) {
	curve := curveFrom(1000, 1100, 990, 1210)
	metrics := Compute(curve, nil, 1000)

	assert.InDelta(t, 0.21, metrics[MetricTotalReturn], 1e-9)
	// Peak 1100 to trough 990 is a 10% drawdown.
	assert.InDelta(t, 0.10, metrics[MetricMaxDrawdown], 1e-9)
}

func TestComputeWinRateFromSells(t *testing.T) {
	day := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	trades := []*domain.Trade{
		{Symbol: "A", Side: domain.Buy, Shares: 10, Price: 100, Date: day},
		{Symbol: "A", Side: domain.Sell, Shares: 10, Price: 110, Date: day, RealizedPnL: 100},
		{Symbol: "B", Side: domain.Sell, Shares: 5, Price: 90, Date: day, RealizedPnL: -50},
	}
	metrics := Compute(curveFrom(1000, 1050), trades, 1000)

	assert.Equal(t, 3.0, metrics[MetricTotalTrades])
	assert.InDelta(t, 0.5, metrics[MetricWinRate], 1e-9, "buys do not count toward the win rate")
	assert.InDelta(t, 100.0, metrics[MetricAvgWin], 1e-9)
	assert.InDelta(t, -50.0, metrics[MetricAvgLoss], 1e-9)
	assert.InDelta(t, 2.0, metrics[MetricProfitFactor], 1e-9)
	assert.InDelta(t, 25.0, metrics[MetricExpectancy], 1e-9)
}

func TestSharpeZeroForFlatCurve(t *testing.T) {
	metrics := Compute(curveFrom(1000, 1000, 1000, 1000), nil, 1000)
	assert.Zero(t, metrics[MetricSharpeRatio])
}

func TestSharpePositiveForSteadyGains(t *testing.T) {
	metrics := Compute(curveFrom(1000, 1010, 1021, 1030, 1041), nil, 1000)
	assert.Greater(t, metrics[MetricSharpeRatio], 0.0)
}
