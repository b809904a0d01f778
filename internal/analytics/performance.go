package analytics

import (
	"math"
	"time"

	"stratLab/internal/domain"
)

// EquityPoint is one snapshot of the daily portfolio series.
type EquityPoint struct {
	Date       time.Time
	TotalValue float64
	Cash       float64
}

// Metric keys reported by Compute. Every backtest result carries at least
// these; consumers request subsets by key.
const (
	MetricTotalReturn  = "total_return"
	MetricAnnualReturn = "annual_return"
	MetricSharpeRatio  = "sharpe_ratio"
	MetricMaxDrawdown  = "max_drawdown"
	MetricWinRate      = "win_rate"
	MetricTotalTrades  = "total_trades"
	MetricProfitFactor = "profit_factor"
	MetricAvgWin       = "avg_win"
	MetricAvgLoss      = "avg_loss"
	MetricExpectancy   = "expectancy"
	MetricFinalValue   = "final_value"
)

const tradingDaysPerYear = 252

// Compute derives the performance metrics bag from an equity curve and the
// trade log. Win/loss statistics count closing (sell) fills only.
func Compute(curve []EquityPoint, trades []*domain.Trade, initialCash float64) map[string]float64 {
	metrics := map[string]float64{
		MetricTotalReturn:  0,
		MetricAnnualReturn: 0,
		MetricSharpeRatio:  0,
		MetricMaxDrawdown:  0,
		MetricWinRate:      0,
		MetricTotalTrades:  0,
		MetricProfitFactor: 0,
		MetricAvgWin:       0,
		MetricAvgLoss:      0,
		MetricExpectancy:   0,
		MetricFinalValue:   initialCash,
	}
	if len(curve) == 0 || initialCash <= 0 {
		return metrics
	}

	final := curve[len(curve)-1].TotalValue
	metrics[MetricFinalValue] = final
	metrics[MetricTotalReturn] = final/initialCash - 1

	// Annualize over the observed bar count, assuming daily bars.
	if n := len(curve); n > 1 && final > 0 {
		years := float64(n) / tradingDaysPerYear
		metrics[MetricAnnualReturn] = math.Pow(final/initialCash, 1/years) - 1
	}

	metrics[MetricSharpeRatio] = sharpe(curve)
	metrics[MetricMaxDrawdown] = maxDrawdown(curve)

	var wins, losses int
	var winSum, lossSum float64
	var sells int
	for _, tr := range trades {
		if tr.Side != domain.Sell {
			continue
		}
		sells++
		if tr.RealizedPnL > 0 {
			wins++
			winSum += tr.RealizedPnL
		} else {
			losses++
			lossSum += tr.RealizedPnL
		}
	}
	metrics[MetricTotalTrades] = float64(len(trades))
	if sells > 0 {
		winRate := float64(wins) / float64(sells)
		metrics[MetricWinRate] = winRate
		if wins > 0 {
			metrics[MetricAvgWin] = winSum / float64(wins)
		}
		if losses > 0 {
			metrics[MetricAvgLoss] = lossSum / float64(losses)
		}
		if lossSum != 0 {
			metrics[MetricProfitFactor] = winSum / -lossSum
		}
		metrics[MetricExpectancy] = winRate*metrics[MetricAvgWin] + (1-winRate)*metrics[MetricAvgLoss]
	}
	return metrics
}

// sharpe computes the annualized Sharpe ratio of bar-to-bar returns with a
// zero risk-free rate.
func sharpe(curve []EquityPoint) float64 {
	if len(curve) < 3 {
		return 0
	}
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].TotalValue
		if prev <= 0 {
			return 0
		}
		returns = append(returns, curve[i].TotalValue/prev-1)
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)
	stdDev := math.Sqrt(variance)
	if stdDev == 0 {
		return 0
	}
	return mean / stdDev * math.Sqrt(tradingDaysPerYear)
}

// maxDrawdown computes the deepest peak-to-trough decline of the curve as a
// positive fraction.
func maxDrawdown(curve []EquityPoint) float64 {
	var peak, maxDD float64
	for _, p := range curve {
		if p.TotalValue > peak {
			peak = p.TotalValue
		}
		if peak > 0 {
			dd := (peak - p.TotalValue) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}
