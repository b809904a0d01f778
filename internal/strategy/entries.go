package strategy

import (
	"context"
	"fmt"
	"time"

	"stratLab/internal/domain"
	"stratLab/internal/ports"
)

// ImmediateEntry buys every selected symbol at equal weight.
type ImmediateEntry struct{}

func (e *ImmediateEntry) Name() string { return "immediate_entry" }

// Signals implements Entry.
func (e *ImmediateEntry) Signals(ctx context.Context, ds *domain.Dataset, symbols []string, date time.Time) ([]domain.EntrySignal, error) {
	if len(symbols) == 0 {
		return nil, nil
	}
	weight := 1.0 / float64(len(symbols))
	signals := make([]domain.EntrySignal, 0, len(symbols))
	for _, sym := range symbols {
		signals = append(signals, domain.EntrySignal{Symbol: sym, Bias: domain.BiasLong, Weight: weight})
	}
	return signals, nil
}

// ThresholdEntry goes long on symbols whose lookback return clears a
// threshold and flags a short bias when the return falls below its negative.
// Short signals carry no weight; they only drive reverse-entry exits.
type ThresholdEntry struct {
	Lookback  int
	Threshold float64
}

func (e *ThresholdEntry) Name() string { return "threshold_entry" }

// Signals implements Entry.
func (e *ThresholdEntry) Signals(ctx context.Context, ds *domain.Dataset, symbols []string, date time.Time) ([]domain.EntrySignal, error) {
	var signals []domain.EntrySignal
	for _, sym := range symbols {
		ret, ok := lookbackReturn(ds.Closes, sym, date, e.Lookback)
		if !ok {
			continue
		}
		switch {
		case ret > e.Threshold:
			signals = append(signals, domain.EntrySignal{
				Symbol:   sym,
				Bias:     domain.BiasLong,
				Weight:   1,
				Metadata: map[string]float64{"lookback_return": ret},
			})
		case ret < -e.Threshold:
			signals = append(signals, domain.EntrySignal{
				Symbol:   sym,
				Bias:     domain.BiasShort,
				Metadata: map[string]float64{"lookback_return": ret},
			})
		}
	}
	return NormalizeWeights(signals), nil
}

// MLEntry sizes longs by prediction confidence and flags a short bias on
// negative expected returns.
type MLEntry struct {
	Predictor     ports.Predictor
	MinConfidence float64
}

func (e *MLEntry) Name() string { return "ml_entry" }

// Signals implements Entry.
func (e *MLEntry) Signals(ctx context.Context, ds *domain.Dataset, symbols []string, date time.Time) ([]domain.EntrySignal, error) {
	if len(symbols) == 0 {
		return nil, nil
	}
	preds, err := e.Predictor.Predict(ctx, symbols, date)
	if err != nil {
		return nil, fmt.Errorf("prediction failed at %s: %w", date.Format("2006-01-02"), err)
	}

	var signals []domain.EntrySignal
	for _, sym := range symbols {
		p, ok := preds[sym]
		if !ok || p.Confidence < e.MinConfidence {
			continue
		}
		meta := map[string]float64{
			"expected_return": p.ExpectedReturn,
			"confidence":      p.Confidence,
			"volatility":      p.Volatility,
		}
		if p.ExpectedReturn >= 0 {
			signals = append(signals, domain.EntrySignal{
				Symbol: sym, Bias: domain.BiasLong, Weight: p.Confidence, Metadata: meta,
			})
		} else {
			signals = append(signals, domain.EntrySignal{
				Symbol: sym, Bias: domain.BiasShort, Metadata: meta,
			})
		}
	}
	return NormalizeWeights(signals), nil
}
