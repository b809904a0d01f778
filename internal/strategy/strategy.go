package strategy

import (
	"context"
	"math"
	"time"

	"stratLab/internal/domain"
	"stratLab/internal/exits"
)

// Selector chooses the eligible symbol universe at a rebalance date.
type Selector interface {
	Name() string
	Select(ctx context.Context, ds *domain.Dataset, date time.Time) ([]string, error)
}

// Entry decides whether and how much to buy once symbols are selected. The
// returned signals carry target weights; long weights are normalized to sum
// to 1.0 before execution. Short-bias signals size nothing themselves; they
// feed reverse-entry exit detection on held symbols.
type Entry interface {
	Name() string
	Signals(ctx context.Context, ds *domain.Dataset, symbols []string, date time.Time) ([]domain.EntrySignal, error)
}

// Strategy is the composable unit the engine runs: a selector, an entry rule
// and a set of exit rules, plus whether reverse-entry detection is on.
type Strategy struct {
	Name         string
	Selector     Selector
	Entry        Entry
	ExitRules    []exits.Rule
	ReverseEntry bool
}

// NormalizeWeights rescales the long-bias signals so their weights sum to
// 1.0; short-bias signals pass through untouched with zero weight. Signal
// sets whose long weights sum to zero come back unchanged.
func NormalizeWeights(signals []domain.EntrySignal) []domain.EntrySignal {
	var sum float64
	for _, s := range signals {
		if s.Bias == domain.BiasLong {
			sum += s.Weight
		}
	}
	if sum <= 0 || math.IsNaN(sum) {
		return signals
	}
	out := make([]domain.EntrySignal, len(signals))
	for i, s := range signals {
		if s.Bias == domain.BiasLong {
			s.Weight /= sum
		} else {
			s.Weight = 0
		}
		out[i] = s
	}
	return out
}

// lookbackReturn computes the simple return of symbol over the lookback
// window ending at date. ok is false when either endpoint is missing.
func lookbackReturn(closes *domain.Panel, symbol string, date time.Time, lookback int) (float64, bool) {
	i, ok := closes.Index(date)
	if !ok || i < lookback {
		return 0, false
	}
	now, ok := closes.ValueAt(symbol, i)
	if !ok || now <= 0 {
		return 0, false
	}
	then, ok := closes.ValueAt(symbol, i-lookback)
	if !ok || then <= 0 {
		return 0, false
	}
	return now/then - 1, true
}
