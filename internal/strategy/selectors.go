package strategy

import (
	"context"
	"fmt"
	"sort"
	"time"

	"stratLab/internal/domain"
	"stratLab/internal/ports"
)

// MomentumSelector picks the top-N symbols by simple return over a lookback
// window. Symbols missing either endpoint of the window are not eligible.
type MomentumSelector struct {
	TopN     int
	Lookback int
}

func (s *MomentumSelector) Name() string { return "momentum_selector" }

// Select implements Selector.
func (s *MomentumSelector) Select(ctx context.Context, ds *domain.Dataset, date time.Time) ([]string, error) {
	if ds == nil || ds.Closes == nil || ds.Closes.Len() == 0 {
		return nil, ports.ErrNoPriceData
	}

	type scored struct {
		symbol string
		ret    float64
	}
	var candidates []scored
	for _, sym := range ds.Closes.Symbols() {
		if ret, ok := lookbackReturn(ds.Closes, sym, date, s.Lookback); ok {
			candidates = append(candidates, scored{symbol: sym, ret: ret})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].ret != candidates[j].ret {
			return candidates[i].ret > candidates[j].ret
		}
		return candidates[i].symbol < candidates[j].symbol
	})

	n := s.TopN
	if n <= 0 || n > len(candidates) {
		n = len(candidates)
	}
	selected := make([]string, 0, n)
	for _, c := range candidates[:n] {
		selected = append(selected, c.symbol)
	}
	return selected, nil
}

// MLSelector ranks symbols by the prediction layer's expected return and
// keeps the top N meeting a confidence floor.
type MLSelector struct {
	Predictor     ports.Predictor
	TopN          int
	MinConfidence float64
}

func (s *MLSelector) Name() string { return "ml_selector" }

// Select implements Selector.
func (s *MLSelector) Select(ctx context.Context, ds *domain.Dataset, date time.Time) ([]string, error) {
	if ds == nil || ds.Closes == nil || ds.Closes.Len() == 0 {
		return nil, ports.ErrNoPriceData
	}
	universe := ds.Closes.Symbols()
	preds, err := s.Predictor.Predict(ctx, universe, date)
	if err != nil {
		return nil, fmt.Errorf("prediction failed at %s: %w", date.Format("2006-01-02"), err)
	}

	type scored struct {
		symbol string
		ret    float64
	}
	var candidates []scored
	for _, sym := range universe {
		p, ok := preds[sym]
		if !ok || p.Confidence < s.MinConfidence {
			continue
		}
		candidates = append(candidates, scored{symbol: sym, ret: p.ExpectedReturn})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].ret != candidates[j].ret {
			return candidates[i].ret > candidates[j].ret
		}
		return candidates[i].symbol < candidates[j].symbol
	})

	n := s.TopN
	if n <= 0 || n > len(candidates) {
		n = len(candidates)
	}
	selected := make([]string, 0, n)
	for _, c := range candidates[:n] {
		selected = append(selected, c.symbol)
	}
	return selected, nil
}
