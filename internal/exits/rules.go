package exits

import (
	"time"

	"stratLab/internal/domain"
)

// MarketContext carries per-symbol market state available to exit rules on
// the bar being evaluated. Zero values mean "unknown".
type MarketContext struct {
	Volatility float64
	Features   map[string]float64
}

// Rule is the single capability an exit rule implements. A nil signal means
// "no exit". Rules must not assume they run for every symbol every bar: a
// rule at or above the risk-control tier firing earlier can short-circuit
// them for that symbol.
type Rule interface {
	Name() string
	Priority() int
	ShouldExit(pos *domain.Position, price float64, date time.Time, mctx MarketContext) (*domain.ExitSignal, error)
}

// PositionCloser is implemented by rules holding per-symbol state that must
// be discarded when a position fully closes, so it cannot leak into the
// symbol's next lifecycle.
type PositionCloser interface {
	OnPositionClosed(symbol string)
}

// StopLoss fires when the position's unrealized loss exceeds the configured
// fraction of the entry price.
type StopLoss struct {
	Pct  float64 // e.g., 0.10 for a 10% stop
	Prio int
}

// NewStopLoss creates a stop-loss rule at the conventional priority.
func NewStopLoss(pct float64) *StopLoss {
	return &StopLoss{Pct: pct, Prio: 10}
}

func (r *StopLoss) Name() string  { return "stop_loss" }
func (r *StopLoss) Priority() int { return r.Prio }

// ShouldExit implements Rule.
func (r *StopLoss) ShouldExit(pos *domain.Position, price float64, date time.Time, _ MarketContext) (*domain.ExitSignal, error) {
	pnlPct := pos.UnrealizedPnLPct(price)
	if pnlPct >= -r.Pct {
		return nil, nil
	}
	return &domain.ExitSignal{
		Symbol:   pos.Symbol,
		Reason:   domain.ExitReasonRiskControl,
		Trigger:  domain.TriggerStopLoss,
		Priority: r.Prio,
		Date:     date,
		Metadata: map[string]float64{"pnl_pct": pnlPct},
	}, nil
}

// TrailingStop tracks a running peak price per symbol since entry and fires
// when the drawdown from that peak exceeds the configured fraction. The peak
// store is owned by the rule instance and reset through OnPositionClosed;
// the ledger's close hook must be wired to the manager for that to happen.
type TrailingStop struct {
	Pct   float64
	Prio  int
	peaks map[string]float64
}

// NewTrailingStop creates a trailing-stop rule at the conventional priority.
func NewTrailingStop(pct float64) *TrailingStop {
	return &TrailingStop{Pct: pct, Prio: 9, peaks: make(map[string]float64)}
}

func (r *TrailingStop) Name() string  { return "trailing_stop" }
func (r *TrailingStop) Priority() int { return r.Prio }

// ShouldExit implements Rule.
func (r *TrailingStop) ShouldExit(pos *domain.Position, price float64, date time.Time, _ MarketContext) (*domain.ExitSignal, error) {
	peak, ok := r.peaks[pos.Symbol]
	if !ok {
		peak = pos.EntryPrice
	}
	if price > peak {
		peak = price
	}
	r.peaks[pos.Symbol] = peak

	if peak <= 0 {
		return nil, nil
	}
	drawdown := (peak - price) / peak
	if drawdown <= r.Pct {
		return nil, nil
	}
	return &domain.ExitSignal{
		Symbol:   pos.Symbol,
		Reason:   domain.ExitReasonRiskControl,
		Trigger:  domain.TriggerTrailingStop,
		Priority: r.Prio,
		Date:     date,
		Metadata: map[string]float64{"peak": peak, "drawdown": drawdown},
	}, nil
}

// OnPositionClosed implements PositionCloser.
func (r *TrailingStop) OnPositionClosed(symbol string) {
	delete(r.peaks, symbol)
}

// Peak exposes the tracked peak for a symbol, for inspection in tests and
// diagnostics.
func (r *TrailingStop) Peak(symbol string) (float64, bool) {
	peak, ok := r.peaks[symbol]
	return peak, ok
}

// TakeProfit fires when the position's unrealized gain exceeds the
// configured fraction of the entry price.
type TakeProfit struct {
	Pct  float64
	Prio int
}

// NewTakeProfit creates a take-profit rule at the conventional priority.
func NewTakeProfit(pct float64) *TakeProfit {
	return &TakeProfit{Pct: pct, Prio: 8}
}

func (r *TakeProfit) Name() string  { return "take_profit" }
func (r *TakeProfit) Priority() int { return r.Prio }

// ShouldExit implements Rule.
func (r *TakeProfit) ShouldExit(pos *domain.Position, price float64, date time.Time, _ MarketContext) (*domain.ExitSignal, error) {
	pnlPct := pos.UnrealizedPnLPct(price)
	if pnlPct <= r.Pct {
		return nil, nil
	}
	return &domain.ExitSignal{
		Symbol:   pos.Symbol,
		Reason:   domain.ExitReasonStrategy,
		Trigger:  domain.TriggerTakeProfit,
		Priority: r.Prio,
		Date:     date,
		Metadata: map[string]float64{"pnl_pct": pnlPct},
	}, nil
}

// HoldingPeriod fires once a position has been held for the configured
// number of calendar days.
type HoldingPeriod struct {
	MaxDays int
	Prio    int
}

// NewHoldingPeriod creates a holding-period rule at the conventional priority.
func NewHoldingPeriod(maxDays int) *HoldingPeriod {
	return &HoldingPeriod{MaxDays: maxDays, Prio: 3}
}

func (r *HoldingPeriod) Name() string  { return "holding_period" }
func (r *HoldingPeriod) Priority() int { return r.Prio }

// ShouldExit implements Rule.
func (r *HoldingPeriod) ShouldExit(pos *domain.Position, price float64, date time.Time, _ MarketContext) (*domain.ExitSignal, error) {
	daysHeld := date.Sub(pos.EntryDate).Hours() / 24
	if daysHeld < float64(r.MaxDays) {
		return nil, nil
	}
	return &domain.ExitSignal{
		Symbol:   pos.Symbol,
		Reason:   domain.ExitReasonStrategy,
		Trigger:  domain.TriggerHoldingPeriod,
		Priority: r.Prio,
		Date:     date,
		Metadata: map[string]float64{"days_held": daysHeld},
	}, nil
}
