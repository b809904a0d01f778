package ledger

import (
	"sort"
	"time"

	"stratLab/internal/domain"
)

// Config holds risk limits enforced by the ledger.
type Config struct {
	InitialCash      float64
	MaxSingleLossPct float64 // e.g., 0.10: flag positions down more than 10%
	MaxPositionPct   float64 // e.g., 0.30: flag positions above 30% of portfolio value
}

// CloseHook is invoked whenever a position's shares reach zero, with the
// symbol that closed. Exit rules carrying per-symbol state (trailing-stop
// peaks) register here so the state does not leak into the symbol's next
// position lifecycle.
type CloseHook func(symbol string)

// Ledger is the single source of truth for cash and holdings during one
// backtest run. It is not safe for concurrent use; each run owns its own
// instance.
type Ledger struct {
	cash        float64
	positions   map[string]*domain.Position
	realizedPnL float64
	config      Config
	closeHooks  []CloseHook
}

// New creates a ledger with the configured starting cash.
func New(cfg Config) *Ledger {
	return &Ledger{
		cash:      cfg.InitialCash,
		positions: make(map[string]*domain.Position),
		config:    cfg,
	}
}

// OnClose registers a hook invoked when any position fully closes.
func (l *Ledger) OnClose(hook CloseHook) {
	l.closeHooks = append(l.closeHooks, hook)
}

// OpenOrIncrease creates a position on first buy, or folds a new fill into an
// existing one: the entry price becomes the shares-weighted average of the
// old and new fills, the earliest entry date is kept and entry costs
// accumulate. Cash is debited by shares*price plus the transaction cost.
func (l *Ledger) OpenOrIncrease(symbol string, shares, price float64, date time.Time, cost float64) {
	if shares <= 0 || price <= 0 {
		return
	}
	l.cash -= shares*price + cost

	pos, ok := l.positions[symbol]
	if !ok {
		l.positions[symbol] = &domain.Position{
			Symbol:     symbol,
			Shares:     shares,
			EntryPrice: price,
			EntryDate:  date,
			EntryCost:  cost,
		}
		return
	}

	total := pos.Shares + shares
	pos.EntryPrice = (pos.Shares*pos.EntryPrice + shares*price) / total
	pos.Shares = total
	pos.EntryCost += cost
	if date.Before(pos.EntryDate) {
		pos.EntryDate = date
	}
}

// ReduceOrClose sells shares of a held position. Selling more than held
// liquidates fully and never errors; selling an unheld symbol is a benign
// no-op returning zero. Realized PnL is (price - entry)*sold minus the
// proportional share of accumulated entry cost minus the sell cost. Proceeds
// net of cost are credited to cash and the remaining entry cost shrinks
// proportionally. The position is deleted once shares hit zero, firing the
// registered close hooks.
func (l *Ledger) ReduceOrClose(symbol string, shares, price, cost float64) float64 {
	pos, ok := l.positions[symbol]
	if !ok || shares <= 0 {
		return 0
	}
	if shares > pos.Shares {
		shares = pos.Shares
	}

	fraction := shares / pos.Shares
	entryCostShare := pos.EntryCost * fraction

	pnl := (price-pos.EntryPrice)*shares - entryCostShare - cost
	l.realizedPnL += pnl
	l.cash += shares*price - cost

	pos.Shares -= shares
	pos.EntryCost -= entryCostShare
	if pos.Shares <= 1e-12 {
		delete(l.positions, symbol)
		for _, hook := range l.closeHooks {
			hook(symbol)
		}
	}
	return pnl
}

// MarkToMarket returns total portfolio value at the given prices: cash plus
// the market value of every open position. A position whose symbol is absent
// from prices degrades gracefully to its entry price instead of failing the
// whole valuation.
func (l *Ledger) MarkToMarket(prices map[string]float64) float64 {
	total := l.cash
	for sym, pos := range l.positions {
		price, ok := prices[sym]
		if !ok || price <= 0 {
			price = pos.EntryPrice
		}
		total += pos.MarketValue(price)
	}
	return total
}

// StopLossBreaches returns the symbols whose unrealized PnL percentage has
// fallen below -MaxSingleLossPct at the given prices. Symbols without a
// current price are skipped.
func (l *Ledger) StopLossBreaches(prices map[string]float64) []string {
	var breached []string
	for sym, pos := range l.positions {
		price, ok := prices[sym]
		if !ok || price <= 0 {
			continue
		}
		if pos.UnrealizedPnLPct(price) < -l.config.MaxSingleLossPct {
			breached = append(breached, sym)
		}
	}
	sort.Strings(breached)
	return breached
}

// PositionLimitBreaches returns the symbols whose market-value share of the
// total portfolio exceeds MaxPositionPct at the given prices.
func (l *Ledger) PositionLimitBreaches(prices map[string]float64) []string {
	total := l.MarkToMarket(prices)
	if total <= 0 {
		return nil
	}
	var breached []string
	for sym, pos := range l.positions {
		price, ok := prices[sym]
		if !ok || price <= 0 {
			price = pos.EntryPrice
		}
		if pos.MarketValue(price)/total > l.config.MaxPositionPct {
			breached = append(breached, sym)
		}
	}
	sort.Strings(breached)
	return breached
}

// Cash returns available cash.
func (l *Ledger) Cash() float64 {
	return l.cash
}

// RealizedPnL returns cumulative realized profit across all closed fills.
func (l *Ledger) RealizedPnL() float64 {
	return l.realizedPnL
}

// Position returns the open position for symbol, or nil.
func (l *Ledger) Position(symbol string) *domain.Position {
	return l.positions[symbol]
}

// Positions returns the open positions keyed by symbol. The map is a copy;
// the positions themselves are the live ledger-owned values.
func (l *Ledger) Positions() map[string]*domain.Position {
	out := make(map[string]*domain.Position, len(l.positions))
	for sym, pos := range l.positions {
		out[sym] = pos
	}
	return out
}
