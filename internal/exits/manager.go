package exits

import (
	"context"
	"fmt"
	"sort"
	"time"

	"stratLab/internal/domain"
	"stratLab/internal/ports"
)

// Manager evaluates every registered exit rule per open position per bar and
// resolves conflicts by priority: at most one exit signal survives per symbol,
// with reverse-entry strictly dominating everything else.
type Manager struct {
	rules              []Rule
	detectReverseEntry bool
	logger             ports.Logger
}

// NewManager creates an exit manager. detectReverseEntry enables emitting a
// dominating exit when a fresh opposing-bias entry signal arrives for a held
// symbol.
func NewManager(detectReverseEntry bool, logger ports.Logger) *Manager {
	return &Manager{detectReverseEntry: detectReverseEntry, logger: logger}
}

// Register adds a rule. Rules are kept in descending priority order; ties
// resolve by registration order. A priority above domain.MaxRulePriority is
// rejected so the reverse-entry constant keeps its strict dominance.
func (m *Manager) Register(rule Rule) error {
	if rule.Priority() < 1 || rule.Priority() > domain.MaxRulePriority {
		return fmt.Errorf("%w: rule %q priority %d outside [1, %d]",
			ports.ErrInvalidConfig, rule.Name(), rule.Priority(), domain.MaxRulePriority)
	}
	m.rules = append(m.rules, rule)
	sort.SliceStable(m.rules, func(i, j int) bool {
		return m.rules[i].Priority() > m.rules[j].Priority()
	})
	return nil
}

// CheckExits evaluates all open positions against the current bar and
// returns the surviving exit signals, one per exiting symbol, in sorted
// symbol order. entries are the fresh entry signals of the same bar, used
// for reverse-entry detection. A rule erroring for one symbol is logged and
// treated as "no exit"; it never blocks evaluation of other symbols.
func (m *Manager) CheckExits(
	ctx context.Context,
	positions map[string]*domain.Position,
	prices map[string]float64,
	date time.Time,
	entries []domain.EntrySignal,
	mctxBySymbol map[string]MarketContext,
) []domain.ExitSignal {
	biasBySymbol := make(map[string]domain.Bias, len(entries))
	for _, e := range entries {
		biasBySymbol[e.Symbol] = e.Bias
	}

	symbols := make([]string, 0, len(positions))
	for sym := range positions {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	var signals []domain.ExitSignal
	for _, sym := range symbols {
		pos := positions[sym]
		price, ok := prices[sym]
		if !ok || price <= 0 {
			m.logger.Warn(ctx, "skipping exit check, no usable price",
				map[string]interface{}{"symbol": sym, "date": date.Format("2006-01-02")})
			continue
		}

		// Positions are long; a fresh short-bias entry for the same symbol
		// reverses the view and dominates every configured rule.
		if m.detectReverseEntry {
			if bias, ok := biasBySymbol[sym]; ok && bias == domain.BiasShort {
				signals = append(signals, domain.ExitSignal{
					Symbol:   sym,
					Reason:   domain.ExitReasonReverseEntry,
					Trigger:  domain.TriggerReverseEntry,
					Priority: domain.ReverseEntryPriority,
					Date:     date,
				})
				continue
			}
		}

		if sig := m.resolve(ctx, pos, price, date, mctxBySymbol[sym]); sig != nil {
			signals = append(signals, *sig)
		}
	}
	return signals
}

// resolve runs the rules in descending priority order and keeps the
// highest-priority signal that fires. A firing rule at or above the
// risk-control tier short-circuits the remaining rules for this symbol.
func (m *Manager) resolve(ctx context.Context, pos *domain.Position, price float64, date time.Time, mctx MarketContext) *domain.ExitSignal {
	var best *domain.ExitSignal
	for _, rule := range m.rules {
		sig, err := rule.ShouldExit(pos, price, date, mctx)
		if err != nil {
			m.logger.Error(ctx, fmt.Errorf("%w: %v", ports.ErrRuleFailed, err),
				"exit rule failed, treating as no exit",
				map[string]interface{}{"rule": rule.Name(), "symbol": pos.Symbol})
			continue
		}
		if sig == nil {
			continue
		}
		if best == nil {
			best = sig
		}
		if sig.Priority >= domain.RiskControlTier {
			break
		}
	}
	return best
}

// OnPositionClosed forwards a full-close notification to every rule holding
// per-symbol state. Wire this to the ledger's close hook.
func (m *Manager) OnPositionClosed(symbol string) {
	for _, rule := range m.rules {
		if closer, ok := rule.(PositionCloser); ok {
			closer.OnPositionClosed(symbol)
		}
	}
}
