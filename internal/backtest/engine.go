package backtest

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"stratLab/internal/analytics"
	"stratLab/internal/domain"
	"stratLab/internal/exits"
	"stratLab/internal/ledger"
	"stratLab/internal/ports"
	"stratLab/internal/slippage"
	"stratLab/internal/strategy"
)

// RunConfig holds the common run parameters shared by every task in a batch.
type RunConfig struct {
	InitialCash      float64
	RebalanceEvery   int // bars between rebalances, minimum 1
	MaxSingleLossPct float64
	MaxPositionPct   float64
	Slippage         slippage.Model
}

// Result is the complete outcome of one backtest run.
type Result struct {
	Success        bool
	Error          string
	Metrics        map[string]float64
	Trades         []*domain.Trade
	DailyPortfolio []analytics.EquityPoint
	Duration       time.Duration
}

// Engine advances one strategy bar-by-bar over a dataset, mutating a fresh
// ledger and producing a performance report. A single run is inherently
// sequential: each bar's decisions depend on the previous bar's portfolio
// state. All data is loaded before the loop starts; no I/O happens inside it.
type Engine struct {
	logger ports.Logger
}

// New creates a backtest engine.
func New(logger ports.Logger) *Engine {
	return &Engine{logger: logger}
}

// marketWindow is the trailing number of bars used to estimate the average
// volume notional and return volatility fed to slippage models and rules.
const marketWindow = 20

// Run executes one backtest. Configuration and data problems fail the whole
// run; per-symbol issues inside the loop are logged and skipped.
func (e *Engine) Run(ctx context.Context, strat *strategy.Strategy, ds *domain.Dataset, cfg RunConfig) (*Result, error) {
	started := time.Now()

	if ds == nil || ds.Closes == nil || ds.Closes.Len() == 0 {
		return nil, ports.ErrNoPriceData
	}
	if len(ds.Closes.Symbols()) == 0 {
		return nil, ports.ErrEmptyUniverse
	}
	if cfg.InitialCash <= 0 {
		return nil, fmt.Errorf("%w: initial cash must be positive", ports.ErrInvalidConfig)
	}
	if cfg.RebalanceEvery <= 0 {
		cfg.RebalanceEvery = 1
	}
	if cfg.Slippage == nil {
		cfg.Slippage = &slippage.Fixed{Rate: 0.001}
	}

	book := ledger.New(ledger.Config{
		InitialCash:      cfg.InitialCash,
		MaxSingleLossPct: cfg.MaxSingleLossPct,
		MaxPositionPct:   cfg.MaxPositionPct,
	})
	manager := exits.NewManager(strat.ReverseEntry, e.logger)
	for _, rule := range strat.ExitRules {
		if err := manager.Register(rule); err != nil {
			return nil, err
		}
	}
	book.OnClose(manager.OnPositionClosed)

	var trades []*domain.Trade
	dates := ds.Closes.Dates()
	curve := make([]analytics.EquityPoint, 0, len(dates))

	for i, date := range dates {
		prices := ds.Closes.Row(date)

		// Entry signals are computed first so same-bar reverse-entry
		// detection sees them before any fill happens.
		var entries []domain.EntrySignal
		rebalance := i%cfg.RebalanceEvery == 0
		if rebalance {
			entries = e.entrySignals(ctx, strat, ds, date)
		}

		mctx := e.marketContexts(ds, book.Positions(), i)
		exited := make(map[string]bool)

		for _, sig := range manager.CheckExits(ctx, book.Positions(), prices, date, entries, mctx) {
			pos := book.Position(sig.Symbol)
			if pos == nil {
				continue
			}
			trades = append(trades, e.sell(book, pos, pos.Shares, prices[sig.Symbol], date, string(sig.Trigger), cfg.Slippage, e.slippageContext(ds, sig.Symbol, i)))
			exited[sig.Symbol] = true
		}

		// Ledger-level guards catch what no registered rule covered: hard
		// single-position losses and oversized positions.
		if cfg.MaxSingleLossPct > 0 {
			for _, sym := range book.StopLossBreaches(prices) {
				pos := book.Position(sym)
				trades = append(trades, e.sell(book, pos, pos.Shares, prices[sym], date, string(domain.TriggerStopLoss), cfg.Slippage, e.slippageContext(ds, sym, i)))
				exited[sym] = true
			}
		}
		if cfg.MaxPositionPct > 0 {
			for _, sym := range book.PositionLimitBreaches(prices) {
				pos := book.Position(sym)
				total := book.MarkToMarket(prices)
				excess := pos.MarketValue(prices[sym]) - total*cfg.MaxPositionPct
				if excess <= 0 {
					continue
				}
				shares := excess / prices[sym]
				trades = append(trades, e.sell(book, pos, shares, prices[sym], date, "position_limit", cfg.Slippage, e.slippageContext(ds, sym, i)))
			}
		}

		if rebalance && len(entries) > 0 {
			trades = append(trades, e.rebalance(ctx, book, entries, prices, date, exited, cfg, ds, i)...)
		}

		curve = append(curve, analytics.EquityPoint{
			Date:       date,
			TotalValue: book.MarkToMarket(prices),
			Cash:       book.Cash(),
		})
	}

	return &Result{
		Success:        true,
		Metrics:        analytics.Compute(curve, trades, cfg.InitialCash),
		Trades:         trades,
		DailyPortfolio: curve,
		Duration:       time.Since(started),
	}, nil
}

// entrySignals runs selector then entry, degrading to no signals on error.
func (e *Engine) entrySignals(ctx context.Context, strat *strategy.Strategy, ds *domain.Dataset, date time.Time) []domain.EntrySignal {
	symbols, err := strat.Selector.Select(ctx, ds, date)
	if err != nil {
		e.logger.Warn(ctx, "selector failed, skipping rebalance",
			map[string]interface{}{"strategy": strat.Name, "date": date.Format("2006-01-02"), "error": err.Error()})
		return nil
	}
	if len(symbols) == 0 {
		return nil
	}
	entries, err := strat.Entry.Signals(ctx, ds, symbols, date)
	if err != nil {
		e.logger.Warn(ctx, "entry rule failed, skipping rebalance",
			map[string]interface{}{"strategy": strat.Name, "date": date.Format("2006-01-02"), "error": err.Error()})
		return nil
	}
	return strategy.NormalizeWeights(entries)
}

// rebalance moves the book toward the target weights: first sells positions
// that fell out of the target set or exceed their weight, then spends the
// resulting cash on underweight symbols. Symbols that already exited this
// bar are never rebought on the same bar.
func (e *Engine) rebalance(
	ctx context.Context,
	book *ledger.Ledger,
	entries []domain.EntrySignal,
	prices map[string]float64,
	date time.Time,
	exited map[string]bool,
	cfg RunConfig,
	ds *domain.Dataset,
	barIdx int,
) []*domain.Trade {
	targets := make(map[string]float64, len(entries))
	for _, sig := range entries {
		if sig.Bias == domain.BiasLong && sig.Weight > 0 {
			targets[sig.Symbol] = sig.Weight
		}
	}

	var trades []*domain.Trade
	total := book.MarkToMarket(prices)

	// Sells: dropped or overweight holdings.
	held := make([]string, 0)
	for sym := range book.Positions() {
		held = append(held, sym)
	}
	sort.Strings(held)
	for _, sym := range held {
		pos := book.Position(sym)
		price, ok := prices[sym]
		if !ok || price <= 0 {
			continue
		}
		targetNotional := targets[sym] * total
		deltaShares := pos.Shares - targetNotional/price
		if deltaShares <= 1e-9 {
			continue
		}
		trades = append(trades, e.sell(book, pos, deltaShares, price, date, "rebalance", cfg.Slippage, e.slippageContext(ds, sym, barIdx)))
	}

	// Buys: underweight targets, deterministic order.
	symbols := make([]string, 0, len(targets))
	for sym := range targets {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	total = book.MarkToMarket(prices)
	for _, sym := range symbols {
		if exited[sym] {
			continue
		}
		price, ok := prices[sym]
		if !ok || price <= 0 {
			e.logger.Warn(ctx, "skipping buy, no usable price",
				map[string]interface{}{"symbol": sym, "date": date.Format("2006-01-02")})
			continue
		}
		targetNotional := targets[sym] * total
		var heldNotional float64
		if pos := book.Position(sym); pos != nil {
			heldNotional = pos.MarketValue(price)
		}
		deltaNotional := targetNotional - heldNotional
		if deltaNotional <= 0 {
			continue
		}
		shares := deltaNotional / price
		fill, cost := cfg.Slippage.FillPrice(shares, price, true, e.slippageContext(ds, sym, barIdx))
		if fill <= 0 || shares <= 0 {
			continue
		}
		// Never spend below zero cash; scale the order down if needed.
		if outlay := shares*fill + cost; outlay > book.Cash() {
			scale := book.Cash() / outlay
			if scale <= 0 {
				continue
			}
			shares *= scale
			cost *= scale
		}
		book.OpenOrIncrease(sym, shares, fill, date, cost)
		trades = append(trades, &domain.Trade{
			Symbol: sym,
			Side:   domain.Buy,
			Shares: shares,
			Price:  fill,
			Date:   date,
			Cost:   cost,
			Reason: "entry",
		})
	}
	return trades
}

// sell executes a slippage-adjusted reduce-or-close and records the trade.
func (e *Engine) sell(book *ledger.Ledger, pos *domain.Position, shares, refPrice float64, date time.Time, reason string, model slippage.Model, sctx slippage.Context) *domain.Trade {
	if refPrice <= 0 {
		refPrice = pos.EntryPrice
	}
	if shares > pos.Shares {
		shares = pos.Shares
	}
	fill, cost := model.FillPrice(shares, refPrice, false, sctx)
	pnl := book.ReduceOrClose(pos.Symbol, shares, fill, cost)
	return &domain.Trade{
		Symbol:      pos.Symbol,
		Side:        domain.Sell,
		Shares:      shares,
		Price:       fill,
		Date:        date,
		Cost:        cost,
		RealizedPnL: pnl,
		Reason:      reason,
	}
}

// slippageContext estimates trailing average volume notional and volatility
// for one symbol at bar index i.
func (e *Engine) slippageContext(ds *domain.Dataset, symbol string, i int) slippage.Context {
	sctx := slippage.Context{Urgency: 1}
	lo := i - marketWindow
	if lo < 0 {
		lo = 0
	}

	if ds.Volumes != nil {
		var sum float64
		var n int
		for j := lo; j <= i; j++ {
			vol, okV := ds.Volumes.ValueAt(symbol, j)
			price, okP := ds.Closes.ValueAt(symbol, j)
			if okV && okP && vol > 0 && price > 0 {
				sum += vol * price
				n++
			}
		}
		if n > 0 {
			sctx.AvgVolumeNotional = sum / float64(n)
		}
	}
	sctx.Volatility = e.trailingVolatility(ds, symbol, lo, i)
	return sctx
}

// marketContexts builds the per-symbol rule context for open positions.
func (e *Engine) marketContexts(ds *domain.Dataset, positions map[string]*domain.Position, i int) map[string]exits.MarketContext {
	lo := i - marketWindow
	if lo < 0 {
		lo = 0
	}
	out := make(map[string]exits.MarketContext, len(positions))
	for sym := range positions {
		out[sym] = exits.MarketContext{Volatility: e.trailingVolatility(ds, sym, lo, i)}
	}
	return out
}

// trailingVolatility is the sample standard deviation of bar returns over
// [lo, i]; zero when the window holds fewer than three usable closes.
func (e *Engine) trailingVolatility(ds *domain.Dataset, symbol string, lo, i int) float64 {
	var rets []float64
	var prev float64
	for j := lo; j <= i; j++ {
		price, ok := ds.Closes.ValueAt(symbol, j)
		if !ok || price <= 0 {
			continue
		}
		if prev > 0 {
			rets = append(rets, price/prev-1)
		}
		prev = price
	}
	if len(rets) < 2 {
		return 0
	}
	var sum float64
	for _, r := range rets {
		sum += r
	}
	mean := sum / float64(len(rets))
	var variance float64
	for _, r := range rets {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(rets) - 1)
	return math.Sqrt(variance)
}
