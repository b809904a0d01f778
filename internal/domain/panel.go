package domain

import (
	"math"
	"sort"
	"time"
)

// Panel is a rectangular date x symbol matrix of float64 values, the shape in
// which historical closes, volumes and per-symbol features are handed to the
// engine. Missing entries are an explicit NaN marker surfaced through the
// (value, ok) accessors, never a silently dropped row. A Panel is read-only
// once built and safe to share across concurrent backtests.
type Panel struct {
	dates   []time.Time
	index   map[time.Time]int
	columns map[string][]float64
}

// NewPanel creates an empty panel over the given ordered dates.
func NewPanel(dates []time.Time) *Panel {
	idx := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		idx[d] = i
	}
	return &Panel{
		dates:   dates,
		index:   idx,
		columns: make(map[string][]float64),
	}
}

// Set records a value for symbol at date. Dates outside the panel's range are
// ignored.
func (p *Panel) Set(symbol string, date time.Time, value float64) {
	i, ok := p.index[date]
	if !ok {
		return
	}
	col, ok := p.columns[symbol]
	if !ok {
		col = make([]float64, len(p.dates))
		for j := range col {
			col[j] = math.NaN()
		}
		p.columns[symbol] = col
	}
	col[i] = value
}

// Value returns the entry for symbol at date. ok is false when the symbol is
// unknown, the date is outside the panel, or the entry is missing.
func (p *Panel) Value(symbol string, date time.Time) (float64, bool) {
	i, ok := p.index[date]
	if !ok {
		return 0, false
	}
	col, ok := p.columns[symbol]
	if !ok {
		return 0, false
	}
	v := col[i]
	if math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// ValueAt returns the entry for symbol at the i-th date.
func (p *Panel) ValueAt(symbol string, i int) (float64, bool) {
	if i < 0 || i >= len(p.dates) {
		return 0, false
	}
	return p.Value(symbol, p.dates[i])
}

// Row returns every present value across symbols at the given date.
func (p *Panel) Row(date time.Time) map[string]float64 {
	row := make(map[string]float64, len(p.columns))
	for sym := range p.columns {
		if v, ok := p.Value(sym, date); ok {
			row[sym] = v
		}
	}
	return row
}

// Index returns the position of date on the panel's date axis.
func (p *Panel) Index(date time.Time) (int, bool) {
	i, ok := p.index[date]
	return i, ok
}

// Dates returns the panel's ordered date axis. Callers must not mutate it.
func (p *Panel) Dates() []time.Time {
	return p.dates
}

// Symbols returns the panel's symbols in sorted order.
func (p *Panel) Symbols() []string {
	syms := make([]string, 0, len(p.columns))
	for s := range p.columns {
		syms = append(syms, s)
	}
	sort.Strings(syms)
	return syms
}

// Len returns the number of dates in the panel.
func (p *Panel) Len() int {
	return len(p.dates)
}

// PanelFromBars builds a close-price panel and a volume panel from per-symbol
// bar series. The date axis is the sorted union of all bar dates.
func PanelFromBars(bars map[string][]*Bar) (closes, volumes *Panel) {
	seen := make(map[time.Time]struct{})
	for _, series := range bars {
		for _, b := range series {
			seen[b.Date] = struct{}{}
		}
	}
	dates := make([]time.Time, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	closes = NewPanel(dates)
	volumes = NewPanel(dates)
	for sym, series := range bars {
		for _, b := range series {
			closes.Set(sym, b.Date, b.Close)
			volumes.Set(sym, b.Date, b.Volume)
		}
	}
	return closes, volumes
}

// Dataset bundles the close panel with optional auxiliary panels. Closes is
// required; Volumes and Features may be nil.
type Dataset struct {
	Closes   *Panel
	Volumes  *Panel
	Features map[string]*Panel
}
