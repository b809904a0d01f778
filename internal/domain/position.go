package domain

import "time"

// Position represents an open holding in one symbol. Positions are owned
// exclusively by the ledger: created on first buy, mutated on partial fills
// and deleted when shares reach zero.
type Position struct {
	Symbol     string    // Trading symbol (e.g., "AAPL")
	Shares     float64   // Shares held, always >= 0
	EntryPrice float64   // Shares-weighted average fill price
	EntryDate  time.Time // Date of the first fill, kept across increases
	EntryCost  float64   // Accumulated transaction cost of entry fills
}

// UnrealizedPnLPct returns the unrealized profit of the position as a
// fraction of the entry price.
func (p *Position) UnrealizedPnLPct(currentPrice float64) float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	return (currentPrice - p.EntryPrice) / p.EntryPrice
}

// MarketValue returns the position value at the given price.
func (p *Position) MarketValue(currentPrice float64) float64 {
	return p.Shares * currentPrice
}
