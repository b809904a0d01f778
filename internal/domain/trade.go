package domain

import "time"

// Trade represents one executed fill in the simulated trade log.
type Trade struct {
	Symbol      string    // Trading symbol
	Side        OrderSide // BUY or SELL
	Shares      float64   // Shares filled
	Price       float64   // Slippage-adjusted fill price
	Date        time.Time // Bar date of the fill
	Cost        float64   // Transaction cost charged on the fill
	RealizedPnL float64   // Realized profit, sells only (0 for buys)
	Reason      string    // Exit trigger or entry tag that caused the fill
}
