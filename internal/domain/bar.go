package domain

import "time"

// Bar represents a single fixed-interval price bar for one symbol.
type Bar struct {
	Date   time.Time // Start of the interval
	Symbol string    // Trading symbol
	Open   float64   // Opening price
	High   float64   // Highest price
	Low    float64   // Lowest price
	Close  float64   // Closing price
	Volume float64   // Traded volume over the interval
}
