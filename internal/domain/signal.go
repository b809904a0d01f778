package domain

import "time"

// ExitSignal is the ephemeral result of exit-rule evaluation for one symbol
// on one bar. Signals are produced fresh each bar and never persisted; at
// most one survives per symbol after priority resolution.
type ExitSignal struct {
	Symbol   string
	Reason   ExitReason
	Trigger  ExitTrigger
	Priority int
	Date     time.Time
	Metadata map[string]float64
}

// EntrySignal is a sized, directional buy intention produced by the entry
// layer at a rebalance date. Weight is the fraction of portfolio value to
// allocate; a normalized signal set has weights summing to 1.0. A short-bias
// signal on a held long position feeds reverse-entry exit detection.
type EntrySignal struct {
	Symbol   string
	Bias     Bias
	Weight   float64
	Metadata map[string]float64
}

// Prediction is the per-symbol output of the ML prediction layer.
type Prediction struct {
	ExpectedReturn float64
	Confidence     float64
	Volatility     float64
}
