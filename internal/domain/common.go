package domain

// OrderSide represents the side of a simulated order (BUY or SELL).
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// Bias represents the direction of an entry signal.
type Bias string

const (
	BiasLong  Bias = "long"
	BiasShort Bias = "short"
)

// ExitReason classifies why an exit signal was produced.
type ExitReason string

const (
	ExitReasonStrategy     ExitReason = "strategy"
	ExitReasonReverseEntry ExitReason = "reverse_entry"
	ExitReasonRiskControl  ExitReason = "risk_control"
)

// ExitTrigger identifies the concrete rule that produced an exit signal.
type ExitTrigger string

const (
	TriggerStopLoss      ExitTrigger = "stop_loss"
	TriggerTrailingStop  ExitTrigger = "trailing_stop"
	TriggerTakeProfit    ExitTrigger = "take_profit"
	TriggerHoldingPeriod ExitTrigger = "holding_period"
	TriggerReverseEntry  ExitTrigger = "reverse_entry"
	TriggerStrategy      ExitTrigger = "strategy"
)

// Exit rule priorities. Configurable rules must stay at or below
// MaxRulePriority; ReverseEntryPriority sits strictly above it so a
// reverse-entry exit always beats every registered rule. A rule at or above
// RiskControlTier short-circuits evaluation of lower-priority rules for that
// symbol.
const (
	MaxRulePriority      = 10
	ReverseEntryPriority = 11
	RiskControlTier      = 8
)
