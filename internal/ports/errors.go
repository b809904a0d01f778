package ports

import "errors"

// Standard application-level errors.
// Components wrap underlying errors with these so callers can branch on the
// failure class with errors.Is.
var (
	// Configuration errors: fatal for the task that carries them, fail fast.
	ErrUnknownStrategy = errors.New("unknown strategy type identity")
	ErrUnknownModel    = errors.New("unknown slippage model")
	ErrInvalidConfig   = errors.New("invalid or missing configuration")

	// Data errors: fatal for one run, not retried.
	ErrNoPriceData   = errors.New("price panel is missing or empty")
	ErrEmptyUniverse = errors.New("symbol universe is empty")

	// Execution errors: recovered locally, never propagated to siblings.
	ErrRuleFailed = errors.New("exit rule evaluation failed")
	ErrTaskFailed = errors.New("backtest task failed")

	// Resource errors: recovered via sequential fallback.
	ErrPoolUnavailable = errors.New("parallel worker pool unavailable")

	// Storage errors.
	ErrDBConnection = errors.New("database connection error")
	ErrQueryFailed  = errors.New("database query failed")

	// Market data errors.
	ErrProviderUnavailable = errors.New("price provider is unavailable")
)
