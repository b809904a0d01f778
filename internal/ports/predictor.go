package ports

import (
	"context"
	"time"

	"stratLab/internal/domain"
)

// Predictor exposes the ML prediction layer at its boundary. ML-driven
// selector and entry variants consume this contract; model training happens
// elsewhere.
type Predictor interface {
	// Predict returns per-symbol predictions for the given date. Symbols the
	// model cannot score are absent from the result, not zero-filled.
	Predict(ctx context.Context, symbols []string, date time.Time) (map[string]domain.Prediction, error)
}
