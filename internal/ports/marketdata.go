package ports

import (
	"context"
	"time"

	"stratLab/internal/domain"
)

// PriceProvider supplies historical bars for a symbol universe and date
// range, assembled into rectangular panels. Missing entries stay explicit
// inside the panels; providers never drop rows silently.
type PriceProvider interface {
	// FetchDataset returns close and volume panels covering [start, end] at
	// the given bar interval.
	FetchDataset(ctx context.Context, symbols []string, interval string, start, end time.Time) (*domain.Dataset, error)
}
