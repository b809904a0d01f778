package binanceclient

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"stratLab/internal/domain"
	"stratLab/internal/ports"

	"github.com/adshao/go-binance/v2"
)

const klinesPageLimit = 1000

// Client implements the ports.PriceProvider interface using the go-binance
// library. It only touches public market-data endpoints; API keys are
// optional.
type Client struct {
	client *binance.Client
	logger ports.Logger
}

// Config holds configuration specific to the Binance client adapter.
type Config struct {
	APIKey     string
	SecretKey  string
	UseTestnet bool
	Logger     ports.Logger
}

// New creates a new Binance price provider adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client")
	}
	binance.UseTestnet = cfg.UseTestnet
	client := binance.NewClient(cfg.APIKey, cfg.SecretKey)
	cfg.Logger.Info(context.Background(), "Binance price provider configured",
		map[string]interface{}{"testnet": cfg.UseTestnet})
	return &Client{client: client, logger: cfg.Logger}, nil
}

// FetchDataset downloads klines for every symbol over [start, end] and
// assembles close and volume panels. A symbol that fails to download fails
// the whole fetch; partial panels would silently skew every backtest run on
// top of them.
func (c *Client) FetchDataset(ctx context.Context, symbols []string, interval string, start, end time.Time) (*domain.Dataset, error) {
	if len(symbols) == 0 {
		return nil, ports.ErrEmptyUniverse
	}

	bars := make(map[string][]*domain.Bar, len(symbols))
	for _, symbol := range symbols {
		series, err := c.fetchBars(ctx, symbol, interval, start, end)
		if err != nil {
			return nil, fmt.Errorf("%w: fetching %s: %v", ports.ErrProviderUnavailable, symbol, err)
		}
		c.logger.Debug(ctx, "downloaded klines",
			map[string]interface{}{"symbol": symbol, "bars": len(series)})
		bars[symbol] = series
	}

	closes, volumes := domain.PanelFromBars(bars)
	if closes.Len() == 0 {
		return nil, ports.ErrNoPriceData
	}
	return &domain.Dataset{Closes: closes, Volumes: volumes}, nil
}

// FetchBars downloads the raw bar series for a single symbol.
func (c *Client) FetchBars(ctx context.Context, symbol, interval string, start, end time.Time) ([]*domain.Bar, error) {
	bars, err := c.fetchBars(ctx, symbol, interval, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching %s: %v", ports.ErrProviderUnavailable, symbol, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s returned no bars", ports.ErrNoPriceData, symbol)
	}
	return bars, nil
}

// fetchBars pages through the klines endpoint until the range is covered.
func (c *Client) fetchBars(ctx context.Context, symbol, interval string, start, end time.Time) ([]*domain.Bar, error) {
	var bars []*domain.Bar
	cursor := start.UnixMilli()
	endMs := end.UnixMilli()

	for cursor < endMs {
		klines, err := c.client.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			StartTime(cursor).
			EndTime(endMs).
			Limit(klinesPageLimit).
			Do(ctx)
		if err != nil {
			return nil, err
		}
		if len(klines) == 0 {
			break
		}
		for _, k := range klines {
			bar, err := toBar(symbol, k)
			if err != nil {
				c.logger.Warn(ctx, "skipping unparseable kline",
					map[string]interface{}{"symbol": symbol, "openTime": k.OpenTime})
				continue
			}
			bars = append(bars, bar)
		}
		cursor = klines[len(klines)-1].CloseTime + 1
		if len(klines) < klinesPageLimit {
			break
		}
	}
	return bars, nil
}

func toBar(symbol string, k *binance.Kline) (*domain.Bar, error) {
	open, err := strconv.ParseFloat(k.Open, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing open: %w", err)
	}
	high, err := strconv.ParseFloat(k.High, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing high: %w", err)
	}
	low, err := strconv.ParseFloat(k.Low, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing low: %w", err)
	}
	closePrice, err := strconv.ParseFloat(k.Close, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing close: %w", err)
	}
	volume, err := strconv.ParseFloat(k.Volume, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing volume: %w", err)
	}
	return &domain.Bar{
		Date:   time.UnixMilli(k.OpenTime).UTC(),
		Symbol: symbol,
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePrice,
		Volume: volume,
	}, nil
}
