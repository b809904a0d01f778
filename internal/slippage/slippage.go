package slippage

import (
	"fmt"
	"math"

	"stratLab/internal/ports"
)

// Context carries the per-symbol market state a model may consult when
// pricing a fill. Zero values mean "unknown"; every model degrades to a
// simpler estimate rather than failing.
type Context struct {
	AvgVolumeNotional float64 // Average traded notional over the reference window
	Volatility        float64 // Recent return volatility, per bar
	Bid               float64 // Live bid quote, 0 when unavailable
	Ask               float64 // Live ask quote, 0 when unavailable
	Urgency           float64 // Execution urgency multiplier, 1 when unset
}

// Model converts an intended order size and reference price into an
// executable fill price and transaction cost. orderSize is in shares.
//
// Every model honors the same edge policy: a zero or negative order size
// yields zero cost and the reference price unmodified; a zero or negative
// reference price yields a zero fill price, never NaN or infinity.
type Model interface {
	FillPrice(orderSize, refPrice float64, isBuy bool, mctx Context) (fill, cost float64)
}

// degenerate applies the shared edge policy. handled reports whether the
// caller should return immediately.
func degenerate(orderSize, refPrice float64) (fill, cost float64, handled bool) {
	if refPrice <= 0 {
		return 0, 0, true
	}
	if orderSize <= 0 {
		return refPrice, 0, true
	}
	return 0, 0, false
}

// direction returns +1 for buys and -1 for sells; slippage always moves the
// fill against the trader.
func direction(isBuy bool) float64 {
	if isBuy {
		return 1
	}
	return -1
}

// Fixed charges a flat fraction of notional and shifts the fill by half that
// rate against the trader.
type Fixed struct {
	Rate float64
}

// FillPrice implements Model.
func (m *Fixed) FillPrice(orderSize, refPrice float64, isBuy bool, _ Context) (float64, float64) {
	if fill, cost, handled := degenerate(orderSize, refPrice); handled {
		return fill, cost
	}
	notional := orderSize * refPrice
	cost := notional * m.Rate
	fill := refPrice * (1 + direction(isBuy)*m.Rate/2)
	return fill, cost
}

// VolumeBased scales cost with the order's participation rate: base rate plus
// an impact term proportional to order notional over average volume notional,
// capped at MaxRate. Missing, zero or negative volume falls back to the base
// rate alone.
type VolumeBased struct {
	BaseRate    float64
	ImpactCoeff float64
	MaxRate     float64
}

// FillPrice implements Model.
func (m *VolumeBased) FillPrice(orderSize, refPrice float64, isBuy bool, mctx Context) (float64, float64) {
	if fill, cost, handled := degenerate(orderSize, refPrice); handled {
		return fill, cost
	}
	notional := orderSize * refPrice
	rate := m.BaseRate
	if mctx.AvgVolumeNotional > 0 {
		participation := notional / mctx.AvgVolumeNotional
		rate += m.ImpactCoeff * participation
	}
	if rate > m.MaxRate {
		rate = m.MaxRate
	}
	fill := refPrice * (1 + direction(isBuy)*rate)
	return fill, notional * rate
}

// MarketImpact combines volatility, a participation-rate power term and an
// urgency multiplier into an impact rate, capped at MaxRate. Volatility
// defaults to 2% per bar when absent or non-positive.
type MarketImpact struct {
	ImpactCoeff float64
	Exponent    float64
	MaxRate     float64
}

const defaultVolatility = 0.02

// FillPrice implements Model.
func (m *MarketImpact) FillPrice(orderSize, refPrice float64, isBuy bool, mctx Context) (float64, float64) {
	if fill, cost, handled := degenerate(orderSize, refPrice); handled {
		return fill, cost
	}
	notional := orderSize * refPrice

	vol := mctx.Volatility
	if vol <= 0 {
		vol = defaultVolatility
	}
	urgency := mctx.Urgency
	if urgency <= 0 {
		urgency = 1
	}
	participation := 0.0
	if mctx.AvgVolumeNotional > 0 {
		participation = notional / mctx.AvgVolumeNotional
	}

	rate := m.ImpactCoeff * vol * math.Pow(participation, m.Exponent) * urgency
	if rate > m.MaxRate {
		rate = m.MaxRate
	}
	fill := refPrice * (1 + direction(isBuy)*rate)
	return fill, notional * rate
}

// BidAskSpread fills buys at the ask and sells at the bid when live quotes
// are present. Without quotes it estimates a half-spread that widens with
// volatility around the reference price.
type BidAskSpread struct {
	BaseHalfSpread float64
	VolCoeff       float64
}

// FillPrice implements Model.
func (m *BidAskSpread) FillPrice(orderSize, refPrice float64, isBuy bool, mctx Context) (float64, float64) {
	if fill, cost, handled := degenerate(orderSize, refPrice); handled {
		return fill, cost
	}
	if mctx.Bid > 0 && mctx.Ask > 0 {
		var fill float64
		if isBuy {
			fill = mctx.Ask
		} else {
			fill = mctx.Bid
		}
		return fill, orderSize * math.Abs(fill-refPrice)
	}

	halfSpread := m.BaseHalfSpread
	if mctx.Volatility > 0 {
		halfSpread += m.VolCoeff * mctx.Volatility
	}
	fill := refPrice * (1 + direction(isBuy)*halfSpread)
	return fill, orderSize * refPrice * halfSpread
}

// Model names accepted by FromConfig.
const (
	NameFixed        = "fixed"
	NameVolumeBased  = "volume_based"
	NameMarketImpact = "market_impact"
	NameBidAskSpread = "bid_ask_spread"
)

// FromConfig builds a slippage model from its configured name and parameter
// map. Unknown names are a configuration error. Absent parameters take the
// documented defaults.
func FromConfig(name string, params map[string]float64) (Model, error) {
	get := func(key string, def float64) float64 {
		if v, ok := params[key]; ok {
			return v
		}
		return def
	}

	switch name {
	case NameFixed:
		return &Fixed{Rate: get("rate", 0.001)}, nil
	case NameVolumeBased:
		return &VolumeBased{
			BaseRate:    get("base_rate", 0.0005),
			ImpactCoeff: get("impact_coefficient", 0.1),
			MaxRate:     get("max_rate", 0.02),
		}, nil
	case NameMarketImpact:
		return &MarketImpact{
			ImpactCoeff: get("impact_coefficient", 1.0),
			Exponent:    get("exponent", 0.5),
			MaxRate:     get("max_rate", 0.05),
		}, nil
	case NameBidAskSpread:
		return &BidAskSpread{
			BaseHalfSpread: get("base_half_spread", 0.0005),
			VolCoeff:       get("vol_coefficient", 0.05),
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ports.ErrUnknownModel, name)
	}
}
