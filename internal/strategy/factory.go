package strategy

import (
	"fmt"
	"sort"

	"stratLab/internal/exits"
	"stratLab/internal/ports"
)

// Params is the plain, serializable parameter mapping that crosses worker
// boundaries in place of a live strategy object. Workers rebuild the
// strategy locally from (type identity, Params).
type Params map[string]float64

func (p Params) get(key string, def float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// Deps are the non-serializable collaborators a builder may need. They live
// on the worker side and never cross a boundary.
type Deps struct {
	Logger    ports.Logger
	Predictor ports.Predictor
}

// Builder constructs a strategy from plain parameters.
type Builder func(name string, params Params, deps Deps) (*Strategy, error)

// Strategy type identities accepted by Build.
const (
	TypeMomentum          = "momentum"
	TypeThresholdMomentum = "threshold_momentum"
	TypeML                = "ml"
)

var builders = map[string]Builder{
	TypeMomentum:          buildMomentum,
	TypeThresholdMomentum: buildThresholdMomentum,
	TypeML:                buildML,
}

// RegisteredTypes returns the known strategy type identities, sorted.
func RegisteredTypes() []string {
	types := make([]string, 0, len(builders))
	for t := range builders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Build reconstructs a strategy from its type identity and plain parameter
// mapping. An unknown identity is a hard configuration error, never a silent
// skip.
func Build(typeID, name string, params Params, deps Deps) (*Strategy, error) {
	builder, ok := builders[typeID]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ports.ErrUnknownStrategy, typeID, RegisteredTypes())
	}
	return builder(name, params, deps)
}

// exitRulesFromParams assembles the exit-rule set shared by all built-in
// strategy types. A rule is installed only when its parameter is present and
// positive.
func exitRulesFromParams(params Params) []exits.Rule {
	var rules []exits.Rule
	if pct := params.get("stop_loss_pct", 0); pct > 0 {
		rules = append(rules, exits.NewStopLoss(pct))
	}
	if pct := params.get("trailing_stop_pct", 0); pct > 0 {
		rules = append(rules, exits.NewTrailingStop(pct))
	}
	if pct := params.get("take_profit_pct", 0); pct > 0 {
		rules = append(rules, exits.NewTakeProfit(pct))
	}
	if days := params.get("max_holding_days", 0); days > 0 {
		rules = append(rules, exits.NewHoldingPeriod(int(days)))
	}
	return rules
}

func buildMomentum(name string, params Params, _ Deps) (*Strategy, error) {
	lookback := int(params.get("lookback", 20))
	if lookback <= 0 {
		return nil, fmt.Errorf("%w: momentum lookback must be positive", ports.ErrInvalidConfig)
	}
	return &Strategy{
		Name:         name,
		Selector:     &MomentumSelector{TopN: int(params.get("top_n", 5)), Lookback: lookback},
		Entry:        &ImmediateEntry{},
		ExitRules:    exitRulesFromParams(params),
		ReverseEntry: params.get("reverse_entry", 0) > 0,
	}, nil
}

func buildThresholdMomentum(name string, params Params, _ Deps) (*Strategy, error) {
	lookback := int(params.get("lookback", 20))
	if lookback <= 0 {
		return nil, fmt.Errorf("%w: threshold_momentum lookback must be positive", ports.ErrInvalidConfig)
	}
	return &Strategy{
		Name:         name,
		Selector:     &MomentumSelector{TopN: int(params.get("top_n", 5)), Lookback: lookback},
		Entry:        &ThresholdEntry{Lookback: lookback, Threshold: params.get("threshold", 0.0)},
		ExitRules:    exitRulesFromParams(params),
		ReverseEntry: params.get("reverse_entry", 1) > 0,
	}, nil
}

func buildML(name string, params Params, deps Deps) (*Strategy, error) {
	if deps.Predictor == nil {
		return nil, fmt.Errorf("%w: ml strategy requires a prediction provider", ports.ErrInvalidConfig)
	}
	minConf := params.get("min_confidence", 0.5)
	return &Strategy{
		Name:         name,
		Selector:     &MLSelector{Predictor: deps.Predictor, TopN: int(params.get("top_n", 5)), MinConfidence: minConf},
		Entry:        &MLEntry{Predictor: deps.Predictor, MinConfidence: minConf},
		ExitRules:    exitRulesFromParams(params),
		ReverseEntry: params.get("reverse_entry", 1) > 0,
	}, nil
}
