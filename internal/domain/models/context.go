package models

// DataSource marks the provenance of enrichment data.
type DataSource string

const (
	SourceAPI      DataSource = "API"
	SourceFallback DataSource = "FALLBACK"
)

// Sourced carries either a fetched value or a fallback default, plus provenance.
type Sourced[T any] struct {
	Value  T          `json:"value"`
	Source DataSource `json:"data_source"`
	Err    string     `json:"error,omitempty"`
}

// FromAPI wraps a value returned by a live provider.
func FromAPI[T any](v T) Sourced[T] {
	return Sourced[T]{Value: v, Source: SourceAPI}
}

// FromFallback wraps a default value substituted after a provider failure.
func FromFallback[T any](v T, err error) Sourced[T] {
	s := Sourced[T]{Value: v, Source: SourceFallback}
	if err != nil {
		s.Err = err.Error()
	}
	return s
}

// IsFallback reports whether the value is a substituted default.
func (s Sourced[T]) IsFallback() bool { return s.Source != SourceAPI }

// GammaBias is the dealer gamma positioning classification.
type GammaBias string

const (
	GammaBullish GammaBias = "BULLISH"
	GammaBearish GammaBias = "BEARISH"
	GammaNeutral GammaBias = "NEUTRAL"
)

// Trend classification of the underlying.
type Trend string

const (
	TrendUp       Trend = "UP"
	TrendDown     Trend = "DOWN"
	TrendSideways Trend = "SIDEWAYS"
)

// OptionsData is returned by the options analytics provider.
type OptionsData struct {
	GammaBias     GammaBias `json:"gamma_bias"`
	GammaExposure float64   `json:"gamma_exposure"`
	IVRank        float64   `json:"iv_rank"`
	PutCallRatio  float64   `json:"put_call_ratio"`
}

// MarketStats is returned by the volatility/trend provider.
type MarketStats struct {
	ATR14       float64 `json:"atr14"`
	RV20        float64 `json:"rv20"`
	Trend       Trend   `json:"trend"`
	VolumeRatio float64 `json:"volume_ratio"`
}

// LiquidityData is returned by the liquidity/depth provider.
type LiquidityData struct {
	SpreadBps  float64 `json:"spread_bps"`
	DepthScore float64 `json:"depth_score"`
	BidSize    float64 `json:"bid_size"`
	AskSize    float64 `json:"ask_size"`
}

// MarketContext bundles provider results, each tagged with its source.
type MarketContext struct {
	Options   Sourced[OptionsData]   `json:"options"`
	Stats     Sourced[MarketStats]   `json:"stats"`
	Liquidity Sourced[LiquidityData] `json:"liquidity"`
}

// Indicator is the signal-derived half of a DecisionContext.
type Indicator struct {
	SignalType Direction `json:"signal_type"`
	AIScore    float64   `json:"ai_score"`
	Phase      *float64  `json:"phase,omitempty"`
	Session    Session   `json:"session"`
	Symbol     string    `json:"symbol"`
	Timeframe  string    `json:"timeframe"`
	Quality    Quality   `json:"quality"`
	Timestamp  int64     `json:"timestamp"`
}

// DecisionContext is the snapshot every gate evaluates. Treat as immutable.
type DecisionContext struct {
	Indicator Indicator      `json:"indicator"`
	Market    *MarketContext `json:"market,omitempty"`
}

// Clone returns a deep copy so audit snapshots do not alias caller memory.
func (c DecisionContext) Clone() DecisionContext {
	out := c
	if c.Indicator.Phase != nil {
		p := *c.Indicator.Phase
		out.Indicator.Phase = &p
	}
	if c.Market != nil {
		m := *c.Market
		out.Market = &m
	}
	return out
}
