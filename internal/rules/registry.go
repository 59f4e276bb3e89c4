// Package rules holds the frozen decision configuration and its integrity guard.
package rules

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
)

// Gate names in registration order.
const (
	GateSpread     = "spread"
	GateVolatility = "volatility"
	GateGamma      = "gamma"
	GatePhase      = "phase"
	GateSession    = "session"
)

// Reason codes emitted by failing gates.
const (
	ReasonSpreadTooWide      = "SPREAD_TOO_WIDE"
	ReasonVolatilitySpike    = "VOLATILITY_SPIKE"
	ReasonGammaHeadwind      = "GAMMA_HEADWIND"
	ReasonPhaseConfidenceLow = "PHASE_CONFIDENCE_LOW"
	ReasonAfterhoursBlocked  = "AFTERHOURS_BLOCKED"
)

// Thresholds are the gate pass limits. Boundary values pass.
type Thresholds struct {
	SpreadMaxBps       float64 `json:"spread_max_bps"`
	VolatilityMaxRatio float64 `json:"volatility_max_ratio"`
	PhaseMinAbs        float64 `json:"phase_min_abs"`
}

// ConfidenceRules drive the additive confidence score.
type ConfidenceRules struct {
	Base              float64 `json:"base"`
	Max               float64 `json:"max"`
	PhaseBoostMinAbs  float64 `json:"phase_boost_min_abs"`
	PhaseBoost        float64 `json:"phase_boost"`
	TightSpreadMaxBps float64 `json:"tight_spread_max_bps"`
	TightSpreadBoost  float64 `json:"tight_spread_boost"`
}

// ValidationRanges bound inbound signal fields.
type ValidationRanges struct {
	AIScoreMin float64 `json:"ai_score_min"`
	AIScoreMax float64 `json:"ai_score_max"`
	PhaseMin   float64 `json:"phase_min"`
	PhaseMax   float64 `json:"phase_max"`
	PriceMin   float64 `json:"price_min"`
}

// RateLimit is the per-ticker intake budget.
type RateLimit struct {
	PerMinute int `json:"per_minute"`
	Burst     int `json:"burst"`
}

// ConfluenceWeights weight the factors of the confluence score. They sum to 1.
type ConfluenceWeights struct {
	AIScore   float64 `json:"ai_score"`
	Phase     float64 `json:"phase"`
	Gamma     float64 `json:"gamma"`
	Trend     float64 `json:"trend"`
	Liquidity float64 `json:"liquidity"`
}

// Sizing holds the multipliers of the decision breakdown.
type Sizing struct {
	Quality              map[string]float64 `json:"quality"`
	HighVolatilityRegime float64            `json:"high_volatility_regime"`
	HighVolatilityRatio  float64            `json:"high_volatility_ratio"`
	LowVolatilityRatio   float64            `json:"low_volatility_ratio"`
}

// Spec is the construction input of a Registry.
type Spec struct {
	EngineName    string            `json:"engine_name"`
	EngineVersion string            `json:"engine_version"`
	GateOrder     []string          `json:"gate_order"`
	ReasonCodes   map[string]string `json:"reason_codes"`
	Thresholds    Thresholds        `json:"thresholds"`
	Confidence    ConfidenceRules   `json:"confidence"`
	Validation    ValidationRanges  `json:"validation"`
	RateLimit     RateLimit         `json:"rate_limit"`
	Confluence    ConfluenceWeights `json:"confluence"`
	Sizing        Sizing            `json:"sizing"`
}

// Registry is the frozen decision configuration. It has no setters; every
// accessor returns a copy, so holders cannot change what other holders see.
type Registry struct {
	spec   Spec
	frozen string
}

// New validates spec and freezes a private deep copy of it.
func New(spec Spec) (*Registry, error) {
	if err := spec.validate(); err != nil {
		return nil, fmt.Errorf("invalid rules: %w", err)
	}
	r := &Registry{spec: spec.clone()}
	r.frozen = r.Checksum()
	return r, nil
}

// MustNew is New for package-level defaults.
func MustNew(spec Spec) *Registry {
	r, err := New(spec)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) EngineName() string    { return r.spec.EngineName }
func (r *Registry) EngineVersion() string { return r.spec.EngineVersion }

// GateNames returns gate names in registration order.
func (r *Registry) GateNames() []string {
	return append([]string(nil), r.spec.GateOrder...)
}

// ReasonCode returns the reason code a failing gate emits.
func (r *Registry) ReasonCode(gate string) string { return r.spec.ReasonCodes[gate] }

func (r *Registry) Thresholds() Thresholds        { return r.spec.Thresholds }
func (r *Registry) Confidence() ConfidenceRules   { return r.spec.Confidence }
func (r *Registry) Validation() ValidationRanges  { return r.spec.Validation }
func (r *Registry) RateLimit() RateLimit          { return r.spec.RateLimit }
func (r *Registry) Confluence() ConfluenceWeights { return r.spec.Confluence }

// QualityMultiplier returns the sizing multiplier for a quality class, 0 if unknown.
func (r *Registry) QualityMultiplier(quality string) float64 {
	return r.spec.Sizing.Quality[quality]
}

// Sizing returns a copy of the sizing multipliers.
func (r *Registry) Sizing() Sizing { return r.spec.clone().Sizing }

// Snapshot returns a deep copy of the full spec.
func (r *Registry) Snapshot() Spec { return r.spec.clone() }

// Checksum returns the SHA-256 of the canonical JSON form of the current state.
func (r *Registry) Checksum() string {
	b, err := json.Marshal(r.spec)
	if err != nil {
		// Spec contains only JSON-safe types; unreachable after validate.
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// FrozenChecksum returns the checksum captured at construction.
func (r *Registry) FrozenChecksum() string { return r.frozen }

func (s Spec) clone() Spec {
	out := s
	out.GateOrder = append([]string(nil), s.GateOrder...)
	out.ReasonCodes = make(map[string]string, len(s.ReasonCodes))
	for k, v := range s.ReasonCodes {
		out.ReasonCodes[k] = v
	}
	out.Sizing.Quality = make(map[string]float64, len(s.Sizing.Quality))
	for k, v := range s.Sizing.Quality {
		out.Sizing.Quality[k] = v
	}
	return out
}

func (s Spec) validate() error {
	if s.EngineVersion == "" {
		return fmt.Errorf("engine_version is required")
	}
	if len(s.GateOrder) == 0 {
		return fmt.Errorf("gate_order cannot be empty")
	}
	seen := make(map[string]struct{}, len(s.GateOrder))
	for _, g := range s.GateOrder {
		if _, dup := seen[g]; dup {
			return fmt.Errorf("gate %q registered twice", g)
		}
		seen[g] = struct{}{}
		if s.ReasonCodes[g] == "" {
			return fmt.Errorf("gate %q has no reason code", g)
		}
	}
	for name, v := range map[string]float64{
		"thresholds.spread_max_bps":       s.Thresholds.SpreadMaxBps,
		"thresholds.volatility_max_ratio": s.Thresholds.VolatilityMaxRatio,
		"thresholds.phase_min_abs":        s.Thresholds.PhaseMinAbs,
		"confidence.max":                  s.Confidence.Max,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return fmt.Errorf("%s must be a positive finite number", name)
		}
	}
	if s.Confidence.Base < 0 || s.Confidence.Base > s.Confidence.Max {
		return fmt.Errorf("confidence.base must be within [0, max]")
	}
	w := s.Confluence
	if sum := w.AIScore + w.Phase + w.Gamma + w.Trend + w.Liquidity; math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("confluence weights must sum to 1, got %v", sum)
	}
	if s.RateLimit.PerMinute <= 0 || s.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate_limit values must be positive")
	}
	return nil
}
