package models

import "github.com/shopspring/decimal"

// LedgerDecision is the decision column of a ledger row. It is an open
// enumeration: values outside the engine's own outcomes are stored verbatim.
type LedgerDecision string

const (
	LedgerApprove LedgerDecision = "APPROVE"
	LedgerReject  LedgerDecision = "REJECT"
	LedgerSkip    LedgerDecision = "SKIP"
)

// Regime is a categorical market snapshot at decision time.
type Regime struct {
	Volatility string  `json:"volatility"`
	Trend      string  `json:"trend"`
	Liquidity  string  `json:"liquidity"`
	IVRank     float64 `json:"iv_rank"`
}

// Boost is one additive confidence adjustment.
type Boost struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// DecisionBreakdown carries the multiplier and confidence arithmetic.
type DecisionBreakdown struct {
	ConfluenceMultiplier float64 `json:"confluence_multiplier"`
	QualityMultiplier    float64 `json:"quality_multiplier"`
	RegimeMultiplier     float64 `json:"regime_multiplier"`
	FinalMultiplier      float64 `json:"final_multiplier"`
	BaseConfidence       float64 `json:"base_confidence"`
	Boosts               []Boost `json:"boosts,omitempty"`
	Confidence           float64 `json:"confidence"`
}

// Execution is filled in later when the signal is traded.
type Execution struct {
	EntryPrice float64 `json:"entry_price"`
	Quantity   float64 `json:"quantity"`
	FilledAt   int64   `json:"filled_at"`
	Broker     string  `json:"broker,omitempty"`
}

// Exit is filled in later when the position is closed.
type Exit struct {
	ExitPrice float64 `json:"exit_price"`
	ExitedAt  int64   `json:"exited_at"`
	Reason    string  `json:"reason,omitempty"`
	PnL       float64 `json:"pnl"`
}

// Hypothetical records what-if outcomes for rejected or skipped signals.
type Hypothetical struct {
	WouldHaveEntered float64 `json:"would_have_entered"`
	WouldHaveExited  float64 `json:"would_have_exited"`
	PnL              float64 `json:"pnl"`
}

// LedgerEntry is one persisted decision. ID and CreatedAt are assigned by the ledger.
type LedgerEntry struct {
	ID                string            `json:"id"`
	CreatedAt         int64             `json:"created_at"`
	EngineVersion     string            `json:"engine_version"`
	Signal            Signal            `json:"signal"`
	PhaseContext      *PhaseContext     `json:"phase_context,omitempty"`
	Decision          LedgerDecision    `json:"decision"`
	DecisionReason    string            `json:"decision_reason"`
	DecisionBreakdown DecisionBreakdown `json:"decision_breakdown"`
	ConfluenceScore   decimal.Decimal   `json:"confluence_score"`
	Execution         *Execution        `json:"execution,omitempty"`
	Exit              *Exit             `json:"exit,omitempty"`
	Regime            Regime            `json:"regime"`
	Hypothetical      *Hypothetical     `json:"hypothetical,omitempty"`
}

// Ledger page size bounds.
const (
	DefaultLedgerLimit = 100
	MaxLedgerLimit     = 200
)

// LedgerFilter selects ledger entries. Zero values mean "no constraint".
type LedgerFilter struct {
	Limit     int
	Since     int64 // ms, inclusive
	Until     int64 // ms, inclusive
	Decision  LedgerDecision
	Ticker    string
	Timeframe string
	Quality   Quality
}

// Normalize applies the default page size and hard cap.
func (f LedgerFilter) Normalize() LedgerFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultLedgerLimit
	}
	if f.Limit > MaxLedgerLimit {
		f.Limit = MaxLedgerLimit
	}
	return f
}

// Matches reports whether e satisfies every set constraint of f.
func (f LedgerFilter) Matches(e LedgerEntry) bool {
	if f.Since > 0 && e.CreatedAt < f.Since {
		return false
	}
	if f.Until > 0 && e.CreatedAt > f.Until {
		return false
	}
	if f.Decision != "" && e.Decision != f.Decision {
		return false
	}
	if f.Ticker != "" && e.Signal.Ticker != f.Ticker {
		return false
	}
	if f.Timeframe != "" && e.Signal.Signal.Timeframe != f.Timeframe {
		return false
	}
	if f.Quality != "" && e.Signal.Signal.Quality != f.Quality {
		return false
	}
	return true
}
