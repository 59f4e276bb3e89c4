package models

import "strings"

// Requests for the decision HTTP endpoints. Defined in domain for reuse by the Kafka intake.

type WebhookSignalRequest struct {
	Ticker   string  `json:"ticker" validate:"required,max=16"`
	Exchange string  `json:"exchange" default:"UNKNOWN" validate:"required"`
	Price    float64 `json:"price" validate:"gt=0"`
	Signal   struct {
		Type      string  `json:"type" validate:"required,oneof=LONG SHORT"`
		Timeframe string  `json:"timeframe" default:"5" validate:"required"`
		Quality   string  `json:"quality" default:"MEDIUM" validate:"oneof=EXTREME HIGH MEDIUM LOW"`
		AIScore   float64 `json:"ai_score" validate:"gte=0,lte=10"`
		Timestamp int64   `json:"timestamp" validate:"gt=0"`
	} `json:"signal"`
	PhaseContext *struct {
		Phase     *float64 `json:"phase" validate:"omitempty,gte=-100,lte=100"`
		Session   string   `json:"session" validate:"omitempty,oneof=OPEN MIDDAY POWER_HOUR AFTERHOURS"`
		Source    string   `json:"source"`
		Timeframe string   `json:"timeframe"`
	} `json:"phase_context"`
}

// NormalizeTicker returns the canonical upper-case form tickers are stored and filtered by.
func NormalizeTicker(t string) string { return strings.ToUpper(strings.TrimSpace(t)) }

// ToSignal converts the validated request into the domain signal.
func (r *WebhookSignalRequest) ToSignal() Signal {
	s := Signal{
		Ticker:   NormalizeTicker(r.Ticker),
		Exchange: r.Exchange,
		Price:    r.Price,
		Signal: SignalDetails{
			Type:      Direction(r.Signal.Type),
			Timeframe: r.Signal.Timeframe,
			Quality:   Quality(r.Signal.Quality),
			AIScore:   r.Signal.AIScore,
			Timestamp: r.Signal.Timestamp,
		},
	}
	if r.PhaseContext != nil {
		s.PhaseContext = &PhaseContext{
			Phase:     r.PhaseContext.Phase,
			Session:   Session(r.PhaseContext.Session),
			Source:    r.PhaseContext.Source,
			Timeframe: r.PhaseContext.Timeframe,
		}
	}
	return s
}

type LedgerQueryRequest struct {
	Limit     int    `query:"limit" default:"100" validate:"gte=1"`
	Since     string `query:"since"`
	Until     string `query:"until"`
	Decision  string `query:"decision" validate:"omitempty,alpha"`
	Ticker    string `query:"ticker"`
	Timeframe string `query:"timeframe"`
	Quality   string `query:"quality" validate:"omitempty,oneof=EXTREME HIGH MEDIUM LOW"`
}
