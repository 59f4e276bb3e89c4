package models

import (
	"time"

	"SignalGate/pkg/util"
)

// Direction of a trading signal.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Valid reports whether d is LONG or SHORT.
func (d Direction) Valid() bool { return d == DirectionLong || d == DirectionShort }

// Session is the US equity market session a signal falls into.
type Session string

const (
	SessionOpen       Session = "OPEN"
	SessionMidday     Session = "MIDDAY"
	SessionPowerHour  Session = "POWER_HOUR"
	SessionAfterHours Session = "AFTERHOURS"
)

// Valid reports whether s is one of the known sessions.
func (s Session) Valid() bool {
	switch s {
	case SessionOpen, SessionMidday, SessionPowerHour, SessionAfterHours:
		return true
	default:
		return false
	}
}

// Quality classification attached to a signal by the emitting indicator.
type Quality string

const (
	QualityExtreme Quality = "EXTREME"
	QualityHigh    Quality = "HIGH"
	QualityMedium  Quality = "MEDIUM"
	QualityLow     Quality = "LOW"
)

// SignalDetails is the nested signal description of a webhook payload.
type SignalDetails struct {
	Type      Direction `json:"type"`
	Timeframe string    `json:"timeframe"`
	Quality   Quality   `json:"quality"`
	AIScore   float64   `json:"ai_score"`
	Timestamp int64     `json:"timestamp"` // ms since epoch
}

// PhaseContext carries optional phase-oscillator data sent alongside a signal.
type PhaseContext struct {
	Phase     *float64 `json:"phase,omitempty"`
	Session   Session  `json:"session,omitempty"`
	Source    string   `json:"source,omitempty"`
	Timeframe string   `json:"timeframe,omitempty"`
}

// Signal is the validated, already-deserialized inbound payload.
type Signal struct {
	Ticker       string        `json:"ticker"`
	Exchange     string        `json:"exchange"`
	Price        float64       `json:"price"`
	Signal       SignalDetails `json:"signal"`
	PhaseContext *PhaseContext `json:"phase_context,omitempty"`
}

// EventTime returns the signal timestamp as time.Time.
func (s Signal) EventTime() time.Time {
	return util.FromMillis(s.Signal.Timestamp)
}

// Candle represents an OHLCV bar used to derive volatility statistics.
type Candle struct {
	Bucket time.Time
	Symbol string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}
