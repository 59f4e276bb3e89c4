package usecase

import (
	"time"
	_ "time/tzdata"

	"SignalGate/internal/domain/models"
)

// MarketLocation is the exchange clock sessions are derived in.
const MarketLocation = "America/New_York"

// Session boundaries in minutes after midnight, exchange time.
const (
	openStart      = 9*60 + 30
	middayStart    = 11*60 + 30
	powerHourStart = 15 * 60
	closeTime      = 16 * 60
)

// LoadMarketLocation returns the exchange time zone, falling back to a fixed
// UTC-5 offset when zone data is unavailable.
func LoadMarketLocation() *time.Location {
	loc, err := time.LoadLocation(MarketLocation)
	if err != nil {
		return time.FixedZone("EST", -5*3600)
	}
	return loc
}

// SessionAt classifies t into a US equity session.
func SessionAt(t time.Time, loc *time.Location) models.Session {
	lt := t.In(loc)
	if wd := lt.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return models.SessionAfterHours
	}
	m := lt.Hour()*60 + lt.Minute()
	switch {
	case m >= openStart && m < middayStart:
		return models.SessionOpen
	case m >= middayStart && m < powerHourStart:
		return models.SessionMidday
	case m >= powerHourStart && m < closeTime:
		return models.SessionPowerHour
	default:
		return models.SessionAfterHours
	}
}

// ResolveSession prefers the session stamped by the indicator and derives it
// from the signal time otherwise.
func ResolveSession(sig models.Signal, loc *time.Location) models.Session {
	if sig.PhaseContext != nil && sig.PhaseContext.Session.Valid() {
		return sig.PhaseContext.Session
	}
	return SessionAt(sig.EventTime(), loc)
}
