package rules

// EngineVersion is stamped on every decision and ledger row.
const EngineVersion = "2.1.0"

// DefaultSpec returns the production decision configuration.
func DefaultSpec() Spec {
	return Spec{
		EngineName:    "signalgate",
		EngineVersion: EngineVersion,
		GateOrder:     []string{GateSpread, GateVolatility, GateGamma, GatePhase, GateSession},
		ReasonCodes: map[string]string{
			GateSpread:     ReasonSpreadTooWide,
			GateVolatility: ReasonVolatilitySpike,
			GateGamma:      ReasonGammaHeadwind,
			GatePhase:      ReasonPhaseConfidenceLow,
			GateSession:    ReasonAfterhoursBlocked,
		},
		Thresholds: Thresholds{
			SpreadMaxBps:       12,
			VolatilityMaxRatio: 2.0,
			PhaseMinAbs:        65,
		},
		Confidence: ConfidenceRules{
			Base:              7.0,
			Max:               10.0,
			PhaseBoostMinAbs:  80,
			PhaseBoost:        0.5,
			TightSpreadMaxBps: 5,
			TightSpreadBoost:  0.3,
		},
		Validation: ValidationRanges{
			AIScoreMin: 0,
			AIScoreMax: 10,
			PhaseMin:   -100,
			PhaseMax:   100,
			PriceMin:   0,
		},
		RateLimit: RateLimit{
			PerMinute: 10,
			Burst:     5,
		},
		Confluence: ConfluenceWeights{
			AIScore:   0.30,
			Phase:     0.25,
			Gamma:     0.15,
			Trend:     0.15,
			Liquidity: 0.15,
		},
		Sizing: Sizing{
			Quality: map[string]float64{
				"EXTREME": 1.2,
				"HIGH":    1.0,
				"MEDIUM":  0.75,
				"LOW":     0.5,
			},
			HighVolatilityRegime: 0.75,
			HighVolatilityRatio:  1.5,
			LowVolatilityRatio:   0.75,
		},
	}
}

// Default builds the production registry.
func Default() *Registry { return MustNew(DefaultSpec()) }
