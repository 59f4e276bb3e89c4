package models

// Decision is the engine verdict for one signal.
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
)

// GateResult is the verdict of a single gate. Reason is set iff Passed is false.
type GateResult struct {
	Name      string   `json:"name"`
	Passed    bool     `json:"passed"`
	Reason    *string  `json:"reason,omitempty"`
	Observed  *float64 `json:"observed,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
}

// AuditTrail records everything needed to replay a decision.
type AuditTrail struct {
	Timestamp        int64           `json:"timestamp"`
	Symbol           string          `json:"symbol"`
	Session          Session         `json:"session"`
	Context          DecisionContext `json:"context"`
	GateResults      []GateResult    `json:"gate_results"`
	ProcessingTimeMs int64           `json:"processing_time_ms"`
}

// GateSummary lists gate names by outcome.
type GateSummary struct {
	Passed []string `json:"passed"`
	Failed []string `json:"failed"`
}

// DecisionOutput is the engine's answer for one DecisionContext.
type DecisionOutput struct {
	Decision      Decision    `json:"decision"`
	Direction     Direction   `json:"direction"`
	Confidence    float64     `json:"confidence"`
	EngineVersion string      `json:"engine_version"`
	Gates         GateSummary `json:"gates"`
	Reasons       []string    `json:"reasons,omitempty"`
	Audit         AuditTrail  `json:"audit"`
}

// Approved reports whether the decision is APPROVE.
func (o DecisionOutput) Approved() bool { return o.Decision == DecisionApprove }

// DecisionResult is what the decision workflow hands back to transports.
// Audited is false when the ledger write failed; the decision is still valid.
type DecisionResult struct {
	Output     DecisionOutput `json:"decision"`
	LedgerID   string         `json:"ledger_id,omitempty"`
	Audited    bool           `json:"audited"`
	AuditError string         `json:"audit_error,omitempty"`
}
