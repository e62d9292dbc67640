package hookevent

import (
	"encoding/json"
	"io"
)

// Outcome is the terminal verdict for an event.
type Outcome string

const (
	Allow Outcome = "allow"
	Deny  Outcome = "deny"
)

// Decision is the gateway's answer to one event. Terminal and immutable:
// returned once per event, never revised.
type Decision struct {
	Outcome Outcome `json:"decision"`
	Reason  string  `json:"reason,omitempty"`
	RuleID  string  `json:"rule_id,omitempty"`
}

// Allowed reports whether the decision permits the action.
func (d Decision) Allowed() bool {
	return d.Outcome == Allow
}

// AllowDecision builds an allow with an optional reason.
func AllowDecision(reason string) Decision {
	return Decision{Outcome: Allow, Reason: reason}
}

// DenyDecision builds a deny attributed to a rule.
func DenyDecision(reason, ruleID string) Decision {
	return Decision{Outcome: Deny, Reason: reason, RuleID: ruleID}
}

// Write emits the single-line JSON response the hook protocol expects.
// The rule ID is internal bookkeeping and is not part of the wire format.
func (d Decision) Write(w io.Writer) error {
	wire := struct {
		Decision Outcome `json:"decision"`
		Reason   string  `json:"reason,omitempty"`
	}{Decision: d.Outcome, Reason: d.Reason}

	data, err := json.Marshal(wire)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
