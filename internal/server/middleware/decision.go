package middleware

import "fmt"

// Outcome is the verdict of the authorization gate for one request.
type Outcome uint8

const (
	// OutcomeAllowed lets the request through.
	OutcomeAllowed Outcome = iota
	// OutcomeDenied rejects the request with 403.
	OutcomeDenied
	// OutcomeDegraded means the gate itself failed. Policy maps it to allow
	// (fail-open); keeping it a distinct outcome makes that one visible,
	// auditable decision instead of a scattered catch-all.
	OutcomeDegraded
)

// Deny reasons, aligned with the error taxonomy of the gate.
const (
	ReasonConfigurationMissing = "configuration_missing" // permission claims absent from token
	ReasonPayloadCorrupt       = "payload_corrupt"       // decompress/deserialize failure or integrity hash mismatch
	ReasonNoMatch              = "no_match"              // no permission covers path+method
)

// Decision is the gate's explicit outcome for a request.
type Decision struct {
	Outcome Outcome
	Reason  string // set for OutcomeDenied
	Cause   error  // set for OutcomeDegraded
}

// Allowed is the zero-reason allow decision.
func Allowed() Decision { return Decision{Outcome: OutcomeAllowed} }

// Denied returns a deny decision with the given reason.
func Denied(reason string) Decision { return Decision{Outcome: OutcomeDenied, Reason: reason} }

// Degraded returns a degraded decision carrying the underlying failure.
func Degraded(cause error) Decision { return Decision{Outcome: OutcomeDegraded, Cause: cause} }

func (d Decision) String() string {
	switch d.Outcome {
	case OutcomeAllowed:
		return "allowed"
	case OutcomeDenied:
		return "denied(" + d.Reason + ")"
	case OutcomeDegraded:
		return fmt.Sprintf("degraded(%v)", d.Cause)
	default:
		return "unknown"
	}
}
