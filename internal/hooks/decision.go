package hooks

import "fmt"

// Decision is the permission verdict for a tool invocation.
type Decision int

const (
	// DecisionAllow permits the tool invocation without confirmation.
	DecisionAllow Decision = iota

	// DecisionDeny blocks the tool invocation.
	DecisionDeny

	// DecisionAsk requires a human or policy-layer confirmation before
	// the host proceeds.
	DecisionAsk
)

// String returns the wire representation of the decision.
func (d Decision) String() string {
	switch d {
	case DecisionAllow:
		return "allow"
	case DecisionDeny:
		return "deny"
	case DecisionAsk:
		return "ask"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// PermissionDecision is the result of evaluating a tool invocation.
// Reason is always populated and human readable.
type PermissionDecision struct {
	Decision Decision
	Reason   string
}

// Allow creates an allow decision with the given reason.
func Allow(format string, args ...interface{}) PermissionDecision {
	return PermissionDecision{
		Decision: DecisionAllow,
		Reason:   fmt.Sprintf(format, args...),
	}
}

// Deny creates a deny decision with the given reason.
func Deny(format string, args ...interface{}) PermissionDecision {
	return PermissionDecision{
		Decision: DecisionDeny,
		Reason:   fmt.Sprintf(format, args...),
	}
}

// Ask creates an ask decision with the given reason.
func Ask(format string, args ...interface{}) PermissionDecision {
	return PermissionDecision{
		Decision: DecisionAsk,
		Reason:   fmt.Sprintf(format, args...),
	}
}
