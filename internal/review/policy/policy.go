// Package policy holds the human-review policy injected into the generation
// orchestrator and the review gate at construction time, so control flow is
// explicit rather than read from the environment mid-request.
package policy

// Policy decides whether generated artwork must pass a human checkpoint
// before customer-facing side effects fire.
type Policy struct {
	Enabled bool
}

// RequiresProofReview reports whether a completed generation must be held
// for an admin artwork-proof review instead of notifying the customer
// immediately.
func (p Policy) RequiresProofReview() bool {
	return p.Enabled
}
