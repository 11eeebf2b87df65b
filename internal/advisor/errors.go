// Package advisor asks an LLM for transformation recommendations and turns
// the untrusted reply into validated, registry-checked candidates. When the
// advisor is unreachable or returns an unusable payload, a deterministic
// rule-based fallback produces the recommendations instead.
package advisor

import "errors"

// Advisor errors.
var (
	// ErrAdvisorUnavailable means the transient-failure budget is spent.
	ErrAdvisorUnavailable = errors.New("advisor unavailable")
	// ErrResponseInvalid means the advisor replied with a payload that does
	// not follow the response contract. Never retried.
	ErrResponseInvalid = errors.New("advisor response invalid")
)
