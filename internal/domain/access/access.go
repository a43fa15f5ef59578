// Package access derives the result-set size a caller is allowed to see.
package access

import "fmt"

// Default tier limits.
const (
	SmallLimit = 3
	LargeLimit = 100
)

// Policy maps authentication state to a result limit. It is the single
// place the tiering rule lives; entry points never hardcode limits.
type Policy struct {
	anonymous     int
	authenticated int
}

// DefaultPolicy returns the 3 / 100 policy.
func DefaultPolicy() Policy {
	return Policy{anonymous: SmallLimit, authenticated: LargeLimit}
}

// NewPolicy validates and creates a Policy.
func NewPolicy(anonymous, authenticated int) (Policy, error) {
	if anonymous <= 0 {
		return Policy{}, fmt.Errorf("anonymous limit must be positive, got %d", anonymous)
	}
	if authenticated < anonymous {
		return Policy{}, fmt.Errorf(
			"authenticated limit %d must not be below anonymous limit %d", authenticated, anonymous,
		)
	}
	return Policy{anonymous: anonymous, authenticated: authenticated}, nil
}

// ResolveLimit returns the permitted number of results.
func (p Policy) ResolveLimit(authenticated bool) int {
	if authenticated {
		return p.authenticated
	}
	return p.anonymous
}

// Context is the per-request access state.
type Context struct {
	Authenticated bool
	Subject       string
	ResultLimit   int
}

// Resolve builds a Context for the caller.
func (p Policy) Resolve(authenticated bool, subject string) Context {
	return Context{
		Authenticated: authenticated,
		Subject:       subject,
		ResultLimit:   p.ResolveLimit(authenticated),
	}
}
