// Package tier models subscription tiers as an explicit total order.
// Access checks compare tier ranks, never tier names, so adding a tier
// later only means appending a constant.
package tier

import (
	"context"
	"strings"
)

// Tier is a subscription level. The zero value is Free, so unclassified
// or unauthenticated callers always land on the lowest tier.
type Tier int

const (
	// Free is the default tier every user has.
	Free Tier = iota

	// Plus unlocks the paid capabilities (sandboxed code execution).
	Plus
)

// String returns the canonical lowercase name of the tier.
func (t Tier) String() string {
	switch t {
	case Plus:
		return "plus"
	default:
		return "free"
	}
}

// AtLeast reports whether t grants everything min does.
func (t Tier) AtLeast(min Tier) bool {
	return t >= min
}

// Parse maps a tier name to its Tier. Unknown names map to Free with
// ok=false so callers fail closed.
func Parse(s string) (Tier, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "free", "":
		return Free, true
	case "plus":
		return Plus, true
	default:
		return Free, false
	}
}

// Lookup resolves a user's tier. The chat application's session layer
// implements this; the core only consumes it.
type Lookup interface {
	UserTier(ctx context.Context, userID string) (Tier, error)
}

// LookupFunc adapts a plain function to the Lookup interface.
type LookupFunc func(ctx context.Context, userID string) (Tier, error)

// UserTier calls f.
func (f LookupFunc) UserTier(ctx context.Context, userID string) (Tier, error) {
	return f(ctx, userID)
}

// Static returns a Lookup that answers the same tier for every user.
// Useful for tests and single-user CLI runs.
func Static(t Tier) Lookup {
	return LookupFunc(func(context.Context, string) (Tier, error) {
		return t, nil
	})
}
