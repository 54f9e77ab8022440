package quota

import "errors"

// Quota gate errors. Neither is retryable by the caller: a tier failure
// needs an upgrade, a quota failure needs the next UTC day.
var (
	// ErrTierRequired is returned when the user's tier is below the
	// resource's minimum tier.
	ErrTierRequired = errors.New("subscription tier too low for sandbox access")

	// ErrQuotaExceeded is returned when the user's daily usage limit is hit.
	ErrQuotaExceeded = errors.New("daily sandbox quota exceeded")
)
