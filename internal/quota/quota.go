// Package quota gates sandbox execution behind a tiered per-user daily
// limit. "Today" is the UTC calendar day; a missing counter for the
// current day reads as zero, so day rollover needs no background job.
package quota

import (
	"context"
	"fmt"
	"time"

	"chatnerd/internal/logging"
	"chatnerd/internal/tier"
)

const dayFormat = "2006-01-02"

// Config holds the quota parameters. The daily limit is injected
// configuration, not a constant.
type Config struct {
	// DailyLimit is the maximum sandbox units one user may consume per
	// UTC day.
	DailyLimit int

	// MinTier is the lowest tier allowed to touch the sandbox at all.
	MinTier tier.Tier
}

// UsageStats is a read-only snapshot of one user's consumption today.
type UsageStats struct {
	TodayUsage     int       `json:"today_usage"`
	DailyLimit     int       `json:"daily_limit"`
	RemainingToday int       `json:"remaining_today"`
	ResetsAt       time.Time `json:"resets_at"`
}

// Manager enforces the tier gate and the daily quota over an injected
// usage store and tier lookup.
type Manager struct {
	store Store
	tiers tier.Lookup
	cfg   Config
	now   func() time.Time
}

// New builds a quota manager.
func New(store Store, tiers tier.Lookup, cfg Config) *Manager {
	return &Manager{store: store, tiers: tiers, cfg: cfg, now: time.Now}
}

// WithClock substitutes the wall clock. Tests use this to cross day
// boundaries without sleeping.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

func (m *Manager) todayKey(userID string) Key {
	return Key{UserID: userID, Day: m.now().UTC().Format(dayFormat)}
}

func (m *Manager) resetsAt() time.Time {
	now := m.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
}

// RequireElevatedTier fails with ErrTierRequired when the user's tier is
// below the configured minimum. Runs before any resource is allocated.
func (m *Manager) RequireElevatedTier(ctx context.Context, userID string) error {
	t, err := m.tiers.UserTier(ctx, userID)
	if err != nil {
		return fmt.Errorf("tier lookup failed for %s: %w", userID, err)
	}
	if !t.AtLeast(m.cfg.MinTier) {
		logging.Quota("tier gate rejected user=%s tier=%s min=%s", userID, t, m.cfg.MinTier)
		return fmt.Errorf("%w: have %s, need %s", ErrTierRequired, t, m.cfg.MinTier)
	}
	return nil
}

// CheckRateLimit fails with ErrQuotaExceeded when today's counter has
// reached the daily limit. Read-only; use Reserve for atomic admission.
func (m *Manager) CheckRateLimit(ctx context.Context, userID string) error {
	count, err := m.store.Get(ctx, m.todayKey(userID))
	if err != nil {
		return err
	}
	if count >= m.cfg.DailyLimit {
		return m.exceededError(userID, count)
	}
	logging.QuotaDebug("rate limit ok: user=%s used=%d/%d", userID, count, m.cfg.DailyLimit)
	return nil
}

// Reserve atomically claims one unit of today's quota. Two concurrent
// callers at limit−1 cannot both win: the increment is atomic in the
// store and an over-limit result is rolled back before failing.
func (m *Manager) Reserve(ctx context.Context, userID string) error {
	key := m.todayKey(userID)
	count, err := m.store.Incr(ctx, key)
	if err != nil {
		return err
	}
	if count > m.cfg.DailyLimit {
		if rbErr := m.store.Decr(ctx, key); rbErr != nil {
			logging.Quota("reserve rollback failed for user=%s: %v", userID, rbErr)
		}
		return m.exceededError(userID, count-1)
	}
	logging.QuotaDebug("reserved unit: user=%s used=%d/%d", userID, count, m.cfg.DailyLimit)
	return nil
}

// Refund returns one previously reserved unit. Callers use it when the
// consumption the reserve admitted never happened (a failed execution),
// so the user is not charged for work that produced nothing.
func (m *Manager) Refund(ctx context.Context, userID string) error {
	if err := m.store.Decr(ctx, m.todayKey(userID)); err != nil {
		return err
	}
	logging.QuotaDebug("refunded unit: user=%s", userID)
	return nil
}

// TrackUsage consumes one unit unconditionally. Each call is one unit;
// callers must not call it more than once per actual unit consumed.
func (m *Manager) TrackUsage(ctx context.Context, userID string) error {
	count, err := m.store.Incr(ctx, m.todayKey(userID))
	if err != nil {
		return err
	}
	logging.QuotaDebug("tracked usage: user=%s used=%d/%d", userID, count, m.cfg.DailyLimit)
	return nil
}

// Stats returns a derived snapshot of the user's consumption today.
func (m *Manager) Stats(ctx context.Context, userID string) (UsageStats, error) {
	count, err := m.store.Get(ctx, m.todayKey(userID))
	if err != nil {
		return UsageStats{}, err
	}
	remaining := m.cfg.DailyLimit - count
	if remaining < 0 {
		remaining = 0
	}
	return UsageStats{
		TodayUsage:     count,
		DailyLimit:     m.cfg.DailyLimit,
		RemainingToday: remaining,
		ResetsAt:       m.resetsAt(),
	}, nil
}

func (m *Manager) exceededError(userID string, count int) error {
	resets := m.resetsAt()
	logging.Quota("quota exceeded: user=%s used=%d limit=%d resets=%s",
		userID, count, m.cfg.DailyLimit, resets.Format(time.RFC3339))
	return fmt.Errorf("%w: resets at %s", ErrQuotaExceeded, resets.Format(time.RFC3339))
}
