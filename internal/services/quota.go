// Package services – QuotaGovernor
//
// QuotaGovernor enforces the per-user recommendation quota: at most Limit
// delivered recommendations per rolling window of Interval, unless the
// administrator marked the user unlimited. Checking and consuming are split:
// Check decides (and persists a window reset when one is due), Consume is
// called only once an item was picked and never lets the counter pass Limit.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/tbourn/go-cartoon-bot/internal/config"
	"github.com/tbourn/go-cartoon-bot/internal/domain"
)

// QuotaDecision is the outcome of Check.
type QuotaDecision struct {
	Allowed bool

	// Remaining is the time left until the window resets; set when denied.
	Remaining time.Duration

	// WindowReset reports that Check started a new window.
	WindowReset bool

	Used  int
	Limit int
}

// QuotaGovernor grants or denies recommendation requests.
type QuotaGovernor struct {
	Store    *ProfileStore
	Limit    int
	Interval time.Duration
}

// NewQuotaGovernor builds a governor from configuration.
func NewQuotaGovernor(store *ProfileStore, cfg config.QuotaConfig) *QuotaGovernor {
	return &QuotaGovernor{Store: store, Limit: cfg.RequestLimit, Interval: cfg.ResetInterval}
}

// Check decides whether p may receive another recommendation. Unlimited
// users are always allowed and their counter is left alone. An expired
// window is reset in the store before deciding, whether or not the request
// later succeeds. p is refreshed in place when a reset happens.
func (g *QuotaGovernor) Check(ctx context.Context, p *domain.UserProfile) (QuotaDecision, error) {
	ctx, span := startSpan(ctx, "QuotaGovernor", "Check", p.UserID)
	defer span.End()

	if p.IsUnlimited {
		return QuotaDecision{Allowed: true, Used: p.RequestCount, Limit: g.Limit}, nil
	}

	now := g.Store.now()
	var d QuotaDecision
	if now.Sub(p.LastResetAt) > g.Interval {
		reset, err := g.Store.ResetQuotaIfExpired(ctx, p.UserID, now.Add(-g.Interval))
		if err != nil {
			return QuotaDecision{}, err
		}
		fresh, err := g.Store.Get(ctx, p.UserID)
		if err != nil {
			return QuotaDecision{}, err
		}
		*p = *fresh
		d.WindowReset = reset
	}

	d.Used, d.Limit = p.RequestCount, g.Limit
	if p.RequestCount >= g.Limit {
		d.Remaining = g.remaining(p, now)
		return d, nil
	}
	d.Allowed = true
	return d, nil
}

// Consume counts one delivered recommendation. Unlimited users are not
// counted. The increment is conditional on the counter still being below
// Limit; ErrQuotaExhausted means another request used the last slot after
// Check allowed this one.
func (g *QuotaGovernor) Consume(ctx context.Context, p *domain.UserProfile) error {
	if p.IsUnlimited {
		return nil
	}
	ctx, span := startSpan(ctx, "QuotaGovernor", "Consume", p.UserID)
	defer span.End()

	n, err := g.Store.IncrementRequests(ctx, p.UserID, g.Limit)
	if err != nil {
		return err
	}
	p.RequestCount = n
	return nil
}

// ForceReset starts a new window for userID with a zero counter.
func (g *QuotaGovernor) ForceReset(ctx context.Context, userID string) (*domain.UserProfile, error) {
	return g.Store.ResetQuota(ctx, userID)
}

// SetUnlimited grants or revokes the quota bypass.
func (g *QuotaGovernor) SetUnlimited(ctx context.Context, userID string, unlimited bool) (*domain.UserProfile, error) {
	return g.Store.SetUnlimited(ctx, userID, unlimited)
}

// Remaining returns the time until p's window resets, never negative.
func (g *QuotaGovernor) Remaining(p *domain.UserProfile) time.Duration {
	return g.remaining(p, g.Store.now())
}

func (g *QuotaGovernor) remaining(p *domain.UserProfile, now time.Time) time.Duration {
	left := g.Interval - now.Sub(p.LastResetAt)
	if left < 0 {
		return 0
	}
	return left
}

// FormatRemaining renders d as whole hours and minutes, e.g. "11h 59m".
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	return fmt.Sprintf("%dh %dm", h, m)
}
