package services

import (
	"context"
	"time"

	"github.com/tbourn/go-cartoon-bot/internal/domain"
	"github.com/tbourn/go-cartoon-bot/internal/repo"
)

// AdminInfo is the administrator's summary of one profile.
type AdminInfo struct {
	Profile   *domain.UserProfile `json:"profile"`
	Counts    repo.ListCounts     `json:"counts"`
	Limit     int                 `json:"limit"`
	Remaining time.Duration       `json:"-"`
}

// AdminService implements the administrator operations. Authorization is the
// caller's job: check IsAdmin first.
type AdminService struct {
	Store   *ProfileStore
	Quota   *QuotaGovernor
	AdminID string
}

// Enabled reports whether an administrator is configured.
func (a *AdminService) Enabled() bool { return a.AdminID != "" }

// IsAdmin reports whether userID is the configured administrator.
func (a *AdminService) IsAdmin(userID string) bool {
	return a.AdminID != "" && userID == a.AdminID
}

// ResetQuota starts a fresh window for target.
func (a *AdminService) ResetQuota(ctx context.Context, target string) (*domain.UserProfile, error) {
	ctx, span := startSpan(ctx, "AdminService", "ResetQuota", target)
	defer span.End()
	return a.Quota.ForceReset(ctx, target)
}

// SetUnlimited grants or revokes target's quota bypass.
func (a *AdminService) SetUnlimited(ctx context.Context, target string, unlimited bool) (*domain.UserProfile, error) {
	ctx, span := startSpan(ctx, "AdminService", "SetUnlimited", target)
	defer span.End()
	return a.Quota.SetUnlimited(ctx, target, unlimited)
}

// Info returns target's profile with list sizes and quota state.
func (a *AdminService) Info(ctx context.Context, target string) (AdminInfo, error) {
	ctx, span := startSpan(ctx, "AdminService", "Info", target)
	defer span.End()

	p, err := a.Store.Get(ctx, target)
	if err != nil {
		return AdminInfo{}, err
	}
	counts, err := a.Store.Counts(ctx, target)
	if err != nil {
		return AdminInfo{}, err
	}
	return AdminInfo{
		Profile:   p,
		Counts:    counts,
		Limit:     a.Quota.Limit,
		Remaining: a.Quota.Remaining(p),
	}, nil
}
