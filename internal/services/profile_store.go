// Package services – ProfileStore
//
// ProfileStore is the service-side face of the per-user record. Every method
// maps to one conditional repository operation, so callers get atomic
// mutations without holding locks, and every persistence error is translated
// into the service taxonomy: ErrProfileNotFound, ErrAlreadyPresent or a
// wrapped ErrStoreUnavailable.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-cartoon-bot/internal/domain"
	"github.com/tbourn/go-cartoon-bot/internal/repo"
)

// ProfileStore owns persistent per-user state.
type ProfileStore struct {
	DB *gorm.DB

	// Defaults is the filter profile given to newly created users.
	Defaults domain.FilterProfile

	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

func (s *ProfileStore) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func startSpan(ctx context.Context, component, name, userID string) (context.Context, trace.Span) {
	return otel.Tracer("services/"+component).Start(ctx, name,
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
}

// GetOrCreate returns the profile for userID, creating it with defaults on
// first contact. Concurrent first contacts converge to one stored record.
func (s *ProfileStore) GetOrCreate(ctx context.Context, userID, displayName string) (*domain.UserProfile, error) {
	ctx, span := startSpan(ctx, "ProfileStore", "GetOrCreate", userID)
	defer span.End()

	p, _, err := repo.GetOrCreateProfile(ctx, s.DB, userID, displayName, s.Defaults)
	return p, storeErr(err)
}

// Get returns an existing profile.
func (s *ProfileStore) Get(ctx context.Context, userID string) (*domain.UserProfile, error) {
	ctx, span := startSpan(ctx, "ProfileStore", "Get", userID)
	defer span.End()

	p, err := repo.GetProfile(ctx, s.DB, userID)
	return p, storeErr(err)
}

// Update applies a partial update.
func (s *ProfileStore) Update(ctx context.Context, userID string, u repo.ProfileUpdate) (*domain.UserProfile, error) {
	ctx, span := startSpan(ctx, "ProfileStore", "Update", userID)
	defer span.End()

	p, err := repo.UpdateProfile(ctx, s.DB, userID, u)
	return p, storeErr(err)
}

// SetStep moves the profile to step without touching other fields.
func (s *ProfileStore) SetStep(ctx context.Context, userID string, step domain.Step) (*domain.UserProfile, error) {
	return s.Update(ctx, userID, repo.ProfileUpdate{Step: &step})
}

// ResetQuota zeroes the request counter and starts a new window now.
func (s *ProfileStore) ResetQuota(ctx context.Context, userID string) (*domain.UserProfile, error) {
	ctx, span := startSpan(ctx, "ProfileStore", "ResetQuota", userID)
	defer span.End()

	p, err := repo.ResetQuota(ctx, s.DB, userID, s.now())
	return p, storeErr(err)
}

// ResetQuotaIfExpired resets the window only if it started before cutoff and
// reports whether this call did it.
func (s *ProfileStore) ResetQuotaIfExpired(ctx context.Context, userID string, cutoff time.Time) (bool, error) {
	ok, err := repo.ResetQuotaIfExpired(ctx, s.DB, userID, cutoff, s.now())
	return ok, storeErr(err)
}

// IncrementRequests adds one to the request counter and returns the new
// value. With limit > 0 a counter already at limit yields ErrQuotaExhausted.
func (s *ProfileStore) IncrementRequests(ctx context.Context, userID string, limit int) (int, error) {
	n, err := repo.IncrementRequestCount(ctx, s.DB, userID, limit)
	return n, storeErr(err)
}

// SetUnlimited sets or clears the quota bypass.
func (s *ProfileStore) SetUnlimited(ctx context.Context, userID string, unlimited bool) (*domain.UserProfile, error) {
	ctx, span := startSpan(ctx, "ProfileStore", "SetUnlimited", userID)
	defer span.End()
	span.SetAttributes(attribute.Bool("unlimited", unlimited))

	p, err := repo.SetUnlimited(ctx, s.DB, userID, unlimited)
	return p, storeErr(err)
}

// AddToLiked adds itemID to the liked set (and to seen). ErrAlreadyPresent
// means it was liked before and nothing changed.
func (s *ProfileStore) AddToLiked(ctx context.Context, userID string, itemID int64) (*domain.UserProfile, error) {
	return s.addReaction(ctx, "AddToLiked", userID, itemID, domain.ListLiked)
}

// AddToDisliked is the dislike counterpart of AddToLiked.
func (s *ProfileStore) AddToDisliked(ctx context.Context, userID string, itemID int64) (*domain.UserProfile, error) {
	return s.addReaction(ctx, "AddToDisliked", userID, itemID, domain.ListDisliked)
}

func (s *ProfileStore) addReaction(ctx context.Context, op, userID string, itemID int64, list domain.ItemList) (*domain.UserProfile, error) {
	ctx, span := startSpan(ctx, "ProfileStore", op, userID)
	defer span.End()
	span.SetAttributes(attribute.Int64("item.id", itemID))

	p, err := repo.AddReaction(ctx, s.DB, userID, itemID, list)
	return p, storeErr(err)
}

// ToggleFavorite removes itemID from favorites if present, else adds it.
// The bool reports which happened.
func (s *ProfileStore) ToggleFavorite(ctx context.Context, userID string, itemID int64) (*domain.UserProfile, bool, error) {
	ctx, span := startSpan(ctx, "ProfileStore", "ToggleFavorite", userID)
	defer span.End()
	span.SetAttributes(attribute.Int64("item.id", itemID))

	p, added, err := repo.ToggleFavorite(ctx, s.DB, userID, itemID)
	return p, added, storeErr(err)
}

// MarkSeen records a delivered item.
func (s *ProfileStore) MarkSeen(ctx context.Context, userID string, itemID int64) error {
	return storeErr(repo.MarkSeen(ctx, s.DB, userID, itemID))
}

// ResetAll clears name, age, item sets, quota and the unlimited flag, and
// sends the profile back to the name step.
func (s *ProfileStore) ResetAll(ctx context.Context, userID string) (*domain.UserProfile, error) {
	ctx, span := startSpan(ctx, "ProfileStore", "ResetAll", userID)
	defer span.End()

	p, err := repo.ResetProfile(ctx, s.DB, userID, s.now())
	return p, storeErr(err)
}

// Favorites returns up to limit favorite ids, oldest first.
func (s *ProfileStore) Favorites(ctx context.Context, userID string, limit int) ([]int64, error) {
	ids, err := repo.ListItemIDs(ctx, s.DB, userID, domain.ListFavorite, limit)
	return ids, storeErr(err)
}

// Counts returns the sizes of the four item sets.
func (s *ProfileStore) Counts(ctx context.Context, userID string) (repo.ListCounts, error) {
	c, err := repo.ProfileListCounts(ctx, s.DB, userID)
	return c, storeErr(err)
}

// storeErr translates repository errors into the service taxonomy.
func storeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repo.ErrNotFound):
		return ErrProfileNotFound
	case errors.Is(err, repo.ErrAlreadyPresent):
		return ErrAlreadyPresent
	case errors.Is(err, repo.ErrLimitReached):
		return ErrQuotaExhausted
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
