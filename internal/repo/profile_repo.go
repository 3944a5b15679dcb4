// Package repo implements the data persistence layer for user profiles,
// backed by GORM. This file provides repository functions for UserProfile and
// its item lists.
//
// All functions are context-aware and accept a *gorm.DB handle, so they can
// run inside a caller's transaction. They are thin: persistence and query
// composition only, business rules live in the services package.
//
// Concurrency: every mutation that must not lose updates is a single
// conditional statement (INSERT ... ON CONFLICT DO NOTHING, UPDATE ... WHERE,
// DELETE ... WHERE) and its outcome is read from RowsAffected. Nothing here
// reads a set into memory, edits it, and writes it back.
//
// Error semantics:
//   - Missing profile: ErrNotFound (alias of gorm.ErrRecordNotFound).
//   - Conditional add that found the item already present: ErrAlreadyPresent.
//   - Everything else: the raw gorm/driver error.
package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-cartoon-bot/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrAlreadyPresent is returned by conditional adds when the item is already
// a member of the target list.
var ErrAlreadyPresent = errors.New("already present")

// ErrLimitReached means a bounded increment found the counter at its limit.
var ErrLimitReached = errors.New("limit reached")

// ProfileUpdate is a partial profile mutation. Nil fields are left untouched.
type ProfileUpdate struct {
	DisplayName *string
	Step        *domain.Step
	ChildName   *string
	ChildAge    *int
	Filter      *domain.FilterProfile
}

func (u ProfileUpdate) columns() map[string]any {
	cols := make(map[string]any, 8)
	if u.DisplayName != nil {
		cols["display_name"] = *u.DisplayName
	}
	if u.Step != nil {
		cols["step"] = *u.Step
	}
	if u.ChildName != nil {
		cols["child_name"] = *u.ChildName
	}
	if u.ChildAge != nil {
		cols["child_age"] = *u.ChildAge
	}
	if f := u.Filter; f != nil {
		cols["filter_genre_id"] = f.GenreID
		cols["filter_min_rating"] = f.MinRating
		cols["filter_excluded_languages"] = datatypes.JSONSlice[string](nonNilSlice(f.ExcludedLanguages))
		cols["filter_certification_countries"] = datatypes.JSONSlice[string](nonNilSlice(f.CertificationCountries))
	}
	return cols
}

// GetOrCreateProfile returns the profile for userID, inserting one with the
// given filter defaults if none exists. Creation is an insert-if-absent on the
// primary key, so concurrent first-contact calls converge to one row. When the
// stored profile has no display name and displayName is non-empty, it is
// backfilled. The bool result reports whether this call created the row.
func GetOrCreateProfile(ctx context.Context, db *gorm.DB, userID, displayName string, defaults domain.FilterProfile) (*domain.UserProfile, bool, error) {
	now := time.Now().UTC()
	defaults.ExcludedLanguages = nonNilSlice(defaults.ExcludedLanguages)
	defaults.CertificationCountries = nonNilSlice(defaults.CertificationCountries)

	p := &domain.UserProfile{
		UserID:      userID,
		DisplayName: displayName,
		Step:        domain.StepAwaitingName,
		LastResetAt: now,
		Filter:      defaults,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(p)
	if res.Error != nil {
		return nil, false, res.Error
	}
	created := res.RowsAffected == 1

	if !created && displayName != "" {
		if err := db.WithContext(ctx).
			Model(&domain.UserProfile{}).
			Where("user_id = ? AND (display_name = '' OR display_name IS NULL)", userID).
			Update("display_name", displayName).Error; err != nil {
			return nil, false, err
		}
	}

	out, err := GetProfile(ctx, db, userID)
	if err != nil {
		return nil, false, err
	}
	return out, created, nil
}

// GetProfile loads a profile row together with its four item sets.
func GetProfile(ctx context.Context, db *gorm.DB, userID string) (*domain.UserProfile, error) {
	var p domain.UserProfile
	if err := db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, err
	}

	var items []domain.ProfileItem
	if err := db.WithContext(ctx).Where("user_id = ?", userID).Find(&items).Error; err != nil {
		return nil, err
	}
	p.Seen, p.Liked, p.Disliked, p.Favorites = domain.ItemSet{}, domain.ItemSet{}, domain.ItemSet{}, domain.ItemSet{}
	for _, it := range items {
		if s := p.Set(it.List); s != nil {
			s[it.ItemID] = struct{}{}
		}
	}
	return &p, nil
}

// UpdateProfile applies a partial update and returns the fresh profile.
// An empty update only verifies existence.
func UpdateProfile(ctx context.Context, db *gorm.DB, userID string, u ProfileUpdate) (*domain.UserProfile, error) {
	cols := u.columns()
	if len(cols) > 0 {
		if err := updateWhere(ctx, db, userID, cols); err != nil {
			return nil, err
		}
	}
	return GetProfile(ctx, db, userID)
}

// ResetQuota zeroes the request counter and starts a new window at now.
func ResetQuota(ctx context.Context, db *gorm.DB, userID string, now time.Time) (*domain.UserProfile, error) {
	if err := updateWhere(ctx, db, userID, map[string]any{
		"request_count": 0,
		"last_reset_at": now.UTC(),
	}); err != nil {
		return nil, err
	}
	return GetProfile(ctx, db, userID)
}

// ResetQuotaIfExpired resets the window only if the stored window started
// before cutoff. It reports whether this call performed the reset, so two
// concurrent checks cannot both observe an expiry.
func ResetQuotaIfExpired(ctx context.Context, db *gorm.DB, userID string, cutoff, now time.Time) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.UserProfile{}).
		Where("user_id = ? AND last_reset_at < ?", userID, cutoff.UTC()).
		Updates(map[string]any{
			"request_count": 0,
			"last_reset_at": now.UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// IncrementRequestCount atomically adds one to request_count and returns the
// new value. With limit > 0 the update only applies while the counter is
// below limit, so parallel requests cannot push it past the quota; a blocked
// increment returns ErrLimitReached.
func IncrementRequestCount(ctx context.Context, db *gorm.DB, userID string, limit int) (int, error) {
	q := db.WithContext(ctx).
		Model(&domain.UserProfile{}).
		Where("user_id = ?", userID)
	if limit > 0 {
		q = q.Where("request_count < ?", limit)
	}
	res := q.UpdateColumn("request_count", gorm.Expr("request_count + ?", 1))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		if limit <= 0 {
			return 0, ErrNotFound
		}
		if err := requireProfile(db.WithContext(ctx), userID); err != nil {
			return 0, err
		}
		return 0, ErrLimitReached
	}
	var n int
	err := db.WithContext(ctx).
		Model(&domain.UserProfile{}).
		Where("user_id = ?", userID).
		Select("request_count").
		Scan(&n).Error
	return n, err
}

// SetUnlimited sets or clears the quota bypass flag.
func SetUnlimited(ctx context.Context, db *gorm.DB, userID string, unlimited bool) (*domain.UserProfile, error) {
	if err := updateWhere(ctx, db, userID, map[string]any{"is_unlimited": unlimited}); err != nil {
		return nil, err
	}
	return GetProfile(ctx, db, userID)
}

// AddReaction conditionally inserts itemID into list (liked or disliked) and,
// when that insert happened, into seen as well. Both inserts share one
// transaction so the seen-superset relation holds after every commit.
// ErrAlreadyPresent means the item was already in list and nothing changed.
func AddReaction(ctx context.Context, db *gorm.DB, userID string, itemID int64, list domain.ItemList) (*domain.UserProfile, error) {
	if list != domain.ListLiked && list != domain.ListDisliked {
		return nil, fmt.Errorf("repo: %q is not a reaction list", list)
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireProfile(tx, userID); err != nil {
			return err
		}
		added, err := insertItem(tx, userID, list, itemID)
		if err != nil {
			return err
		}
		if !added {
			return ErrAlreadyPresent
		}
		_, err = insertItem(tx, userID, domain.ListSeen, itemID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return GetProfile(ctx, db, userID)
}

// MarkSeen adds itemID to the seen list; already-seen items are left as is.
func MarkSeen(ctx context.Context, db *gorm.DB, userID string, itemID int64) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireProfile(tx, userID); err != nil {
			return err
		}
		_, err := insertItem(tx, userID, domain.ListSeen, itemID)
		return err
	})
}

// ToggleFavorite removes itemID from favorites if present, otherwise adds it.
// The pair is a conditional delete followed, only if nothing was deleted, by
// an insert-if-absent; the set never holds duplicates and concurrent toggles
// of the same item settle on one of the two states.
func ToggleFavorite(ctx context.Context, db *gorm.DB, userID string, itemID int64) (*domain.UserProfile, bool, error) {
	var added bool
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireProfile(tx, userID); err != nil {
			return err
		}
		res := tx.Where("user_id = ? AND list = ? AND item_id = ?", userID, domain.ListFavorite, itemID).
			Delete(&domain.ProfileItem{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			added = false
			return nil
		}
		if _, err := insertItem(tx, userID, domain.ListFavorite, itemID); err != nil {
			return err
		}
		added = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	p, err := GetProfile(ctx, db, userID)
	if err != nil {
		return nil, false, err
	}
	return p, added, nil
}

// ResetProfile clears onboarding data, every item list, the quota window and
// the unlimited flag, and sends the profile back to the name step. Identity,
// display name and filter preferences are kept.
func ResetProfile(ctx context.Context, db *gorm.DB, userID string, now time.Time) (*domain.UserProfile, error) {
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := updateWhere(ctx, tx, userID, map[string]any{
			"step":          domain.StepAwaitingName,
			"child_name":    "",
			"child_age":     0,
			"request_count": 0,
			"last_reset_at": now.UTC(),
			"is_unlimited":  false,
		}); err != nil {
			return err
		}
		return tx.Where("user_id = ?", userID).Delete(&domain.ProfileItem{}).Error
	})
	if err != nil {
		return nil, err
	}
	return GetProfile(ctx, db, userID)
}

// ListItemIDs returns up to limit ids from list in insertion order.
// limit <= 0 means no limit.
func ListItemIDs(ctx context.Context, db *gorm.DB, userID string, list domain.ItemList, limit int) ([]int64, error) {
	q := db.WithContext(ctx).
		Model(&domain.ProfileItem{}).
		Where("user_id = ? AND list = ?", userID, list).
		Order("created_at asc, item_id asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var ids []int64
	err := q.Pluck("item_id", &ids).Error
	return ids, err
}

// --- internals ---

func updateWhere(ctx context.Context, db *gorm.DB, userID string, cols map[string]any) error {
	res := db.WithContext(ctx).
		Model(&domain.UserProfile{}).
		Where("user_id = ?", userID).
		Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func requireProfile(tx *gorm.DB, userID string) error {
	var n int64
	if err := tx.Model(&domain.UserProfile{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// insertItem reports whether a new membership row was written.
func insertItem(tx *gorm.DB, userID string, list domain.ItemList, itemID int64) (bool, error) {
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&domain.ProfileItem{
		UserID:    userID,
		List:      list,
		ItemID:    itemID,
		CreatedAt: time.Now().UTC(),
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func nonNilSlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
