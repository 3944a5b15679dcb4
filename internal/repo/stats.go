// Package repo implements the data persistence layer for user profiles,
// backed by GORM. This file provides small aggregate queries used by the
// admin summary view.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-cartoon-bot/internal/domain"
)

// ListCounts holds the size of each item list of one profile.
type ListCounts struct {
	Seen      int64 `json:"seen"`
	Liked     int64 `json:"liked"`
	Disliked  int64 `json:"disliked"`
	Favorites int64 `json:"favorites"`
}

// ProfileListCounts counts membership rows per list for userID with a single
// grouped query. A profile with no items yields all zeros.
func ProfileListCounts(ctx context.Context, db *gorm.DB, userID string) (ListCounts, error) {
	var rows []struct {
		List  domain.ItemList
		Total int64
	}
	err := db.WithContext(ctx).
		Model(&domain.ProfileItem{}).
		Select("list, COUNT(*) AS total").
		Where("user_id = ?", userID).
		Group("list").
		Scan(&rows).Error
	if err != nil {
		return ListCounts{}, err
	}

	var out ListCounts
	for _, r := range rows {
		switch r.List {
		case domain.ListSeen:
			out.Seen = r.Total
		case domain.ListLiked:
			out.Liked = r.Total
		case domain.ListDisliked:
			out.Disliked = r.Total
		case domain.ListFavorite:
			out.Favorites = r.Total
		}
	}
	return out, nil
}

// CountProfiles returns the number of stored profiles.
func CountProfiles(ctx context.Context, db *gorm.DB) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.UserProfile{}).Count(&n).Error
	return n, err
}
