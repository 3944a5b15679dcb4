// Package domain defines the persistence models for user profiles and their
// item lists, plus the read-only catalog item value. These types are mapped
// with GORM and shared across the repository and service layers.
package domain

import (
	"sort"
	"time"

	"gorm.io/datatypes"
)

// Step is the dialogue state of a profile.
type Step string

// Onboarding steps and the filter-edit steps that reuse the same flow machinery.
const (
	StepAwaitingName      Step = "awaiting_name"
	StepAwaitingAge       Step = "awaiting_age"
	StepReady             Step = "ready"
	StepAwaitingMinRating Step = "awaiting_min_rating"
	StepAwaitingLanguages Step = "awaiting_languages"
	StepAwaitingCountries Step = "awaiting_countries"
)

// Child age bounds accepted by onboarding.
const (
	MinChildAge = 1
	MaxChildAge = 12
)

// ItemList names one of the per-user item sets.
type ItemList string

const (
	ListSeen     ItemList = "seen"
	ListLiked    ItemList = "liked"
	ListDisliked ItemList = "disliked"
	ListFavorite ItemList = "favorite"
)

// FilterProfile narrows catalog discovery for a user.
type FilterProfile struct {
	GenreID                int                         `json:"genre_id"                gorm:"not null;default:16"`
	MinRating              float64                     `json:"min_rating"              gorm:"not null;default:5"`
	ExcludedLanguages      datatypes.JSONSlice[string] `json:"excluded_languages"`
	CertificationCountries datatypes.JSONSlice[string] `json:"certification_countries"`
}

// UserProfile is the persistent per-user record. One row per chat identity,
// created lazily on first contact and never deleted by normal flow.
//
// The four item sets are not columns; they are loaded from ProfileItem rows
// by the repository and are read-only snapshots.
type UserProfile struct {
	UserID       string        `json:"user_id"       gorm:"type:varchar(64);primaryKey"`
	DisplayName  string        `json:"display_name"  gorm:"type:varchar(255)"`
	Step         Step          `json:"step"          gorm:"type:varchar(32);not null;default:'awaiting_name'"`
	ChildName    string        `json:"child_name"    gorm:"type:varchar(255)"`
	ChildAge     int           `json:"child_age"`
	RequestCount int           `json:"request_count" gorm:"not null;default:0;check:request_count >= 0"`
	LastResetAt  time.Time     `json:"last_reset_at"`
	IsUnlimited  bool          `json:"is_unlimited"  gorm:"not null"`
	Filter       FilterProfile `json:"filter"        gorm:"embedded;embeddedPrefix:filter_"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`

	Seen      ItemSet `json:"-" gorm:"-"`
	Liked     ItemSet `json:"-" gorm:"-"`
	Disliked  ItemSet `json:"-" gorm:"-"`
	Favorites ItemSet `json:"-" gorm:"-"`
}

// TableName returns the database table name for UserProfile.
func (UserProfile) TableName() string { return "user_profiles" }

// OnboardingComplete reports whether name and age have both been collected.
func (p *UserProfile) OnboardingComplete() bool {
	return p.ChildName != "" && p.ChildAge >= MinChildAge
}

// Set returns the in-memory set for list l.
func (p *UserProfile) Set(l ItemList) ItemSet {
	switch l {
	case ListSeen:
		return p.Seen
	case ListLiked:
		return p.Liked
	case ListDisliked:
		return p.Disliked
	case ListFavorite:
		return p.Favorites
	}
	return nil
}

// ProfileItem is one membership row of a profile's item list. The composite
// primary key makes every (user, list, item) triple unique, which is what the
// conditional insert-if-absent mutations rely on.
type ProfileItem struct {
	UserID    string    `gorm:"type:varchar(64);primaryKey"`
	List      ItemList  `gorm:"type:varchar(16);primaryKey"`
	ItemID    int64     `gorm:"primaryKey;autoIncrement:false"`
	CreatedAt time.Time `gorm:"index"`
}

// TableName returns the database table name for ProfileItem.
func (ProfileItem) TableName() string { return "profile_items" }

// ItemSet is a membership-only set of catalog item ids.
type ItemSet map[int64]struct{}

// NewItemSet builds a set from ids.
func NewItemSet(ids ...int64) ItemSet {
	s := make(ItemSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports membership. A nil set contains nothing.
func (s ItemSet) Has(id int64) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of members.
func (s ItemSet) Len() int { return len(s) }

// IDs returns the members in ascending order.
func (s ItemSet) IDs() []int64 {
	out := make([]int64, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CatalogItem is an immutable catalog record fetched on demand.
type CatalogItem struct {
	ID               int64   `json:"id"`
	Title            string  `json:"title"`
	Overview         string  `json:"overview"`
	Rating           float64 `json:"rating"`
	PosterPath       string  `json:"poster_path,omitempty"`
	OriginalLanguage string  `json:"original_language,omitempty"`
	ReleaseDate      string  `json:"release_date,omitempty"`
}
