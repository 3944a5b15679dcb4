package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/tbourn/go-cartoon-bot/internal/domain"
	"github.com/tbourn/go-cartoon-bot/internal/observability"
)

// ReactionKind is a user's intent on an item.
type ReactionKind string

const (
	ReactionLike     ReactionKind = "like"
	ReactionDislike  ReactionKind = "dislike"
	ReactionFavorite ReactionKind = "favorite"
)

// ParseReactionKind accepts the kind names and the button prefixes.
func ParseReactionKind(s string) (ReactionKind, error) {
	switch s {
	case string(ReactionLike):
		return ReactionLike, nil
	case string(ReactionDislike):
		return ReactionDislike, nil
	case string(ReactionFavorite), ActionFavorite:
		return ReactionFavorite, nil
	}
	return "", invalid("kind", "must be like, dislike or favorite")
}

// ReactionOutcome is the result class of a reaction.
type ReactionOutcome string

const (
	Applied        ReactionOutcome = "applied"
	AlreadyApplied ReactionOutcome = "already_applied"
	UserNotFound   ReactionOutcome = "user_not_found"
)

// ReactionResult reports what a reaction did. Added is meaningful for
// favorites only: true when the item was added, false when removed.
type ReactionResult struct {
	Kind    ReactionKind        `json:"kind"`
	Outcome ReactionOutcome     `json:"outcome"`
	Added   bool                `json:"added"`
	Profile *domain.UserProfile `json:"-"`
}

// ReactionToggler applies like, dislike and favorite intents on top of the
// store's conditional operations.
type ReactionToggler struct {
	Store *ProfileStore
}

// Apply performs kind on itemID for userID. Duplicate likes and dislikes
// come back as AlreadyApplied; a missing profile as UserNotFound. Only store
// failures are returned as errors.
func (r *ReactionToggler) Apply(ctx context.Context, userID string, itemID int64, kind ReactionKind) (ReactionResult, error) {
	res := ReactionResult{Kind: kind}
	var err error
	switch kind {
	case ReactionLike:
		res.Profile, err = r.Store.AddToLiked(ctx, userID, itemID)
	case ReactionDislike:
		res.Profile, err = r.Store.AddToDisliked(ctx, userID, itemID)
	case ReactionFavorite:
		res.Profile, res.Added, err = r.Store.ToggleFavorite(ctx, userID, itemID)
	default:
		return res, fmt.Errorf("reactions: unknown kind %q", kind)
	}

	switch {
	case err == nil:
		res.Outcome = Applied
	case errors.Is(err, ErrAlreadyPresent):
		res.Outcome = AlreadyApplied
	case errors.Is(err, ErrProfileNotFound):
		res.Outcome = UserNotFound
	default:
		observability.Reactions.WithLabelValues(string(kind), "error").Inc()
		return res, err
	}
	observability.Reactions.WithLabelValues(string(kind), string(res.Outcome)).Inc()
	return res, nil
}
