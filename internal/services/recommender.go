// Package services – Recommender
//
// Recommender serves one recommendation request end to end:
// quota check -> random pick -> consume quota -> record as seen. A pick that
// finds nothing leaves the quota untouched. It also loads the favorites view.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/tbourn/go-cartoon-bot/internal/catalog"
	"github.com/tbourn/go-cartoon-bot/internal/domain"
	"github.com/tbourn/go-cartoon-bot/internal/observability"
)

// ItemSource resolves single items and poster URLs.
type ItemSource interface {
	FetchItemDetails(ctx context.Context, id int64) (*domain.CatalogItem, error)
	PosterURL(path string) string
}

// RecommendationStatus classifies a request.
type RecommendationStatus string

const (
	Delivered RecommendationStatus = "delivered"
	Denied    RecommendationStatus = "denied"
	NoneFound RecommendationStatus = "none_found"
	NotReady  RecommendationStatus = "not_ready"
)

// RecommendationResult is what requestRecommendation produces.
type RecommendationResult struct {
	Status    RecommendationStatus `json:"status"`
	Item      *domain.CatalogItem  `json:"item,omitempty"`
	PosterURL string               `json:"poster_url,omitempty"`
	Caption   string               `json:"caption,omitempty"`

	// Remaining is set when Denied.
	Remaining QuotaRemaining `json:"remaining"`

	// WindowReset reports that the quota window was renewed by this request.
	WindowReset bool `json:"window_reset"`

	Liked    bool `json:"liked"`
	Disliked bool `json:"disliked"`
	Favorite bool `json:"favorite"`
}

// QuotaRemaining is a wait time in display and machine form.
type QuotaRemaining struct {
	Seconds int64  `json:"seconds"`
	Text    string `json:"text,omitempty"`
}

// Recommender ties quota, sampling and the profile store together.
type Recommender struct {
	Store   *ProfileStore
	Quota   *QuotaGovernor
	Sampler *Sampler
	Items   ItemSource

	// MaxOverviewRunes clips the caption synopsis; 0 means 250.
	MaxOverviewRunes int
	// MaxFavorites bounds the favorites view; 0 means 10.
	MaxFavorites int
}

// SearchAge is the age used for certification: two years of headroom,
// capped at the oldest supported child age.
func SearchAge(childAge int) int {
	return min(childAge+2, domain.MaxChildAge)
}

// Recommend serves a recommendation for p. Store failures are returned;
// everything else is a status.
func (r *Recommender) Recommend(ctx context.Context, p *domain.UserProfile) (RecommendationResult, error) {
	ctx, span := startSpan(ctx, "Recommender", "Recommend", p.UserID)
	defer span.End()

	res, err := r.recommend(ctx, p)
	outcome := string(res.Status)
	if err != nil {
		outcome = "error"
	}
	span.SetAttributes(attribute.String("outcome", outcome))
	observability.Recommendations.WithLabelValues(outcome).Inc()
	return res, err
}

func (r *Recommender) recommend(ctx context.Context, p *domain.UserProfile) (RecommendationResult, error) {
	if !p.OnboardingComplete() {
		return RecommendationResult{Status: NotReady}, nil
	}

	d, err := r.Quota.Check(ctx, p)
	if err != nil {
		return RecommendationResult{}, err
	}
	if !d.Allowed {
		return denied(d.Remaining), nil
	}

	rating := catalog.RatingForAge(SearchAge(p.ChildAge))
	item, err := r.Sampler.PickRandom(ctx, rating, p.Seen, p.Disliked, p.Filter)
	if errors.Is(err, ErrNoneFound) {
		return RecommendationResult{Status: NoneFound, WindowReset: d.WindowReset}, nil
	}
	if err != nil {
		return RecommendationResult{}, err
	}

	// the slot is claimed before the item is recorded, so a lost race
	// leaves neither the counter nor the seen list changed
	switch err := r.Quota.Consume(ctx, p); {
	case errors.Is(err, ErrQuotaExhausted):
		return denied(r.Quota.Remaining(p)), nil
	case err != nil:
		return RecommendationResult{}, err
	}
	if err := r.Store.MarkSeen(ctx, p.UserID, item.ID); err != nil {
		return RecommendationResult{}, err
	}

	return RecommendationResult{
		Status:      Delivered,
		Item:        item,
		PosterURL:   r.Items.PosterURL(item.PosterPath),
		Caption:     r.Caption(item),
		WindowReset: d.WindowReset,
		Liked:       p.Liked.Has(item.ID),
		Disliked:    p.Disliked.Has(item.ID),
		Favorite:    p.Favorites.Has(item.ID),
	}, nil
}

func denied(left time.Duration) RecommendationResult {
	return RecommendationResult{
		Status:    Denied,
		Remaining: QuotaRemaining{Seconds: int64(left.Seconds()), Text: FormatRemaining(left)},
	}
}

// Caption renders title, rating and a clipped synopsis.
func (r *Recommender) Caption(it *domain.CatalogItem) string {
	limit := r.MaxOverviewRunes
	if limit <= 0 {
		limit = 250
	}
	var b strings.Builder
	b.WriteString(it.Title)
	fmt.Fprintf(&b, "\nRating: %.1f", it.Rating)
	if ov := strings.TrimSpace(it.Overview); ov != "" {
		b.WriteString("\n\n")
		b.WriteString(clipRunes(ov, limit))
	}
	return b.String()
}

// Favorites loads up to MaxFavorites favorite items concurrently. Items that
// fail to load are skipped; order follows the favorites list.
func (r *Recommender) Favorites(ctx context.Context, userID string) ([]domain.CatalogItem, error) {
	ctx, span := startSpan(ctx, "Recommender", "Favorites", userID)
	defer span.End()

	limit := r.MaxFavorites
	if limit <= 0 {
		limit = 10
	}
	ids, err := r.Store.Favorites(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	slots := make([]*domain.CatalogItem, len(ids))
	var g errgroup.Group
	g.SetLimit(5)
	for i, id := range ids {
		g.Go(func() error {
			it, err := r.Items.FetchItemDetails(ctx, id)
			if err != nil {
				log.Warn().Err(err).Str("user_id", userID).Int64("item_id", id).Msg("favorite not loaded")
				return nil
			}
			slots[i] = it
			return nil
		})
	}
	_ = g.Wait()

	out := make([]domain.CatalogItem, 0, len(slots))
	for _, it := range slots {
		if it != nil {
			out = append(out, *it)
		}
	}
	span.SetAttributes(attribute.Int("favorites", len(ids)), attribute.Int("loaded", len(out)))
	return out, nil
}

func clipRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n])) + "…"
}
