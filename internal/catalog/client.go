package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-cartoon-bot/internal/domain"
)

// ClientOptions configures a Client.
type ClientOptions struct {
	ImageBaseURL string
	Counts       CountCache // optional
	CountTTL     time.Duration
}

// Client applies the catalog contract on top of a Source: page failures come
// back as *UpstreamError for the caller to skip, detail misses as
// ErrItemNotFound, and the total page count never fails (it degrades to 1).
type Client struct {
	src       Source
	imageBase string
	counts    CountCache
	countTTL  time.Duration
}

// NewClient builds a Client over src.
func NewClient(src Source, opts ClientOptions) *Client {
	ttl := opts.CountTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Client{
		src:       src,
		imageBase: strings.TrimRight(opts.ImageBaseURL, "/"),
		counts:    opts.Counts,
		countTTL:  ttl,
	}
}

// FetchPage returns the items of one discover page, with items in an
// excluded original language removed. The result may be empty.
func (c *Client) FetchPage(ctx context.Context, page int, q Query) ([]domain.CatalogItem, error) {
	p, err := c.src.Discover(ctx, page, q)
	if err != nil {
		return nil, &UpstreamError{Op: "discover", Page: page, Err: err}
	}
	return withoutLanguages(p.Items, q.Filter.ExcludedLanguages), nil
}

// FetchItemDetails returns one item by id.
func (c *Client) FetchItemDetails(ctx context.Context, id int64) (*domain.CatalogItem, error) {
	it, err := c.src.Details(ctx, id)
	if errors.Is(err, ErrItemNotFound) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, &UpstreamError{Op: "details", Err: err}
	}
	return it, nil
}

// TotalPageCount returns the number of discover pages for q, at least 1.
// Upstream and cache failures are logged and degrade to 1.
func (c *Client) TotalPageCount(ctx context.Context, q Query) int {
	key := q.CacheKey()
	if c.counts != nil {
		n, ok, err := c.counts.GetCount(ctx, key)
		switch {
		case err != nil:
			log.Debug().Err(err).Msg("page count cache read failed")
		case ok && n >= 1:
			return n
		}
	}

	p, err := c.src.Discover(ctx, 1, q)
	if err != nil {
		log.Warn().Err(&UpstreamError{Op: "count", Err: err}).Msg("total page count unavailable, using 1")
		return 1
	}
	n := p.TotalPages
	if n < 1 {
		n = 1
	}
	if c.counts != nil {
		if err := c.counts.SetCount(ctx, key, n, c.countTTL); err != nil {
			log.Debug().Err(err).Msg("page count cache write failed")
		}
	}
	return n
}

// PosterURL resolves a poster path against the image base. Empty in, empty out.
func (c *Client) PosterURL(path string) string {
	if path == "" {
		return ""
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.imageBase + path
}

func withoutLanguages(items []domain.CatalogItem, excluded []string) []domain.CatalogItem {
	if len(excluded) == 0 {
		return items
	}
	skip := make(map[string]struct{}, len(excluded))
	for _, l := range excluded {
		skip[strings.ToLower(l)] = struct{}{}
	}
	out := make([]domain.CatalogItem, 0, len(items))
	for _, it := range items {
		if _, bad := skip[strings.ToLower(it.OriginalLanguage)]; bad {
			continue
		}
		out = append(out, it)
	}
	return out
}
