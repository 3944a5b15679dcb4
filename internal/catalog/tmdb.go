// Package catalog talks to the external movie catalog (TMDB). It exposes the
// raw Source capability (discover pages, item details), decorators for
// circuit breaking and page-count caching, and Client, which layers the
// degrade-on-failure rules the sampler relies on.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tbourn/go-cartoon-bot/internal/domain"
)

// Query is everything a discover call filters on.
type Query struct {
	AgeRating string // certification ceiling, "G" or "PG"
	Filter    domain.FilterProfile
}

// RatingForAge maps a search age to the certification ceiling.
func RatingForAge(age int) string {
	if age < 6 {
		return "G"
	}
	return "PG"
}

// DiscoverPage is one page of discover results.
type DiscoverPage struct {
	Page       int
	TotalPages int
	Items      []domain.CatalogItem
}

// Source is the raw catalog capability.
type Source interface {
	Discover(ctx context.Context, page int, q Query) (*DiscoverPage, error)
	Details(ctx context.Context, id int64) (*domain.CatalogItem, error)
}

// TMDBOptions configures a TMDB source.
type TMDBOptions struct {
	APIKey   string
	BaseURL  string
	Language string
	Timeout  time.Duration
	HTTP     *http.Client // optional; overrides Timeout
}

// TMDB is a Source backed by the TMDB v3 REST API.
type TMDB struct {
	apiKey   string
	baseURL  string
	language string
	http     *http.Client
}

// NewTMDB creates a TMDB source.
func NewTMDB(opts TMDBOptions) *TMDB {
	hc := opts.HTTP
	if hc == nil {
		to := opts.Timeout
		if to <= 0 {
			to = 10 * time.Second
		}
		hc = &http.Client{Timeout: to}
	}
	return &TMDB{
		apiKey:   opts.APIKey,
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		language: opts.Language,
		http:     hc,
	}
}

type tmdbMovie struct {
	ID               int64   `json:"id"`
	Title            string  `json:"title"`
	Overview         string  `json:"overview"`
	ReleaseDate      string  `json:"release_date"`
	VoteAverage      float64 `json:"vote_average"`
	PosterPath       string  `json:"poster_path"`
	OriginalLanguage string  `json:"original_language"`
}

func (m tmdbMovie) item() domain.CatalogItem {
	return domain.CatalogItem{
		ID:               m.ID,
		Title:            m.Title,
		Overview:         m.Overview,
		Rating:           m.VoteAverage,
		PosterPath:       m.PosterPath,
		OriginalLanguage: m.OriginalLanguage,
		ReleaseDate:      m.ReleaseDate,
	}
}

type discoverResponse struct {
	Page         int         `json:"page"`
	Results      []tmdbMovie `json:"results"`
	TotalPages   int         `json:"total_pages"`
	TotalResults int         `json:"total_results"`
}

// Discover fetches one page of /discover/movie.
func (t *TMDB) Discover(ctx context.Context, page int, q Query) (*DiscoverPage, error) {
	v := t.baseParams()
	v.Set("include_adult", "false")
	v.Set("page", strconv.Itoa(page))
	if q.Filter.GenreID > 0 {
		v.Set("with_genres", strconv.Itoa(q.Filter.GenreID))
	}
	if q.Filter.MinRating > 0 {
		v.Set("vote_average.gte", strconv.FormatFloat(q.Filter.MinRating, 'f', -1, 64))
	}
	if q.AgeRating != "" {
		v.Set("certification.lte", q.AgeRating)
		if len(q.Filter.CertificationCountries) > 0 {
			v.Set("certification_country", q.Filter.CertificationCountries[0])
		}
	}
	if len(q.Filter.CertificationCountries) > 0 {
		v.Set("region", q.Filter.CertificationCountries[0])
	}

	var resp discoverResponse
	if err := t.getJSON(ctx, "/discover/movie", v, &resp); err != nil {
		return nil, err
	}
	out := &DiscoverPage{
		Page:       resp.Page,
		TotalPages: resp.TotalPages,
		Items:      make([]domain.CatalogItem, 0, len(resp.Results)),
	}
	for _, m := range resp.Results {
		out.Items = append(out.Items, m.item())
	}
	return out, nil
}

// Details fetches /movie/{id}. A 404 maps to ErrItemNotFound.
func (t *TMDB) Details(ctx context.Context, id int64) (*domain.CatalogItem, error) {
	var m tmdbMovie
	err := t.getJSON(ctx, fmt.Sprintf("/movie/%d", id), t.baseParams(), &m)
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	it := m.item()
	return &it, nil
}

func (t *TMDB) baseParams() url.Values {
	v := url.Values{}
	v.Set("api_key", t.apiKey)
	if t.language != "" {
		v.Set("language", t.language)
	}
	return v
}

func (t *TMDB) getJSON(ctx context.Context, path string, params url.Values, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Code: resp.StatusCode, Body: string(body)}
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
