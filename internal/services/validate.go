package services

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/language"

	"github.com/tbourn/go-cartoon-bot/internal/domain"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator with the bot's custom tags:
//
//	iso639  two-letter ISO 639-1 language code known to x/text
//	country ISO 3166-1 alpha-2 code of an actual country
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("iso639", func(fl validator.FieldLevel) bool {
			_, err := language.ParseBase(fl.Field().String())
			return err == nil
		})
		_ = validate.RegisterValidation("country", func(fl validator.FieldLevel) bool {
			r, err := language.ParseRegion(fl.Field().String())
			return err == nil && r.IsCountry()
		})
	})
	return validate
}

type filterRules struct {
	GenreID                int      `validate:"gte=1"`
	MinRating              float64  `validate:"gte=0,lte=10"`
	ExcludedLanguages      []string `validate:"dive,len=2,alpha,iso639"`
	CertificationCountries []string `validate:"dive,len=2,alpha,country"`
}

// ValidateFilter checks a whole filter profile. The first failing field is
// reported as a *ValidationError.
func ValidateFilter(f domain.FilterProfile) error {
	return firstViolation(Validator().Struct(filterRules{
		GenreID:                f.GenreID,
		MinRating:              f.MinRating,
		ExcludedLanguages:      f.ExcludedLanguages,
		CertificationCountries: f.CertificationCountries,
	}))
}

func firstViolation(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	return invalid(fe.Field(), fmt.Sprintf("%v fails %q", fe.Value(), fe.Tag()))
}

// parseCodes splits a comma or space separated list, trims and de-duplicates
// it and applies norm to every element. "-" or "none" yields an empty list.
func parseCodes(text string, norm func(string) string) []string {
	text = strings.TrimSpace(text)
	if text == "-" || strings.EqualFold(text, "none") {
		return []string{}
	}
	fields := strings.FieldsFunc(text, func(r rune) bool { return r == ',' || r == ' ' || r == ';' })
	out := make([]string, 0, len(fields))
	dup := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		f = norm(strings.TrimSpace(f))
		if f == "" {
			continue
		}
		if _, ok := dup[f]; ok {
			continue
		}
		dup[f] = struct{}{}
		out = append(out, f)
	}
	return out
}
