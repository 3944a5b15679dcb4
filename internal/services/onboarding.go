// Package services – Onboarding
//
// Onboarding walks a user through name -> age -> ready, and hosts the
// re-entrant edit actions (change name, change age, reset) and the filter
// editors (minimum rating, excluded languages, certification countries).
// All steps are FlowMachine rules.
package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tbourn/go-cartoon-bot/internal/domain"
	"github.com/tbourn/go-cartoon-bot/internal/repo"
)

// Onboarding drives the per-user dialogue state.
type Onboarding struct {
	Store *ProfileStore
	Flows *FlowMachine
}

// NewOnboarding builds the onboarding and filter-edit flows over store.
func NewOnboarding(store *ProfileStore) *Onboarding {
	m := NewFlowMachine(store).
		Handle(domain.StepAwaitingName, FlowRule{
			Prompt: func(*domain.UserProfile) string { return "What is your child's name?" },
			Parse:  parseName,
			Next:   domain.StepAwaitingAge,
		}).
		Handle(domain.StepAwaitingAge, FlowRule{
			Prompt: func(p *domain.UserProfile) string {
				return fmt.Sprintf("How old is %s? Send a number from %d to %d.", nameOr(p), domain.MinChildAge, domain.MaxChildAge)
			},
			Parse: parseAge,
			Next:  domain.StepReady,
			Done: func(p *domain.UserProfile) Response {
				return Response{
					Text:    fmt.Sprintf("All set: %s, %d. Tap the button to get a cartoon.", nameOr(p), p.ChildAge),
					Buttons: mainMenu(),
				}
			},
		}).
		Handle(domain.StepAwaitingMinRating, FlowRule{
			Prompt: func(p *domain.UserProfile) string {
				return fmt.Sprintf("Current minimum rating is %.1f. Send a number from 1 to 10.", p.Filter.MinRating)
			},
			Parse: parseMinRating,
			Next:  domain.StepReady,
			Done:  filterSaved,
		}).
		Handle(domain.StepAwaitingLanguages, FlowRule{
			Prompt: func(p *domain.UserProfile) string {
				return fmt.Sprintf("Excluded languages: %s. Send ISO 639-1 codes separated by commas (e.g. ja, ko), or \"-\" for none.", listOrNone(p.Filter.ExcludedLanguages))
			},
			Parse: parseLanguages,
			Next:  domain.StepReady,
			Done:  filterSaved,
		}).
		Handle(domain.StepAwaitingCountries, FlowRule{
			Prompt: func(p *domain.UserProfile) string {
				return fmt.Sprintf("Certification countries: %s. Send ISO 3166 codes separated by commas (e.g. UA, US), or \"-\" for none.", listOrNone(p.Filter.CertificationCountries))
			},
			Parse: parseCountries,
			Next:  domain.StepReady,
			Done:  filterSaved,
		})
	return &Onboarding{Store: store, Flows: m}
}

// Start handles /start: incomplete profiles restart at the name step,
// complete ones are set to ready and welcomed back.
func (o *Onboarding) Start(ctx context.Context, p *domain.UserProfile) (Response, error) {
	if !p.OnboardingComplete() {
		_, resp, err := o.Flows.Enter(ctx, p.UserID, domain.StepAwaitingName)
		if err != nil {
			return Response{}, err
		}
		resp.Text = "Hi! I pick cartoons for kids. " + resp.Text
		return resp, nil
	}
	if p.Step != domain.StepReady {
		if _, err := o.Store.SetStep(ctx, p.UserID, domain.StepReady); err != nil {
			return Response{}, err
		}
	}
	return Response{
		Text:    fmt.Sprintf("Welcome back! Looking for something for %s (%d)?", p.ChildName, p.ChildAge),
		Buttons: mainMenu(),
	}, nil
}

// HandleText routes free text by step. Dialogue steps consume it; a ready
// profile with missing name or age is sent back to the name step; any other
// text while ready is unrecognized.
func (o *Onboarding) HandleText(ctx context.Context, p *domain.UserProfile, input string) (Response, error) {
	if o.Flows.Handles(p.Step) {
		res, err := o.Flows.Feed(ctx, p, input)
		if err != nil {
			return Response{}, err
		}
		*p = *res.Profile
		return res.Response, nil
	}
	if !p.OnboardingComplete() {
		_, resp, err := o.Flows.Enter(ctx, p.UserID, domain.StepAwaitingName)
		return resp, err
	}
	return Response{Text: "Sorry, I did not understand that. Use the buttons below.", Buttons: mainMenu()}, nil
}

// ChangeName forces the name step, keeping every other field.
func (o *Onboarding) ChangeName(ctx context.Context, userID string) (Response, error) {
	_, resp, err := o.Flows.Enter(ctx, userID, domain.StepAwaitingName)
	return resp, err
}

// ChangeAge forces the age step, keeping every other field.
func (o *Onboarding) ChangeAge(ctx context.Context, userID string) (Response, error) {
	_, resp, err := o.Flows.Enter(ctx, userID, domain.StepAwaitingAge)
	return resp, err
}

// EditFilter enters one of the filter-edit steps.
func (o *Onboarding) EditFilter(ctx context.Context, userID string, step domain.Step) (Response, error) {
	switch step {
	case domain.StepAwaitingMinRating, domain.StepAwaitingLanguages, domain.StepAwaitingCountries:
	default:
		return Response{}, fmt.Errorf("onboarding: %q is not a filter step", step)
	}
	_, resp, err := o.Flows.Enter(ctx, userID, step)
	return resp, err
}

// Reset wipes the profile and restarts onboarding.
func (o *Onboarding) Reset(ctx context.Context, userID string) (Response, error) {
	p, err := o.Store.ResetAll(ctx, userID)
	if err != nil {
		return Response{}, err
	}
	resp := reply(o.Flows.rules[domain.StepAwaitingName].Prompt(p))
	resp.Text = "Profile reset. " + resp.Text
	return resp, nil
}

// Cancel leaves any edit step: back to ready, or to the name step when
// onboarding is incomplete.
func (o *Onboarding) Cancel(ctx context.Context, p *domain.UserProfile) (Response, error) {
	if !p.OnboardingComplete() {
		_, resp, err := o.Flows.Enter(ctx, p.UserID, domain.StepAwaitingName)
		return resp, err
	}
	if _, err := o.Store.SetStep(ctx, p.UserID, domain.StepReady); err != nil {
		return Response{}, err
	}
	return Response{Text: "Cancelled.", Buttons: mainMenu()}, nil
}

// --- rules ---

// parseName accepts any trimmed text, including an empty one.
func parseName(_ *domain.UserProfile, input string) (repo.ProfileUpdate, error) {
	name := strings.TrimSpace(input)
	return repo.ProfileUpdate{ChildName: &name}, nil
}

func parseAge(_ *domain.UserProfile, input string) (repo.ProfileUpdate, error) {
	age, err := leadingInt(input)
	if err != nil || age < domain.MinChildAge || age > domain.MaxChildAge {
		return repo.ProfileUpdate{}, invalid("age",
			fmt.Sprintf("Please send the age as a whole number from %d to %d.", domain.MinChildAge, domain.MaxChildAge))
	}
	return repo.ProfileUpdate{ChildAge: &age}, nil
}

// leadingInt reads the integer at the start of s and ignores the rest, so
// "7 years" and "7.5" both read as 7.
func leadingInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	return strconv.Atoi(s[:end])
}

func parseMinRating(p *domain.UserProfile, input string) (repo.ProfileUpdate, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(input), ",", "."), 64)
	if err != nil || v < 1 || v > 10 {
		return repo.ProfileUpdate{}, invalid("min_rating", "Please send a number from 1 to 10.")
	}
	f := p.Filter
	f.MinRating = v
	return filterUpdate(f)
}

func parseLanguages(p *domain.UserProfile, input string) (repo.ProfileUpdate, error) {
	f := p.Filter
	f.ExcludedLanguages = parseCodes(input, strings.ToLower)
	if err := ValidateFilter(f); err != nil {
		return repo.ProfileUpdate{}, invalid("excluded_languages", "Unknown language code. Use two-letter codes like ja, ko, en.")
	}
	return filterUpdate(f)
}

func parseCountries(p *domain.UserProfile, input string) (repo.ProfileUpdate, error) {
	f := p.Filter
	f.CertificationCountries = parseCodes(input, strings.ToUpper)
	if err := ValidateFilter(f); err != nil {
		return repo.ProfileUpdate{}, invalid("certification_countries", "Unknown country code. Use two-letter codes like UA, US, GB.")
	}
	return filterUpdate(f)
}

func filterUpdate(f domain.FilterProfile) (repo.ProfileUpdate, error) {
	if err := ValidateFilter(f); err != nil {
		return repo.ProfileUpdate{}, err
	}
	return repo.ProfileUpdate{Filter: &f}, nil
}

func filterSaved(p *domain.UserProfile) Response {
	return Response{Text: "Saved. " + describeFilter(p.Filter), Buttons: mainMenu()}
}

func describeFilter(f domain.FilterProfile) string {
	return fmt.Sprintf("Minimum rating %.1f, excluded languages: %s, countries: %s.",
		f.MinRating, listOrNone(f.ExcludedLanguages), listOrNone(f.CertificationCountries))
}

func listOrNone(xs []string) string {
	if len(xs) == 0 {
		return "none"
	}
	return strings.Join(xs, ", ")
}

func nameOr(p *domain.UserProfile) string {
	if p.ChildName == "" {
		return "your child"
	}
	return p.ChildName
}
