// Package services – Bot
//
// Bot is the single entry point for inbound chat events. It applies the
// per-user action throttle, loads (or lazily creates) the profile, and routes
// commands, free text and button presses to onboarding, recommendation,
// reactions, quota and administrator operations. The Response it returns is
// transport-neutral.
package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/tbourn/go-cartoon-bot/internal/config"
	"github.com/tbourn/go-cartoon-bot/internal/domain"
)

// EventKind classifies an inbound event.
type EventKind string

const (
	EventCommand EventKind = "command"
	EventText    EventKind = "text"
	EventButton  EventKind = "button"
)

// Event is one inbound user action.
type Event struct {
	UserID      string    `json:"user_id"      binding:"required,max=64"`
	DisplayName string    `json:"display_name" binding:"max=255"`
	Kind        EventKind `json:"kind"         binding:"required,oneof=command text button"`
	Payload     string    `json:"payload"      binding:"max=4096"`
}

// Bot dispatches events. Throttle may be nil.
type Bot struct {
	Store       *ProfileStore
	Onboarding  *Onboarding
	Recommender *Recommender
	Reactions   *ReactionToggler
	Quota       *QuotaGovernor
	Admin       *AdminService
	Throttle    *ActionThrottle
}

// Catalog is everything the bot needs from the movie catalog.
type Catalog interface {
	PageSource
	ItemSource
}

// NewBot assembles the dispatcher and its collaborators from configuration.
func NewBot(db *gorm.DB, cat Catalog, cfg config.Config) *Bot {
	store := &ProfileStore{
		DB: db,
		Defaults: domain.FilterProfile{
			GenreID:                cfg.Defaults.GenreID,
			MinRating:              cfg.Defaults.MinRating,
			ExcludedLanguages:      cfg.Defaults.ExcludedLanguages,
			CertificationCountries: cfg.Defaults.CertificationCountries,
		},
	}
	quota := NewQuotaGovernor(store, cfg.Quota)
	return &Bot{
		Store:      store,
		Onboarding: NewOnboarding(store),
		Recommender: &Recommender{
			Store:   store,
			Quota:   quota,
			Sampler: NewSampler(cat, cfg.Sampler),
			Items:   cat,
		},
		Reactions: &ReactionToggler{Store: store},
		Quota:     quota,
		Admin:     &AdminService{Store: store, Quota: quota, AdminID: cfg.AdminID},
		Throttle:  NewActionThrottle(cfg.Throttle),
	}
}

// HandleEvent processes ev for its user. Only store failures and invalid
// events are returned as errors; everything else is a reply.
func (b *Bot) HandleEvent(ctx context.Context, ev Event) (Response, error) {
	ctx, span := startSpan(ctx, "Bot", "HandleEvent", ev.UserID)
	defer span.End()
	span.SetAttributes(attribute.String("event.kind", string(ev.Kind)))

	ev.UserID = strings.TrimSpace(ev.UserID)
	if ev.UserID == "" {
		return Response{}, invalid("user_id", "is required")
	}

	if b.Throttle != nil {
		class := classify(ev)
		if !b.Throttle.Allow(ev.UserID, class) {
			log.Debug().Str("user_id", ev.UserID).Str("class", string(class)).Msg("event throttled")
			return reply("Please wait a moment before trying again."), nil
		}
	}

	p, err := b.Store.GetOrCreate(ctx, ev.UserID, ev.DisplayName)
	if err != nil {
		return Response{}, err
	}

	switch ev.Kind {
	case EventCommand:
		return b.command(ctx, p, ev.Payload)
	case EventText:
		if strings.HasPrefix(strings.TrimSpace(ev.Payload), "/") {
			return b.command(ctx, p, ev.Payload)
		}
		return b.Onboarding.HandleText(ctx, p, ev.Payload)
	case EventButton:
		return b.button(ctx, p, ev.Payload)
	}
	return Response{}, invalid("kind", "must be command, text or button")
}

func classify(ev Event) ActionClass {
	payload := strings.TrimSpace(ev.Payload)
	switch {
	case ev.Kind == EventButton && payload == ActionRandom:
		return ClassRecommend
	case ev.Kind != EventButton && commandName(payload) == "/random":
		return ClassRecommend
	}
	return ClassGeneral
}

// commandName returns the lower-cased command without any @bot suffix.
func commandName(payload string) string {
	name, _, _ := strings.Cut(strings.TrimSpace(payload), " ")
	name, _, _ = strings.Cut(name, "@")
	return strings.ToLower(name)
}

func (b *Bot) command(ctx context.Context, p *domain.UserProfile, payload string) (Response, error) {
	name := commandName(payload)
	_, arg, _ := strings.Cut(strings.TrimSpace(payload), " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/start":
		return b.Onboarding.Start(ctx, p)
	case "/random":
		return b.recommend(ctx, p)
	case "/profile":
		return b.profile(p), nil
	case "/favorites":
		return b.favorites(ctx, p)
	case "/settings":
		return Response{Text: describeFilter(p.Filter), Buttons: settingsMenu()}, nil
	case "/cancel":
		return b.Onboarding.Cancel(ctx, p)
	case "/approve", "/unlimit", "/limit", "/get":
		if b.Admin.IsAdmin(p.UserID) {
			return b.admin(ctx, strings.TrimPrefix(name, "/"), arg)
		}
	}
	return reply("Unknown command."), nil
}

func (b *Bot) button(ctx context.Context, p *domain.UserProfile, data string) (Response, error) {
	action, rest, _ := strings.Cut(strings.TrimSpace(data), ":")

	switch action {
	case ActionRandom:
		return b.recommend(ctx, p)
	case ActionLike, ActionDislike, ActionFavorite:
		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			break
		}
		kind, _ := ParseReactionKind(action)
		return b.react(ctx, p, id, kind)
	case ActionCheckLimit:
		return b.checkLimit(ctx, p)
	case ActionRequestMore:
		return b.requestMore(p), nil
	case ActionChangeName:
		return b.Onboarding.ChangeName(ctx, p.UserID)
	case ActionChangeAge:
		return b.Onboarding.ChangeAge(ctx, p.UserID)
	case ActionReset:
		return b.Onboarding.Reset(ctx, p.UserID)
	case ActionSetRating:
		return b.Onboarding.EditFilter(ctx, p.UserID, domain.StepAwaitingMinRating)
	case ActionSetLanguages:
		return b.Onboarding.EditFilter(ctx, p.UserID, domain.StepAwaitingLanguages)
	case ActionSetCountries:
		return b.Onboarding.EditFilter(ctx, p.UserID, domain.StepAwaitingCountries)
	case ActionAdmin:
		op, target, _ := strings.Cut(rest, ":")
		if b.Admin.IsAdmin(p.UserID) {
			return b.admin(ctx, op, target)
		}
	}

	log.Warn().Str("user_id", p.UserID).Str("data", data).Msg("unknown button")
	return Response{}, nil
}

func (b *Bot) recommend(ctx context.Context, p *domain.UserProfile) (Response, error) {
	res, err := b.Recommender.Recommend(ctx, p)
	if err != nil {
		return Response{}, err
	}

	switch res.Status {
	case NotReady:
		_, resp, err := b.Onboarding.Flows.Enter(ctx, p.UserID, domain.StepAwaitingName)
		if err != nil {
			return Response{}, err
		}
		resp.Text = "Let's finish your profile first. " + resp.Text
		return resp, nil

	case Denied:
		return Response{
			Text:    fmt.Sprintf("You have used all %d recommendations. The limit renews in %s.", b.Quota.Limit, res.Remaining.Text),
			Buttons: quotaMenu(),
		}, nil

	case NoneFound:
		return Response{
			Text:    "I could not find a new cartoon with your filters. Try a lower minimum rating or fewer excluded languages.",
			Buttons: append(mainMenu(), row(Button{Text: "Minimum rating", Data: ActionSetRating})),
		}, nil
	}

	caption := res.Caption
	if res.WindowReset {
		caption = "Your limit has been renewed!\n\n" + caption
	}
	return Response{
		Text:     caption,
		PhotoURL: res.PosterURL,
		Buttons:  itemButtons(res.Item.ID, res.Liked, res.Disliked, res.Favorite),
	}, nil
}

func itemButtons(id int64, liked, disliked, favorite bool) [][]Button {
	sid := strconv.FormatInt(id, 10)
	like, dislike, fav := "Like", "Dislike", "Add to favorites"
	if liked {
		like = "Liked"
	}
	if disliked {
		dislike = "Disliked"
	}
	if favorite {
		fav = "In favorites"
	}
	return [][]Button{
		row(Button{Text: like, Data: ActionLike + ":" + sid}, Button{Text: dislike, Data: ActionDislike + ":" + sid}),
		row(Button{Text: fav, Data: ActionFavorite + ":" + sid}),
		row(Button{Text: "Another one", Data: ActionRandom}),
	}
}

func (b *Bot) react(ctx context.Context, p *domain.UserProfile, itemID int64, kind ReactionKind) (Response, error) {
	res, err := b.Reactions.Apply(ctx, p.UserID, itemID, kind)
	if err != nil {
		return Response{}, err
	}
	switch res.Outcome {
	case UserNotFound:
		return reply("Profile not found. Send /start."), nil
	case AlreadyApplied:
		if kind == ReactionLike {
			return reply("You already liked this one."), nil
		}
		return reply("You already disliked this one."), nil
	}
	switch {
	case kind == ReactionLike:
		return reply("Glad you liked it!"), nil
	case kind == ReactionDislike:
		return reply("Got it, I will not show it again."), nil
	case res.Added:
		return reply("Added to favorites."), nil
	}
	return reply("Removed from favorites."), nil
}

func (b *Bot) checkLimit(ctx context.Context, p *domain.UserProfile) (Response, error) {
	if p.IsUnlimited {
		return reply("You have unlimited recommendations."), nil
	}
	d, err := b.Quota.Check(ctx, p)
	if err != nil {
		return Response{}, err
	}
	left := d.Limit - d.Used
	switch {
	case d.WindowReset:
		return Response{Text: fmt.Sprintf("Your limit has been renewed! %d recommendations available.", left), Buttons: mainMenu()}, nil
	case d.Allowed:
		return Response{Text: fmt.Sprintf("%d of %d recommendations left.", left, d.Limit), Buttons: mainMenu()}, nil
	}
	return Response{
		Text:    "The limit renews in " + FormatRemaining(d.Remaining) + ".",
		Buttons: quotaMenu(),
	}, nil
}

func (b *Bot) requestMore(p *domain.UserProfile) Response {
	if !b.Admin.Enabled() {
		return reply("Extra recommendations are not available right now.")
	}
	who := p.DisplayName
	if who == "" {
		who = p.UserID
	}
	return Response{
		Text: "Your request was sent to the administrator.",
		Notifications: []Notification{{
			UserID: b.Admin.AdminID,
			Text: fmt.Sprintf("%s (%s) asks for more recommendations. Used %d of %d.",
				who, p.UserID, p.RequestCount, b.Quota.Limit),
			Buttons: adminButtons(p.UserID),
		}},
	}
}

func adminButtons(target string) [][]Button {
	return [][]Button{
		row(
			Button{Text: "Reset limit", Data: ActionAdmin + ":approve:" + target},
			Button{Text: "Unlimited", Data: ActionAdmin + ":unlimit:" + target},
		),
		row(
			Button{Text: "Limit again", Data: ActionAdmin + ":limit:" + target},
			Button{Text: "Info", Data: ActionAdmin + ":get:" + target},
		),
	}
}

func (b *Bot) admin(ctx context.Context, op, target string) (Response, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return reply(fmt.Sprintf("Usage: /%s <user id>", op)), nil
	}

	var (
		resp   Response
		notify string
		err    error
	)
	switch op {
	case "approve":
		_, err = b.Admin.ResetQuota(ctx, target)
		resp, notify = reply("Limit reset for "+target+"."), "The administrator reset your limit. Enjoy!"
	case "unlimit":
		_, err = b.Admin.SetUnlimited(ctx, target, true)
		resp, notify = reply(target+" now has unlimited recommendations."), "You now have unlimited recommendations."
	case "limit":
		_, err = b.Admin.SetUnlimited(ctx, target, false)
		resp, notify = reply(target+" is limited again."), "Your recommendations are limited again."
	case "get":
		var info AdminInfo
		info, err = b.Admin.Info(ctx, target)
		if err == nil {
			resp = Response{Text: formatAdminInfo(info), Buttons: adminButtons(target)}
		}
	default:
		return reply("Unknown command."), nil
	}

	if errors.Is(err, ErrProfileNotFound) {
		return reply("User " + target + " not found."), nil
	}
	if err != nil {
		return Response{}, err
	}
	if notify != "" {
		resp.Notifications = append(resp.Notifications, Notification{UserID: target, Text: notify})
	}
	return resp, nil
}

func formatAdminInfo(info AdminInfo) string {
	p := info.Profile
	quota := fmt.Sprintf("%d of %d used, renews in %s", p.RequestCount, info.Limit, FormatRemaining(info.Remaining))
	if p.IsUnlimited {
		quota = "unlimited"
	}
	return fmt.Sprintf("User %s (%s)\nChild: %s, %d\nStep: %s\nQuota: %s\nSeen %d, liked %d, disliked %d, favorites %d",
		p.UserID, p.DisplayName, p.ChildName, p.ChildAge, p.Step, quota,
		info.Counts.Seen, info.Counts.Liked, info.Counts.Disliked, info.Counts.Favorites)
}

func (b *Bot) profile(p *domain.UserProfile) Response {
	quota := fmt.Sprintf("%d of %d recommendations used.", p.RequestCount, b.Quota.Limit)
	if p.IsUnlimited {
		quota = "Unlimited recommendations."
	}
	return Response{
		Text: fmt.Sprintf("Child: %s, age %d.\n%s\n%s\nFavorites: %d.",
			nameOr(p), p.ChildAge, describeFilter(p.Filter), quota, p.Favorites.Len()),
		Buttons: settingsMenu(),
	}
}

func (b *Bot) favorites(ctx context.Context, p *domain.UserProfile) (Response, error) {
	if p.Favorites.Len() == 0 {
		return reply("You have no favorites yet."), nil
	}
	items, err := b.Recommender.Favorites(ctx, p.UserID)
	if err != nil {
		return Response{}, err
	}
	if len(items) == 0 {
		return reply("Could not load your favorites right now. Try again later."), nil
	}
	var sb strings.Builder
	sb.WriteString("Your favorites:")
	for i, it := range items {
		fmt.Fprintf(&sb, "\n%d. %s (%.1f)", i+1, it.Title, it.Rating)
	}
	return reply(sb.String()), nil
}
