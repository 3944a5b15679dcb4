package services

// Button is an inline action offered with a reply. Data is the callback
// payload the transport sends back as a button event.
type Button struct {
	Text string `json:"text"`
	Data string `json:"data"`
}

// Notification is a message for a user other than the one whose event is
// being handled, e.g. the administrator.
type Notification struct {
	UserID  string     `json:"user_id"`
	Text    string     `json:"text"`
	Buttons [][]Button `json:"buttons,omitempty"`
}

// Response describes what the transport should send back. It carries no
// platform-specific formatting.
type Response struct {
	Text          string         `json:"text,omitempty"`
	PhotoURL      string         `json:"photo_url,omitempty"`
	Buttons       [][]Button     `json:"buttons,omitempty"`
	Notifications []Notification `json:"notifications,omitempty"`
}

// Button payloads.
const (
	ActionRandom       = "random"
	ActionLike         = "like"
	ActionDislike      = "dislike"
	ActionFavorite     = "fav"
	ActionCheckLimit   = "check_limit"
	ActionRequestMore  = "request_more"
	ActionChangeName   = "change_name"
	ActionChangeAge    = "change_age"
	ActionReset        = "reset"
	ActionSetRating    = "set_rating"
	ActionSetLanguages = "set_languages"
	ActionSetCountries = "set_countries"
	ActionAdmin        = "admin"
)

func reply(s string) Response { return Response{Text: s} }

func row(bs ...Button) []Button { return bs }

func mainMenu() [][]Button {
	return [][]Button{row(Button{Text: "Random cartoon", Data: ActionRandom})}
}

func settingsMenu() [][]Button {
	return [][]Button{
		row(Button{Text: "Change name", Data: ActionChangeName}, Button{Text: "Change age", Data: ActionChangeAge}),
		row(Button{Text: "Minimum rating", Data: ActionSetRating}),
		row(Button{Text: "Excluded languages", Data: ActionSetLanguages}, Button{Text: "Countries", Data: ActionSetCountries}),
		row(Button{Text: "Reset profile", Data: ActionReset}),
	}
}

func quotaMenu() [][]Button {
	return [][]Button{
		row(Button{Text: "Check again", Data: ActionCheckLimit}),
		row(Button{Text: "Ask for more", Data: ActionRequestMore}),
	}
}
