package handlers

import (
	"context"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/chakshi/chakshi-api/config"
)

// CalendarService proxies Google Calendar calls with the caller's token
type CalendarService interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	ListCalendars(ctx context.Context, accessToken string) ([]*calendar.CalendarListEntry, error)
	ListEvents(ctx context.Context, accessToken string, q EventQuery) ([]*calendar.Event, error)
	CreateEvent(ctx context.Context, accessToken, calendarID string, ev *calendar.Event) (*calendar.Event, error)
	UpdateEvent(ctx context.Context, accessToken, calendarID, eventID string, ev *calendar.Event) (*calendar.Event, error)
	DeleteEvent(ctx context.Context, accessToken, calendarID, eventID string) error
}

// EventQuery narrows an event listing
type EventQuery struct {
	CalendarID string `form:"calendarId"`
	TimeMin    string `form:"timeMin"`
	TimeMax    string `form:"timeMax"`
	MaxResults int64  `form:"maxResults"`
}

type googleCalendar struct {
	oauth *oauth2.Config
}

// NewGoogleCalendar returns nil when no client id is configured
func NewGoogleCalendar(conf *config.Config) CalendarService {
	if conf.GoogleClientID == "" {
		return nil
	}
	return &googleCalendar{oauth: &oauth2.Config{
		ClientID:     conf.GoogleClientID,
		ClientSecret: conf.GoogleClientSecret,
		RedirectURL:  conf.GoogleRedirectURL,
		Scopes:       []string{calendar.CalendarScope},
		Endpoint:     endpoints.Google,
	}}
}

func (g *googleCalendar) AuthURL(state string) string {
	return g.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

func (g *googleCalendar) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return g.oauth.Exchange(ctx, code)
}

func (g *googleCalendar) service(ctx context.Context, accessToken string) (*calendar.Service, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	return calendar.NewService(ctx, option.WithTokenSource(ts))
}

func (g *googleCalendar) ListCalendars(ctx context.Context, accessToken string) ([]*calendar.CalendarListEntry, error) {
	svc, err := g.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	list, err := svc.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

func (g *googleCalendar) ListEvents(ctx context.Context, accessToken string, q EventQuery) ([]*calendar.Event, error) {
	svc, err := g.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	call := svc.Events.List(q.CalendarID).SingleEvents(true).OrderBy("startTime").Context(ctx)
	if q.TimeMin != "" {
		call = call.TimeMin(q.TimeMin)
	}
	if q.TimeMax != "" {
		call = call.TimeMax(q.TimeMax)
	}
	if q.MaxResults > 0 {
		call = call.MaxResults(q.MaxResults)
	}
	events, err := call.Do()
	if err != nil {
		return nil, err
	}
	return events.Items, nil
}

func (g *googleCalendar) CreateEvent(ctx context.Context, accessToken, calendarID string, ev *calendar.Event) (*calendar.Event, error) {
	svc, err := g.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return svc.Events.Insert(calendarID, ev).Context(ctx).Do()
}

func (g *googleCalendar) UpdateEvent(ctx context.Context, accessToken, calendarID, eventID string, ev *calendar.Event) (*calendar.Event, error) {
	svc, err := g.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return svc.Events.Patch(calendarID, eventID, ev).Context(ctx).Do()
}

func (g *googleCalendar) DeleteEvent(ctx context.Context, accessToken, calendarID, eventID string) error {
	svc, err := g.service(ctx, accessToken)
	if err != nil {
		return err
	}
	return svc.Events.Delete(calendarID, eventID).Context(ctx).Do()
}
