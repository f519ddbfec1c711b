package handlers_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"

	"github.com/chakshi/chakshi-api/api/handlers"
	"github.com/chakshi/chakshi-api/config"
	"github.com/chakshi/chakshi-api/models"
)

type fakeCalendar struct {
	token   string
	query   handlers.EventQuery
	created *calendar.Event
	err     error
}

func (f *fakeCalendar) AuthURL(state string) string {
	return "https://accounts.google.com/o/oauth2/auth?state=" + state
}

func (f *fakeCalendar) Exchange(_ context.Context, code string) (*oauth2.Token, error) {
	return &oauth2.Token{AccessToken: "access-" + code, TokenType: "Bearer"}, f.err
}

func (f *fakeCalendar) ListCalendars(_ context.Context, tok string) ([]*calendar.CalendarListEntry, error) {
	f.token = tok
	return []*calendar.CalendarListEntry{{Id: "primary", Summary: "Court diary"}}, f.err
}

func (f *fakeCalendar) ListEvents(_ context.Context, tok string, q handlers.EventQuery) ([]*calendar.Event, error) {
	f.token, f.query = tok, q
	return []*calendar.Event{}, f.err
}

func (f *fakeCalendar) CreateEvent(_ context.Context, tok, _ string, ev *calendar.Event) (*calendar.Event, error) {
	f.token, f.created = tok, ev
	ev.Id = "evt_1"
	return ev, f.err
}

func (f *fakeCalendar) UpdateEvent(_ context.Context, _, _, eventID string, ev *calendar.Event) (*calendar.Event, error) {
	ev.Id = eventID
	return ev, f.err
}

func (f *fakeCalendar) DeleteEvent(_ context.Context, _, _, _ string) error {
	return f.err
}

func TestCalendar_NotConfigured(t *testing.T) {
	c := handlers.Calendar{}
	rr := serve(c.AuthURLHandler, newRequest(t, "GET", "/", nil, nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, models.ErrCodeNotConfigured, decodeErrorDetail(t, rr).Code)

	assert.Nil(t, handlers.NewGoogleCalendar(&config.Config{}))
}

func TestCalendar_MissingGoogleToken(t *testing.T) {
	c := handlers.Calendar{Service: &fakeCalendar{}}
	rr := serve(c.CalendarsHandler, newRequest(t, "GET", "/", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestCalendar_AuthURLHandler(t *testing.T) {
	c := handlers.Calendar{Service: &fakeCalendar{}}
	rr := serve(c.AuthURLHandler, newRequest(t, "GET", "/", nil, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var got map[string]string
	decodeData(t, rr, &got)
	assert.NotEmpty(t, got["state"])
	assert.Contains(t, got["url"], "state="+got["state"])
}

func TestCalendar_EventsHandlerDefaultsToPrimary(t *testing.T) {
	svc := &fakeCalendar{}
	c := handlers.Calendar{Service: svc}
	req := newRequest(t, "GET", "/?maxResults=5", nil, nil)
	req.Header.Set(handlers.GoogleTokenHeader, "ya29.token")
	rr := serve(c.EventsHandler, req)

	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "ya29.token", svc.token)
	assert.Equal(t, "primary", svc.query.CalendarID)
	assert.Equal(t, int64(5), svc.query.MaxResults)
}

func TestCalendar_CreateEventHandlerAllDay(t *testing.T) {
	svc := &fakeCalendar{}
	c := handlers.Calendar{Service: svc}
	req := newRequest(t, "POST", "/", map[string]string{
		"summary": "Hearing CIV/1",
		"start":   "2025-03-04",
		"end":     "2025-03-05",
	}, nil)
	req.Header.Set(handlers.GoogleTokenHeader, "ya29.token")
	rr := serve(c.CreateEventHandler, req)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "2025-03-04", svc.created.Start.Date)
	assert.Empty(t, svc.created.Start.DateTime)
}

func TestCalendar_CreateEventHandlerValidation(t *testing.T) {
	c := handlers.Calendar{Service: &fakeCalendar{}}
	req := newRequest(t, "POST", "/", map[string]string{"summary": "x", "start": "2025-03-04T10:00:00Z"}, nil)
	req.Header.Set(handlers.GoogleTokenHeader, "tok")
	rr := serve(c.CreateEventHandler, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "start and end are required", decodeEnvelope(t, rr).Message)
}

func TestCalendar_GoogleErrorsPassThrough(t *testing.T) {
	c := handlers.Calendar{Service: &fakeCalendar{err: &googleapi.Error{Code: http.StatusNotFound, Message: "Not Found"}}}
	req := newRequest(t, "DELETE", "/", nil, map[string]string{"eventId": "evt_9"})
	req.Header.Set(handlers.GoogleTokenHeader, "tok")
	rr := serve(c.DeleteEventHandler, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	c = handlers.Calendar{Service: &fakeCalendar{err: &googleapi.Error{Code: http.StatusInternalServerError}}}
	req = newRequest(t, "DELETE", "/", nil, map[string]string{"eventId": "evt_9"})
	req.Header.Set(handlers.GoogleTokenHeader, "tok")
	rr = serve(c.DeleteEventHandler, req)
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}
