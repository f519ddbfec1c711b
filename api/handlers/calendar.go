package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"

	"github.com/chakshi/chakshi-api/config"
	"github.com/chakshi/chakshi-api/logging"
)

// GoogleTokenHeader carries the caller's Google access token
const GoogleTokenHeader = "X-Google-Access-Token"

// Calendar exported for testing purposes
type Calendar struct {
	Service CalendarService
}

type tokenRequest struct {
	Code string `json:"code"`
}

// EventRequest creates or patches a calendar event. Start and End are
// RFC3339 timestamps, or plain dates for all-day events.
type EventRequest struct {
	Summary     string `json:"summary"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Start       string `json:"start"`
	End         string `json:"end"`
	TimeZone    string `json:"timeZone"`
}

func (c Calendar) ready(w http.ResponseWriter) bool {
	if c.Service == nil {
		writeNotConfigured(w, "google calendar")
		return false
	}
	return true
}

func googleToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	tok := strings.TrimSpace(r.Header.Get(GoogleTokenHeader))
	if tok == "" {
		config.ErrorStatus("missing "+GoogleTokenHeader+" header", http.StatusUnauthorized, w, nil)
		return "", false
	}
	return tok, true
}

// writeGoogleError passes Google's 4xx codes through and maps the rest to 502
func writeGoogleError(w http.ResponseWriter, message string, err error) {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) && gErr.Code >= 400 && gErr.Code < 500 {
		config.ErrorStatus(message, gErr.Code, w, err)
		return
	}
	config.ErrorStatus(message, http.StatusBadGateway, w, err)
}

// AuthURLHandler returns the Google consent URL
func (c Calendar) AuthURLHandler(w http.ResponseWriter, r *http.Request) {
	if !c.ready(w) {
		return
	}
	state, err := gonanoid.New()
	if err != nil {
		config.ErrorStatus("failed to create state", http.StatusInternalServerError, w, err)
		return
	}
	config.WriteSuccess(w, http.StatusOK, map[string]string{"url": c.Service.AuthURL(state), "state": state}, "")
}

// TokenHandler exchanges an authorization code for tokens
func (c Calendar) TokenHandler(w http.ResponseWriter, r *http.Request) {
	if !c.ready(w) {
		return
	}
	var req tokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !requireFields(w, map[string]string{"code": req.Code}) {
		return
	}
	tok, err := c.Service.Exchange(r.Context(), req.Code)
	if err != nil {
		config.ErrorStatus("failed to exchange authorization code", http.StatusBadRequest, w, err)
		return
	}
	logging.FromContext(r.Context()).Infow("google calendar connected")
	config.WriteSuccess(w, http.StatusOK, map[string]interface{}{
		"accessToken":  tok.AccessToken,
		"refreshToken": tok.RefreshToken,
		"tokenType":    tok.TokenType,
		"expiry":       tok.Expiry,
	}, "")
}

// CalendarsHandler lists the caller's calendars
func (c Calendar) CalendarsHandler(w http.ResponseWriter, r *http.Request) {
	if !c.ready(w) {
		return
	}
	tok, ok := googleToken(w, r)
	if !ok {
		return
	}
	items, err := c.Service.ListCalendars(r.Context(), tok)
	if err != nil {
		writeGoogleError(w, "failed to list calendars", err)
		return
	}
	config.WriteSuccess(w, http.StatusOK, items, "")
}

// EventsHandler lists events of a calendar, primary by default
func (c Calendar) EventsHandler(w http.ResponseWriter, r *http.Request) {
	if !c.ready(w) {
		return
	}
	tok, ok := googleToken(w, r)
	if !ok {
		return
	}
	var q EventQuery
	if !decodeQuery(w, r, &q) {
		return
	}
	if q.CalendarID == "" {
		q.CalendarID = "primary"
	}
	items, err := c.Service.ListEvents(r.Context(), tok, q)
	if err != nil {
		writeGoogleError(w, "failed to list events", err)
		return
	}
	config.WriteSuccess(w, http.StatusOK, items, "")
}

func eventTime(s, tz string) (*calendar.EventDateTime, error) {
	s = strings.TrimSpace(s)
	if _, err := time.Parse("2006-01-02", s); err == nil {
		return &calendar.EventDateTime{Date: s, TimeZone: tz}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &calendar.EventDateTime{DateTime: t.Format(time.RFC3339), TimeZone: tz}, nil
}

func (req EventRequest) toEvent(requireTimes bool) (*calendar.Event, error) {
	ev := &calendar.Event{Summary: req.Summary, Description: req.Description, Location: req.Location}
	if requireTimes && (req.Start == "" || req.End == "") {
		return nil, errors.New("start and end are required")
	}
	if req.Start != "" {
		start, err := eventTime(req.Start, req.TimeZone)
		if err != nil {
			return nil, errors.New("invalid start")
		}
		ev.Start = start
	}
	if req.End != "" {
		end, err := eventTime(req.End, req.TimeZone)
		if err != nil {
			return nil, errors.New("invalid end")
		}
		ev.End = end
	}
	return ev, nil
}

func calendarID(r *http.Request) string {
	if id := r.URL.Query().Get("calendarId"); id != "" {
		return id
	}
	return "primary"
}

// CreateEventHandler creates an event
func (c Calendar) CreateEventHandler(w http.ResponseWriter, r *http.Request) {
	if !c.ready(w) {
		return
	}
	tok, ok := googleToken(w, r)
	if !ok {
		return
	}
	var req EventRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !requireFields(w, map[string]string{"summary": req.Summary}) {
		return
	}
	ev, err := req.toEvent(true)
	if err != nil {
		config.ErrorStatus(err.Error(), http.StatusBadRequest, w, nil)
		return
	}
	created, err := c.Service.CreateEvent(r.Context(), tok, calendarID(r), ev)
	if err != nil {
		writeGoogleError(w, "failed to create event", err)
		return
	}
	logging.FromContext(r.Context()).Infow("calendar event created", "eventId", created.Id)
	config.WriteSuccess(w, http.StatusCreated, created, "Event created successfully")
}

// UpdateEventHandler patches an event
func (c Calendar) UpdateEventHandler(w http.ResponseWriter, r *http.Request) {
	if !c.ready(w) {
		return
	}
	tok, ok := googleToken(w, r)
	if !ok {
		return
	}
	var req EventRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ev, err := req.toEvent(false)
	if err != nil {
		config.ErrorStatus(err.Error(), http.StatusBadRequest, w, nil)
		return
	}
	updated, err := c.Service.UpdateEvent(r.Context(), tok, calendarID(r), mux.Vars(r)["eventId"], ev)
	if err != nil {
		writeGoogleError(w, "failed to update event", err)
		return
	}
	config.WriteSuccess(w, http.StatusOK, updated, "Event updated successfully")
}

// DeleteEventHandler deletes an event
func (c Calendar) DeleteEventHandler(w http.ResponseWriter, r *http.Request) {
	if !c.ready(w) {
		return
	}
	tok, ok := googleToken(w, r)
	if !ok {
		return
	}
	if err := c.Service.DeleteEvent(r.Context(), tok, calendarID(r), mux.Vars(r)["eventId"]); err != nil {
		writeGoogleError(w, "failed to delete event", err)
		return
	}
	config.WriteSuccess(w, http.StatusOK, nil, "Event deleted successfully")
}
