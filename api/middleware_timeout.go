package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/chakshi/chakshi-api/models"
)

// QueryTimeout bounds a single repository call
const QueryTimeout = 10 * time.Second

// TimeoutMiddleware bounds each request. Handlers see the deadline on
// r.Context(); if it passes first the caller gets a 503 JSON envelope.
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	body, _ := json.Marshal(models.Response{
		Success: false,
		Message: "The request took too long to process",
		Error:   "request timeout",
	})
	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next
		}
		th := http.TimeoutHandler(next, timeout, string(body))
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// the timeout body is written straight to w; handler headers
			// replace this one on the normal path
			w.Header().Set("Content-Type", "application/json")
			th.ServeHTTP(w, r)
		})
	}
}

// WithQueryTimeout derives the context for one database call from the
// request context, so a query ends at whichever deadline comes first
func WithQueryTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, QueryTimeout)
}
