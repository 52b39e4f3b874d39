package testutil

import (
	"net/http"
	"time"

	"visamatch/pkg/requestcontext"
)

// WithRequestID sets the request id the middleware would have assigned.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}

// WithRequestTime pins the request clock, e.g. to test verification expiry.
func WithRequestTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}
