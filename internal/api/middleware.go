package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const requestIDHeader = "X-Request-Id"

// Middleware wraps an http.RoundTripper. Chain applies middlewares in list
// order: the first middleware sees the request first.
type Middleware func(http.RoundTripper) http.RoundTripper

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func Chain(base http.RoundTripper, middlewares ...Middleware) http.RoundTripper {
	rt := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		rt = middlewares[i](rt)
	}
	return rt
}

func RequestID() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripFunc(func(req *http.Request) (*http.Response, error) {
			req = req.Clone(req.Context())
			if req.Header.Get(requestIDHeader) == "" {
				req.Header.Set(requestIDHeader, uuid.NewString())
			}
			return next.RoundTrip(req)
		})
	}
}

// BearerAuth injects the current credential when the session counts as
// authenticated, and always asks for a structured response. Pure
// augmentation, no failure mode of its own.
func BearerAuth(sess Session) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripFunc(func(req *http.Request) (*http.Response, error) {
			req = req.Clone(req.Context())
			if tok, ok := sess.Token(); ok {
				req.Header.Set("Authorization", "Bearer "+tok)
			}
			if req.Header.Get("Accept") == "" {
				req.Header.Set("Accept", "application/json")
			}
			return next.RoundTrip(req)
		})
	}
}

// RateLimit holds outbound requests to the configured budget.
func RateLimit(limiter *rate.Limiter) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripFunc(func(req *http.Request) (*http.Response, error) {
			if err := limiter.Wait(req.Context()); err != nil {
				return nil, err
			}
			return next.RoundTrip(req)
		})
	}
}

func Logging(log zerolog.Logger) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()

			resp, err := next.RoundTrip(req)

			event := log.Debug()
			if err != nil {
				event = log.Warn().Err(err)
			} else if resp.StatusCode >= 500 {
				event = log.Error()
			} else if resp.StatusCode >= 400 {
				event = log.Warn()
			}

			event = event.
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Dur("latency", time.Since(start)).
				Str("request_id", req.Header.Get(requestIDHeader))
			if resp != nil {
				event = event.Int("status", resp.StatusCode)
			}
			event.Msg("api request")

			return resp, err
		})
	}
}
