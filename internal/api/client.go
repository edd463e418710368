package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"abisal/client/internal/config"
)

// Session is the slice of the session store the pipeline needs: the
// credential to attach, and forced logout when the server rejects it.
type Session interface {
	Token() (string, bool)
	Logout(ctx context.Context) error
}

// Client mediates every call to the backend so credential injection and
// error normalization happen exactly once. Callers get either the decoded
// payload or one of the error kinds in errors.go, never a raw transport
// error.
type Client struct {
	base    string
	http    *http.Client
	session Session
	log     zerolog.Logger
}

// New builds a client with the standard middleware chain. Extra middlewares
// run after the defaults, closest to the wire.
func New(cfg config.APIConfig, rl config.RateLimitConfig, sess Session, log zerolog.Logger, extra ...Middleware) *Client {
	middlewares := []Middleware{
		RequestID(),
		RateLimit(rate.NewLimiter(rate.Limit(rl.RPS), rl.Burst)),
		BearerAuth(sess),
		Logging(log),
	}
	middlewares = append(middlewares, extra...)

	return &Client{
		base: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: Chain(http.DefaultTransport, middlewares...),
		},
		session: sess,
		log:     log,
	}
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, body, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, out)
}

func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &ServerError{Message: "could not encode request"}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return &ServerError{Message: "could not build request"}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Timeout: isTimeout(err), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Timeout: isTimeout(err), Err: err}
	}

	if resp.StatusCode >= 400 {
		return c.classify(ctx, resp.StatusCode, data)
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return &ServerError{Status: resp.StatusCode, Message: "unexpected response from server"}
		}
	}
	return nil
}

// errorBody covers both shapes the backend produces: a single error/message
// string, or an express-validator style list of field problems.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Errors  []struct {
		Path  string `json:"path"`
		Param string `json:"param"`
		Msg   string `json:"msg"`
	} `json:"errors"`
}

func (c *Client) classify(ctx context.Context, status int, data []byte) error {
	var body errorBody
	_ = json.Unmarshal(data, &body)

	msg := body.Error
	if msg == "" {
		msg = body.Message
	}

	if status == http.StatusUnauthorized {
		// Server-side revocation is not detectable by local expiry alone;
		// force the client back to a logged-out state before surfacing.
		if err := c.session.Logout(ctx); err != nil {
			c.log.Warn().Err(err).Msg("forced logout after 401 failed")
		}
		return &AuthError{Status: status, Message: msg}
	}

	if len(body.Errors) > 0 {
		fields := make([]FieldError, 0, len(body.Errors))
		for _, fe := range body.Errors {
			field := fe.Path
			if field == "" {
				field = fe.Param
			}
			fields = append(fields, FieldError{Field: field, Message: fe.Msg})
		}
		return &ValidationError{Status: status, Fields: fields}
	}

	return &ServerError{Status: status, Message: msg}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
