package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"tdo/internal/apierr"
	"tdo/internal/logging"
)

// RequestIDHeader tags each outbound request for log correlation.
const RequestIDHeader = "X-Request-ID"

// RefreshFunc exchanges a refresh token for a new token pair against
// the backend's refresh endpoint. It must not go through Client.Do.
type RefreshFunc func(ctx context.Context, refreshToken string) (*oauth2.Token, error)

// Client dispatches credentialed requests. On a 401 it refreshes the
// token pair once and replays the original request once; a request is
// never refreshed twice. Concurrent 401s from parallel requests share
// a single in-flight refresh.
type Client struct {
	httpClient *http.Client
	store      Store
	refresh    RefreshFunc
	breaker    *gobreaker.CircuitBreaker
	group      singleflight.Group

	mu  sync.RWMutex
	tok *oauth2.Token
}

// NewClient creates a Client over store. refresh is invoked at most
// once per failed original request.
func NewClient(httpClient *http.Client, store Store, refresh RefreshFunc) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	c := &Client{
		httpClient: httpClient,
		store:      store,
		refresh:    refresh,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "todo-api",
		MaxRequests: 1,
		Timeout:     2 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Logger.Infof("circuit breaker %q changed from %s to %s", name, from, to)
		},
	})
	if tok, err := store.Load(); err == nil {
		c.tok = tok
	}
	return c
}

// Token returns the current token pair, or nil when anonymous.
func (c *Client) Token() *oauth2.Token {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tok
}

// Authenticated reports whether an access token is present.
func (c *Client) Authenticated() bool {
	tok := c.Token()
	return tok != nil && tok.AccessToken != ""
}

// SetToken stores a new token pair in memory and durable storage.
// An empty refresh token in tok keeps the previously stored one.
func (c *Client) SetToken(tok *oauth2.Token) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if tok.RefreshToken == "" && c.tok != nil {
		tok.RefreshToken = c.tok.RefreshToken
	}
	c.tok = tok
	return c.store.Save(tok)
}

// Clear removes both tokens from memory and durable storage.
// Idempotent: safe to call when already logged out.
func (c *Client) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tok = nil
	return c.store.Clear()
}

// TokenExpiry reports the access token's expiry from its exp claim,
// without verifying the signature. ok is false when no token is
// present or the token carries no expiry.
func (c *Client) TokenExpiry() (time.Time, bool) {
	tok := c.Token()
	if tok == nil || tok.AccessToken == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok.AccessToken, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Do sends the request with credentials attached. A 2xx response is
// returned with its body open; any 4xx/5xx is drained and returned as
// a ServerError, except a first 401 which triggers the refresh flow.
// Transport failures surface as NetworkError.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.do(req, 0)
}

// do carries an explicit attempt counter through the dispatch instead
// of marking the request itself. attempt > 0 means the request was
// already replayed once; a 401 then propagates without another refresh.
func (c *Client) do(req *http.Request, attempt int) (*http.Response, error) {
	c.attach(req)
	if req.Header.Get(RequestIDHeader) == "" {
		req.Header.Set(RequestIDHeader, uuid.NewString())
	}

	resp, err := c.send(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
		drain(resp)
		logging.Logger.WithField("request_id", req.Header.Get(RequestIDHeader)).
			Debug("got 401, refreshing session")
		if err := c.refreshOnce(req.Context()); err != nil {
			return nil, err
		}
		retry, err := cloneRequest(req)
		if err != nil {
			return nil, fmt.Errorf("replaying request: %w", err)
		}
		return c.do(retry, attempt+1)
	}

	if resp.StatusCode >= 400 {
		return nil, serverError(resp)
	}
	return resp, nil
}

// send pushes the request through the circuit breaker. Only transport
// failures count against the breaker; any HTTP response is a success.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	v, err := c.breaker.Execute(func() (any, error) {
		return c.httpClient.Do(req)
	})
	if err != nil {
		return nil, &apierr.NetworkError{Err: err}
	}
	return v.(*http.Response), nil
}

// attach adds the bearer token to the authorization header when an
// access token is present; anonymous requests are left untouched.
func (c *Client) attach(req *http.Request) {
	tok := c.Token()
	if tok != nil && tok.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	}
}

// refreshOnce performs a single refresh, shared across concurrent
// callers through a singleflight group so simultaneous 401s from
// parallel requests trigger exactly one refresh call. On failure both
// tokens are cleared and ErrSessionExpired is returned.
func (c *Client) refreshOnce(ctx context.Context) error {
	_, err, _ := c.group.Do("refresh", func() (any, error) {
		tok := c.Token()
		if tok == nil || tok.RefreshToken == "" {
			return nil, c.expire(errors.New("no refresh token"))
		}
		fresh, err := c.refresh(ctx, tok.RefreshToken)
		if err != nil {
			return nil, c.expire(err)
		}
		if err := c.SetToken(fresh); err != nil {
			return nil, fmt.Errorf("storing refreshed token: %w", err)
		}
		return nil, nil
	})
	return err
}

// expire clears both tokens and surfaces the hard session-expired
// condition. The token clearance is the one mandated side effect.
func (c *Client) expire(cause error) error {
	logging.Logger.WithError(cause).Info("session refresh failed, clearing tokens")
	if err := c.Clear(); err != nil {
		logging.Logger.WithError(err).Warn("clearing stored tokens")
	}
	return apierr.ErrSessionExpired
}

// cloneRequest rebuilds the request for the single replay, restoring
// the body from GetBody so it can be sent again.
func cloneRequest(req *http.Request) (*http.Request, error) {
	clone := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		clone.Body = body
	}
	return clone, nil
}

// serverError drains the response and builds a ServerError from the
// backend's {"message": ...} payload.
func serverError(resp *http.Response) error {
	defer resp.Body.Close()
	var payload struct {
		Message string `json:"message"`
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err == nil {
		_ = json.Unmarshal(body, &payload)
	}
	return &apierr.ServerError{Status: resp.StatusCode, Message: payload.Message}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	resp.Body.Close()
}
