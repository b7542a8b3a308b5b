// Package client is a typed HTTP client for the travelboard API. It keeps
// the session cookie in a cookie jar, so one Client is one signed-in user.
//
// USAGE:
//
//	c, _ := client.New("http://localhost:8080", nil)
//	user, err := c.Login(ctx, "ann@example.com", password, false)
//	trips := client.NewCollection[model.Trip](c, model.CollectionTrips)
//	items, err := trips.List(ctx)
//
// ERRORS:
// A request that never got an answer wraps ErrUnavailable. A non-2xx answer
// is an *APIError that unwraps to the server's apperror sentinel, so
//
//	errors.Is(err, apperror.ErrNotFound)
//
// reads the same in the client as in the server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/sakif/travelboard/internal/apperror"
	"github.com/sakif/travelboard/internal/model"
)

const idempotencyHeader = "Idempotency-Key"

// ErrUnavailable wraps transport failures: the request never got an answer.
var ErrUnavailable = errors.New("server unavailable")

// APIError is a non-2xx answer decoded from the standard error body.
//
// It unwraps to the matching apperror sentinel, so callers can use
// errors.Is(err, apperror.ErrNotFound) on both sides of the wire.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: %d %s", e.Status, e.Code)
	}
	return fmt.Sprintf("api: %d %s: %s", e.Status, e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.Code {
	case "invalid_input":
		return apperror.ErrValidation
	case "duplicate_email":
		return apperror.ErrConflict
	case "auth_failure":
		return apperror.ErrAuthFailure
	case "unauthenticated":
		return apperror.ErrUnauthenticated
	case "not_found":
		return apperror.ErrNotFound
	}
	return nil
}

type Client struct {
	base *url.URL
	http *http.Client
}

// New returns a client for the API at baseURL. A nil httpClient gets a
// default one with a fresh cookie jar; a supplied client without a jar is
// given one.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("client: invalid base URL %q", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("client: creating cookie jar: %w", err)
		}
		httpClient.Jar = jar
	}
	return &Client{base: u, http: httpClient}, nil
}

// Register creates an account and signs this client in as it.
func (c *Client) Register(ctx context.Context, fullName, email, password string) (*model.User, error) {
	var u model.User
	err := c.do(ctx, http.MethodPost, "/api/auth/register", nil, map[string]string{
		"fullName": fullName,
		"email":    email,
		"password": password,
	}, &u)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Login signs this client in. remember asks for the long session lifetime.
// A wrong email or password is apperror.ErrAuthFailure.
func (c *Client) Login(ctx context.Context, email, password string, remember bool) (*model.User, error) {
	var u model.User
	err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, map[string]any{
		"email":      email,
		"password":   password,
		"rememberMe": remember,
	}, &u)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Logout ends the server session. The server clears the cookie as well.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil, nil)
}

// Me returns the signed-in user, or nil when the session is gone.
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var u *model.User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, nil, &u); err != nil {
		return nil, err
	}
	return u, nil
}

// Activity returns the signed-in user's recent activity, newest first.
func (c *Client) Activity(ctx context.Context) ([]model.Activity, error) {
	var feed []model.Activity
	if err := c.do(ctx, http.MethodGet, "/api/activity", nil, nil, &feed); err != nil {
		return nil, err
	}
	return feed, nil
}

// Collection is the remote side of one owner-scoped collection. It
// satisfies reconcile.Remote[T], which is how the dashboard reaches the
// server.
type Collection[T any] struct {
	c    *Client
	name string
}

// NewCollection addresses /api/{name} through c, e.g. name "trips".
func NewCollection[T any](c *Client, name string) *Collection[T] {
	return &Collection[T]{c: c, name: name}
}

// List returns the signed-in user's items in server order.
func (col *Collection[T]) List(ctx context.Context) ([]T, error) {
	var items []T
	if err := col.c.do(ctx, http.MethodGet, "/api/"+col.name, nil, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Create posts item. A non-empty idempotencyKey makes the call safe to
// retry: the server answers a repeat with the resource it already stored.
func (col *Collection[T]) Create(ctx context.Context, item T, idempotencyKey string) (T, error) {
	var created T
	header := http.Header{}
	if idempotencyKey != "" {
		header.Set(idempotencyHeader, idempotencyKey)
	}
	if err := col.c.do(ctx, http.MethodPost, "/api/"+col.name, header, item, &created); err != nil {
		return created, err
	}
	return created, nil
}

// Delete removes one item. An id the server does not know is
// apperror.ErrNotFound.
func (col *Collection[T]) Delete(ctx context.Context, id string) error {
	return col.c.do(ctx, http.MethodDelete, "/api/"+col.name+"/"+url.PathEscape(id), nil, nil, nil)
}

// do sends body as JSON (when non-nil) and decodes a 2xx answer into out
// (when non-nil). Any other status is returned as *APIError.
func (c *Client) do(ctx context.Context, method, path string, header http.Header, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: encoding request: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, rd)
	if err != nil {
		return fmt.Errorf("client: building request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil {
			apiErr.Code = strings.ReplaceAll(strings.ToLower(http.StatusText(resp.StatusCode)), " ", "_")
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decoding %s %s: %w", method, path, err)
	}
	return nil
}
