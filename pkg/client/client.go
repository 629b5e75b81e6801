// Package client is a Go SDK for the survey API.
//
// Every request whose URL contains "/api/" carries the session's bearer token.
// Non-2xx responses are returned as *APIError and logged with their status and
// body.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultTimeout = 15 * time.Second

// Client talks to the survey API.
type Client struct {
	baseURL string
	http    *http.Client
	session *Session
	logger  *zap.Logger

	Auth        *AuthService
	Users       *UsersService
	Campaigns   *CampaignsService
	Members     *MembersService
	Forms       *FormsService
	Sections    *SectionsService
	Questions   *QuestionsService
	Submissions *SubmissionsService
	Reports     *ReportsService
	Access      *Access
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger used for failed calls.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSession shares a session between clients.
func WithSession(session *Session) Option {
	return func(c *Client) {
		if session != nil {
			c.session = session
		}
	}
}

// New builds a client for baseURL, e.g. "http://localhost:8080/api".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		session: NewSession(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.Auth = &AuthService{client: c}
	c.Users = &UsersService{client: c}
	c.Campaigns = &CampaignsService{client: c}
	c.Members = &MembersService{client: c}
	c.Forms = &FormsService{client: c}
	c.Sections = &SectionsService{client: c}
	c.Questions = &QuestionsService{client: c}
	c.Submissions = &SubmissionsService{client: c}
	c.Reports = &ReportsService{client: c}
	c.Access = NewAccess(c)
	return c
}

// Session returns the client's session.
func (c *Client) Session() *Session {
	return c.session
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) endpoint(path string, query url.Values) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return target
}

// do sends a JSON request and decodes the envelope's data into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	raw, err := c.send(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	if out == nil || len(raw) == 0 {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s %s data: %w", method, path, err)
	}
	return nil
}

// send performs the request and returns the raw body of a 2xx response.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, body interface{}) ([]byte, error) {
	return c.sendTo(ctx, method, c.endpoint(path, query), body)
}

// origin returns scheme and host of the base URL, used to resolve
// server-relative links.
func (c *Client) origin() string {
	u, err := url.Parse(c.baseURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func (c *Client) sendTo(ctx context.Context, method, target string, body interface{}) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, target, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.Contains(target, "/api/") {
		if token, ok := c.session.Token(); ok {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("request failed", zap.String("method", method), zap.String("url", target), zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", method, target, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newAPIError(resp.StatusCode, raw)
		c.logger.Warn("request rejected",
			zap.String("method", method),
			zap.String("url", target),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", raw),
		)
		if resp.StatusCode == http.StatusUnauthorized {
			c.session.Clear()
		}
		return nil, apiErr
	}
	return raw, nil
}
