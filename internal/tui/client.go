package tui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/churchevent-ux/registerform--event-final/internal/presence"
)

// Client reads the admin API on behalf of the monitor.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	token   string
}

// NewClient creates a client; token may be empty until Login is called.
func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 10 * time.Second},
		token:   token,
	}
}

// Login exchanges operator credentials for an access token.
func (c *Client) Login(ctx context.Context, emailOrPhone, password string) error {
	body, _ := json.Marshal(map[string]string{"emailOrPhone": emailOrPhone, "password": password})
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/auth/login", bytes.NewReader(body), &resp); err != nil {
		return err
	}
	c.token = resp.AccessToken
	return nil
}

// Snapshot fetches the dashboard and today's break board.
func (c *Client) Snapshot(ctx context.Context) (Snapshot, error) {
	var s Snapshot
	if err := c.do(ctx, http.MethodGet, "/v1/dashboard", nil, &s.Dashboard); err != nil {
		return s, err
	}
	var breaks struct {
		Breaks []presence.BreakRow `json:"breaks"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/breaks", nil, &breaks); err != nil {
		return s, err
	}
	s.Breaks = breaks.Breaks
	return s, nil
}

func (c *Client) do(ctx context.Context, method, path string, body *bytes.Reader, out any) error {
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.BaseURL+path, nil)
	}
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: %s", method, path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
