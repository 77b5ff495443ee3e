package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Client talks to one appliance over its HTTP API. It is not safe for
// concurrent use; runs process sites one at a time.
type Client struct {
	endpoint string
	hc       *http.Client
	token    string
}

// NewClient returns a client for the appliance at endpoint, e.g.
// "https://hq.example.com".
func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		hc:       &http.Client{Timeout: timeout},
	}
}

// Login exchanges credentials for the bearer token used by later calls.
func (c *Client) Login(ctx context.Context, username, password string) error {
	body, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return fmt.Errorf("encode login: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/login", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp struct {
		Token string `json:"token"`
	}
	if err := c.do(req, &resp); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if resp.Token == "" {
		return fmt.Errorf("login: empty token from %s", c.endpoint)
	}
	c.token = resp.Token
	return nil
}

// Recordings lists every recording the appliance holds. A single malformed
// entry rejects the whole listing so a run never acts on partial data.
func (c *Client) Recordings(ctx context.Context) ([]Recording, error) {
	var resp struct {
		Recordings []Recording `json:"recordings"`
	}
	if err := c.get(ctx, "/api/recordings", &resp); err != nil {
		return nil, err
	}
	for i, r := range resp.Recordings {
		if err := validateRecording(r); err != nil {
			return nil, fmt.Errorf("recordings[%d]: %w", i, err)
		}
	}
	return resp.Recordings, nil
}

// Users lists every user known to the appliance.
func (c *Client) Users(ctx context.Context) ([]User, error) {
	var resp struct {
		Users []User `json:"users"`
	}
	if err := c.get(ctx, "/api/users", &resp); err != nil {
		return nil, err
	}
	for i, u := range resp.Users {
		if u.ID <= 0 {
			return nil, fmt.Errorf("users[%d]: missing id", i)
		}
	}
	return resp.Users, nil
}

// Fetch takes one atomic snapshot of the site's directory. Both listings
// must succeed; otherwise the caller skips the site for this run.
func (c *Client) Fetch(ctx context.Context) (*Snapshot, error) {
	recs, err := c.Recordings(ctx)
	if err != nil {
		return nil, err
	}
	users, err := c.Users(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	log.Debug().Int("recordings", len(recs)).Int("users", len(users)).Msg("directory fetched")
	return &Snapshot{Recordings: recs, Users: byID, FetchedAt: time.Now().UTC()}, nil
}

func validateRecording(r Recording) error {
	switch {
	case r.ID <= 0:
		return fmt.Errorf("missing id")
	case r.CreatedAt <= 0:
		return fmt.Errorf("recording %d: missing createdAt", r.ID)
	case r.CameraCount < 0:
		return fmt.Errorf("recording %d: negative cameraCount", r.ID)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+path, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if err := c.do(req, out); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s: %s", resp.Status, bytes.TrimSpace(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
