// Package notify pushes run summaries to the configured sinks. Delivery
// failures never fail a run; the caller logs them and moves on.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kism/backup-ivs/internal/config"
	"github.com/kism/backup-ivs/internal/report"
)

// Event is the run summary every sink receives.
type Event struct {
	RunID       string    `json:"runId"`
	Outcome     string    `json:"outcome"`
	Sites       int       `json:"sites"`
	SitesFailed int       `json:"sitesFailed"`
	Recordings  int       `json:"recordings"`
	Transfers   int       `json:"transfers"`
	Errors      int       `json:"errors"`
	StartedAt   time.Time `json:"startedAt"`
	Duration    string    `json:"duration"`
}

// FromReport condenses a sealed report into an event.
func FromReport(r *report.Report) Event {
	return Event{
		RunID:       r.RunID,
		Outcome:     string(r.Outcome),
		Sites:       r.Sites,
		SitesFailed: r.SitesFailed,
		Recordings:  r.Recordings,
		Transfers:   r.Transfers,
		Errors:      len(r.Errors),
		StartedAt:   r.StartedAt,
		Duration:    r.Duration().Round(time.Second).String(),
	}
}

func (e Event) text() string {
	return fmt.Sprintf("backup-ivs run %s %s: %d/%d sites ok, %d recordings, %d transfers, %d errors in %s",
		e.RunID, e.Outcome, e.Sites-e.SitesFailed, e.Sites, e.Recordings, e.Transfers, e.Errors, e.Duration)
}

// Notifier delivers one event to one sink.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

var client = &http.Client{Timeout: 10 * time.Second}

// Webhook posts the event as raw JSON.
type Webhook struct {
	Name    string
	URL     string
	Headers map[string]string
}

func (w *Webhook) Notify(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("webhook %s: %w", w.Name, err)
	}
	return post(ctx, w.URL, w.Headers, body, "webhook "+w.Name)
}

// Mattermost posts a one-line text summary to an incoming webhook.
type Mattermost struct {
	Name string
	URL  string
}

func (m *Mattermost) Notify(ctx context.Context, ev Event) error {
	body, err := json.Marshal(map[string]string{"text": ev.text()})
	if err != nil {
		return fmt.Errorf("mattermost %s: %w", m.Name, err)
	}
	return post(ctx, m.URL, nil, body, "mattermost "+m.Name)
}

func post(ctx context.Context, url string, headers map[string]string, body []byte, label string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s: %s", label, resp.Status)
	}
	return nil
}

// Multi fans one event out to every sink and joins the failures.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FromConfig builds the sink list from configuration.
func FromConfig(cfg config.NotificationsConfig) Multi {
	var m Multi
	for _, w := range cfg.Webhooks {
		m = append(m, &Webhook{Name: w.Name, URL: w.URL, Headers: w.Headers})
	}
	for _, h := range cfg.Mattermost {
		m = append(m, &Mattermost{Name: h.Name, URL: h.URL})
	}
	return m
}
