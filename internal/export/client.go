// Package export ships finished match records to the downstream HTTP sink.
// Export is a best-effort step decoupled from the matching transaction: a
// transport failure is reported to the caller but never rolls back drawing
// mutations that already committed.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"pid-extract/internal/config"
	"pid-extract/internal/match"
)

// Client posts match record batches to a remote sink.
type Client struct {
	url    string
	settle time.Duration
	http   *http.Client
	log    *slog.Logger
}

// NewClient builds an export client from configuration. A nil logger falls
// back to the slog default.
func NewClient(cfg config.ExportConfig, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		url:    cfg.URL,
		settle: time.Duration(cfg.SettleDelayMS) * time.Millisecond,
		http: &http.Client{
			Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond,
		},
		log: log,
	}
}

// Send serializes the records as a list of flat mappings and posts them to
// the sink. It first waits the configured settle delay, giving the host
// document time to stabilize after the mutation batch. A non-2xx response is
// an error carrying the response body.
func (c *Client) Send(ctx context.Context, records []match.Record) error {
	if c.url == "" {
		return fmt.Errorf("export url not configured")
	}

	if c.settle > 0 {
		select {
		case <-time.After(c.settle):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	batch := make([]map[string]string, len(records))
	for i, r := range records {
		batch[i] = r.AsMap()
	}
	body, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("encode record batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build export request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("export request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("export rejected: %s: %s", resp.Status, respBody)
	}

	c.log.Info("exported record batch", "records", len(records), "status", resp.StatusCode)
	return nil
}
