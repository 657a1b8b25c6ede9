package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"paidreviews/internal/adapters/observability"
)

// Client fetches a hosted tag manifest: a JSON document listing tag names
// operators can auto-populate their allowed set from. Both a bare array
// ["coffee","tea"] and the wrapped form {"tags":[...]} are accepted.
type Client struct {
	url string
	hc  *http.Client
	rl  *rate.Limiter
}

func New(url string, rps int) *Client {
	if rps <= 0 {
		rps = 2
	}
	return &Client{
		url: url,
		hc:  &http.Client{Timeout: 10 * time.Second},
		rl:  rate.NewLimiter(rate.Limit(rps), rps),
	}
}

func (c *Client) FetchTags(ctx context.Context) ([]string, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "paidreviews/1.0")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("manifest", c.url, 0, time.Since(start))
		return nil, err
	}
	defer resp.Body.Close()
	observability.ObserveExternal("manifest", c.url, resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("manifest fetch: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	return parseTags(body)
}

func parseTags(body []byte) ([]string, error) {
	var bare []string
	if err := json.Unmarshal(body, &bare); err == nil {
		return cleanTags(bare), nil
	}
	var wrapped struct {
		Tags []string `json:"tags"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Tags != nil {
		return cleanTags(wrapped.Tags), nil
	}
	return nil, fmt.Errorf("manifest fetch: unrecognized payload")
}

func cleanTags(in []string) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
