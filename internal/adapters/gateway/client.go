package gateway

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"paidreviews/internal/adapters/observability"
	"paidreviews/internal/domain"
)

// Client talks to the payments gateway REST API. Invoice creation and
// payment are wallet-scoped; address resolution is a plain lookup.
type Client struct {
	base string
	hc   *http.Client
	key  string
	rl   *rate.Limiter
}

func New(base, key string, rps int) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 20 * time.Second},
		key:  key,
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// ---- Public API ----

func (c *Client) CreateInvoice(ctx context.Context, wallet string, amount int64, memo string, extra map[string]any) (domain.Invoice, error) {
	body := map[string]any{
		"wallet_id": wallet,
		"amount":    amount,
		"memo":      memo,
		"extra":     extra,
	}
	var out struct {
		PaymentHash    string `json:"payment_hash"`
		PaymentRequest string `json:"payment_request"`
	}
	// A retried POST could double-issue an invoice; one attempt only.
	if err := c.do(ctx, http.MethodPost, c.base+"/v1/invoices", body, &out, 1); err != nil {
		return domain.Invoice{}, err
	}
	if out.PaymentHash == "" || out.PaymentRequest == "" {
		return domain.Invoice{}, fmt.Errorf("gateway returned incomplete invoice")
	}
	return domain.Invoice{PaymentHash: out.PaymentHash, PaymentRequest: out.PaymentRequest}, nil
}

func (c *Client) PayInvoice(ctx context.Context, wallet, paymentRequest string, maxAmount int64, description string) error {
	body := map[string]any{
		"wallet_id":   wallet,
		"bolt11":      paymentRequest,
		"max_amount":  maxAmount,
		"description": description,
	}
	// Same non-idempotency caveat as invoice creation.
	return c.do(ctx, http.MethodPost, c.base+"/v1/payments", body, nil, 1)
}

func (c *Client) ResolveAddress(ctx context.Context, address string, amountMsat int64) (string, error) {
	u := fmt.Sprintf("%s/v1/lnurl/resolve?address=%s&amount_msat=%d",
		c.base, url.QueryEscape(address), amountMsat)
	var out struct {
		PaymentRequest string `json:"payment_request"`
	}
	if err := c.do(ctx, http.MethodGet, u, nil, &out, 4); err != nil {
		return "", err
	}
	if out.PaymentRequest == "" {
		return "", fmt.Errorf("gateway returned empty payment request for %s", address)
	}
	return out.PaymentRequest, nil
}

// ---- Internals ----

var (
	ErrNotFound     = errors.New("gateway: not found")
	ErrUnauthorized = errors.New("gateway: unauthorized")
	ErrForbidden    = errors.New("gateway: forbidden")
)

// do performs a request with client-side rate limiting and JSON decode into
// out. GETs may be retried on 429 and transient 5xx (honoring Retry-After);
// callers of non-idempotent POSTs pass attempts=1.
func (c *Client) do(ctx context.Context, method, u string, body any, out any, attempts int) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = b
	}

	endpoint := endpointLabel(u)
	var lastErr error
	for i := 0; i < attempts; i++ {
		req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("X-API-Key", c.key)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("User-Agent", "paidreviews/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			observability.ObserveExternal("gateway", endpoint, 0, time.Since(start))
			lastErr = err
			if i < attempts-1 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal("gateway", endpoint, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK, http.StatusCreated, http.StatusAccepted:
			if out == nil {
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				return nil
			}
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			return err

		case http.StatusNoContent:
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil

		case http.StatusNotFound:
			resp.Body.Close()
			return ErrNotFound

		case http.StatusUnauthorized:
			resp.Body.Close()
			return ErrUnauthorized

		case http.StatusForbidden:
			resp.Body.Close()
			return ErrForbidden

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("gateway %d", resp.StatusCode)
			if i < attempts-1 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	return lastErr
}

// endpointLabel strips the query string for metric labels.
func endpointLabel(u string) string {
	if i := strings.IndexByte(u, '?'); i >= 0 {
		return u[:i]
	}
	return u
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns an exponential backoff delay with concurrency-safe jitter.
// i = retry attempt (0,1,2,...). Base doubles each attempt (200ms, 400ms, 800ms...),
// with up to +50% random jitter to avoid thundering herds.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	j := time.Duration(0.5 * f * float64(base))
	return base + j
}
