// Package remote reads records from an HTTP endpoint that returns a JSON
// array of objects, one per record.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"omzet/internal/core"
	"omzet/internal/source"
)

const (
	defaultTimeout     = 10 * time.Second
	defaultMaxAttempts = 3
	defaultBaseDelay   = 500 * time.Millisecond
	maxDelay           = 10 * time.Second
	maxBodyBytes       = 32 << 20
)

var _ source.RecordSource = (*Client)(nil)

// Config configures a Client. Zero values take defaults.
type Config struct {
	URL         string
	Mapping     source.FieldMapping
	Timeout     time.Duration // per attempt
	MaxAttempts int
	BaseDelay   time.Duration
	HTTPClient  *http.Client
}

type Client struct {
	url         string
	mapping     source.FieldMapping
	timeout     time.Duration
	maxAttempts int
	baseDelay   time.Duration
	http        *http.Client
	now         func() time.Time
}

// New returns a Client for cfg.URL.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("remote: missing URL")
	}
	if err := cfg.Mapping.Validate(); err != nil {
		return nil, fmt.Errorf("remote: %w", err)
	}
	c := &Client{
		url:         cfg.URL,
		mapping:     cfg.Mapping,
		timeout:     cfg.Timeout,
		maxAttempts: cfg.MaxAttempts,
		baseDelay:   cfg.BaseDelay,
		http:        cfg.HTTPClient,
		now:         time.Now,
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = defaultMaxAttempts
	}
	if c.baseDelay <= 0 {
		c.baseDelay = defaultBaseDelay
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	return c, nil
}

func (c *Client) Name() string { return "remote:" + c.url }

// Load fetches the endpoint, retrying transient failures with exponential
// backoff up to the configured number of attempts.
func (c *Client) Load(ctx context.Context) (core.Batch, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := backoff(c.baseDelay, attempt-1)
			slog.WarnContext(ctx, "Retrying remote source",
				"url", c.url, "attempt", attempt+1, "delay", delay, "error", lastErr)
			select {
			case <-ctx.Done():
				return core.Batch{}, source.Unavailable(c.Name(), ctx.Err())
			case <-time.After(delay):
			}
		}
		body, err := c.fetch(ctx)
		if err == nil {
			b, err := Parse(body, c.Name(), c.mapping)
			if err != nil {
				return core.Batch{}, source.Unavailable(c.Name(), err)
			}
			b.LoadedAt = c.now()
			if len(b.Rejected) > 0 {
				slog.WarnContext(ctx, "Remote source rejected records",
					"url", c.url, "rejected", len(b.Rejected), "accepted", len(b.Records))
			}
			return b, nil
		}
		lastErr = err
		if !retryable(err) {
			break
		}
	}
	return core.Batch{}, source.Unavailable(c.Name(), lastErr)
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

func (c *Client) fetch(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &statusError{code: resp.StatusCode}
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}

// retryable reports whether err is worth another attempt: network errors,
// per-attempt timeouts and 5xx/429 responses.
func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500 || se.code == http.StatusTooManyRequests
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}

// backoff returns base·2^attempt capped at maxDelay.
func backoff(base time.Duration, attempt int) time.Duration {
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= maxDelay {
			return maxDelay
		}
	}
	return d
}

// Parse reads a JSON array of record objects. Field names come from
// mapping; measures may be JSON numbers or numeric strings.
func Parse(body []byte, name string, mapping source.FieldMapping) (core.Batch, error) {
	if !gjson.ValidBytes(body) {
		return core.Batch{}, errors.New("malformed JSON")
	}
	root := gjson.ParseBytes(body)
	if !root.IsArray() {
		return core.Batch{}, fmt.Errorf("expected JSON array, got %s", root.Type)
	}

	in := source.NewIngester(name)
	root.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			in.Reject(fmt.Errorf("%w: element is %s, not an object", core.ErrMalformedRecord, item.Type))
			return true
		}
		ts, err := field(item, mapping.Timestamp, gjson.String)
		if err != nil {
			in.Reject(err)
			return true
		}
		cat, err := field(item, mapping.Category, gjson.String)
		if err != nil {
			in.Reject(err)
			return true
		}
		measure, err := field(item, mapping.Measure, gjson.Number)
		if err != nil {
			in.Reject(err)
			return true
		}
		in.Add(ts, cat, measure)
		return true
	})
	return in.Batch(time.Time{}), nil
}

// field returns the raw text of key. Strings are always allowed; numbers
// only where want is gjson.Number, keeping their exact JSON digits.
func field(item gjson.Result, key string, want gjson.Type) (string, error) {
	v := item.Get(gjson.Escape(key))
	switch {
	case !v.Exists():
		return "", fmt.Errorf("%w: missing field %q", core.ErrMalformedRecord, key)
	case v.Type == gjson.String:
		return v.Str, nil
	case v.Type == gjson.Number && want == gjson.Number:
		return v.Raw, nil
	default:
		return "", fmt.Errorf("%w: field %q has type %s", core.ErrMalformedRecord, key, v.Type)
	}
}
