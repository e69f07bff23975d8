// Package probe checks that a running server answers for a set of paths.
package probe

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Result is the outcome of probing one URL
type Result struct {
	URL          string        `json:"url"`
	Status       int           `json:"status"`
	Bytes        int           `json:"bytes"`
	ContentType  string        `json:"content_type,omitempty"`
	CacheControl string        `json:"cache_control,omitempty"`
	Latency      time.Duration `json:"latency"`
	Err          error         `json:"-"`
}

// OK reports whether the URL answered 200
func (r Result) OK() bool {
	return r.Err == nil && r.Status == http.StatusOK
}

// Prober issues HTTP checks against a running server
type Prober struct {
	client *resty.Client
}

// New creates a prober. Transport errors and 5xx responses are retried
// up to retries times.
func New(timeout time.Duration, retries int) *Prober {
	return &Prober{
		client: resty.New().
			SetTimeout(timeout).
			SetRetryCount(retries).
			SetRetryWaitTime(200 * time.Millisecond).
			SetRetryMaxWaitTime(2 * time.Second).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				return err != nil || r.StatusCode() >= http.StatusInternalServerError
			}),
	}
}

// Check fetches url and records what came back
func (p *Prober) Check(ctx context.Context, url string) Result {
	resp, err := p.client.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return Result{URL: url, Err: fmt.Errorf("failed to fetch %s: %w", url, err)}
	}

	return Result{
		URL:          url,
		Status:       resp.StatusCode(),
		Bytes:        len(resp.Body()),
		ContentType:  resp.Header().Get("Content-Type"),
		CacheControl: resp.Header().Get("Cache-Control"),
		Latency:      resp.Time(),
	}
}

// CheckAll concurrently probes each path under base. Results keep the order
// of paths; the error counts the paths that did not answer 200.
func (p *Prober) CheckAll(ctx context.Context, base string, paths []string) ([]Result, error) {
	base = strings.TrimRight(base, "/")
	results := make([]Result, len(paths))

	done := make(chan struct{}, len(paths))
	for i, path := range paths {
		go func(i int, u string) {
			results[i] = p.Check(ctx, u)
			done <- struct{}{}
		}(i, base+"/"+strings.TrimLeft(path, "/"))
	}
	for range paths {
		<-done
	}

	failed := 0
	for _, r := range results {
		if !r.OK() {
			failed++
		}
	}
	if failed > 0 {
		return results, fmt.Errorf("%d of %d paths failed", failed, len(paths))
	}

	return results, nil
}
