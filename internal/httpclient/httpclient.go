// Package httpclient builds the shared retryablehttp.Client used by
// the index cache, the mirror registry, and the downloader, so all
// three honor ZV_FETCH_TIMEOUT_SECS and retry/backoff the same way.
package httpclient

import (
	"io"
	"net/http"
	"time"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/zv-tools/zv/internal/logx"
)

// New returns a retryablehttp.Client configured with the given
// connect+headers timeout (spec.md §5: "every HTTP request uses
// ZV_FETCH_TIMEOUT_SECS for connect+headers"). Retries are capped at 2
// attempts beyond the first since mirror failover, not client-side
// retry, is the primary resilience mechanism (spec.md §4.5).
func New(timeout time.Duration) *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = 2
	c.RetryWaitMin = 200 * time.Millisecond
	c.RetryWaitMax = 2 * time.Second
	c.HTTPClient = &http.Client{Timeout: timeout}
	c.Logger = nil // routed through zap via RequestLogHook instead of the default stdlib logger
	c.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if attempt > 0 {
			logx.L().Debug("retrying HTTP request", zap.String("url", req.URL.String()), zap.Int("attempt", attempt))
		}
	}
	return c
}

// Get performs a GET request and returns the body bytes, closing the
// response body in all cases.
func Get(client *retryablehttp.Client, url string) ([]byte, *http.Response, error) {
	resp, err := client.Get(url)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp, err
	}
	return body, resp, nil
}
