package analytics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	xhttp "FxDesk/pkg/http"
)

// HTTPServiceBase is the shared JSON POST plumbing for remote analysis services.
type HTTPServiceBase struct {
	baseURL string
	client  *xhttp.Client
	backoff time.Duration
}

func NewHTTPServiceBase(baseURL string, timeout, backoff time.Duration, opts ...xhttp.ClientOption) *HTTPServiceBase {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	return &HTTPServiceBase{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  xhttp.NewClient(append([]xhttp.ClientOption{xhttp.WithTimeout(timeout)}, opts...)...),
		backoff: backoff,
	}
}

func (b *HTTPServiceBase) PostJSON(ctx context.Context, path string, payload, dest interface{}) error {
	if b.client == nil || b.baseURL == "" {
		return errors.New("analysis service url not configured")
	}
	if err := b.client.PostJSON(ctx, b.baseURL+path, payload, dest); err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	return nil
}

// PostJSONWithRetry retries transient failures with linear backoff. Client
// errors (4xx other than 429) are returned immediately.
func (b *HTTPServiceBase) PostJSONWithRetry(ctx context.Context, path string, payload, dest interface{}, attempts int) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 1; i <= attempts; i++ {
		err = b.PostJSON(ctx, path, payload, dest)
		if err == nil || !xhttp.IsRetryable(err) || i == attempts {
			return err
		}
		select {
		case <-time.After(time.Duration(i) * b.backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
