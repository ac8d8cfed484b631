package proximity

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	// DEFAULT_HTTP_ATTEMPTS is number of tries for every remote request
	DEFAULT_HTTP_ATTEMPTS = 5
	// DEFAULT_HTTP_TIMEOUT is timeout of single remote request
	DEFAULT_HTTP_TIMEOUT = 10 * time.Second
)

// HTTPSource polls remote table service: cheap hash endpoint first and data endpoint only when hash changes.
//
// cityIO layout: hash at <table>/meta/hashes/GEOGRIDDATA, data at <table>/GEOGRIDDATA
type HTTPSource struct {
	hashURL  string
	dataURL  string
	client   *http.Client
	attempts uint
	initial  time.Duration

	mu       sync.Mutex
	lastHash string
}

// NewHTTPSource returns source for given endpoints
func NewHTTPSource(hashURL, dataURL string, options ...func(*HTTPSource)) *HTTPSource {
	src := &HTTPSource{
		hashURL:  hashURL,
		dataURL:  dataURL,
		client:   &http.Client{Timeout: DEFAULT_HTTP_TIMEOUT},
		attempts: DEFAULT_HTTP_ATTEMPTS,
		initial:  200 * time.Millisecond,
	}
	for _, option := range options {
		option(src)
	}
	return src
}

// NewCityIOSource returns HTTP source for cityIO table API base URL, e.g. https://cityio.media.mit.edu/api/table/corktown
func NewCityIOSource(tableURL string, options ...func(*HTTPSource)) *HTTPSource {
	return NewHTTPSource(tableURL+"/meta/hashes/GEOGRIDDATA", tableURL+"/GEOGRIDDATA", options...)
}

// WithHTTPClient sets client used for requests
func WithHTTPClient(client *http.Client) func(*HTTPSource) {
	return func(src *HTTPSource) {
		src.client = client
	}
}

// WithRetry sets number of attempts and initial backoff interval
func WithRetry(attempts uint, initial time.Duration) func(*HTTPSource) {
	return func(src *HTTPSource) {
		if attempts == 0 {
			attempts = 1
		}
		src.attempts = attempts
		src.initial = initial
	}
}

// Poll implements ConfigurationSource. Data endpoint is not requested when hash did not change.
func (src *HTTPSource) Poll(ctx context.Context) (*Configuration, bool, error) {
	hashBytes, err := src.get(ctx, src.hashURL)
	if err != nil {
		return nil, false, errors.Wrap(err, "Can't access configuration hash")
	}
	hash := string(bytes.TrimSpace(hashBytes))

	src.mu.Lock()
	same := hash == src.lastHash
	src.mu.Unlock()
	if same {
		return nil, false, nil
	}

	data, err := src.get(ctx, src.dataURL)
	if err != nil {
		return nil, false, errors.Wrap(err, "Can't access configuration data")
	}
	cfg, err := ParseConfiguration(data)
	if err != nil {
		return nil, false, err
	}

	src.mu.Lock()
	src.lastHash = hash
	src.mu.Unlock()
	return cfg, true, nil
}

func (src *HTTPSource) get(ctx context.Context, url string) ([]byte, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = src.initial
	operation := func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		resp, err := src.client.Do(req)
		if err != nil {
			zap.L().Debug("request failed", zap.String("url", url), zap.Error(err))
			return nil, err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("Got status %d from %s", resp.StatusCode, url)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, backoff.Permanent(fmt.Errorf("Got status %d from %s", resp.StatusCode, url))
		}
		return body, nil
	}
	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(src.attempts),
	)
}
