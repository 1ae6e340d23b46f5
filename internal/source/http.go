package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/i474232898/heat-stress-dashboard/internal/metrics"
)

// BackoffConfig controls exponential backoff behaviour.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultBackoff is used by NewFetcher for http(s) sources.
var DefaultBackoff = BackoffConfig{
	MaxRetries:      3,
	InitialInterval: 500 * time.Millisecond,
	MaxInterval:     5 * time.Second,
}

// HTTPClientConfig bundles HTTP client and resilience settings.
type HTTPClientConfig struct {
	Client  *http.Client
	Backoff BackoffConfig
}

var (
	errRateLimited   = errors.New("rate limited")
	errServerError   = errors.New("server error")
	errUnexpected    = errors.New("unexpected status code")
	errCircuitOpen   = errors.New("circuit breaker open")
	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid backoff configuration")
)

// newHTTPClient bounds connecting and waiting for response headers by
// timeout. The body transfer is bounded only by the request context.
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}).DialContext
	transport.TLSHandshakeTimeout = timeout
	transport.ResponseHeaderTimeout = timeout
	return &http.Client{Transport: transport}
}

// NewBreaker returns the circuit breaker settings shared by outbound calls.
func NewBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logrus.Warnf("circuit %s: %s -> %s", name, from, to)
		},
	})
}

// doRequestWithResilience executes the HTTP request with retries, exponential backoff,
// and a circuit breaker. 304 Not Modified counts as success.
func doRequestWithResilience(
	ctx context.Context,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	buildRequest func() (*http.Request, error),
) (*http.Response, error) {
	if cfg.Client == nil {
		return nil, errNoHTTPClient
	}
	if cfg.Backoff.MaxRetries < 0 || cfg.Backoff.InitialInterval <= 0 {
		return nil, errInvalidConfig
	}

	var attempt int
	var lastErr error

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		req, err := buildRequest()
		if err != nil {
			return nil, err
		}
		req = req.WithContext(ctx)

		result, err := cb.Execute(func() (interface{}, error) {
			resp, execErr := cfg.Client.Do(req)
			if execErr != nil {
				return nil, execErr
			}
			if resp.StatusCode == http.StatusNotModified || (resp.StatusCode >= 200 && resp.StatusCode < 300) {
				return resp, nil
			}

			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			switch {
			case resp.StatusCode == http.StatusTooManyRequests:
				return nil, errRateLimited
			case resp.StatusCode >= 500:
				return nil, errServerError
			}
			return nil, fmt.Errorf("%w: %d", errUnexpected, resp.StatusCode)
		})

		if err == nil {
			resp, ok := result.(*http.Response)
			if !ok {
				return nil, fmt.Errorf("unexpected result type from circuit breaker")
			}
			return resp, nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		// client errors other than 429 will not improve on retry
		if errors.Is(err, errUnexpected) {
			return nil, err
		}

		lastErr = err
		if attempt >= cfg.Backoff.MaxRetries {
			return nil, lastErr
		}

		delay := cfg.Backoff.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if delay > cfg.Backoff.MaxInterval && cfg.Backoff.MaxInterval > 0 {
			delay = cfg.Backoff.MaxInterval
		}
		logrus.Debugf("source: retrying %s in %s: %v", req.URL, delay, err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		attempt++
	}
}

// HTTPFetcher downloads a dataset over HTTP, revalidating with the
// previous ETag or Last-Modified.
type HTTPFetcher struct {
	url    string
	target string
	cfg    HTTPClientConfig
	cb     *gobreaker.CircuitBreaker

	mu           sync.Mutex
	etag         string
	lastModified string
	version      string
}

// NewHTTPFetcher downloads rawURL into cacheDir.
func NewHTTPFetcher(rawURL, cacheDir string, cfg HTTPClientConfig) (*HTTPFetcher, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	target, err := downloadTarget(cacheDir, u.Path)
	if err != nil {
		return nil, err
	}
	return &HTTPFetcher{
		url:    rawURL,
		target: target,
		cfg:    cfg,
		cb:     NewBreaker("dataset-http"),
	}, nil
}

// Fetch revalidates with the last ETag and Last-Modified and downloads on change.
func (f *HTTPFetcher) Fetch(ctx context.Context) (Fetched, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	resp, err := doRequestWithResilience(ctx, f.cfg, f.cb, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, f.url, nil)
		if err != nil {
			return nil, err
		}
		if f.version != "" {
			if _, statErr := os.Stat(f.target); statErr == nil {
				if f.etag != "" {
					req.Header.Set("If-None-Match", f.etag)
				}
				if f.lastModified != "" {
					req.Header.Set("If-Modified-Since", f.lastModified)
				}
			}
		}
		return req, nil
	})
	if err != nil {
		metrics.SourceFetchesTotal.WithLabelValues("http", "error").Inc()
		return Fetched{}, fmt.Errorf("fetch %s: %w", f.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		metrics.SourceFetchesTotal.WithLabelValues("http", "unchanged").Inc()
		return Fetched{Path: f.target, Version: f.version}, nil
	}

	err = writeAtomically(f.target, func(out *os.File) error {
		_, err := io.Copy(out, resp.Body)
		return err
	})
	if err != nil {
		metrics.SourceFetchesTotal.WithLabelValues("http", "error").Inc()
		return Fetched{}, fmt.Errorf("download %s: %w", f.url, err)
	}

	f.etag = resp.Header.Get("ETag")
	f.lastModified = resp.Header.Get("Last-Modified")
	version := f.etag
	if version == "" {
		version = f.lastModified
	}
	if version == "" {
		version = time.Now().UTC().Format(time.RFC3339Nano)
	}
	changed := version != f.version
	f.version = version

	metrics.SourceFetchesTotal.WithLabelValues("http", resultLabel(changed)).Inc()
	logrus.WithFields(logrus.Fields{"url": f.url, "path": f.target, "version": version}).Info("source: dataset downloaded")
	return Fetched{Path: f.target, Version: version, Changed: changed}, nil
}
