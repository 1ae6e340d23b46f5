package source

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Fetched describes the local copy of a dataset.
type Fetched struct {
	Path    string
	Version string
	// Changed is false when the source reports the same version as the
	// previous Fetch.
	Changed bool
}

// Fetcher makes a dataset available on local disk.
type Fetcher interface {
	Fetch(ctx context.Context) (Fetched, error)
}

// S3Config holds credentials for s3:// sources.
type S3Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// Config selects and configures a Fetcher.
type Config struct {
	// URI is a local path, an http(s) URL or s3://bucket/key.
	URI string
	// CacheDir receives downloads of remote sources.
	CacheDir    string
	HTTPTimeout time.Duration
	S3          S3Config
}

// NewFetcher picks an implementation from the URI scheme.
func NewFetcher(ctx context.Context, cfg Config) (Fetcher, error) {
	u, err := url.Parse(cfg.URI)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// plain path, possibly with a Windows drive letter
		return NewFileFetcher(cfg.URI), nil
	}

	switch strings.ToLower(u.Scheme) {
	case "file":
		return NewFileFetcher(u.Path), nil
	case "http", "https":
		return NewHTTPFetcher(cfg.URI, cfg.CacheDir, HTTPClientConfig{
			Client:  newHTTPClient(cfg.HTTPTimeout),
			Backoff: DefaultBackoff,
		})
	case "s3":
		client, err := NewS3Client(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		return NewS3Fetcher(client, u.Host, strings.TrimPrefix(u.Path, "/"), cfg.CacheDir)
	}
	return nil, fmt.Errorf("unsupported dataset scheme %q", u.Scheme)
}

// downloadTarget is where a remote object named name is stored.
func downloadTarget(cacheDir, name string) (string, error) {
	if cacheDir == "" {
		cacheDir = os.TempDir()
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("create cache dir: %w", err)
	}
	base := filepath.Base(name)
	if base == "." || base == "/" || base == "" {
		base = "dataset.nc"
	}
	return filepath.Join(cacheDir, base), nil
}

// writeAtomically streams into a temporary file next to dst and renames
// it into place once complete.
func writeAtomically(dst string, write func(f *os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".*.part")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
