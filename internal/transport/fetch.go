package transport

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/TheMichaelB/cavsgen/internal/events"
	"github.com/TheMichaelB/cavsgen/internal/storage"
)

// ErrNoBaseURL is returned when a bare file name is fetched without a base URL.
var ErrNoBaseURL = errors.New("fetch.base_url is not configured")

// Downloader retrieves the body behind a URL.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// FetchResult describes one downloaded response file.
type FetchResult struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Path        string `json:"path"`
	Size        int    `json:"size"`
	Fingerprint string `json:"fingerprint"`
}

// Fetcher downloads response files into a local store.
type Fetcher struct {
	client  Downloader
	store   *storage.LocalStore
	baseURL string
	logger  *events.Logger
}

// NewFetcher creates a fetcher writing into store.
func NewFetcher(client Downloader, store *storage.LocalStore, baseURL string, logger *events.Logger) *Fetcher {
	return &Fetcher{
		client:  client,
		store:   store,
		baseURL: baseURL,
		logger:  logger.WithField("component", "fetcher"),
	}
}

// Fetch downloads each name in order. Names are absolute URLs or file names
// relative to the base URL. The first failure stops the run.
func (f *Fetcher) Fetch(ctx context.Context, names []string) ([]FetchResult, error) {
	results := make([]FetchResult, 0, len(names))

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		u, err := ResolveURL(f.baseURL, name)
		if err != nil {
			return results, err
		}

		target, err := fileName(u)
		if err != nil {
			return results, err
		}

		data, err := f.client.Download(ctx, u)
		if err != nil {
			return results, fmt.Errorf("download %s: %w", u, err)
		}

		if err := f.store.Write(target, data, 0644); err != nil {
			return results, fmt.Errorf("write %s: %w", target, err)
		}

		res := FetchResult{
			Name:        name,
			URL:         u,
			Path:        target,
			Size:        len(data),
			Fingerprint: storage.Fingerprint(data),
		}
		results = append(results, res)

		f.logger.WithFields(map[string]interface{}{
			"url":  u,
			"path": target,
			"size": len(data),
		}).Info("Fetched response file")
	}

	return results, nil
}

// ResolveURL returns name unchanged when it is an absolute http(s) URL and
// joins it onto base otherwise.
func ResolveURL(base, name string) (string, error) {
	if name == "" {
		return "", errors.New("empty file name")
	}

	if u, err := url.Parse(name); err == nil && u.IsAbs() {
		if u.Scheme != "http" && u.Scheme != "https" {
			return "", fmt.Errorf("unsupported URL scheme: %s", u.Scheme)
		}
		return u.String(), nil
	}

	if base == "" {
		return "", fmt.Errorf("%w: cannot resolve %q", ErrNoBaseURL, name)
	}

	joined, err := url.JoinPath(base, strings.TrimPrefix(name, "/"))
	if err != nil {
		return "", fmt.Errorf("join %q onto %q: %w", name, base, err)
	}
	return joined, nil
}

// fileName picks the local file name from the last URL path segment.
func fileName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse URL: %w", err)
	}

	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("no file name in URL: %s", rawURL)
	}
	return name, nil
}
