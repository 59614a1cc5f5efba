package transport_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/cavsgen/internal/config"
	"github.com/TheMichaelB/cavsgen/internal/events"
	"github.com/TheMichaelB/cavsgen/internal/models"
	"github.com/TheMichaelB/cavsgen/internal/storage"
	"github.com/TheMichaelB/cavsgen/internal/transport"
)

const rspBody = "# CAVS 11.0\n# \"SHA-1 ShortMsg\" information\n\n[L = 20]\n\nLen = 0\nMsg = 00\nMD = da39a3ee5e6b4b0d3255bfef95601890afd80709\n"

func testLogger() *events.Logger {
	var buf bytes.Buffer
	return events.NewTestLogger(events.DebugLevel, "json", &buf)
}

func newClient(maxRetries int) *transport.HTTPClient {
	return transport.NewHTTPClient(&config.FetchConfig{
		Timeout:    5 * time.Second,
		MaxRetries: maxRetries,
		RetryDelay: 5 * time.Millisecond,
		UserAgent:  "cavsgen-test",
	}, testLogger())
}

func TestHTTPClientDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/SHA1ShortMsg.rsp", r.URL.Path)
		assert.Equal(t, "cavsgen-test", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(rspBody))
	}))
	defer server.Close()

	data, err := newClient(3).Download(context.Background(), server.URL+"/SHA1ShortMsg.rsp")
	require.NoError(t, err)
	assert.Equal(t, rspBody, string(data))
}

func TestHTTPClientRetry(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"service unavailable", http.StatusServiceUnavailable},
		{"too many requests", http.StatusTooManyRequests},
		{"internal error", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attempts int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if atomic.AddInt32(&attempts, 1) < 3 {
					w.WriteHeader(tt.status)
					return
				}
				_, _ = w.Write([]byte(rspBody))
			}))
			defer server.Close()

			data, err := newClient(3).Download(context.Background(), server.URL+"/f.rsp")
			require.NoError(t, err)
			assert.Equal(t, rspBody, string(data))
			assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
		})
	}
}

func TestHTTPClientRetriesExhausted(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newClient(2).Download(context.Background(), server.URL+"/f.rsp")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries exceeded")
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestHTTPClientNotFound(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		http.Error(w, "no such file", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newClient(3).Download(context.Background(), server.URL+"/missing.rsp")
	require.Error(t, err)

	var httpErr *models.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.True(t, httpErr.IsNotFound())
	assert.Contains(t, httpErr.Body, "no such file")
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestHTTPClientBodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(bytes.Repeat([]byte("a"), 100))
	}))
	defer server.Close()

	client := newClient(3)
	client.SetMaxBodySize(10)

	_, err := client.Download(context.Background(), server.URL+"/big.rsp")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")
}

func TestHTTPClientCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := transport.NewHTTPClient(&config.FetchConfig{
		Timeout:    5 * time.Second,
		MaxRetries: 10,
		RetryDelay: time.Second,
	}, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.Download(ctx, server.URL+"/f.rsp")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		input   string
		want    string
		wantErr bool
	}{
		{"absolute url", "", "https://example.org/v/SHA1ShortMsg.rsp", "https://example.org/v/SHA1ShortMsg.rsp", false},
		{"relative name", "https://example.org/vectors", "SHA1LongMsg.rsp", "https://example.org/vectors/SHA1LongMsg.rsp", false},
		{"base with slash", "https://example.org/vectors/", "SHA1LongMsg.rsp", "https://example.org/vectors/SHA1LongMsg.rsp", false},
		{"leading slash", "https://example.org/vectors", "/SHA1LongMsg.rsp", "https://example.org/vectors/SHA1LongMsg.rsp", false},
		{"no base", "", "SHA1LongMsg.rsp", "", true},
		{"unsupported scheme", "", "ftp://example.org/a.rsp", "", true},
		{"empty", "https://example.org", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := transport.ResolveURL(tt.base, tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := transport.ResolveURL("", "SHA1LongMsg.rsp")
	assert.ErrorIs(t, err, transport.ErrNoBaseURL)
}

type stubDownloader struct {
	bodies map[string][]byte
	urls   []string
}

func (s *stubDownloader) Download(ctx context.Context, url string) ([]byte, error) {
	s.urls = append(s.urls, url)
	if body, ok := s.bodies[url]; ok {
		return body, nil
	}
	return nil, &models.HTTPError{URL: url, StatusCode: http.StatusNotFound}
}

func TestFetcher(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewLocalStore(dir, testLogger())
	require.NoError(t, err)

	stub := &stubDownloader{bodies: map[string][]byte{
		"https://example.org/v/SHA1ShortMsg.rsp":     []byte(rspBody),
		"https://mirror.example.org/SHA1LongMsg.rsp": []byte("long"),
	}}

	fetcher := transport.NewFetcher(stub, store, "https://example.org/v", testLogger())

	results, err := fetcher.Fetch(context.Background(), []string{
		"SHA1ShortMsg.rsp",
		"https://mirror.example.org/SHA1LongMsg.rsp",
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "SHA1ShortMsg.rsp", results[0].Path)
	assert.Equal(t, len(rspBody), results[0].Size)
	assert.Equal(t, storage.Fingerprint([]byte(rspBody)), results[0].Fingerprint)
	assert.Equal(t, "SHA1LongMsg.rsp", results[1].Path)

	data, err := store.Read("SHA1ShortMsg.rsp")
	require.NoError(t, err)
	assert.Equal(t, rspBody, string(data))

	t.Run("stops at first failure", func(t *testing.T) {
		results, err := fetcher.Fetch(context.Background(), []string{"missing.rsp", "SHA1ShortMsg.rsp"})
		require.Error(t, err)
		assert.Empty(t, results)

		var httpErr *models.HTTPError
		assert.True(t, errors.As(err, &httpErr))
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := fetcher.Fetch(ctx, []string{"SHA1ShortMsg.rsp"})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
