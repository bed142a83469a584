package snapshot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.yaml")
	require.NoError(t, os.WriteFile(path, []byte("game: {}\n"), 0o600))

	res, err := NewFetcher(t.TempDir()).Fetch(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "game: {}\n", string(res.Body))
	assert.False(t, res.FromCache)

	_, err = NewFetcher(t.TempDir()).Fetch(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = NewFetcher(t.TempDir()).Fetch(context.Background(), "")
	assert.Error(t, err)
}

func TestFetch_ConditionalAndFallback(t *testing.T) {
	var hits, revalidated atomic.Int32
	var down atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if down.Load() {
			http.Error(w, "maintenance", http.StatusServiceUnavailable)
			return
		}
		if r.Header.Get("If-None-Match") == `"v1"` {
			revalidated.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"game":{}}`))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	ctx := context.Background()
	url := srv.URL + "/snapshot?token=secret"

	first, err := f.Fetch(ctx, url)
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Equal(t, `{"game":{}}`, string(first.Body))
	assert.Equal(t, "application/json", first.ContentType)

	second, err := f.Fetch(ctx, url)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Body, second.Body)
	assert.Equal(t, "application/json", second.ContentType)
	assert.Equal(t, int32(1), revalidated.Load())

	down.Store(true)
	third, err := f.Fetch(ctx, url)
	require.NoError(t, err)
	assert.True(t, third.FromCache)
	assert.Equal(t, first.Body, third.Body)
	assert.Equal(t, int32(3), hits.Load())
}

func TestFetch_ErrorWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewFetcher(t.TempDir()).Fetch(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://example.com/...(redacted)", redactURL("https://example.com/private/abc?token=1"))
	assert.Equal(t, "http://host:8080/...(redacted)", redactURL("http://host:8080"))
	assert.Equal(t, "...(redacted)", redactURL("not a url"))
}
