package assets_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/promptvault/internal/adapter/driven/assets"
	"github.com/ericfisherdev/promptvault/internal/worker"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"index.html": {Data: []byte("<html>shell</html>")},
		"app.css":    {Data: []byte("body{}")},
	}
}

func TestFetch_ServesLocalFile(t *testing.T) {
	f := assets.NewWithFS(testFS())

	resp, err := f.Fetch(context.Background(), worker.Request{Method: http.MethodGet, URL: "/app.css"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, []byte("body{}"), resp.Body)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/css")
}

func TestFetch_RootServesIndex(t *testing.T) {
	f := assets.NewWithFS(testFS())

	resp, err := f.Fetch(context.Background(), worker.Request{Method: http.MethodGet, URL: "/"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, []byte("<html>shell</html>"), resp.Body)
}

func TestFetch_MissingFileIs404NotError(t *testing.T) {
	f := assets.NewWithFS(testFS())

	resp, err := f.Fetch(context.Background(), worker.Request{Method: http.MethodGet, URL: "/nope.js"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Status)
}

func TestFetch_PathTraversalStaysInRoot(t *testing.T) {
	f := assets.NewWithFS(testFS())

	resp, err := f.Fetch(context.Background(), worker.Request{Method: http.MethodGet, URL: "/../../etc/passwd"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Status)
}

func TestFetch_AbsoluteURLProxiesUpstream(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/javascript")
		_, _ = w.Write([]byte("lib"))
	}))
	defer upstream.Close()

	f := assets.NewWithFS(testFS())

	resp, err := f.Fetch(context.Background(), worker.Request{Method: http.MethodGet, URL: upstream.URL + "/lib.js"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, []byte("lib"), resp.Body)
}
