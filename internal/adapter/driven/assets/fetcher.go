// Package assets serves the daemon's static files as the cache worker's
// origin. Same-origin requests read from the asset directory; absolute URLs
// are proxied upstream.
package assets

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/ericfisherdev/promptvault/internal/worker"
)

// Fetcher implements worker.Fetcher over a directory of static files.
type Fetcher struct {
	root       fs.FS
	httpClient *http.Client
}

var _ worker.Fetcher = (*Fetcher)(nil)

// New creates a Fetcher rooted at dir.
func New(dir string) *Fetcher {
	return &Fetcher{
		root:       os.DirFS(dir),
		httpClient: &http.Client{},
	}
}

// NewWithFS creates a Fetcher over an arbitrary filesystem. Used by tests.
func NewWithFS(fsys fs.FS) *Fetcher {
	return &Fetcher{root: fsys, httpClient: &http.Client{}}
}

// Fetch resolves one request. Relative URLs map to files under the asset
// root; absolute URLs go out over HTTP. A missing file is a 404 response,
// not an error.
func (f *Fetcher) Fetch(ctx context.Context, req worker.Request) (*worker.Response, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("parse url %q: %w", req.URL, err)
	}
	if u.Scheme != "" {
		return f.fetchRemote(ctx, req)
	}
	return f.fetchLocal(u.Path)
}

func (f *Fetcher) fetchLocal(urlPath string) (*worker.Response, error) {
	name := strings.TrimPrefix(path.Clean(urlPath), "/")
	if name == "" || name == "." {
		name = "index.html"
	}

	data, err := fs.ReadFile(f.root, name)
	if err != nil {
		return &worker.Response{Status: http.StatusNotFound, Source: "network"}, nil
	}

	header := http.Header{}
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		header.Set("Content-Type", ct)
	}

	return &worker.Response{
		Status: http.StatusOK,
		Header: header,
		Body:   data,
		Source: "network",
	}, nil
}

func (f *Fetcher) fetchRemote(ctx context.Context, req worker.Request) (*worker.Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &worker.Response{
		Status: resp.StatusCode,
		Header: resp.Header.Clone(),
		Body:   body,
		Source: "network",
	}, nil
}
