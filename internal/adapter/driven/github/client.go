// Package github implements the RemoteStore port using the go-github library.
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/ericfisherdev/promptvault/internal/codec"
	"github.com/ericfisherdev/promptvault/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RemoteStore = (*Client)(nil)

// Client implements the driven.RemoteStore port against the GitHub contents
// API.
type Client struct {
	gh *gh.Client
}

// NewClient creates a new GitHub API client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client with bearer auth)
//
// version is embedded in the User-Agent so backup traffic is identifiable.
func NewClient(token, version string) *Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	client := gh.NewClient(rateLimitClient).WithAuthToken(token)
	client.UserAgent = "promptvault/" + version

	return &Client{gh: client}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base
// URL. This constructor is intended for testing, allowing injection of an
// httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string) (*Client, error) {
	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	return &Client{gh: client}, nil
}

// GetFile fetches one object at path on ref and returns it with its content
// decoded from the API's transport encoding. Returns driven.ErrFileNotFound
// when the object does not exist.
func (c *Client) GetFile(ctx context.Context, repoFullName, path, ref string) (*driven.RemoteFile, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	opts := &gh.RepositoryContentGetOptions{Ref: ref}
	fileContent, _, resp, err := c.gh.Repositories.GetContents(ctx, owner, repo, path, opts)
	if err != nil {
		if isNotFound(resp, err) {
			return nil, fmt.Errorf("get %s from %s: %w", path, repoFullName, driven.ErrFileNotFound)
		}
		return nil, fmt.Errorf("get %s from %s: %w", path, repoFullName, err)
	}
	if fileContent == nil {
		return nil, fmt.Errorf("get %s from %s: path is a directory", path, repoFullName)
	}

	content, err := decodeContent(fileContent)
	if err != nil {
		return nil, fmt.Errorf("get %s from %s: %w", path, repoFullName, err)
	}

	return &driven.RemoteFile{
		Name:    fileContent.GetName(),
		Path:    fileContent.GetPath(),
		SHA:     fileContent.GetSHA(),
		Size:    fileContent.GetSize(),
		HTMLURL: fileContent.GetHTMLURL(),
		Content: content,
	}, nil
}

// PutFile creates the object when sha is empty, or updates it with the given
// content hash. A stale sha surfaces as driven.ErrSHAMismatch so callers can
// distinguish a lost-update race from other failures.
func (c *Client) PutFile(ctx context.Context, repoFullName, path, branch, message string, content []byte, sha string) (*driven.RemoteFile, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	opts := &gh.RepositoryContentFileOptions{
		Message: gh.Ptr(message),
		Content: content,
		Branch:  gh.Ptr(branch),
	}

	var result *gh.RepositoryContentResponse
	var resp *gh.Response
	if sha == "" {
		result, resp, err = c.gh.Repositories.CreateFile(ctx, owner, repo, path, opts)
	} else {
		opts.SHA = gh.Ptr(sha)
		result, resp, err = c.gh.Repositories.UpdateFile(ctx, owner, repo, path, opts)
	}
	if err != nil {
		if isSHAConflict(resp, err) {
			return nil, fmt.Errorf("put %s in %s: %w", path, repoFullName, driven.ErrSHAMismatch)
		}
		return nil, fmt.Errorf("put %s in %s: %w", path, repoFullName, err)
	}

	logRateLimit(resp, repoFullName+"/"+path, 1)

	return &driven.RemoteFile{
		Name:    result.Content.GetName(),
		Path:    result.Content.GetPath(),
		SHA:     result.Content.GetSHA(),
		Size:    result.Content.GetSize(),
		HTMLURL: result.Content.GetHTMLURL(),
	}, nil
}

// ListDir lists the objects directly under path on ref. Content is not
// populated; callers fetch individual files as needed.
func (c *Client) ListDir(ctx context.Context, repoFullName, path, ref string) ([]driven.RemoteFile, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	opts := &gh.RepositoryContentGetOptions{Ref: ref}
	_, dirContent, resp, err := c.gh.Repositories.GetContents(ctx, owner, repo, path, opts)
	if err != nil {
		if isNotFound(resp, err) {
			return nil, fmt.Errorf("list %s in %s: %w", path, repoFullName, driven.ErrFileNotFound)
		}
		return nil, fmt.Errorf("list %s in %s: %w", path, repoFullName, err)
	}

	logRateLimit(resp, repoFullName+"/"+path, len(dirContent))

	files := make([]driven.RemoteFile, 0, len(dirContent))
	for _, entry := range dirContent {
		if entry.GetType() != "file" {
			continue
		}
		files = append(files, driven.RemoteFile{
			Name:    entry.GetName(),
			Path:    entry.GetPath(),
			SHA:     entry.GetSHA(),
			Size:    entry.GetSize(),
			HTMLURL: entry.GetHTMLURL(),
		})
	}

	return files, nil
}

// CurrentUser returns the authenticated user's login. Used as the live
// connectivity probe behind Factory.IsConfigured.
func (c *Client) CurrentUser(ctx context.Context) (string, error) {
	user, resp, err := c.gh.Users.Get(ctx, "")
	if err != nil {
		return "", fmt.Errorf("fetching authenticated user: %w", err)
	}

	logRateLimit(resp, "user", 1)

	return user.GetLogin(), nil
}

// decodeContent reverses the contents API transport encoding. GitHub returns
// base64 for file blobs; empty encoding means the content came inline.
func decodeContent(fc *gh.RepositoryContent) ([]byte, error) {
	if fc.Content == nil {
		return nil, nil
	}

	raw := *fc.Content

	switch fc.GetEncoding() {
	case "base64":
		// The payload is newline-wrapped base64 of UTF-8 text.
		text, err := codec.Decode(strings.ReplaceAll(raw, "\n", ""))
		if err != nil {
			return nil, fmt.Errorf("decode content: %w", err)
		}
		return []byte(text), nil
	case "", "none":
		return []byte(raw), nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", fc.GetEncoding())
	}
}

// isNotFound reports whether the API response indicates a missing object.
func isNotFound(resp *gh.Response, err error) bool {
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return true
	}
	var ghErr *gh.ErrorResponse
	return errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound
}

// isSHAConflict reports whether an update was rejected for a stale content
// hash. GitHub answers 409 for sha mismatches and 422 when the sha is absent
// but the object exists.
func isSHAConflict(resp *gh.Response, err error) bool {
	status := 0
	if resp != nil {
		status = resp.StatusCode
	} else {
		var ghErr *gh.ErrorResponse
		if errors.As(err, &ghErr) && ghErr.Response != nil {
			status = ghErr.Response.StatusCode
		}
	}
	return status == http.StatusConflict || status == http.StatusUnprocessableEntity
}

// logRateLimit logs the GitHub API rate limit status after each call.
func logRateLimit(resp *gh.Response, endpoint string, count int) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}

// splitRepo splits a "owner/repo" string into its two components.
func splitRepo(fullName string) (string, string, error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo name %q: expected owner/repo", fullName)
	}
	return parts[0], parts[1], nil
}
