// Package everest talks to the framework's build distribution: the build
// list, Azure DevOps CI builds and the artifacts they publish.
package everest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultAzureBuildsURL lists CI builds of the framework.
	DefaultAzureBuildsURL = "https://dev.azure.com/EverestAPI/Everest/_apis/build/builds"

	// AzureBuildOffset is added to an Azure build id to get the build number.
	AzureBuildOffset = 700

	buildListCacheFile = "build_list.json"
	userAgent          = "mons/1.0"
)

// ErrBuildNotFound is returned when a version spec matches no build.
var ErrBuildNotFound = errors.New("build not found")

// Build is one entry of the build list.
type Build struct {
	Version     int    `json:"version"`
	Branch      string `json:"branch"`
	Author      string `json:"author,omitempty"`
	Description string `json:"description,omitempty"`
	Date        string `json:"date,omitempty"`

	MainDownload         string `json:"mainDownload"`
	MainFileSize         int64  `json:"mainFileSize,omitempty"`
	OlympusBuildDownload string `json:"olympusBuildDownload,omitempty"`
	OlympusMetaDownload  string `json:"olympusMetaDownload,omitempty"`
}

// HTTPClient is the subset of *http.Client used here.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ProgressFunc wraps a download body to report progress. The returned
// function is called once the body has been consumed.
type ProgressFunc func(r io.Reader, size int64) (io.Reader, func())

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h HTTPClient) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithUpdaterURL sets the URL of the file naming the build list location.
func WithUpdaterURL(u string) Option {
	return func(c *Client) { c.updaterURL = u }
}

// WithBuildListURL skips the updater lookup and fetches the list from u.
func WithBuildListURL(u string) Option {
	return func(c *Client) { c.buildListURL = u }
}

// WithAzureURL replaces the Azure DevOps builds endpoint.
func WithAzureURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.azureURL = strings.TrimRight(u, "/")
		}
	}
}

// WithCache keeps the build list in dir for ttl. A zero ttl disables the
// disk cache.
func WithCache(dir string, ttl time.Duration) Option {
	return func(c *Client) {
		c.cacheDir = dir
		c.cacheTTL = ttl
	}
}

// WithRetries sets how often a failed download is retried.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retries = n
		}
	}
}

// WithTimeout bounds every request made by the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if hc, ok := c.http.(*http.Client); ok && d > 0 {
			hc.Timeout = d
		}
	}
}

// WithProgress reports artifact download progress through fn.
func WithProgress(fn ProgressFunc) Option {
	return func(c *Client) { c.progress = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// Client fetches build metadata and artifacts.
type Client struct {
	http         HTTPClient
	updaterURL   string
	buildListURL string
	azureURL     string
	cacheDir     string
	cacheTTL     time.Duration
	retries      int
	progress     ProgressFunc
	logger       *slog.Logger

	backoff func(attempt int) time.Duration
	now     func() time.Time

	builds []Build
}

// NewClient creates a client. WithTimeout must follow WithHTTPClient to
// have an effect on a custom client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		http: &http.Client{
			Timeout: 5 * time.Minute,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		azureURL: DefaultAzureBuildsURL,
		retries:  3,
		logger:   slog.New(slog.DiscardHandler),
		backoff: func(attempt int) time.Duration {
			// 1s, 2s, 4s
			return time.Duration(1<<uint(attempt-1)) * time.Second
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BuildList returns the build list, newest first. It is served from memory,
// then from the disk cache while it is fresh, and fetched otherwise.
func (c *Client) BuildList(ctx context.Context) ([]Build, error) {
	if c.builds != nil {
		return c.builds, nil
	}

	if builds, ok := c.readCache(); ok {
		c.builds = builds
		return builds, nil
	}

	listURL := c.buildListURL
	if listURL == "" {
		if c.updaterURL == "" {
			return nil, errors.New("no build list or updater URL configured")
		}
		body, err := c.get(ctx, c.updaterURL)
		if err != nil {
			return nil, fmt.Errorf("failed to look up build list location: %w", err)
		}
		listURL = strings.TrimSpace(string(body))
	}

	c.logger.Debug("fetching build list", "url", listURL)
	body, err := c.get(ctx, listURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch build list: %w", err)
	}

	var builds []Build
	if err := json.Unmarshal(body, &builds); err != nil {
		return nil, fmt.Errorf("failed to decode build list: %w", err)
	}

	c.writeCache(body)
	c.builds = builds
	return builds, nil
}

func (c *Client) cachePath() string {
	if c.cacheDir == "" || c.cacheTTL <= 0 {
		return ""
	}
	return filepath.Join(c.cacheDir, buildListCacheFile)
}

func (c *Client) readCache() ([]Build, bool) {
	path := c.cachePath()
	if path == "" {
		return nil, false
	}

	info, err := os.Stat(path)
	if err != nil || c.now().Sub(info.ModTime()) >= c.cacheTTL {
		return nil, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var builds []Build
	if err := json.Unmarshal(data, &builds); err != nil {
		c.logger.Debug("ignoring unreadable build list cache", "path", path, "error", err)
		return nil, false
	}
	return builds, true
}

func (c *Client) writeCache(data []byte) {
	path := c.cachePath()
	if path == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		c.logger.Debug("cannot create cache directory", "error", err)
		return
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		os.Remove(tmp)
		c.logger.Debug("cannot write build list cache", "error", err)
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
	}
}

// LatestAzureBuild returns the newest successful CI build number for a git
// ref such as "refs/heads/dev" or "refs/pull/123/merge".
func (c *Client) LatestAzureBuild(ctx context.Context, ref string) (int, error) {
	if !strings.HasPrefix(ref, "refs/") {
		ref = "refs/heads/" + ref
	}

	q := url.Values{}
	q.Set("definitions", "3")
	q.Set("statusFilter", "completed")
	q.Set("resultFilter", "succeeded")
	q.Set("branchName", ref)
	q.Set("api-version", "6.0")
	q.Set("$top", "1")

	body, err := c.get(ctx, c.azureURL+"?"+q.Encode())
	if err != nil {
		return 0, fmt.Errorf("failed to query CI builds: %w", err)
	}

	var resp struct {
		Count int `json:"count"`
		Value []struct {
			ID int `json:"id"`
		} `json:"value"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("failed to decode CI builds: %w", err)
	}

	switch {
	case resp.Count < 1 || len(resp.Value) == 0:
		return 0, fmt.Errorf("%w: no successful build for %s", ErrBuildNotFound, ref)
	case resp.Count > 1:
		return 0, fmt.Errorf("unexpected number of builds: %d", resp.Count)
	}
	return resp.Value[0].ID + AzureBuildOffset, nil
}

// AzureArtifactURL returns the download URL of the olympus-build artifact
// of a CI build.
func (c *Client) AzureArtifactURL(build int) string {
	q := url.Values{}
	q.Set("artifactName", "olympus-build")
	q.Set("api-version", "6.0")
	q.Set("$format", "zip")
	return fmt.Sprintf("%s/%d/artifacts?%s", c.azureURL, build-AzureBuildOffset, q.Encode())
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	resp, err := c.do(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (c *Client) do(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &StatusError{URL: rawURL, Code: resp.StatusCode}
	}
	return resp, nil
}

// StatusError reports a non-200 response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d from %s", e.Code, e.URL)
}
