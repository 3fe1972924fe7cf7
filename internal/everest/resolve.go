package everest

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Source is where an artifact comes from: a local file or a URL.
type Source struct {
	Path string
	URL  string
	// Build is the build number, zero when the source does not name one.
	Build int
}

func (s Source) String() string {
	switch {
	case s.Path != "":
		return s.Path
	case s.Build != 0:
		return fmt.Sprintf("build %d (%s)", s.Build, s.URL)
	default:
		return s.URL
	}
}

// Resolve turns a version spec into an artifact source. The spec may be a
// local zip file, an http(s) URL, a git ref ("refs/heads/dev"), a branch
// name, a build number or a version like "1.4465.0". An empty spec picks the
// newest build on branch, or the newest build of any branch when latest is
// set or branch is empty.
func (c *Client) Resolve(ctx context.Context, spec, branch string, latest bool) (Source, error) {
	if spec != "" {
		if info, err := os.Stat(spec); err == nil && info.Mode().IsRegular() {
			abs, err := filepath.Abs(spec)
			if err != nil {
				return Source{}, err
			}
			return Source{Path: abs}, nil
		}
		if isHTTPURL(spec) {
			return Source{URL: spec}, nil
		}
		if strings.HasPrefix(spec, "refs/") {
			build, err := c.LatestAzureBuild(ctx, spec)
			if err != nil {
				return Source{}, err
			}
			return Source{URL: c.AzureArtifactURL(build), Build: build}, nil
		}
	}

	builds, err := c.BuildList(ctx)
	if err != nil {
		return Source{}, err
	}

	if spec == "" {
		for _, b := range builds {
			if latest || branch == "" || b.Branch == branch {
				return buildSource(b), nil
			}
		}
		if latest || branch == "" {
			return Source{}, fmt.Errorf("%w: build list is empty", ErrBuildNotFound)
		}
		return Source{}, fmt.Errorf("%w: no build on branch %s", ErrBuildNotFound, branch)
	}

	for _, b := range builds {
		if b.Branch == spec {
			return buildSource(b), nil
		}
	}

	number, ok := parseBuildNumber(spec)
	if !ok {
		return Source{}, fmt.Errorf("%w: %q is not a branch, build number or version", ErrBuildNotFound, spec)
	}
	for _, b := range builds {
		if b.Version == number {
			return buildSource(b), nil
		}
	}
	return Source{}, fmt.Errorf("%w: %d", ErrBuildNotFound, number)
}

func buildSource(b Build) Source {
	return Source{URL: b.MainDownload, Build: b.Version}
}

// parseBuildNumber accepts "4465" or a version whose minor component is the
// build number, "1.4465.0".
func parseBuildNumber(spec string) (int, bool) {
	if n, err := strconv.Atoi(spec); err == nil {
		return n, n > 0
	}

	parts := strings.Split(spec, ".")
	if len(parts) < 2 || len(parts) > 4 {
		return 0, false
	}
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, false
		}
		nums[i] = n
	}
	if nums[0] != 1 || nums[1] == 0 {
		return 0, false
	}
	return nums[1], true
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
