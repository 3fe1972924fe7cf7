package everest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"
)

// Fetch makes the artifact of src available locally and returns its path.
// Local sources are returned as is; remote ones are downloaded into dir.
// The returned cleanup function removes a downloaded file.
func (c *Client) Fetch(ctx context.Context, src Source, dir string) (string, func(), error) {
	if src.Path != "" {
		return src.Path, func() {}, nil
	}
	if src.URL == "" {
		return "", nil, errors.New("artifact source has no path or URL")
	}

	name := "artifact.zip"
	if src.Build != 0 {
		name = "everest-" + strconv.Itoa(src.Build) + ".zip"
	} else if base := path.Base(src.URL); base != "." && base != "/" && filepath.Ext(base) == ".zip" {
		name = base
	}
	dest := filepath.Join(dir, name)

	if err := c.DownloadToFile(ctx, src.URL, dest); err != nil {
		return "", nil, err
	}
	return dest, func() { os.Remove(dest) }, nil
}

// DownloadToFile downloads rawURL to destPath, retrying failed attempts
// with exponential backoff. Client errors (4xx) are not retried.
func (c *Client) DownloadToFile(ctx context.Context, rawURL, destPath string) error {
	var lastErr error

	for attempt := 0; attempt <= c.retries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if attempt > 0 {
			c.logger.Debug("retrying download", "url", rawURL, "attempt", attempt, "error", lastErr)
			select {
			case <-time.After(c.backoff(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := c.downloadOnce(ctx, rawURL, destPath)
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return ctx.Err()
		}
		var se *StatusError
		if errors.As(err, &se) && se.Code >= 400 && se.Code < 500 {
			return err
		}
	}

	return fmt.Errorf("download failed after %d retries: %w", c.retries, lastErr)
}

func (c *Client) downloadOnce(ctx context.Context, rawURL, destPath string) error {
	resp, err := c.do(ctx, rawURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}

	tmpPath := destPath + ".tmp"
	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	cleanupNeeded := true
	defer func() {
		tmpFile.Close()
		if cleanupNeeded {
			os.Remove(tmpPath)
		}
	}()

	var body io.Reader = resp.Body
	if c.progress != nil {
		var finish func()
		body, finish = c.progress(resp.Body, resp.ContentLength)
		defer finish()
	}

	if _, err := io.Copy(tmpFile, body); err != nil {
		return fmt.Errorf("copy response body: %w", err)
	}
	if resp.ContentLength > 0 {
		if info, err := tmpFile.Stat(); err == nil && info.Size() != resp.ContentLength {
			return fmt.Errorf("short download: got %d of %d bytes", info.Size(), resp.ContentLength)
		}
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}

	cleanupNeeded = false
	return nil
}
