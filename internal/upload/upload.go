// Package upload transfers a finished archive to a remote collector
// using the same two-step protocol as the original tool's
// transfer_archive: POST {dest}/new to obtain a Location header
// naming the real upload URL, then POST the archive body there. The
// client retries transient failures so a flaky remote collector
// doesn't lose a completed collection run.
package upload

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"
)

// Client wraps a retrying HTTP client configured for archive transfer.
type Client struct {
	http *retryablehttp.Client
}

// NewClient builds a Client with sensible retry defaults: up to
// maxRetries retries (maxRetries+1 attempts in all) with exponential
// backoff, logging through
// zerolog instead of retryablehttp's default stdlib logger.
func NewClient(maxRetries int) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = maxRetries
	rc.Logger = nil
	rc.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if attempt > 0 {
			log.Warn().Str("url", req.URL.String()).Int("attempt", attempt).Msg("retrying archive upload")
		}
	}
	return &Client{http: rc}
}

// Transfer uploads the archive read from r to dest, a remote
// collector's base URL.
func (c *Client) Transfer(dest string, size int64, r io.Reader) error {
	newResp, err := c.http.Post(dest+"/new", "application/octet-stream", http.NoBody)
	if err != nil {
		return fmt.Errorf("upload: request new session: %w", err)
	}
	newResp.Body.Close()

	location := newResp.Header.Get("Location")
	if location == "" {
		return fmt.Errorf("upload: response to /new carried no Location header")
	}

	req, err := retryablehttp.NewRequest(http.MethodPost, dest+location, r)
	if err != nil {
		return fmt.Errorf("upload: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.ContentLength = size

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("upload: transfer archive: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("upload: remote collector returned status %d", resp.StatusCode)
	}

	log.Info().Str("dest", dest).Int64("bytes", size).Dur("elapsed", time.Since(start)).Msg("archive uploaded")
	return nil
}
