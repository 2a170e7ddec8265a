package acquire

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Epistemic-Technology/pdf-splitter/internal/apperr"
	"github.com/Epistemic-Technology/pdf-splitter/internal/logger"
	"github.com/Epistemic-Technology/pdf-splitter/models"
)

// HTTPFetcher downloads a URL directly, following redirects, and buffers
// the whole body in memory.
type HTTPFetcher struct {
	Client    *http.Client
	UserAgent string
	MaxBytes  int64
	Log       logger.Logger
}

func (f *HTTPFetcher) Fetch(ctx context.Context, source models.SourceInfo) ([]byte, error) {
	resp, err := get(ctx, f.Client, source.URL, f.UserAgent)
	if err != nil {
		return nil, apperr.Acquisition(fmt.Sprintf("download failed: %v", err), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperr.Acquisition(fmt.Sprintf("download failed: HTTP %s", resp.Status), nil)
	}

	// The content type is only a hint; the document check decides.
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(strings.ToLower(ct), "application/pdf") && f.Log != nil {
		f.Log.Warn("URL may not be a PDF (Content-Type: %s)", ct)
	}

	data, err := readLimited(resp.Body, f.MaxBytes)
	if err != nil {
		return nil, apperr.Acquisition(fmt.Sprintf("download failed: %v", err), err)
	}
	return data, nil
}

func get(ctx context.Context, client *http.Client, url, userAgent string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	return client.Do(req)
}

func readLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("response exceeds %d bytes", maxBytes)
	}
	return data, nil
}
