package acquire

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"mime"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/Epistemic-Technology/pdf-splitter/internal/apperr"
	"github.com/Epistemic-Technology/pdf-splitter/models"
)

const DriveBaseURL = "https://drive.google.com"

var (
	driveFilePath   = regexp.MustCompile(`/(?:file|document|presentation|spreadsheets)/d/([A-Za-z0-9_-]+)`)
	driveConfirmRef = regexp.MustCompile(`confirm=([0-9A-Za-z_-]+)`)
	driveFormTag    = regexp.MustCompile(`(?is)<form[^>]*id="download-form"[^>]*>(.*?)</form>`)
	driveFormAction = regexp.MustCompile(`(?is)<form[^>]*action="([^"]+)"`)
	driveHidden     = regexp.MustCompile(`(?is)<input[^>]*type="hidden"[^>]*name="([^"]+)"[^>]*value="([^"]*)"`)
)

// DriveFetcher resolves Google Drive share links. Drive hides large or
// unscanned files behind a "can't scan for viruses" page; the fetcher reads
// the confirmation token from that page and requests the file again.
type DriveFetcher struct {
	Client    *http.Client
	UserAgent string
	MaxBytes  int64
	// BaseURL overrides https://drive.google.com.
	BaseURL string
}

func (f *DriveFetcher) Fetch(ctx context.Context, source models.SourceInfo) ([]byte, error) {
	data, err := f.download(ctx, source.URL)
	if err != nil {
		var se *spoolError
		if errors.As(err, &se) {
			return nil, apperr.Acquisition("indirect download failed: could not buffer download", err)
		}
		return nil, apperr.Acquisition(fmt.Sprintf("indirect download failed: %v", err), err)
	}
	return data, nil
}

func (f *DriveFetcher) download(ctx context.Context, shareURL string) ([]byte, error) {
	id, err := DriveFileID(shareURL)
	if err != nil {
		return nil, err
	}

	client, err := f.clientWithJar()
	if err != nil {
		return nil, err
	}

	base := f.BaseURL
	if base == "" {
		base = DriveBaseURL
	}
	downloadURL := fmt.Sprintf("%s/uc?export=download&id=%s", strings.TrimRight(base, "/"), url.QueryEscape(id))

	for attempt := 0; attempt < 2; attempt++ {
		resp, err := get(ctx, client, downloadURL, f.UserAgent)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			resp.Body.Close()
			return nil, fmt.Errorf("HTTP %s", resp.Status)
		}

		if !isHTML(resp.Header.Get("Content-Type")) {
			data, err := f.spool(resp.Body)
			resp.Body.Close()
			return data, err
		}

		page, err := readLimited(resp.Body, 2<<20)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}

		next, ok := confirmURL(string(page), resp.Request.URL, client.Jar, id)
		if !ok {
			break
		}
		downloadURL = next
	}

	return nil, errors.New("file is not publicly downloadable")
}

// spoolError marks local buffering failures. Their messages name transient
// file paths, so callers only see a fixed detail.
type spoolError struct {
	err error
}

func (e *spoolError) Error() string { return e.err.Error() }
func (e *spoolError) Unwrap() error { return e.err }

// spool writes the body to a temporary file and reads it back. The file is
// removed whether or not reading succeeds.
func (f *DriveFetcher) spool(body io.Reader) ([]byte, error) {
	tmp, err := os.CreateTemp("", "pdf_splitter_drive_*.pdf")
	if err != nil {
		return nil, &spoolError{fmt.Errorf("failed to create transient file: %w", err)}
	}
	defer os.Remove(tmp.Name())

	maxBytes := f.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	n, err := io.Copy(tmp, io.LimitReader(body, maxBytes+1))
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, &spoolError{fmt.Errorf("failed to write transient file: %w", err)}
	}
	if n > maxBytes {
		return nil, fmt.Errorf("response exceeds %d bytes", maxBytes)
	}

	data, err := os.ReadFile(tmp.Name())
	if err != nil {
		return nil, &spoolError{fmt.Errorf("failed to read transient file: %w", err)}
	}
	return data, nil
}

func (f *DriveFetcher) clientWithJar() (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client := &http.Client{Jar: jar}
	if f.Client != nil {
		client.Transport = f.Client.Transport
		client.CheckRedirect = f.Client.CheckRedirect
		client.Timeout = f.Client.Timeout
	}
	return client, nil
}

// DriveFileID extracts the file id from the share link shapes Drive hands
// out: /file/d/<id>/view, /open?id=<id> and /uc?id=<id>.
func DriveFileID(shareURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(shareURL))
	if err != nil {
		return "", fmt.Errorf("invalid share link: %w", err)
	}
	if m := driveFilePath.FindStringSubmatch(u.Path); m != nil {
		return m[1], nil
	}
	if id := u.Query().Get("id"); id != "" {
		return id, nil
	}
	return "", errors.New("share link does not contain a file id")
}

// confirmURL finds the follow-up download URL on a Drive interstitial page.
func confirmURL(page string, pageURL *url.URL, jar http.CookieJar, id string) (string, bool) {
	if m := driveFormTag.FindStringSubmatch(page); m != nil {
		if a := driveFormAction.FindStringSubmatch(m[0]); a != nil {
			action, err := pageURL.Parse(html.UnescapeString(a[1]))
			if err == nil {
				q := action.Query()
				for _, input := range driveHidden.FindAllStringSubmatch(m[1], -1) {
					q.Set(html.UnescapeString(input[1]), html.UnescapeString(input[2]))
				}
				action.RawQuery = q.Encode()
				return action.String(), true
			}
		}
	}

	token := ""
	if jar != nil {
		for _, c := range jar.Cookies(pageURL) {
			if strings.HasPrefix(c.Name, "download_warning") {
				token = c.Value
				break
			}
		}
	}
	if token == "" {
		if m := driveConfirmRef.FindStringSubmatch(html.UnescapeString(page)); m != nil {
			token = m[1]
		}
	}
	if token == "" {
		return "", false
	}

	next := *pageURL
	next.Path = "/uc"
	next.RawQuery = url.Values{"export": {"download"}, "confirm": {token}, "id": {id}}.Encode()
	return next.String(), true
}

func isHTML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(strings.ToLower(contentType), "text/html")
	}
	return mediaType == "text/html"
}
