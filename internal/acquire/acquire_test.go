package acquire

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Epistemic-Technology/pdf-splitter/internal/apperr"
	"github.com/Epistemic-Technology/pdf-splitter/internal/logger"
	"github.com/Epistemic-Technology/pdf-splitter/internal/pdf/pdftest"
	"github.com/Epistemic-Technology/pdf-splitter/models"
)

func newTestAcquirer(opts Options) *Acquirer {
	return New(opts, logger.NewNoOpLogger())
}

func detailOf(err error) string {
	var e *apperr.Error
	if errors.As(err, &e) {
		return e.Detail
	}
	return ""
}

func TestAcquire_Inline(t *testing.T) {
	a := newTestAcquirer(Options{})

	doc, err := a.Acquire(context.Background(), models.SourceInfo{RawData: pdftest.Build(4)})
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if doc.PageCount != 4 {
		t.Errorf("PageCount = %d, want 4", doc.PageCount)
	}
	if doc.Source != models.SourceInline {
		t.Errorf("Source = %v, want inline", doc.Source)
	}
}

func TestAcquire_InvalidDescriptors(t *testing.T) {
	a := newTestAcquirer(Options{})

	tests := []struct {
		name   string
		source models.SourceInfo
		detail string
	}{
		{"empty", models.SourceInfo{}, "no data provided"},
		{"several", models.SourceInfo{RawData: []byte("x"), URL: "http://example.com/a.pdf"}, "multiple sources provided; supply exactly one of raw data, url or zotero id"},
		{"inline garbage", models.SourceInfo{RawData: []byte("<html>nope</html>")}, "not a valid document"},
		{"inline empty", models.SourceInfo{RawData: []byte{}}, "not a valid document"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Acquire(context.Background(), tt.source)
			if !errors.Is(err, apperr.ErrAcquisition) {
				t.Fatalf("Expected acquisition error, got %v", err)
			}
			if got := detailOf(err); got != tt.detail {
				t.Errorf("Detail = %q, want %q", got, tt.detail)
			}
		})
	}
}

func TestAcquire_DirectURL(t *testing.T) {
	doc := pdftest.Build(3)
	var userAgent atomic.Value

	mux := http.NewServeMux()
	mux.HandleFunc("/doc.pdf", func(w http.ResponseWriter, r *http.Request) {
		userAgent.Store(r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(doc)
	})
	mux.HandleFunc("/moved", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/doc.pdf", http.StatusFound)
	})
	mux.HandleFunc("/page.html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body>not a pdf</body></html>")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	a := newTestAcquirer(Options{UserAgent: "test-agent"})

	t.Run("ok", func(t *testing.T) {
		got, err := a.Acquire(context.Background(), models.SourceInfo{URL: srv.URL + "/doc.pdf"})
		if err != nil {
			t.Fatalf("Acquire failed: %v", err)
		}
		if got.PageCount != 3 || got.Source != models.SourceDirectURL {
			t.Errorf("Got %d pages from %v", got.PageCount, got.Source)
		}
		if ua, _ := userAgent.Load().(string); ua != "test-agent" {
			t.Errorf("User-Agent = %q", ua)
		}
	})

	t.Run("redirect followed", func(t *testing.T) {
		got, err := a.Acquire(context.Background(), models.SourceInfo{URL: srv.URL + "/moved"})
		if err != nil {
			t.Fatalf("Acquire failed: %v", err)
		}
		if got.PageCount != 3 {
			t.Errorf("PageCount = %d, want 3", got.PageCount)
		}
	})

	t.Run("not found", func(t *testing.T) {
		_, err := a.Acquire(context.Background(), models.SourceInfo{URL: srv.URL + "/missing.pdf"})
		if !errors.Is(err, apperr.ErrAcquisition) {
			t.Fatalf("Expected acquisition error, got %v", err)
		}
		if d := detailOf(err); !strings.HasPrefix(d, "download failed: HTTP 404") {
			t.Errorf("Detail = %q", d)
		}
	})

	t.Run("not a document", func(t *testing.T) {
		_, err := a.Acquire(context.Background(), models.SourceInfo{URL: srv.URL + "/page.html"})
		if d := detailOf(err); d != "not a valid document" {
			t.Errorf("Detail = %q, want not a valid document (err %v)", d, err)
		}
	})

	t.Run("transport failure", func(t *testing.T) {
		_, err := a.Acquire(context.Background(), models.SourceInfo{URL: "http://127.0.0.1:1/doc.pdf"})
		if d := detailOf(err); !strings.HasPrefix(d, "download failed: ") {
			t.Errorf("Detail = %q (err %v)", d, err)
		}
	})
}

func TestAcquire_SizeLimit(t *testing.T) {
	doc := pdftest.Build(2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(doc)
	}))
	defer srv.Close()

	a := newTestAcquirer(Options{MaxBytes: int64(len(doc) - 1)})
	_, err := a.Acquire(context.Background(), models.SourceInfo{URL: srv.URL})
	if d := detailOf(err); !strings.Contains(d, "exceeds") {
		t.Errorf("Detail = %q, want size limit error", d)
	}
}

func TestAcquire_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	a := newTestAcquirer(Options{Timeout: 100 * time.Millisecond})
	_, err := a.Acquire(context.Background(), models.SourceInfo{URL: srv.URL + "/slow.pdf"})
	if !errors.Is(err, apperr.ErrAcquisition) {
		t.Fatalf("Expected acquisition error, got %v", err)
	}
	if d := detailOf(err); d != "timeout" {
		t.Errorf("Detail = %q, want timeout", d)
	}
}

func TestAcquire_CallerCancellationDoesNotAbortFetch(t *testing.T) {
	doc := pdftest.Build(2)
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		time.Sleep(100 * time.Millisecond)
		w.Write(doc)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	a := newTestAcquirer(Options{})
	got, err := a.Acquire(ctx, models.SourceInfo{URL: srv.URL})
	if err != nil {
		t.Fatalf("Acquire failed after caller cancellation: %v", err)
	}
	if got.PageCount != 2 {
		t.Errorf("PageCount = %d, want 2", got.PageCount)
	}
}

type stubFetcher struct {
	data []byte
	err  error
}

func (s stubFetcher) Fetch(context.Context, models.SourceInfo) ([]byte, error) {
	return s.data, s.err
}

func TestAcquire_RegisteredFetcher(t *testing.T) {
	a := newTestAcquirer(Options{})
	a.Register(models.SourceShareLink, stubFetcher{data: pdftest.Build(5)})

	got, err := a.Acquire(context.Background(), models.SourceInfo{URL: "https://drive.google.com/file/d/abc/view"})
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if got.Source != models.SourceShareLink || got.PageCount != 5 {
		t.Errorf("Got %d pages from %v", got.PageCount, got.Source)
	}

	a.Register(models.SourceShareLink, stubFetcher{err: apperr.Acquisition("indirect download failed: boom", nil)})
	_, err = a.Acquire(context.Background(), models.SourceInfo{URL: "https://drive.google.com/file/d/abc/view"})
	if d := detailOf(err); d != "indirect download failed: boom" {
		t.Errorf("Detail = %q", d)
	}
}

func TestZoteroFetcher_MissingCredentials(t *testing.T) {
	a := newTestAcquirer(Options{})
	_, err := a.Acquire(context.Background(), models.SourceInfo{ZoteroID: "ABCD1234"})
	if d := detailOf(err); !strings.HasPrefix(d, "zotero download failed") {
		t.Errorf("Detail = %q", d)
	}
}
