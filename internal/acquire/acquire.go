// Package acquire turns a source description (inline bytes, a URL, a Google
// Drive share link or a Zotero attachment) into validated PDF bytes.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/Epistemic-Technology/pdf-splitter/internal/apperr"
	"github.com/Epistemic-Technology/pdf-splitter/internal/logger"
	"github.com/Epistemic-Technology/pdf-splitter/internal/pdf"
	"github.com/Epistemic-Technology/pdf-splitter/models"
)

const (
	DefaultTimeout  = 60 * time.Second
	DefaultMaxBytes = 200 << 20
)

// Fetcher retrieves the raw bytes for one kind of remote source.
type Fetcher interface {
	Fetch(ctx context.Context, source models.SourceInfo) ([]byte, error)
}

// Options configures an Acquirer.
type Options struct {
	Timeout   time.Duration
	MaxBytes  int64
	UserAgent string
	// RatePerSecond <= 0 disables throttling.
	RatePerSecond float64
	Burst         int

	ZoteroAPIKey    string
	ZoteroLibraryID string

	// HTTPClient is used by the URL and share-link fetchers. A client with
	// default settings is used when nil.
	HTTPClient *http.Client
}

// Acquirer resolves sources into validated documents. It is safe for
// concurrent use.
type Acquirer struct {
	fetchers map[models.SourceKind]Fetcher
	limiter  *rate.Limiter
	timeout  time.Duration
	log      logger.Logger
}

// New creates an Acquirer with the URL, Google Drive and Zotero fetchers
// registered.
func New(opts Options, log logger.Logger) *Acquirer {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}

	a := &Acquirer{
		fetchers: make(map[models.SourceKind]Fetcher),
		limiter:  rate.NewLimiter(limit, burst),
		timeout:  opts.Timeout,
		log:      log,
	}
	a.Register(models.SourceDirectURL, &HTTPFetcher{
		Client:    client,
		UserAgent: opts.UserAgent,
		MaxBytes:  opts.MaxBytes,
		Log:       log,
	})
	a.Register(models.SourceShareLink, &DriveFetcher{
		Client:    client,
		UserAgent: opts.UserAgent,
		MaxBytes:  opts.MaxBytes,
	})
	a.Register(models.SourceZotero, &ZoteroFetcher{
		APIKey:    opts.ZoteroAPIKey,
		LibraryID: opts.ZoteroLibraryID,
	})
	return a
}

// Register installs or replaces the fetcher for a source kind.
func (a *Acquirer) Register(kind models.SourceKind, f Fetcher) {
	a.fetchers[kind] = f
}

// Acquire fetches (if needed) and validates the document described by
// source. Remote fetches run under the configured timeout and are not
// aborted when ctx is cancelled.
func (a *Acquirer) Acquire(ctx context.Context, source models.SourceInfo) (*models.AcquiredDocument, error) {
	switch source.Populated() {
	case 0:
		return nil, apperr.Acquisition("no data provided", nil)
	case 1:
	default:
		return nil, apperr.Acquisition("multiple sources provided; supply exactly one of raw data, url or zotero id", nil)
	}

	kind := source.Kind()
	var data []byte
	if kind == models.SourceInline {
		data = source.RawData
	} else {
		var err error
		data, err = a.fetch(ctx, kind, source)
		if err != nil {
			return nil, err
		}
	}

	pageCount, err := pdf.PageCount(data)
	if err != nil {
		a.log.Warn("Rejected %s source: %v", kind, err)
		return nil, apperr.Acquisition("not a valid document", err)
	}

	a.log.Debug("Acquired %s document with %d pages (%d bytes)", kind, pageCount, len(data))
	return &models.AcquiredDocument{
		Data:      data,
		PageCount: pageCount,
		Source:    kind,
	}, nil
}

func (a *Acquirer) fetch(ctx context.Context, kind models.SourceKind, source models.SourceInfo) ([]byte, error) {
	fetcher, ok := a.fetchers[kind]
	if !ok {
		return nil, apperr.Acquisition(fmt.Sprintf("unsupported source: %s", kind), nil)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
	defer cancel()

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, apperr.Acquisition("timeout", err)
	}

	start := time.Now()
	data, err := fetcher.Fetch(ctx, source)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			a.log.Warn("Fetch of %s source timed out after %v", kind, time.Since(start))
			return nil, apperr.Acquisition("timeout", err)
		}
		a.log.Warn("Fetch of %s source failed: %v", kind, err)
		return nil, err
	}

	a.log.Info("Fetched %s source (%d bytes) in %v", kind, len(data), time.Since(start))
	return data, nil
}
