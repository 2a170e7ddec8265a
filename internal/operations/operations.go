package operations

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/Epistemic-Technology/pdf-splitter/internal/apperr"
	"github.com/Epistemic-Technology/pdf-splitter/internal/logger"
	"github.com/Epistemic-Technology/pdf-splitter/internal/pdf"
	"github.com/Epistemic-Technology/pdf-splitter/internal/ranges"
	"github.com/Epistemic-Technology/pdf-splitter/internal/storage"
	"github.com/Epistemic-Technology/pdf-splitter/models"
)

// Acquirer resolves a source description into a validated document.
type Acquirer interface {
	Acquire(ctx context.Context, source models.SourceInfo) (*models.AcquiredDocument, error)
}

// Splitter runs split jobs. Every front end (HTTP, MCP, CLI) goes through
// RunSplit so they share one set of semantics.
type Splitter struct {
	acquirer Acquirer
	store    storage.Store
	janitor  *storage.Janitor
	log      logger.Logger
}

// NewSplitter wires a Splitter. janitor may be nil, in which case no
// eviction is requested around jobs.
func NewSplitter(acquirer Acquirer, store storage.Store, janitor *storage.Janitor, log logger.Logger) *Splitter {
	return &Splitter{
		acquirer: acquirer,
		store:    store,
		janitor:  janitor,
		log:      log,
	}
}

// Store returns the store the splitter writes to.
func (s *Splitter) Store() storage.Store {
	return s.store
}

// RunSplit acquires the document described by source, splits it along
// rangeInput and stores each part.
//
// Parameters:
//   - ctx: Context for the job; cancelling it does not abort a fetch in flight
//   - source: Exactly one of raw bytes, a URL or a Zotero attachment key
//   - rangeInput: Comma-separated ranges such as "1-5,8,10-12"
//
// Returns:
//   - manifest: One entry per produced file, in range order
//   - error: An *apperr.Error whose kind tells the caller how to report it
func (s *Splitter) RunSplit(ctx context.Context, source models.SourceInfo, rangeInput string) (*models.SplitManifest, error) {
	s.janitor.Trigger()
	defer s.janitor.Trigger()

	log := s.log.With("job", uuid.NewString())

	doc, err := s.acquirer.Acquire(ctx, source)
	if err != nil {
		log.Info("Acquisition failed: %v", err)
		return nil, err
	}

	spec := pdf.MatchRanges(ranges.Parse(rangeInput, doc.PageCount), doc.PageCount)
	if len(spec) == 0 {
		log.Info("No valid ranges in %q for a %d page document", rangeInput, doc.PageCount)
		return nil, apperr.NoValidRanges()
	}

	outputs, err := pdf.Split(doc.Data, spec)
	if err != nil {
		log.Error("Failed to split %s document: %v", doc.Source, err)
		return nil, err
	}
	if len(outputs) == 0 {
		return nil, apperr.NoValidRanges()
	}

	manifest := &models.SplitManifest{
		TotalPages: doc.PageCount,
		Files:      make([]models.SplitFile, 0, len(outputs)),
	}
	for _, out := range outputs {
		label := ranges.FormatLabel(out.Range)
		name, err := s.store.Put(out.Data, label)
		if err != nil {
			// Parts stored so far are left for the sweep.
			log.Error("Failed to store range %s: %v", label, err)
			return nil, err
		}
		manifest.Files = append(manifest.Files, models.SplitFile{
			Range:     label,
			Name:      name,
			Filename:  models.DownloadFilename(label),
			PageCount: out.PageCount,
		})
	}
	manifest.FileCount = len(manifest.Files)

	log.Info("Split %d page %s document into %d files (ranges %s)",
		doc.PageCount, doc.Source, manifest.FileCount, ranges.Format(spec))
	return manifest, nil
}

// Inspect acquires the document and reports its page count without storing
// anything.
func (s *Splitter) Inspect(ctx context.Context, source models.SourceInfo) (*models.AcquiredDocument, error) {
	doc, err := s.acquirer.Acquire(ctx, source)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Download opens a stored file along with the friendly filename derived
// from its range label. The caller closes the reader.
func (s *Splitter) Download(name string) (io.ReadCloser, *models.StoredArtifact, string, error) {
	rc, artifact, err := s.store.Open(name)
	if err != nil {
		return nil, nil, "", err
	}
	return rc, artifact, models.DownloadFilename(storage.LabelOf(name)), nil
}

// Describe renders a one-line summary of a manifest.
func Describe(manifest *models.SplitManifest) string {
	return fmt.Sprintf("Successfully split PDF into %d files.", manifest.FileCount)
}
