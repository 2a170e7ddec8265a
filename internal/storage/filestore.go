package storage

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Epistemic-Technology/pdf-splitter/internal/apperr"
	"github.com/Epistemic-Technology/pdf-splitter/internal/logger"
	"github.com/Epistemic-Technology/pdf-splitter/models"
)

const (
	namePrefix = "split_"
	nameSuffix = ".pdf"
)

// FileStore implements the Store interface as a flat directory. The
// directory listing is the index and each file's modification time is its
// creation time; there are no sidecar files.
type FileStore struct {
	root string
	log  logger.Logger
	now  func() time.Time
	name func(discriminator string) string
}

// NewFileStore creates the root directory if needed and returns a store
// over it.
func NewFileStore(root string, log logger.Logger) (*FileStore, error) {
	if root == "" {
		return nil, errors.New("storage root is required")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileStore{root: root, log: log, now: time.Now, name: newName}, nil
}

// DefaultRoot is the process-wide temporary directory used when no storage
// root is configured.
func DefaultRoot() string {
	return filepath.Join(os.TempDir(), "pdf_splitter")
}

// Root returns the directory the store writes to
func (s *FileStore) Root() string {
	return s.root
}

// Put writes content as split_<discriminator>_<token>.pdf. The file is
// created with O_EXCL so a name collision fails instead of clobbering.
func (s *FileStore) Put(content []byte, discriminator string) (string, error) {
	name := s.name(discriminator)
	path := filepath.Join(s.root, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", apperr.Storage("could not create artifact", err)
	}

	if _, err := f.Write(content); err != nil {
		f.Close()
		os.Remove(path)
		return "", apperr.Storage("could not write artifact", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", apperr.Storage("could not write artifact", err)
	}

	s.log.Debug("Stored artifact %s (%d bytes)", name, len(content))
	return name, nil
}

// Get looks up an artifact by name.
func (s *FileStore) Get(name string) (*models.StoredArtifact, error) {
	if !validName(name) || !isArtifactName(name) {
		return nil, apperr.NotFound(name)
	}

	path := filepath.Join(s.root, name)
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperr.NotFound(name)
	}
	if err != nil {
		return nil, apperr.Storage("could not stat artifact", err)
	}
	if !info.Mode().IsRegular() {
		return nil, apperr.NotFound(name)
	}

	return &models.StoredArtifact{
		Name:      name,
		Path:      path,
		CreatedAt: info.ModTime(),
		Size:      info.Size(),
	}, nil
}

// Open returns a reader over the artifact. The caller closes it.
func (s *FileStore) Open(name string) (io.ReadCloser, *models.StoredArtifact, error) {
	artifact, err := s.Get(name)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(artifact.Path)
	if errors.Is(err, fs.ErrNotExist) {
		// evicted between Get and Open
		return nil, nil, apperr.NotFound(name)
	}
	if err != nil {
		return nil, nil, apperr.Storage("could not open artifact", err)
	}
	return f, artifact, nil
}

// Sweep removes artifacts whose age exceeds maxAge. Each entry is stat'ed
// again right before deletion so files written after the directory listing
// are judged on their own timestamp. Entries that vanish mid-sweep are
// skipped. A failed delete leaves the file for the next pass.
func (s *FileStore) Sweep(maxAge time.Duration) (SweepResult, error) {
	var result SweepResult

	entries, err := os.ReadDir(s.root)
	if errors.Is(err, fs.ErrNotExist) {
		return result, nil
	}
	if err != nil {
		return result, apperr.Storage("could not list artifacts", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !isArtifactName(entry.Name()) {
			continue
		}
		result.Scanned++

		path := filepath.Join(s.root, entry.Name())
		info, err := os.Stat(path)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				s.log.Warn("Failed to stat %s during sweep: %v", entry.Name(), err)
			}
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		if s.now().Sub(info.ModTime()) <= maxAge {
			continue
		}

		if err := os.Remove(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			result.Failed++
			s.log.Warn("Failed to evict %s: %v", entry.Name(), err)
			continue
		}
		result.Removed++
	}

	if result.Removed > 0 || result.Failed > 0 {
		s.log.Info("Sweep removed %d of %d artifacts (%d failed)", result.Removed, result.Scanned, result.Failed)
	}
	return result, nil
}

// List returns all artifacts, oldest first.
func (s *FileStore) List() ([]models.StoredArtifact, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, apperr.Storage("could not list artifacts", err)
	}

	artifacts := make([]models.StoredArtifact, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !isArtifactName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		artifacts = append(artifacts, models.StoredArtifact{
			Name:      entry.Name(),
			Path:      filepath.Join(s.root, entry.Name()),
			CreatedAt: info.ModTime(),
			Size:      info.Size(),
		})
	}

	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].CreatedAt.Before(artifacts[j].CreatedAt)
	})
	return artifacts, nil
}

// LabelOf extracts the discriminator from an artifact name, e.g. "1-5" from
// "split_1-5_<token>.pdf". It returns "" for names the store did not make.
func LabelOf(name string) string {
	if !isArtifactName(name) {
		return ""
	}
	parts := strings.Split(strings.TrimSuffix(name, nameSuffix), "_")
	if len(parts) != 3 {
		return ""
	}
	return parts[1]
}

func newName(discriminator string) string {
	id := uuid.New()
	return namePrefix + sanitize(discriminator) + "_" + hex.EncodeToString(id[:]) + nameSuffix
}

// sanitize keeps the discriminator to [0-9A-Za-z-] so names stay flat and
// the "_" separators remain unambiguous.
func sanitize(discriminator string) string {
	var b strings.Builder
	for _, r := range discriminator {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	if b.Len() == 0 {
		return "pdf"
	}
	return b.String()
}

func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return false
	}
	return filepath.Base(name) == name
}

// isArtifactName limits sweeps and listings to files this store created,
// so a misconfigured root never loses unrelated files.
func isArtifactName(name string) bool {
	return strings.HasPrefix(name, namePrefix) && strings.HasSuffix(name, nameSuffix)
}

// Ensure FileStore implements Store interface
var _ Store = (*FileStore)(nil)
