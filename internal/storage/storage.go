package storage

import (
	"io"
	"time"

	"github.com/Epistemic-Technology/pdf-splitter/models"
)

// Store defines the interface for the ephemeral artifact store that holds
// split PDFs until they age out.
type Store interface {
	// Put writes content under a new unique name built from discriminator
	// and returns that name. It never overwrites an existing artifact.
	Put(content []byte, discriminator string) (string, error)

	// Get returns the artifact stored under name, or a not-found error.
	// Age is not checked; an artifact stays retrievable until a sweep
	// removes it.
	Get(name string) (*models.StoredArtifact, error)

	// Open returns a reader over the artifact's bytes.
	Open(name string) (io.ReadCloser, *models.StoredArtifact, error)

	// Sweep removes every artifact older than maxAge.
	Sweep(maxAge time.Duration) (SweepResult, error)

	// List returns all artifacts currently in the store.
	List() ([]models.StoredArtifact, error)
}

// SweepResult summarises one eviction pass.
type SweepResult struct {
	Scanned int `json:"scanned"`
	Removed int `json:"removed"`
	Failed  int `json:"failed"`
}
