package storage

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Epistemic-Technology/pdf-splitter/internal/apperr"
	"github.com/Epistemic-Technology/pdf-splitter/internal/logger"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "artifacts"), logger.NewNoOpLogger())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	return store
}

// age sets the artifact's modification time to d in the past.
func age(t *testing.T, store *FileStore, name string, d time.Duration) {
	t.Helper()
	when := time.Now().Add(-d)
	if err := os.Chtimes(filepath.Join(store.Root(), name), when, when); err != nil {
		t.Fatalf("Chtimes failed: %v", err)
	}
}

func TestPutAndGet(t *testing.T) {
	store := newTestStore(t)
	content := []byte("%PDF-1.4 test content")

	name, err := store.Put(content, "1-5")
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if !strings.HasPrefix(name, "split_1-5_") || !strings.HasSuffix(name, ".pdf") {
		t.Errorf("Unexpected name format: %s", name)
	}
	if got := LabelOf(name); got != "1-5" {
		t.Errorf("LabelOf(%s) = %q, want %q", name, got, "1-5")
	}

	artifact, err := store.Get(name)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if artifact.Size != int64(len(content)) {
		t.Errorf("Size = %d, want %d", artifact.Size, len(content))
	}

	rc, _, err := store.Open(name)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if !bytes.Equal(data, content) {
		t.Errorf("Stored content differs")
	}
}

func TestGet_NotFound(t *testing.T) {
	store := newTestStore(t)

	outside := filepath.Join(filepath.Dir(store.Root()), "secret.pdf")
	if err := os.WriteFile(outside, []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	names := []string{
		"",
		"split_1-1_missing.pdf",
		"../secret.pdf",
		"split_../../secret.pdf",
		"sub/split_1-1_x.pdf",
		"notes.txt",
	}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(name)
			if !errors.Is(err, apperr.ErrNotFound) {
				t.Errorf("Get(%q) error = %v, want not found", name, err)
			}
		})
	}
}

func TestPut_SanitizesDiscriminator(t *testing.T) {
	store := newTestStore(t)

	name, err := store.Put([]byte("x"), "../a_b c")
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if strings.ContainsAny(name, "/ ") || strings.Count(name, "_") != 2 {
		t.Errorf("Discriminator not sanitized: %s", name)
	}
	if _, err := os.Stat(filepath.Join(store.Root(), name)); err != nil {
		t.Errorf("Artifact not written inside root: %v", err)
	}

	name, err = store.Put([]byte("x"), "")
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if LabelOf(name) != "pdf" {
		t.Errorf("Empty discriminator produced %s", name)
	}
}

func TestPut_ConcurrentSameDiscriminator(t *testing.T) {
	store := newTestStore(t)
	const workers = 32

	names := make([]string, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			names[i], errs[i] = store.Put([]byte{byte(i)}, "1-5")
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for i, name := range names {
		if errs[i] != nil {
			t.Fatalf("Put %d failed: %v", i, errs[i])
		}
		if seen[name] {
			t.Fatalf("Duplicate name %s", name)
		}
		seen[name] = true

		rc, _, err := store.Open(name)
		if err != nil {
			t.Fatalf("Artifact %s not retrievable: %v", name, err)
		}
		data, _ := io.ReadAll(rc)
		rc.Close()
		if len(data) != 1 || data[0] != byte(i) {
			t.Errorf("Artifact %s holds %v, want [%d]", name, data, i)
		}
	}
}

func TestPut_CollisionDoesNotClobber(t *testing.T) {
	store := newTestStore(t)
	store.name = func(string) string { return "split_1-1_fixedtoken.pdf" }

	first, err := store.Put([]byte("original"), "1-1")
	if err != nil {
		t.Fatalf("First Put failed: %v", err)
	}

	_, err = store.Put([]byte("replacement"), "1-1")
	if !errors.Is(err, apperr.ErrStorage) {
		t.Fatalf("Expected storage error on collision, got %v", err)
	}

	rc, _, err := store.Open(first)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "original" {
		t.Errorf("Artifact holds %q, want %q", data, "original")
	}
}

func TestSweep_ConcurrentWithPut(t *testing.T) {
	store := newTestStore(t)
	const workers = 200

	stop := make(chan struct{})
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		for {
			select {
			case <-stop:
				return
			default:
			}
			if _, err := store.Sweep(time.Hour); err != nil {
				t.Errorf("Sweep failed: %v", err)
				return
			}
		}
	}()

	names := make([]string, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			names[i], errs[i] = store.Put([]byte{byte(i)}, "1-2")
		}(i)
	}
	wg.Wait()
	close(stop)
	<-sweepDone

	for i, name := range names {
		if errs[i] != nil {
			t.Fatalf("Put %d failed: %v", i, errs[i])
		}
		if _, err := store.Get(name); err != nil {
			t.Errorf("Fresh artifact %s lost during sweep: %v", name, err)
		}
	}
}

func TestSweep_StrictAgeBoundary(t *testing.T) {
	store := newTestStore(t)
	maxAge := time.Hour
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	name, err := store.Put([]byte("x"), "1-1")
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := os.Chtimes(filepath.Join(store.Root(), name), created, created); err != nil {
		t.Fatalf("Chtimes failed: %v", err)
	}

	store.now = func() time.Time { return created.Add(maxAge) }
	result, err := store.Sweep(maxAge)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if result.Removed != 0 {
		t.Errorf("Artifact aged exactly maxAge was evicted: %+v", result)
	}

	store.now = func() time.Time { return created.Add(maxAge + time.Nanosecond) }
	result, err = store.Sweep(maxAge)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if result.Removed != 1 {
		t.Errorf("Artifact older than maxAge survived: %+v", result)
	}
}

func TestSweep_EvictionBoundary(t *testing.T) {
	store := newTestStore(t)
	maxAge := time.Hour

	fresh, _ := store.Put([]byte("fresh"), "1-1")
	nearlyExpired, _ := store.Put([]byte("near"), "2-2")
	expired, _ := store.Put([]byte("old"), "3-3")

	age(t, store, nearlyExpired, maxAge-time.Minute)
	age(t, store, expired, maxAge+time.Minute)

	// Still retrievable before any sweep, even though logically expired.
	if _, err := store.Get(expired); err != nil {
		t.Fatalf("Expired artifact should stay retrievable until a sweep: %v", err)
	}

	result, err := store.Sweep(maxAge)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if result.Removed != 1 || result.Scanned != 3 {
		t.Errorf("SweepResult = %+v, want 1 removed of 3", result)
	}

	if _, err := store.Get(expired); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Expired artifact still present: %v", err)
	}
	for _, name := range []string{fresh, nearlyExpired} {
		if _, err := store.Get(name); err != nil {
			t.Errorf("Artifact %s evicted too early: %v", name, err)
		}
	}

	// Idempotent: a second pass finds nothing to do.
	result, err = store.Sweep(maxAge)
	if err != nil {
		t.Fatalf("Second sweep failed: %v", err)
	}
	if result.Removed != 0 || result.Failed != 0 {
		t.Errorf("Second SweepResult = %+v, want nothing removed", result)
	}
}

func TestSweep_IgnoresForeignFiles(t *testing.T) {
	store := newTestStore(t)

	foreign := filepath.Join(store.Root(), "keep-me.txt")
	if err := os.WriteFile(foreign, []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(foreign, old, old); err != nil {
		t.Fatalf("Chtimes failed: %v", err)
	}

	if _, err := store.Sweep(time.Hour); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if _, err := os.Stat(foreign); err != nil {
		t.Errorf("Sweep removed a file it did not create: %v", err)
	}
}

func TestSweep_MissingRoot(t *testing.T) {
	store := newTestStore(t)
	if err := os.RemoveAll(store.Root()); err != nil {
		t.Fatalf("RemoveAll failed: %v", err)
	}
	if _, err := store.Sweep(time.Hour); err != nil {
		t.Errorf("Sweep on missing root should be a no-op, got %v", err)
	}
}

func TestList(t *testing.T) {
	store := newTestStore(t)

	first, _ := store.Put([]byte("a"), "1-2")
	second, _ := store.Put([]byte("b"), "3-4")
	age(t, store, first, 10*time.Minute)

	artifacts, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(artifacts) != 2 {
		t.Fatalf("Expected 2 artifacts, got %d", len(artifacts))
	}
	if artifacts[0].Name != first || artifacts[1].Name != second {
		t.Errorf("List order = [%s %s], want oldest first", artifacts[0].Name, artifacts[1].Name)
	}
}

func TestLabelOf(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"split_15-20_abcdef.pdf", "15-20"},
		{"split_pdf_abcdef.pdf", "pdf"},
		{"upload_abcdef.pdf", ""},
		{"split_1-2.pdf", ""},
	}
	for _, tt := range tests {
		if got := LabelOf(tt.name); got != tt.expected {
			t.Errorf("LabelOf(%q) = %q, want %q", tt.name, got, tt.expected)
		}
	}
}
