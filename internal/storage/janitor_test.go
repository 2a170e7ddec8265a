package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Epistemic-Technology/pdf-splitter/internal/apperr"
	"github.com/Epistemic-Technology/pdf-splitter/internal/logger"
	"github.com/Epistemic-Technology/pdf-splitter/models"
)

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestJanitor_TriggerEvicts(t *testing.T) {
	store := newTestStore(t)
	janitor := NewJanitor(store, time.Hour, time.Hour, logger.NewNoOpLogger())
	janitor.Start(context.Background())
	defer janitor.Stop()

	name, err := store.Put([]byte("old"), "1-1")
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	age(t, store, name, 2*time.Hour)

	janitor.Trigger()

	gone := waitUntil(t, 5*time.Second, func() bool {
		_, err := store.Get(name)
		return errors.Is(err, apperr.ErrNotFound)
	})
	if !gone {
		t.Errorf("Triggered sweep did not evict %s", name)
	}
}

func TestJanitor_TriggerWithoutStartDoesNotBlock(t *testing.T) {
	store := newTestStore(t)
	janitor := NewJanitor(store, time.Hour, 0, logger.NewNoOpLogger())

	done := make(chan struct{})
	go func() {
		for range 10 {
			janitor.Trigger()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Trigger blocked")
	}

	var nilJanitor *Janitor
	nilJanitor.Trigger()
}

type failingStore struct {
	Store
	calls chan struct{}
}

func (f *failingStore) Sweep(time.Duration) (SweepResult, error) {
	f.calls <- struct{}{}
	return SweepResult{}, errors.New("disk on fire")
}

func (f *failingStore) List() ([]models.StoredArtifact, error) { return nil, nil }

func TestJanitor_SweepFailureDoesNotStopLoop(t *testing.T) {
	fs := &failingStore{calls: make(chan struct{}, 8)}
	janitor := NewJanitor(fs, time.Hour, time.Hour, logger.NewNoOpLogger())
	janitor.Start(context.Background())
	defer janitor.Stop()

	// initial sweep
	select {
	case <-fs.calls:
	case <-time.After(5 * time.Second):
		t.Fatal("Initial sweep did not run")
	}

	janitor.Trigger()
	select {
	case <-fs.calls:
	case <-time.After(5 * time.Second):
		t.Fatal("Loop stopped after a failed sweep")
	}
}
