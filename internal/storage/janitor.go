package storage

import (
	"context"
	"sync"
	"time"

	"github.com/Epistemic-Technology/pdf-splitter/internal/logger"
)

const DefaultSweepInterval = 5 * time.Minute

// Janitor runs Sweep in the background, on a timer and whenever Trigger is
// called. Triggers coalesce: while a sweep is pending, further triggers are
// dropped.
type Janitor struct {
	store    Store
	maxAge   time.Duration
	interval time.Duration
	log      logger.Logger

	trigger chan struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
}

// NewJanitor creates a janitor. It does nothing until Start is called.
func NewJanitor(store Store, maxAge, interval time.Duration, log logger.Logger) *Janitor {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Janitor{
		store:    store,
		maxAge:   maxAge,
		interval: interval,
		log:      log,
		trigger:  make(chan struct{}, 1),
	}
}

// Start launches the sweep loop. The first sweep runs immediately.
func (j *Janitor) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cancel != nil {
		return
	}

	ctx, j.cancel = context.WithCancel(ctx)
	j.wg.Add(1)
	go j.run(ctx)
}

// Stop ends the sweep loop and waits for an in-flight sweep to finish.
func (j *Janitor) Stop() {
	j.mu.Lock()
	cancel := j.cancel
	j.cancel = nil
	j.mu.Unlock()

	if cancel != nil {
		cancel()
		j.wg.Wait()
	}
}

// Trigger requests a sweep without waiting for it.
func (j *Janitor) Trigger() {
	if j == nil {
		return
	}
	select {
	case j.trigger <- struct{}{}:
	default:
	}
}

// SweepNow runs a sweep on the caller's goroutine.
func (j *Janitor) SweepNow() (SweepResult, error) {
	return j.store.Sweep(j.maxAge)
}

func (j *Janitor) run(ctx context.Context) {
	defer j.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.sweep()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.sweep()
		case <-j.trigger:
			j.sweep()
		}
	}
}

func (j *Janitor) sweep() {
	if _, err := j.store.Sweep(j.maxAge); err != nil {
		j.log.Warn("Background sweep failed: %v", err)
	}
}
