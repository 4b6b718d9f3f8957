// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reliability

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pdiddy/search-gateway/pkg/types"
)

// queueSize bounds the persistence backlog. When full, updates are
// dropped rather than blocking the recorder.
const queueSize = 64

// DurableTracker wraps a Tracker and mirrors every update to a Store on
// a background worker. Persistence is best effort: a slow or failing
// store never blocks or fails the recording call, so the durable copy
// may lag the in-memory one.
type DurableTracker struct {
	*Tracker

	store *Store
	warn  io.Writer
	done  chan struct{}

	// qmu serializes queue sends against Close so a recording racing
	// with shutdown can never send on the closed channel.
	qmu    sync.Mutex
	queue  chan types.ProviderStats
	closed bool
}

// NewDurableTracker seeds a tracker from store and starts the mirror
// worker. Persistence warnings go to warn. Call Close to drain the
// queue and stop the worker; the store itself is not closed.
func NewDurableTracker(store *Store, warn io.Writer) (*DurableTracker, error) {
	tracker := NewTracker()

	seed, err := store.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("loading persisted stats: %w", err)
	}
	tracker.Seed(seed)

	d := &DurableTracker{
		Tracker: tracker,
		store:   store,
		queue:   make(chan types.ProviderStats, queueSize),
		done:    make(chan struct{}),
		warn:    warn,
	}
	go d.worker()
	return d, nil
}

// RecordSuccess records in memory and enqueues a snapshot for the
// mirror worker.
func (d *DurableTracker) RecordSuccess(provider string, elapsed time.Duration) {
	d.Tracker.RecordSuccess(provider, elapsed)
	d.enqueue(provider)
}

// RecordFailure records in memory and enqueues a snapshot for the
// mirror worker.
func (d *DurableTracker) RecordFailure(provider string, err error) {
	d.Tracker.RecordFailure(provider, err)
	d.enqueue(provider)
}

func (d *DurableTracker) enqueue(provider string) {
	snapshot, ok := d.GetStats(provider)
	if !ok {
		return
	}

	d.qmu.Lock()
	defer d.qmu.Unlock()
	if d.closed {
		// Shut down: the in-memory record is updated, the mirror is not.
		return
	}
	select {
	case d.queue <- snapshot:
	default:
		fmt.Fprintf(d.warn, "warning: stats queue full, dropping update for %s\n", provider)
	}
}

// Close stops accepting updates, drains anything already queued, and
// waits for the worker to finish. Idempotent; recordings concurrent
// with Close are kept in memory but may not be mirrored.
func (d *DurableTracker) Close() {
	d.qmu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.qmu.Unlock()
	<-d.done
}

func (d *DurableTracker) worker() {
	defer close(d.done)
	for snapshot := range d.queue {
		if err := d.store.Upsert(snapshot); err != nil {
			fmt.Fprintf(d.warn, "warning: persisting stats for %s: %v\n", snapshot.ProviderName, err)
		}
	}
}
