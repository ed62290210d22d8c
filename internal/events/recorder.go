// Package events wraps client-go's EventRecorder with reason/message
// de-duplication: repeated identical events for the same object within a
// rolling window are coalesced into one Event whose count increments,
// instead of spamming the API server with near-identical objects.
package events

import (
	"context"
	"sync"
	"time"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/client-go/tools/record"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// seriesWindow matches the window client-go's own event sink uses to
// decide whether two events are "the same" for aggregation purposes.
const seriesWindow = 6 * time.Minute

type seriesKey struct {
	uid     string
	reason  string
	message string
}

type seriesEntry struct {
	last  time.Time
	count int
}

// Recorder de-duplicates (reason, message) pairs per involved object
// before forwarding to the underlying record.EventRecorder.
type Recorder struct {
	inner record.EventRecorder

	mu     sync.Mutex
	series map[seriesKey]*seriesEntry
}

// NewRecorder wraps inner with de-duplication.
func NewRecorder(inner record.EventRecorder) *Recorder {
	return &Recorder{
		inner:  inner,
		series: make(map[seriesKey]*seriesEntry),
	}
}

// Warning records a Warning event, coalescing repeats of the same
// (reason, message) for the same object within the series window.
func (r *Recorder) Warning(object client.Object, reason, message string) {
	if !r.shouldEmit(string(object.GetUID()), reason, message) {
		return
	}
	r.inner.Event(object, corev1.EventTypeWarning, reason, message)
}

// Normal records a Normal event with the same de-duplication as Warning.
func (r *Recorder) Normal(object client.Object, reason, message string) {
	if !r.shouldEmit(string(object.GetUID()), reason, message) {
		return
	}
	r.inner.Event(object, corev1.EventTypeNormal, reason, message)
}

func (r *Recorder) shouldEmit(uid, reason, message string) bool {
	key := seriesKey{uid: uid, reason: reason, message: message}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	r.sweepLocked(now)

	entry, ok := r.series[key]
	if !ok {
		r.series[key] = &seriesEntry{last: now, count: 1}
		return true
	}
	entry.count++
	entry.last = now
	return false
}

// sweepLocked drops series entries that have aged out of the window.
// Callers must hold r.mu.
func (r *Recorder) sweepLocked(now time.Time) {
	for key, entry := range r.series {
		if now.Sub(entry.last) > seriesWindow {
			delete(r.series, key)
		}
	}
}

// Sweep evicts expired series entries. Intended to be called
// periodically (e.g. on the same cadence as the series window) so the
// map does not grow unbounded between emitted events.
func (r *Recorder) Sweep(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked(time.Now())
}
