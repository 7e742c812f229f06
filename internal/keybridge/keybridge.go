// internal/keybridge/keybridge.go
// Package keybridge implements C7, the bridge between a generator's tone
// playback and a receiver's edge-timestamp input: it converts tone
// start/end events into NotifyMarkBegin/NotifyMarkEnd calls, and provides a
// loopback wiring for self-test (spec.md §4.7, §6 "selftest").
//
// Grounded on the teacher's internal/dsp.Detector, which similarly bridges
// one real-time producer (audio samples) to a consumer's callback
// (ToneEvent) via an atomic.Pointer-held callback, invoked without
// allocation from the hot path.
package keybridge

import (
	"sync/atomic"
	"time"
)

// EdgeKind distinguishes the two edge types a key or tone transition
// produces.
type EdgeKind int

const (
	MarkBegin EdgeKind = iota
	MarkEnd
)

// EdgeCallback is invoked for every observed edge. Implementations must be
// non-blocking, mirroring the teacher's SampleCallback contract.
type EdgeCallback func(kind EdgeKind, at time.Time)

// Bridge holds a single registered EdgeCallback behind a lock-free atomic
// pointer, exactly as internal/dsp.Detector holds its ToneEvent callback.
type Bridge struct {
	cb atomic.Pointer[EdgeCallback]
}

// New constructs an empty Bridge.
func New() *Bridge {
	return &Bridge{}
}

// Register installs fn as the edge callback, replacing any previous one.
// Passing nil clears the callback.
func (b *Bridge) Register(fn EdgeCallback) {
	if fn == nil {
		b.cb.Store(nil)
		return
	}
	b.cb.Store(&fn)
}

// NotifyMarkBegin invokes the registered callback, if any, for a mark-begin
// edge at t.
func (b *Bridge) NotifyMarkBegin(t time.Time) {
	b.notify(MarkBegin, t)
}

// NotifyMarkEnd invokes the registered callback, if any, for a mark-end
// edge at t.
func (b *Bridge) NotifyMarkEnd(t time.Time) {
	b.notify(MarkEnd, t)
}

func (b *Bridge) notify(kind EdgeKind, t time.Time) {
	cbPtr := b.cb.Load()
	if cbPtr == nil {
		return
	}
	(*cbPtr)(kind, t)
}

// MarkNotifier is the subset of *receiver.Receiver a Bridge drives; kept as
// a narrow interface so keybridge doesn't import the receiver package
// directly.
type MarkNotifier interface {
	NotifyMarkBegin(t time.Time) error
	NotifyMarkEnd(t time.Time) error
}

// Loopback wires a Bridge's edges directly into a MarkNotifier, giving a
// generator-to-receiver self-test path with no audio hardware involved
// (spec.md §11 "selftest" subcommand). Errors from the notifier (e.g.
// out-of-order edges, noise suppression) are delivered to onError if set.
func Loopback(b *Bridge, recv MarkNotifier, onError func(error)) {
	b.Register(func(kind EdgeKind, at time.Time) {
		var err error
		switch kind {
		case MarkBegin:
			err = recv.NotifyMarkBegin(at)
		case MarkEnd:
			err = recv.NotifyMarkEnd(at)
		}
		if err != nil && onError != nil {
			onError(err)
		}
	})
}
