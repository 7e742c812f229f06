// internal/dsp/bridge.go
// Bridges the Goertzel/AGC/hysteresis Detector to the edge-timestamp
// receiver (spec.md §10 "audio front-end"): a ToneEvent's rising edge
// becomes NotifyMarkBegin, its falling edge becomes NotifyMarkEnd, letting
// internal/receiver.Receiver consume microphone audio directly instead of
// terminating at a tone-event dead end.
package dsp

import "time"

// MarkNotifier is the minimal edge-consuming interface a Detector can
// drive; defined locally (rather than imported from internal/receiver) so
// dsp doesn't need to depend on the receiver package's full surface,
// mirroring internal/keybridge.MarkNotifier.
type MarkNotifier interface {
	NotifyMarkBegin(t time.Time) error
	NotifyMarkEnd(t time.Time) error
}

// BridgeToReceiver registers a callback on d that drives recv from tone
// events, forwarding any rejected edge (out-of-order, noise, overflow) to
// onError if set.
func BridgeToReceiver(d *Detector, recv MarkNotifier, onError func(error)) {
	d.SetCallback(func(event ToneEvent) {
		var err error
		if event.ToneOn {
			err = recv.NotifyMarkBegin(event.Timestamp)
		} else {
			err = recv.NotifyMarkEnd(event.Timestamp)
		}
		if err != nil && onError != nil {
			onError(err)
		}
	})
}
