// internal/audio/sink.go
package audio

import "errors"

// ErrSinkClosed indicates a write call on an already-closed sink.
var ErrSinkClosed = errors.New("audio: sink closed")

// Sink is the generator's abstract audio output collaborator (spec.md §6
// "external interfaces"). Implementations receive fixed-size PCM buffers
// from the generator's consumer thread; Write must not retain buf beyond
// the call, mirroring MalgoCaptureSource's onRecvFrames contract where sample slices
// are only valid for the callback's duration.
type Sink interface {
	// Open prepares the sink for writes at the given sample rate and
	// channel count.
	Open(sampleRateHz uint32, channels uint32) error
	// Write blocks until buf has been consumed (played, discarded, or
	// buffered) by the sink.
	Write(buf []int16) error
	// PreferredBufferFrames is the frame count the sink would like each
	// Write call padded to (spec.md §4.5 "the sink call is always a full
	// buffer"); 0 means no preference.
	PreferredBufferFrames() uint32
	// Close releases any resources held by the sink. Idempotent.
	Close() error
}

// NullSink discards all audio; used for self-test harnesses and unit tests
// that exercise the generator pipeline without a real audio device.
type NullSink struct {
	sampleRate uint32
	channels   uint32
	closed     bool
	// WriteCount records the number of Write calls observed, useful for
	// assertions in tests.
	WriteCount int
	// TotalFrames records the cumulative frame count written.
	TotalFrames int
}

// NewNullSink constructs a NullSink.
func NewNullSink() *NullSink {
	return &NullSink{}
}

func (s *NullSink) Open(sampleRateHz, channels uint32) error {
	s.sampleRate, s.channels = sampleRateHz, channels
	s.closed = false
	return nil
}

func (s *NullSink) Write(buf []int16) error {
	if s.closed {
		return ErrSinkClosed
	}
	s.WriteCount++
	if s.channels == 0 {
		s.TotalFrames += len(buf)
	} else {
		s.TotalFrames += len(buf) / int(s.channels)
	}
	return nil
}

func (s *NullSink) PreferredBufferFrames() uint32 { return 0 }

func (s *NullSink) Close() error {
	s.closed = true
	return nil
}

// ConsoleBeeperSink prints a '.' to stdout for every buffer containing
// non-silent samples and a ' ' for a silent buffer, giving a crude visual
// trace of generator output without an audio backend. Grounded on the
// teacher's preference for fmt/log-based diagnostics over a GUI (spec.md
// §13 non-goal "GUI front-end").
type ConsoleBeeperSink struct {
	out    func(string)
	closed bool
}

// NewConsoleBeeperSink constructs a sink that writes through print.
func NewConsoleBeeperSink(print func(string)) *ConsoleBeeperSink {
	return &ConsoleBeeperSink{out: print}
}

func (s *ConsoleBeeperSink) Open(sampleRateHz, channels uint32) error {
	s.closed = false
	return nil
}

func (s *ConsoleBeeperSink) Write(buf []int16) error {
	if s.closed {
		return ErrSinkClosed
	}
	silent := true
	for _, v := range buf {
		if v != 0 {
			silent = false
			break
		}
	}
	if silent {
		s.out(" ")
	} else {
		s.out(".")
	}
	return nil
}

func (s *ConsoleBeeperSink) PreferredBufferFrames() uint32 { return 0 }

func (s *ConsoleBeeperSink) Close() error {
	s.closed = true
	return nil
}
