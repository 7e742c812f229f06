// internal/sine/sine.go
// Package sine renders PCM samples for a tone with a shaped rising/falling
// slope, preserving phase across tones so concatenated tones at the same
// frequency don't click (spec.md §4.5).
//
// Grounded on the per-character PCM pre-rendering in the pack's
// pavelanni-morse-go example (math.Sin-based tone generation), generalized
// here to slope-shaped amplitude envelopes and persistent phase rather than
// one-shot, unshaped tones.
package sine

import (
	"errors"
	"math"
)

// Shape selects the slope envelope applied to the rising/falling edges of a
// tone.
type Shape int

const (
	Linear Shape = iota
	RaisedCosine
	Sine
	Rectangular
)

// Portion selects which part of a tone's edges, if any, should be shaped.
type Portion int

const (
	PortionStandard Portion = iota // both edges shaped
	PortionNone                    // neither edge shaped
	PortionRisingOnly
	PortionFallingOnly
)

var (
	// ErrInvalidSampleRate indicates a non-positive sample rate.
	ErrInvalidSampleRate = errors.New("sine: sample rate must be positive")
	// ErrInvalidSlopeLength indicates a negative slope length.
	ErrInvalidSlopeLength = errors.New("sine: slope length must be non-negative")
)

// MaxPCM16 is the full-scale amplitude for 16-bit signed PCM output.
const MaxPCM16 = 32767.0

// Synth renders tones into int16 PCM, maintaining a slope amplitude table
// and a persistent phase offset across calls.
type Synth struct {
	sampleRate   float64
	slopeLengths int // slope length in samples (N)
	shape        Shape
	slope        []float64 // amplitude table, len == slopeLengths

	volume float64 // 0.0-1.0 absolute volume
	phase  float64 // persistent phase in samples, carried across tones
	lastFreq int32
}

// NewSynth constructs a synthesizer and computes its initial slope table.
func NewSynth(sampleRate float64, slopeLengthUs int64, shape Shape) (*Synth, error) {
	if sampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}
	if slopeLengthUs < 0 {
		return nil, ErrInvalidSlopeLength
	}
	s := &Synth{
		sampleRate: sampleRate,
		volume:     1.0,
	}
	s.Configure(sampleRate, slopeLengthUs, shape)
	return s, nil
}

// Configure recomputes the slope table for a new (sampleRate, slopeLengthUs,
// shape) triple. Per spec.md §9, callers must not free the previous table
// while the consumer thread is mid-render; Synth is not safe to Configure
// concurrently with Render - the generator serializes the two via the tone
// queue's single consumer thread.
func (s *Synth) Configure(sampleRate float64, slopeLengthUs int64, shape Shape) {
	s.sampleRate = sampleRate
	s.shape = shape
	n := int(float64(slopeLengthUs) * sampleRate / 1e6)
	if n < 1 {
		n = 1
	}
	s.slopeLengths = n
	s.slope = buildSlopeTable(n, shape)
}

func buildSlopeTable(n int, shape Shape) []float64 {
	table := make([]float64, n)
	if n == 1 {
		table[0] = 1.0
		return table
	}
	last := float64(n - 1)
	switch shape {
	case Linear:
		for i := 0; i < n; i++ {
			table[i] = float64(i) / last
		}
	case RaisedCosine:
		for i := 0; i < n; i++ {
			table[i] = (1 - math.Cos(math.Pi*float64(i)/last)) / 2
		}
	case Sine:
		for i := 0; i < n; i++ {
			table[i] = math.Sin((math.Pi / 2) * float64(i) / last)
		}
	case Rectangular:
		for i := range table {
			table[i] = 1.0
		}
	}
	return table
}

// SetVolume sets the absolute output volume in [0.0, 1.0].
func (s *Synth) SetVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	s.volume = v
}

// ResetPhase zeroes the persistent phase offset and forgets the last
// rendered frequency, so the next tone starts at phase 0.
func (s *Synth) ResetPhase() {
	s.phase = 0
	s.lastFreq = 0
}

// amplitudeAt returns the envelope amplitude (0.0-1.0) for sample index k of
// n total samples, given which edges are shaped.
func (s *Synth) amplitudeAt(k, n int, portion Portion) float64 {
	slopeLen := s.slopeLengths
	if slopeLen*2 > n {
		// Degenerate short tone: clamp slope length to half the tone so
		// rising and falling portions never overlap.
		slopeLen = n / 2
	}
	risingShaped := portion == PortionStandard || portion == PortionRisingOnly
	fallingShaped := portion == PortionStandard || portion == PortionFallingOnly

	if risingShaped && slopeLen > 0 && k < slopeLen {
		return s.slope[k*len(s.slope)/slopeLen]
	}
	fromEnd := n - 1 - k
	if fallingShaped && slopeLen > 0 && fromEnd < slopeLen {
		return s.slope[fromEnd*len(s.slope)/slopeLen]
	}
	return 1.0
}

// Render appends n = durationUs*sampleRate/1e6 samples for a tone at
// frequencyHz (0 = silence) to dst, shaped per portion, and returns the
// extended slice. Phase is carried forward so a subsequent Render call at
// the same frequency is phase-continuous.
func (s *Synth) Render(dst []int16, durationUs int64, frequencyHz int32, portion Portion) []int16 {
	n := int(float64(durationUs) * s.sampleRate / 1e6)
	if n <= 0 {
		return dst
	}
	if frequencyHz == 0 {
		s.phase = 0
		s.lastFreq = 0
		for i := 0; i < n; i++ {
			dst = append(dst, 0)
		}
		return dst
	}
	if frequencyHz != s.lastFreq {
		// Frequency changed: phase continuity only has meaning within a
		// single tone frequency, so restart phase at this tone's start.
		s.phase = 0
	}
	s.lastFreq = frequencyHz

	angularStep := 2 * math.Pi * float64(frequencyHz) / s.sampleRate
	for k := 0; k < n; k++ {
		amp := s.amplitudeAt(k, n, portion)
		sample := s.volume * amp * math.Sin(angularStep*(float64(k)+s.phase))
		dst = append(dst, int16(sample*MaxPCM16))
	}
	s.phase += float64(n)
	return dst
}

// PadToBuffer pads buf with trailing silence so its length is a multiple of
// bufferNSamples, as spec.md §4.5 requires ("the sink call is always a full
// buffer").
func PadToBuffer(buf []int16, bufferNSamples int) []int16 {
	if bufferNSamples <= 0 {
		return buf
	}
	rem := len(buf) % bufferNSamples
	if rem == 0 {
		return buf
	}
	pad := bufferNSamples - rem
	for i := 0; i < pad; i++ {
		buf = append(buf, 0)
	}
	return buf
}
