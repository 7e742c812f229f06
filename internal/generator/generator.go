// internal/generator/generator.go
// Package generator implements C6: it turns characters into enqueued tones
// and drains them on a dedicated consumer thread into an audio.Sink,
// synthesizing PCM via sine.Synth. Grounded on the teacher's
// internal/audio.MalgoCaptureSource lifecycle (Init/Start/Stop/Close, atomic running
// flag, mutex-guarded device-like state) mirrored here for the opposite
// (production) direction, and on internal/dsp.Detector's lock-free
// callback pattern for the keybridge edge notifications this package
// emits alongside audio.
package generator

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/ColonelBlimp/gocw/internal/audio"
	"github.com/ColonelBlimp/gocw/internal/keybridge"
	"github.com/ColonelBlimp/gocw/internal/morse"
	"github.com/ColonelBlimp/gocw/internal/sine"
	"github.com/ColonelBlimp/gocw/internal/timing"
	"github.com/ColonelBlimp/gocw/internal/tonequeue"
)

var (
	// ErrAlreadyRunning indicates Start was called on a running generator.
	ErrAlreadyRunning = errors.New("generator: already running")
	// ErrNotRunning indicates EnqueueCharacter, EnqueueString or
	// EnqueueRepresentation was called before Start or after Stop.
	ErrNotRunning = errors.New("generator: not running")
	// ErrDeleted indicates a call on a generator that has been deleted.
	ErrDeleted = errors.New("generator: deleted")
	// ErrUnrecognizedChar indicates a character outside the Morse table.
	ErrUnrecognizedChar = errors.New("generator: unrecognized character")
)

// Config holds the tunable knobs of a Generator, independent of the
// audio.Sink it writes to.
type Config struct {
	SpeedWPM      int
	TolerancePct  int
	GapUnits      int
	WeightingPct  int
	FarnsworthWPM int

	FrequencyHz int32
	Volume      float64

	QueueCapacity int
	LowWaterMark  int

	SampleRateHz  float64
	SlopeLengthUs int64
	SlopeShape    sine.Shape
	BufferFrames  int
}

// DefaultConfig returns PARIS-standard defaults at 20 WPM.
func DefaultConfig() Config {
	return Config{
		SpeedWPM:      20,
		TolerancePct:  0,
		GapUnits:      0,
		WeightingPct:  50,
		FarnsworthWPM: 0,
		FrequencyHz:   600,
		Volume:        0.7,
		QueueCapacity: 32,
		LowWaterMark:  4,
		SampleRateHz:  48000,
		SlopeLengthUs: 5000,
		SlopeShape:    sine.RaisedCosine,
		BufferFrames:  512,
	}
}

// Generator is the CW sender of spec.md §4.6: characters in, audio out.
// The tone queue holds a bounded, non-owning back-reference to the
// generator only through the low-water callback closure, never a pointer
// field - the generator, not the queue, owns the lifecycle, resolving the
// ownership cycle spec.md §9 flags (the generator must outlive the queue).
type Generator struct {
	ID uuid.UUID

	mu     sync.Mutex
	params *timing.SendParams
	synth  *sine.Synth
	queue  *tonequeue.Queue
	sink   audio.Sink
	bridge *keybridge.Bridge

	freqHz atomic.Int32
	cfg    Config

	running atomic.Bool
	deleted atomic.Bool

	sinkErrMu sync.Mutex
	sinkErr   error

	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New constructs a Generator bound to sink; Start begins the consumer
// thread and opens the sink.
func New(cfg Config, sink audio.Sink) (*Generator, error) {
	params, err := timing.NewSendParams(cfg.SpeedWPM, cfg.TolerancePct, cfg.GapUnits, cfg.WeightingPct, cfg.FarnsworthWPM)
	if err != nil {
		return nil, fmt.Errorf("generator: %w", err)
	}
	synth, err := sine.NewSynth(cfg.SampleRateHz, cfg.SlopeLengthUs, cfg.SlopeShape)
	if err != nil {
		return nil, fmt.Errorf("generator: %w", err)
	}
	queue, err := tonequeue.New(cfg.QueueCapacity)
	if err != nil {
		return nil, fmt.Errorf("generator: %w", err)
	}

	g := &Generator{
		ID:     uuid.New(),
		params: params,
		synth:  synth,
		queue:  queue,
		sink:   sink,
		bridge: keybridge.New(),
		cfg:    cfg,
	}
	g.freqHz.Store(cfg.FrequencyHz)
	synth.SetVolume(cfg.Volume)
	return g, nil
}

// Bridge exposes the generator's keybridge.Bridge so callers can register
// edge observers (e.g. keybridge.Loopback into a receiver for self-test).
func (g *Generator) Bridge() *keybridge.Bridge {
	return g.bridge
}

// Start opens the sink and launches the consumer goroutine.
func (g *Generator) Start() error {
	if g.deleted.Load() {
		return ErrDeleted
	}
	if !g.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	if err := g.sink.Open(uint32(g.cfg.SampleRateHz), 1); err != nil {
		g.running.Store(false)
		return fmt.Errorf("generator: open sink: %w", err)
	}
	log.Info("generator started", "id", g.ID, "speed_wpm", g.params.SpeedWPM)

	g.wg.Add(1)
	go g.consume()
	return nil
}

// Stop drains and halts the consumer thread and closes the sink. Safe to
// call multiple times.
func (g *Generator) Stop() error {
	var err error
	g.stopOnce.Do(func() {
		if !g.running.CompareAndSwap(true, false) {
			return
		}
		g.queue.Stop()
		g.wg.Wait()
		err = g.sink.Close()
		log.Info("generator stopped", "id", g.ID)
	})
	return err
}

// Delete stops the generator (if running) and marks it unusable for
// further calls.
func (g *Generator) Delete() error {
	if !g.deleted.CompareAndSwap(false, true) {
		return nil
	}
	return g.Stop()
}

func (g *Generator) requireRunning() error {
	if g.deleted.Load() {
		return ErrDeleted
	}
	if !g.running.Load() {
		return ErrNotRunning
	}
	return nil
}

// SetSpeed updates words-per-minute speed.
func (g *Generator) SetSpeed(wpm int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.params.SetSpeed(wpm)
}

// SetGap updates the additional inter-character/word gap.
func (g *Generator) SetGap(units int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.params.SetGap(units)
}

// SetWeighting updates the dot/dash weighting percentage.
func (g *Generator) SetWeighting(pct int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.params.SetWeighting(pct)
}

// SetFarnsworth updates Farnsworth spacing speed.
func (g *Generator) SetFarnsworth(wpm int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.params.SetFarnsworth(wpm)
}

// SetFrequency updates the sidetone frequency used for subsequently
// enqueued tones.
func (g *Generator) SetFrequency(hz int32) {
	g.freqHz.Store(hz)
}

// SetVolume updates output volume in [0,1].
func (g *Generator) SetVolume(v float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.synth.SetVolume(v)
}

// QueueLength returns the current tone queue occupancy.
func (g *Generator) QueueLength() int {
	return g.queue.Length()
}

// RegisterLowWaterCallback forwards to the tone queue's low-water
// notification (spec.md §4.4), used by callers that want to keep the
// queue topped up (e.g. streaming a long message).
func (g *Generator) RegisterLowWaterCallback(fn func(), level int) {
	g.queue.RegisterLowWaterCallback(fn, level)
}

// SinkError returns the most recent sticky sink error, if any, and clears
// it - spec.md §7 requires sink failures to surface to the caller rather
// than be silently dropped on the consumer thread.
func (g *Generator) SinkError() error {
	g.sinkErrMu.Lock()
	defer g.sinkErrMu.Unlock()
	err := g.sinkErr
	g.sinkErr = nil
	return err
}

func (g *Generator) setSinkError(err error) {
	g.sinkErrMu.Lock()
	g.sinkErr = err
	g.sinkErrMu.Unlock()
}

// trailingGap selects which silence duration, if any, follows the last
// element of an enqueued representation.
type trailingGap int

const (
	noTrailingGap trailingGap = iota
	// trailingCharGap is the ordinary inter-character silence (eoc_delay).
	trailingCharGap
	// trailingWordGap is the inter-word silence (eow_delay): per spec.md
	// §4.6's enqueue_string, a character immediately followed by a word
	// boundary has its trailing silence extended from eoc_delay to
	// eow_delay rather than gaining a second, separate gap tone - this is
	// what makes "PARIS " total exactly 50 dot-units (spec.md §8 scenario
	// 2), not 46 + a bolted-on extra gap.
	trailingWordGap
)

// EnqueueCharacter encodes c into a dot/dash tone sequence (with a
// trailing inter-character gap) and enqueues it.
func (g *Generator) EnqueueCharacter(c byte) error {
	if err := g.requireRunning(); err != nil {
		return err
	}
	rep, ok := morse.CharacterToRepresentation(c)
	if !ok {
		return ErrUnrecognizedChar
	}
	return g.enqueueRepresentationLocked(rep, trailingCharGap)
}

// EnqueueRepresentation enqueues a raw dot/dash representation (e.g. for
// injected custom signs) without going through the character table.
func (g *Generator) EnqueueRepresentation(rep string) error {
	if err := g.requireRunning(); err != nil {
		return err
	}
	if !morse.RepresentationIsValid(rep) {
		return ErrUnrecognizedChar
	}
	return g.enqueueRepresentationLocked(rep, trailingCharGap)
}

// EnqueueString enqueues every character of s in order. A space marks a
// word boundary (spec.md §4.6): the preceding character's trailing silence
// is extended to eow_delay instead of a separate gap tone being appended,
// and the space itself consumes no queue slot.
func (g *Generator) EnqueueString(s string) error {
	if err := g.requireRunning(); err != nil {
		return err
	}
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' {
			continue
		}
		trailing := trailingCharGap
		if i+1 < len(s) && s[i+1] == ' ' {
			trailing = trailingWordGap
		}
		rep, ok := morse.CharacterToRepresentation(s[i])
		if !ok {
			return ErrUnrecognizedChar
		}
		if err := g.enqueueRepresentationLocked(rep, trailing); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) enqueueRepresentationLocked(rep string, trailing trailingGap) error {
	g.mu.Lock()
	g.params.Sync()
	dotLen, dashLen, eoeDelay, eocDelay, eowDelay := g.params.DotLengthUs, g.params.DashLengthUs, g.params.EOEDelayUs, g.params.EOCDelayUs, g.params.EOWDelayUs
	g.mu.Unlock()

	freq := g.freqHz.Load()
	for i := 0; i < len(rep); i++ {
		dur := dotLen
		if rep[i] == '-' {
			dur = dashLen
		}
		if err := g.queue.Enqueue(tonequeue.Tone{DurationUs: dur, FrequencyHz: freq}); err != nil {
			return fmt.Errorf("generator: enqueue element: %w", err)
		}
		if i != len(rep)-1 {
			if err := g.queue.Enqueue(tonequeue.Tone{DurationUs: eoeDelay, FrequencyHz: 0}); err != nil {
				return fmt.Errorf("generator: enqueue inter-element gap: %w", err)
			}
		}
	}
	switch trailing {
	case trailingCharGap:
		if err := g.queue.Enqueue(tonequeue.Tone{DurationUs: eocDelay, FrequencyHz: 0}); err != nil {
			return fmt.Errorf("generator: enqueue inter-character gap: %w", err)
		}
	case trailingWordGap:
		if err := g.queue.Enqueue(tonequeue.Tone{DurationUs: eowDelay, FrequencyHz: 0}); err != nil {
			return fmt.Errorf("generator: enqueue inter-word gap: %w", err)
		}
	}
	return nil
}

// consume is the dedicated consumer thread: dequeue tones, render PCM,
// write to the sink, and emit keybridge edges at tone start/end so a
// loopback receiver (or a real operator listening and keying back) can
// observe the same transitions a human would hear.
func (g *Generator) consume() {
	defer g.wg.Done()
	bufFrames := g.cfg.BufferFrames
	pcm := make([]int16, 0, bufFrames*4)

	// cursor is a virtual clock advanced exactly by each tone's intended
	// duration, so keybridge edge timestamps reflect the scheduled CW
	// timing rather than however fast this goroutine happens to render
	// PCM - the audio.Sink (a real device, or a paced test double) is
	// what actually enforces real-time pacing; the edge bridge only needs
	// timestamps consistent with each other.
	cursor := time.Now()

	for {
		tone, ok := g.queue.Dequeue()
		if !ok {
			if len(pcm) > 0 {
				g.flush(pcm)
			}
			return
		}
		duration := tone.DurationUs
		if tone.IsForever() {
			// Render in bounded chunks so FOREVER tones stay responsive to
			// replacement without unbounded memory growth.
			duration = 100_000
		}

		at := cursor
		cursor = cursor.Add(time.Duration(duration) * time.Microsecond)
		if tone.FrequencyHz != 0 {
			g.bridge.NotifyMarkBegin(at)
		}
		pcm = g.synth.Render(pcm, duration, tone.FrequencyHz, portionFor(tone.Slope))
		if tone.FrequencyHz != 0 {
			g.bridge.NotifyMarkEnd(cursor)
		}

		if len(pcm) >= bufFrames {
			g.flush(pcm)
			pcm = pcm[:0]
		}
	}
}

func (g *Generator) flush(pcm []int16) {
	padded := sine.PadToBuffer(pcm, int(g.sink.PreferredBufferFrames()))
	if err := g.sink.Write(padded); err != nil {
		g.setSinkError(err)
		log.Error("generator: sink write failed", "id", g.ID, "err", err)
	}
}

func portionFor(slope tonequeue.SlopeMode) sine.Portion {
	switch slope {
	case tonequeue.SlopeNone:
		return sine.PortionNone
	case tonequeue.SlopeRisingOnly:
		return sine.PortionRisingOnly
	case tonequeue.SlopeFallingOnly:
		return sine.PortionFallingOnly
	default:
		return sine.PortionStandard
	}
}
