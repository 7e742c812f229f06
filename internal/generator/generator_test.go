package generator

import (
	"testing"
	"time"

	"github.com/ColonelBlimp/gocw/internal/audio"
	"github.com/ColonelBlimp/gocw/internal/keybridge"
	"github.com/ColonelBlimp/gocw/internal/morse"
	"github.com/ColonelBlimp/gocw/internal/receiver"
	"github.com/ColonelBlimp/gocw/internal/timing"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.SpeedWPM = 20
	cfg.SampleRateHz = 8000
	cfg.BufferFrames = 64
	cfg.QueueCapacity = 64
	return cfg
}

func TestEnqueueCharacterProducesAudio(t *testing.T) {
	sink := audio.NewNullSink()
	g, err := New(testConfig(), sink)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := g.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer g.Delete()

	if err := g.EnqueueCharacter('A'); err != nil {
		t.Fatalf("EnqueueCharacter() error = %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for g.QueueLength() > 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	// Give the consumer a moment to flush the final partial buffer.
	time.Sleep(20 * time.Millisecond)

	if sink.WriteCount == 0 {
		t.Fatalf("sink.WriteCount = 0, want > 0")
	}
}

func TestEnqueueUnrecognizedChar(t *testing.T) {
	sink := audio.NewNullSink()
	g, err := New(testConfig(), sink)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := g.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer g.Delete()

	if err := g.EnqueueCharacter(0x01); err != ErrUnrecognizedChar {
		t.Fatalf("EnqueueCharacter(unrecognized) = %v, want ErrUnrecognizedChar", err)
	}
}

func TestEnqueueBeforeStartFails(t *testing.T) {
	sink := audio.NewNullSink()
	g, err := New(testConfig(), sink)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := g.EnqueueCharacter('E'); err != ErrNotRunning {
		t.Fatalf("EnqueueCharacter() before Start = %v, want ErrNotRunning", err)
	}
}

func TestStartTwiceFails(t *testing.T) {
	sink := audio.NewNullSink()
	g, err := New(testConfig(), sink)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := g.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer g.Delete()
	if err := g.Start(); err != ErrAlreadyRunning {
		t.Fatalf("second Start() = %v, want ErrAlreadyRunning", err)
	}
}

// TestSelfTestLoopbackDecodesCharacter drives a generator through
// keybridge.Loopback into a receiver and checks the character round-trips,
// exercising the same "selftest" path spec.md §11 describes.
func TestSelfTestLoopbackDecodesCharacter(t *testing.T) {
	sink := audio.NewNullSink()
	cfg := testConfig()
	g, err := New(cfg, sink)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	rparams, err := timing.NewReceiveParams(cfg.SpeedWPM, 50, 0, 0, false)
	if err != nil {
		t.Fatalf("NewReceiveParams() error = %v", err)
	}
	recv := receiver.New(rparams)
	var notifyErrs []error
	keybridge.Loopback(g.Bridge(), recv, func(err error) { notifyErrs = append(notifyErrs, err) })

	if err := g.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer g.Delete()

	if err := g.EnqueueCharacter('E'); err != nil {
		t.Fatalf("EnqueueCharacter() error = %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for g.QueueLength() > 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)

	var result receiver.CharacterResult
	for i := 0; i < 50; i++ {
		result, err = recv.PollCharacter(time.Now())
		if err == nil && result.Representation != "" {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if result.Character != 'E' {
		t.Fatalf("decoded character = %q, want 'E' (notify errs: %v)", result.Character, notifyErrs)
	}
}

// TestParisTimingTotalsFiftyUnits exercises spec.md §8 scenario 2: "PARIS "
// sent at 20 WPM schedules exactly 50 dot-units of tone/silence, i.e.
// 50*(1,200,000/20)us = 3.0s, the canonical WPM calibration word including
// its trailing inter-word gap. This drives the queue directly (bypassing
// Start/consume) since the assertion is about what gets scheduled, not
// about real-time audio playback through a sink.
func TestParisTimingTotalsFiftyUnits(t *testing.T) {
	sink := audio.NewNullSink()
	cfg := DefaultConfig()
	cfg.SpeedWPM = 20
	cfg.TolerancePct = 0
	cfg.GapUnits = 0
	cfg.WeightingPct = 50
	cfg.FarnsworthWPM = 0

	g, err := New(cfg, sink)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	const word = "PARIS "
	for i := 0; i < len(word); i++ {
		if word[i] == ' ' {
			continue
		}
		trailing := trailingCharGap
		if i+1 < len(word) && word[i+1] == ' ' {
			trailing = trailingWordGap
		}
		rep, ok := morse.CharacterToRepresentation(word[i])
		if !ok {
			t.Fatalf("unrecognized character %q", word[i])
		}
		if err := g.enqueueRepresentationLocked(rep, trailing); err != nil {
			t.Fatalf("enqueueRepresentationLocked(%q) error = %v", string(word[i]), err)
		}
	}
	g.queue.Stop()

	var totalUs int64
	for {
		tone, ok := g.queue.Dequeue()
		if !ok {
			break
		}
		totalUs += tone.DurationUs
	}

	const wantUs = int64(50) * timing.DotCalibration / 20 // 50 dot-units at 20 WPM
	sampleUs := int64(1_000_000 / cfg.SampleRateHz)
	if diff := totalUs - wantUs; diff < -sampleUs || diff > sampleUs {
		t.Errorf("total scheduled duration = %dus, want %dus ± %dus (one sample)", totalUs, wantUs, sampleUs)
	}
}
