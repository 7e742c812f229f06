// internal/audio/playback.go
// Playback mirrors MalgoCaptureSource's structure (atomic running flag,
// mutex-guarded device, malgo context lifecycle) for the opposite direction:
// it is the generator's (C6) real-device Sink, where MalgoCaptureSource is
// the microphone source feeding internal/dsp's tone detector.
package audio

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/gen2brain/malgo"
)

// PlaybackConfig holds audio playback configuration.
type PlaybackConfig struct {
	DeviceIndex int    // -1 for default device
	SampleRate  uint32 // e.g., 48000
	Channels    uint32 // 1 for mono
	BufferSize  uint32 // frames per callback
}

// DefaultPlaybackConfig returns sensible defaults for CW tone generation.
func DefaultPlaybackConfig() PlaybackConfig {
	return PlaybackConfig{
		DeviceIndex: -1,
		SampleRate:  48000,
		Channels:    1,
		BufferSize:  512,
	}
}

// MalgoPlaybackSink is a Sink backed by a real output device via malgo,
// the same miniaudio binding the teacher uses for capture.
type MalgoPlaybackSink struct {
	config PlaybackConfig
	ctx    *malgo.AllocatedContext
	device *malgo.Device

	running atomic.Bool
	mu      sync.Mutex

	// pending holds frames handed to Write that the device callback has
	// not yet consumed; protected by mu and signaled via cond.
	pending    []int16
	cond       *sync.Cond
	writeErr   error
	stopFeeder bool
}

// NewMalgoPlaybackSink constructs a playback sink from config; Open
// performs the actual device initialization.
func NewMalgoPlaybackSink(cfg PlaybackConfig) *MalgoPlaybackSink {
	s := &MalgoPlaybackSink{config: cfg}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Open initializes the malgo context and starts the output device, whose
// data callback drains pending audio pushed by Write.
func (s *MalgoPlaybackSink) Open(sampleRateHz, channels uint32) error {
	s.mu.Lock()
	if s.ctx != nil {
		s.mu.Unlock()
		return fmt.Errorf("audio: playback sink already open")
	}
	s.config.SampleRate = sampleRateHz
	s.config.Channels = channels
	s.mu.Unlock()

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("init audio context: %w", err)
	}

	var deviceID unsafe.Pointer
	if s.config.DeviceIndex >= 0 {
		devices, err := ctx.Devices(malgo.Playback)
		if err != nil {
			ctx.Uninit()
			ctx.Free()
			return fmt.Errorf("enumerate devices: %w", err)
		}
		if s.config.DeviceIndex >= len(devices) {
			ctx.Uninit()
			ctx.Free()
			return fmt.Errorf("device index %d out of range (have %d devices)", s.config.DeviceIndex, len(devices))
		}
		deviceID = devices[s.config.DeviceIndex].ID.Pointer()
	}

	deviceConfig := malgo.DeviceConfig{
		DeviceType:         malgo.Playback,
		SampleRate:         s.config.SampleRate,
		PeriodSizeInFrames: s.config.BufferSize,
		Playback: malgo.SubConfig{
			Format:   malgo.FormatS16,
			Channels: s.config.Channels,
		},
	}
	if deviceID != nil {
		deviceConfig.Playback.DeviceID = deviceID
	}

	onSendFrames := func(outputSamples, inputSamples []byte, frameCount uint32) {
		out := int16SliceFromBytes(outputSamples)
		s.mu.Lock()
		n := copy(out, s.pending)
		s.pending = s.pending[n:]
		s.cond.Broadcast()
		s.mu.Unlock()
		// Underrun: remaining bytes were already zeroed by the backend.
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onSendFrames})
	if err != nil {
		ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("init playback device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("start playback device: %w", err)
	}

	s.mu.Lock()
	s.ctx = ctx
	s.device = device
	s.mu.Unlock()
	s.running.Store(true)
	return nil
}

// Write appends buf to the pending queue and blocks until the device
// callback has drained it, providing backpressure so the generator's
// consumer thread stays roughly real-time paced.
func (s *MalgoPlaybackSink) Write(buf []int16) error {
	if !s.running.Load() {
		return ErrSinkClosed
	}
	s.mu.Lock()
	s.pending = append(s.pending, buf...)
	target := len(s.pending) - len(buf)
	for len(s.pending) > target && s.running.Load() {
		s.cond.Wait()
	}
	s.mu.Unlock()
	return nil
}

// PreferredBufferFrames reports the configured device period size.
func (s *MalgoPlaybackSink) PreferredBufferFrames() uint32 {
	return s.config.BufferSize
}

// Close stops and releases the playback device.
func (s *MalgoPlaybackSink) Close() error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cond.Broadcast()
	if s.device != nil {
		s.device.Stop()
		s.device.Uninit()
		s.device = nil
	}
	if s.ctx != nil {
		s.ctx.Uninit()
		s.ctx.Free()
		s.ctx = nil
	}
	return nil
}

// int16SliceFromBytes reinterprets a little-endian S16 byte buffer as
// []int16, mirroring bytesAsFloat32's zero-copy approach for capture.
func int16SliceFromBytes(data []byte) []int16 {
	if len(data) < 2 {
		return nil
	}
	return unsafe.Slice((*int16)(unsafe.Pointer(&data[0])), len(data)/2)
}
