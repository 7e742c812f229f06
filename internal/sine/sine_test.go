package sine

import (
	"math"
	"testing"
)

func TestNewSynthInvalid(t *testing.T) {
	if _, err := NewSynth(0, 5000, Linear); err != ErrInvalidSampleRate {
		t.Errorf("NewSynth(rate=0) error = %v, want ErrInvalidSampleRate", err)
	}
	if _, err := NewSynth(48000, -1, Linear); err != ErrInvalidSlopeLength {
		t.Errorf("NewSynth(slope=-1) error = %v, want ErrInvalidSlopeLength", err)
	}
}

func TestRenderSampleCount(t *testing.T) {
	s, err := NewSynth(48000, 5000, Linear)
	if err != nil {
		t.Fatalf("NewSynth() error = %v", err)
	}
	buf := s.Render(nil, 100_000, 600, PortionStandard)
	want := int(100_000.0 * 48000 / 1e6)
	if len(buf) != want {
		t.Fatalf("len(buf) = %d, want %d", len(buf), want)
	}
}

func TestRenderSilenceIsZero(t *testing.T) {
	s, err := NewSynth(8000, 2000, Linear)
	if err != nil {
		t.Fatalf("NewSynth() error = %v", err)
	}
	buf := s.Render(nil, 10_000, 0, PortionStandard)
	for i, v := range buf {
		if v != 0 {
			t.Fatalf("buf[%d] = %d, want 0 (silence)", i, v)
		}
	}
}

func TestSlopeTableBounds(t *testing.T) {
	for _, shape := range []Shape{Linear, RaisedCosine, Sine, Rectangular} {
		table := buildSlopeTable(64, shape)
		if len(table) != 64 {
			t.Fatalf("shape %d: len(table) = %d, want 64", shape, len(table))
		}
		for i, v := range table {
			if v < -1e-9 || v > 1+1e-9 {
				t.Fatalf("shape %d: table[%d] = %v, out of [0,1]", shape, i, v)
			}
		}
		if shape == Rectangular {
			for i, v := range table {
				if math.Abs(v-1.0) > 1e-9 {
					t.Fatalf("rectangular table[%d] = %v, want 1.0", i, v)
				}
			}
			continue
		}
		if math.Abs(table[0]-0) > 1e-9 {
			t.Fatalf("shape %d: table[0] = %v, want ~0", shape, table[0])
		}
		if math.Abs(table[len(table)-1]-1) > 1e-9 {
			t.Fatalf("shape %d: table[last] = %v, want ~1", shape, table[len(table)-1])
		}
	}
}

func TestPadToBuffer(t *testing.T) {
	buf := make([]int16, 10)
	padded := PadToBuffer(buf, 8)
	if len(padded) != 16 {
		t.Fatalf("len(padded) = %d, want 16", len(padded))
	}
	for i := 10; i < 16; i++ {
		if padded[i] != 0 {
			t.Errorf("padded[%d] = %d, want 0", i, padded[i])
		}
	}
	exact := make([]int16, 16)
	if out := PadToBuffer(exact, 8); len(out) != 16 {
		t.Errorf("PadToBuffer on exact multiple changed length to %d", len(out))
	}
}

func TestRenderNoClickAtToneStart(t *testing.T) {
	// With a raised-cosine slope, the first sample of a rendered tone
	// should be near zero amplitude, not a jump to full scale.
	s, err := NewSynth(48000, 4000, RaisedCosine)
	if err != nil {
		t.Fatalf("NewSynth() error = %v", err)
	}
	buf := s.Render(nil, 50_000, 600, PortionStandard)
	if math.Abs(float64(buf[0])) > MaxPCM16*0.05 {
		t.Errorf("buf[0] = %d, want near zero for a shaped tone start", buf[0])
	}
}
