package dsp

import (
	"errors"
	"testing"
	"time"
)

type fakeMarkNotifier struct {
	begins, ends []time.Time
	err          error
}

func (f *fakeMarkNotifier) NotifyMarkBegin(t time.Time) error {
	f.begins = append(f.begins, t)
	return f.err
}

func (f *fakeMarkNotifier) NotifyMarkEnd(t time.Time) error {
	f.ends = append(f.ends, t)
	return f.err
}

func TestBridgeToReceiverForwardsEdges(t *testing.T) {
	g, err := NewGoertzel(GoertzelConfig{TargetFrequency: 600, SampleRate: 8000, BlockSize: 160})
	if err != nil {
		t.Fatalf("NewGoertzel() error = %v", err)
	}
	d, err := NewDetector(DetectorConfig{Threshold: 0.1, Hysteresis: 1, OverlapPct: 0, AGCWarmupBlocks: 0}, g)
	if err != nil {
		t.Fatalf("NewDetector() error = %v", err)
	}
	recv := &fakeMarkNotifier{}
	BridgeToReceiver(d, recv, nil)

	t0 := time.Unix(0, 0)
	d.emitEvent(ToneEvent{ToneOn: true, Timestamp: t0})
	t1 := t0.Add(100 * time.Millisecond)
	d.emitEvent(ToneEvent{ToneOn: false, Timestamp: t1})

	if len(recv.begins) != 1 || recv.begins[0] != t0 {
		t.Fatalf("begins = %v, want [%v]", recv.begins, t0)
	}
	if len(recv.ends) != 1 || recv.ends[0] != t1 {
		t.Fatalf("ends = %v, want [%v]", recv.ends, t1)
	}
}

func TestBridgeToReceiverSurfacesErrors(t *testing.T) {
	g, err := NewGoertzel(GoertzelConfig{TargetFrequency: 600, SampleRate: 8000, BlockSize: 160})
	if err != nil {
		t.Fatalf("NewGoertzel() error = %v", err)
	}
	d, err := NewDetector(DetectorConfig{Threshold: 0.1, Hysteresis: 1, OverlapPct: 0, AGCWarmupBlocks: 0}, g)
	if err != nil {
		t.Fatalf("NewDetector() error = %v", err)
	}
	recv := &fakeMarkNotifier{err: errors.New("boom")}
	var got error
	BridgeToReceiver(d, recv, func(err error) { got = err })

	d.emitEvent(ToneEvent{ToneOn: true, Timestamp: time.Now()})
	if got == nil || got.Error() != "boom" {
		t.Fatalf("got = %v, want boom", got)
	}
}
