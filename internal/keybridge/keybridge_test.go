package keybridge

import (
	"errors"
	"testing"
	"time"
)

type fakeNotifier struct {
	begins, ends []time.Time
	failNext     error
}

func (f *fakeNotifier) NotifyMarkBegin(t time.Time) error {
	f.begins = append(f.begins, t)
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return err
	}
	return nil
}

func (f *fakeNotifier) NotifyMarkEnd(t time.Time) error {
	f.ends = append(f.ends, t)
	return nil
}

func TestBridgeNoCallbackIsNoop(t *testing.T) {
	b := New()
	b.NotifyMarkBegin(time.Now())
	b.NotifyMarkEnd(time.Now())
}

func TestBridgeDeliversEdgesInOrder(t *testing.T) {
	b := New()
	var kinds []EdgeKind
	b.Register(func(kind EdgeKind, at time.Time) {
		kinds = append(kinds, kind)
	})
	b.NotifyMarkBegin(time.Now())
	b.NotifyMarkEnd(time.Now())
	if len(kinds) != 2 || kinds[0] != MarkBegin || kinds[1] != MarkEnd {
		t.Fatalf("kinds = %v, want [MarkBegin MarkEnd]", kinds)
	}
}

func TestLoopbackDrivesNotifier(t *testing.T) {
	b := New()
	fn := &fakeNotifier{}
	Loopback(b, fn, nil)

	t0 := time.Unix(0, 0)
	t1 := t0.Add(100 * time.Millisecond)
	b.NotifyMarkBegin(t0)
	b.NotifyMarkEnd(t1)

	if len(fn.begins) != 1 || fn.begins[0] != t0 {
		t.Fatalf("begins = %v, want [%v]", fn.begins, t0)
	}
	if len(fn.ends) != 1 || fn.ends[0] != t1 {
		t.Fatalf("ends = %v, want [%v]", fn.ends, t1)
	}
}

func TestLoopbackSurfacesErrors(t *testing.T) {
	b := New()
	fn := &fakeNotifier{failNext: errors.New("boom")}
	var gotErr error
	Loopback(b, fn, func(err error) { gotErr = err })

	b.NotifyMarkBegin(time.Now())
	if gotErr == nil || gotErr.Error() != "boom" {
		t.Fatalf("gotErr = %v, want boom", gotErr)
	}
}

func TestRegisterNilClearsCallback(t *testing.T) {
	b := New()
	calls := 0
	b.Register(func(kind EdgeKind, at time.Time) { calls++ })
	b.NotifyMarkBegin(time.Now())
	b.Register(nil)
	b.NotifyMarkEnd(time.Now())
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}
