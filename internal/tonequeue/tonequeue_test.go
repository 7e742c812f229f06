package tonequeue

import (
	"testing"
	"time"

	"pgregory.net/rapid"
)

func TestEnqueueDequeueFIFO(t *testing.T) {
	q, err := New(8)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	tones := []Tone{
		{DurationUs: 100, FrequencyHz: 600},
		{DurationUs: 300, FrequencyHz: 600},
		{DurationUs: 100, FrequencyHz: 0},
	}
	for _, tn := range tones {
		if err := q.Enqueue(tn); err != nil {
			t.Fatalf("Enqueue(%v) error = %v", tn, err)
		}
	}
	for i, want := range tones {
		got, ok := q.Dequeue()
		if !ok {
			t.Fatalf("Dequeue() #%d: ok=false", i)
		}
		if got != want {
			t.Fatalf("Dequeue() #%d = %v, want %v", i, got, want)
		}
	}
	if q.Length() != 0 {
		t.Errorf("Length() = %d, want 0", q.Length())
	}
}

func TestEnqueueFull(t *testing.T) {
	q, err := New(2)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := q.Enqueue(Tone{DurationUs: 1}); err != nil {
		t.Fatal(err)
	}
	if err := q.Enqueue(Tone{DurationUs: 2}); err != nil {
		t.Fatal(err)
	}
	if err := q.Enqueue(Tone{DurationUs: 3}); err != ErrFull {
		t.Errorf("Enqueue() on full queue = %v, want ErrFull", err)
	}
}

func TestForeverToneReplacedAtTail(t *testing.T) {
	q, err := New(8)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := q.Enqueue(Tone{DurationUs: Forever, FrequencyHz: 600}); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		tone, ok := q.Dequeue()
		if !ok || !tone.IsForever() {
			t.Fatalf("Dequeue() #%d = (%v,%v), want forever tone", i, tone, ok)
		}
		if q.Length() != 1 {
			t.Fatalf("Length() after forever dequeue #%d = %d, want 1", i, q.Length())
		}
	}

	finite := []Tone{
		{DurationUs: 60_000, FrequencyHz: 600},
		{DurationUs: 180_000, FrequencyHz: 600},
		{DurationUs: 60_000, FrequencyHz: 0},
	}
	for _, tn := range finite {
		if err := q.Enqueue(tn); err != nil {
			t.Fatalf("Enqueue(%v) error = %v", tn, err)
		}
	}
	// The forever tone was replaced, not appended to - queue holds exactly
	// the 3 finite tones.
	if q.Length() != 3 {
		t.Fatalf("Length() after enqueueing 3 finite tones = %d, want 3", q.Length())
	}
	for i, want := range finite {
		got, ok := q.Dequeue()
		if !ok || got != want {
			t.Fatalf("Dequeue() #%d = (%v,%v), want (%v,true)", i, got, ok, want)
		}
	}
	// A fourth Dequeue on this empty, non-stopped queue would block forever,
	// so the drain is verified through Length without calling Dequeue again.
	if q.Length() != 0 {
		t.Fatalf("Length() after draining finite tones = %d, want 0", q.Length())
	}
}

func TestLowWaterCallbackFiresOncePerCrossing(t *testing.T) {
	q, err := New(8)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	fires := 0
	q.RegisterLowWaterCallback(func() { fires++ }, 1)

	for i := 0; i < 4; i++ {
		if err := q.Enqueue(Tone{DurationUs: int64(i + 1)}); err != nil {
			t.Fatal(err)
		}
	}
	if fires != 0 {
		t.Fatalf("fires = %d after enqueue-only, want 0", fires)
	}

	for i := 0; i < 4; i++ {
		if _, ok := q.Dequeue(); !ok {
			t.Fatalf("Dequeue() #%d: ok=false", i)
		}
	}
	// length goes 4,3,2,1,0: crosses "above 1" -> "<=1" exactly once, at the
	// dequeue that takes length from 2 to 1.
	if fires != 1 {
		t.Fatalf("fires = %d, want 1", fires)
	}
}

func TestWaitForLevelUnblocksOnDequeue(t *testing.T) {
	q, err := New(8)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := q.Enqueue(Tone{DurationUs: int64(i + 1)}); err != nil {
			t.Fatal(err)
		}
	}
	done := make(chan struct{})
	go func() {
		q.WaitForLevel(0)
		close(done)
	}()
	for i := 0; i < 3; i++ {
		if _, ok := q.Dequeue(); !ok {
			t.Fatal("Dequeue() ok=false")
		}
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WaitForLevel(0) did not unblock after draining the queue")
	}
}

func TestStopUnblocksDequeue(t *testing.T) {
	q, err := New(4)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	done := make(chan bool)
	go func() {
		_, ok := q.Dequeue()
		done <- ok
	}()
	time.Sleep(10 * time.Millisecond)
	q.Stop()
	select {
	case ok := <-done:
		if ok {
			t.Error("Dequeue() after Stop() on empty queue ok=true, want false")
		}
	case <-time.After(time.Second):
		t.Fatal("Dequeue() did not unblock after Stop()")
	}
}

// TestRapidFIFOConservation is the §8 "Tone-queue conservation" property:
// enqueueing a random sequence of tones and dequeueing the same count
// yields them back in order.
func TestRapidFIFOConservation(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		capacity := rapid.IntRange(1, 64).Draw(rt, "capacity")
		q, err := New(capacity)
		if err != nil {
			rt.Fatal(err)
		}
		n := rapid.IntRange(0, capacity).Draw(rt, "n")
		tones := make([]Tone, n)
		for i := range tones {
			tones[i] = Tone{
				DurationUs:  int64(rapid.IntRange(1, 1_000_000).Draw(rt, "dur")),
				FrequencyHz: int32(rapid.IntRange(0, 3000).Draw(rt, "freq")),
			}
			if err := q.Enqueue(tones[i]); err != nil {
				rt.Fatalf("Enqueue(%v) error = %v", tones[i], err)
			}
		}
		for i, want := range tones {
			got, ok := q.Dequeue()
			if !ok || got != want {
				rt.Fatalf("Dequeue() #%d = (%v,%v), want (%v,true)", i, got, ok, want)
			}
		}
		if q.Length() != 0 {
			rt.Fatalf("Length() after full drain = %d, want 0", q.Length())
		}
	})
}
