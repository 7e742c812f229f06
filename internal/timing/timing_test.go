package timing

import "testing"

func TestReceiveParamsFixedClassification(t *testing.T) {
	// 12 WPM, 5% tolerance: unit = 1,200,000/12 = 100,000us = 100ms.
	p, err := NewReceiveParams(12, 5, 0, 0, false)
	if err != nil {
		t.Fatalf("NewReceiveParams() error = %v", err)
	}
	if isDash, ok := p.IdentifyMark(100_000); ok == false || isDash {
		t.Errorf("IdentifyMark(100ms) = (%v,%v), want (false,true) [dot]", isDash, ok)
	}
	if isDash, ok := p.IdentifyMark(300_000); ok == false || !isDash {
		t.Errorf("IdentifyMark(300ms) = (%v,%v), want (true,true) [dash]", isDash, ok)
	}
}

func TestReceiveParamsIdentifyMarkMonotonicity(t *testing.T) {
	p, err := NewReceiveParams(20, 20, 0, 0, false)
	if err != nil {
		t.Fatalf("NewReceiveParams() error = %v", err)
	}
	if p.Dot.MaxUs >= p.Dash.MinUs {
		t.Fatalf("Invariant P2 violated: dot_max=%d >= dash_min=%d", p.Dot.MaxUs, p.Dash.MinUs)
	}
	for us := p.Dot.MinUs; us <= p.Dot.MaxUs; us += 37 {
		if isDash, ok := p.IdentifyMark(us); !ok || isDash {
			t.Fatalf("IdentifyMark(%d) in dot range = (%v,%v), want dot", us, isDash, ok)
		}
	}
	for us := p.Dash.MinUs; us <= p.Dash.MaxUs; us += 211 {
		if isDash, ok := p.IdentifyMark(us); !ok || !isDash {
			t.Fatalf("IdentifyMark(%d) in dash range = (%v,%v), want dash", us, isDash, ok)
		}
	}
	if _, ok := p.IdentifyMark(p.Dot.MinUs - 1); ok {
		t.Errorf("IdentifyMark(dot_min-1) = ok, want Unrecognized")
	}
	if _, ok := p.IdentifyMark(p.Dash.MaxUs + 1); ok {
		t.Errorf("IdentifyMark(dash_max+1) = ok, want Unrecognized")
	}
}

func TestReceiveParamsAdaptiveTieBreak(t *testing.T) {
	p, err := NewReceiveParams(20, 0, 0, 0, true)
	if err != nil {
		t.Fatalf("NewReceiveParams() error = %v", err)
	}
	if p.Dot.MaxUs != p.Dash.MinUs {
		t.Fatalf("adaptive mode expects dot_max == dash_min, got %d vs %d", p.Dot.MaxUs, p.Dash.MinUs)
	}
	isDash, ok := p.IdentifyMark(p.Dot.MaxUs)
	if !ok || isDash {
		t.Errorf("tie-break at dot_max==dash_min = (%v,%v), want (false,true) [dot wins]", isDash, ok)
	}
}

func TestReceiveParamsSetSpeedRejectedWhenAdaptive(t *testing.T) {
	p, err := NewReceiveParams(20, 0, 0, 0, true)
	if err != nil {
		t.Fatalf("NewReceiveParams() error = %v", err)
	}
	if err := p.SetSpeed(25); err != ErrAdaptiveConflict {
		t.Errorf("SetSpeed() while adaptive = %v, want ErrAdaptiveConflict", err)
	}
}

func TestReceiveParamsInvalidParameters(t *testing.T) {
	if _, err := NewReceiveParams(4, 5, 0, 0, false); err != ErrInvalidParameter {
		t.Errorf("NewReceiveParams(wpm=4) error = %v, want ErrInvalidParameter", err)
	}
	if _, err := NewReceiveParams(20, 95, 0, 0, false); err != ErrInvalidParameter {
		t.Errorf("NewReceiveParams(tolerance=95) error = %v, want ErrInvalidParameter", err)
	}
}

func TestSendParamsParisTiming(t *testing.T) {
	// "PARIS" at 20 WPM = 50 dit units = 1,200,000/20 * 50 us = 3,000,000us.
	p, err := NewSendParams(20, 0, 0, 50, 0)
	if err != nil {
		t.Fatalf("NewSendParams() error = %v", err)
	}
	if p.UnitUs != 60_000 {
		t.Fatalf("UnitUs = %d, want 60000", p.UnitUs)
	}
	if p.DotLengthUs != p.UnitUs || p.DashLengthUs != 3*p.UnitUs {
		t.Fatalf("neutral weighting: dot=%d dash=%d, want dot=%d dash=%d",
			p.DotLengthUs, p.DashLengthUs, p.UnitUs, 3*p.UnitUs)
	}
}

func TestSendParamsWeightingPreservesSum(t *testing.T) {
	p, err := NewSendParams(20, 0, 0, 65, 0)
	if err != nil {
		t.Fatalf("NewSendParams() error = %v", err)
	}
	if got, want := p.DotLengthUs+p.DashLengthUs, 4*p.UnitUs; got != want {
		t.Errorf("dot+dash = %d, want %d (4*unit)", got, want)
	}
	if p.DotLengthUs <= p.UnitUs {
		t.Errorf("weighting=65 should lengthen dots beyond unit, got %d <= %d", p.DotLengthUs, p.UnitUs)
	}
}

func TestSendParamsInvalidFarnsworth(t *testing.T) {
	p, err := NewSendParams(20, 0, 0, 50, 0)
	if err != nil {
		t.Fatalf("NewSendParams() error = %v", err)
	}
	if err := p.SetFarnsworth(25); err != ErrInvalidParameter {
		t.Errorf("SetFarnsworth(25) with speed=20 error = %v, want ErrInvalidParameter", err)
	}
}
