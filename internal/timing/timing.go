// internal/timing/timing.go
// Package timing derives the low-level classification/scheduling bounds
// (spec.md §3, §4.2) from the high-level parameters (speed, tolerance, gap,
// weighting). Two independent parameter sets exist, ReceiveParams and
// SendParams, mirroring spec.md's "per generator and per receiver,
// independent values".
package timing

import (
	"errors"
	"math"
)

// DotCalibration is the constant from which dot duration is derived:
// dot_us = DotCalibration / speed_wpm. Equal to the "PARIS" standard word
// (50 dit units per minute at 1 WPM).
const DotCalibration = 1_200_000

var (
	// ErrInvalidParameter indicates a value outside its documented range.
	ErrInvalidParameter = errors.New("timing: invalid parameter")
	// ErrAdaptiveConflict indicates an attempt to set receive speed while
	// adaptive mode is enabled.
	ErrAdaptiveConflict = errors.New("timing: cannot set speed while adaptive mode is enabled")
)

// Bounds is a [min,max] microsecond window used for mark/space
// classification.
type Bounds struct {
	MinUs int64
	MaxUs int64
}

// Contains reports whether us falls within [MinUs, MaxUs] inclusive.
func (b Bounds) Contains(us int64) bool {
	return us >= b.MinUs && us <= b.MaxUs
}

// infinite is used for the adaptive-mode "dash has no upper bound" case.
const infinite = int64(math.MaxInt64)

// ReceiveParams holds the receiver's independent timing configuration and
// its derived classification bounds (spec.md §3, §4.3).
type ReceiveParams struct {
	SpeedWPM               int
	TolerancePct           int
	GapUnits               int
	NoiseSpikeThresholdUs  int64
	AdaptiveMode           bool
	AdaptiveSpeedThreshold int64 // derived, only meaningful in adaptive mode

	dirty bool

	Dot     Bounds
	Dash    Bounds
	EOM     Bounds
	EOC     Bounds
	UnitUs  int64
}

// NewReceiveParams constructs validated receive timing parameters and
// performs the initial sync.
func NewReceiveParams(speedWPM, tolerancePct, gapUnits int, noiseSpikeThresholdUs int64, adaptiveMode bool) (*ReceiveParams, error) {
	p := &ReceiveParams{
		SpeedWPM:              speedWPM,
		TolerancePct:          tolerancePct,
		GapUnits:              gapUnits,
		NoiseSpikeThresholdUs: noiseSpikeThresholdUs,
		AdaptiveMode:          adaptiveMode,
		dirty:                 true,
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	p.Sync()
	return p, nil
}

func (p *ReceiveParams) validate() error {
	if p.SpeedWPM < 5 || p.SpeedWPM > 60 {
		return ErrInvalidParameter
	}
	if p.TolerancePct < 0 || p.TolerancePct > 90 {
		return ErrInvalidParameter
	}
	if p.GapUnits < 0 || p.GapUnits > 60 {
		return ErrInvalidParameter
	}
	if p.NoiseSpikeThresholdUs < 0 {
		return ErrInvalidParameter
	}
	return nil
}

// SetSpeed updates the speed, unless adaptive mode is enabled (the speed is
// then derived from observed timing instead).
func (p *ReceiveParams) SetSpeed(wpm int) error {
	if p.AdaptiveMode {
		return ErrAdaptiveConflict
	}
	if wpm < 5 || wpm > 60 {
		return ErrInvalidParameter
	}
	p.SpeedWPM = wpm
	p.dirty = true
	return nil
}

// SetTolerance updates the tolerance percentage (fixed mode only meaningful,
// but storage is unconditional as spec.md doesn't forbid setting it in
// adaptive mode - it simply has no effect until adaptive mode is turned
// off).
func (p *ReceiveParams) SetTolerance(pct int) error {
	if pct < 0 || pct > 90 {
		return ErrInvalidParameter
	}
	p.TolerancePct = pct
	p.dirty = true
	return nil
}

// SetGap updates the additional inter-character/word gap, in dot units.
func (p *ReceiveParams) SetGap(units int) error {
	if units < 0 || units > 60 {
		return ErrInvalidParameter
	}
	p.GapUnits = units
	p.dirty = true
	return nil
}

// SetAdaptiveMode toggles adaptive tracking.
func (p *ReceiveParams) SetAdaptiveMode(enabled bool) {
	p.AdaptiveMode = enabled
	p.dirty = true
}

// SetAdaptiveThreshold is called by the receiver after each accepted mark to
// push a freshly-computed adaptive_speed_threshold_us (spec.md §4.3
// "Adaptive tracking"). It also updates SpeedWPM from the threshold and
// clamps to [5,60], then marks dirty so the next classification resyncs.
func (p *ReceiveParams) SetAdaptiveThreshold(thresholdUs int64) {
	p.AdaptiveSpeedThreshold = thresholdUs
	if thresholdUs > 0 {
		wpm := int(DotCalibration/(float64(thresholdUs)/2) + 0.5)
		if wpm < 5 {
			wpm = 5
		}
		if wpm > 60 {
			wpm = 60
		}
		p.SpeedWPM = wpm
	}
	p.dirty = true
}

// Sync recomputes the derived bounds if dirty; idempotent and deterministic
// (spec.md §3 Invariant P1, §4.2).
func (p *ReceiveParams) Sync() {
	if !p.dirty {
		return
	}
	unit := int64(DotCalibration / float64(p.SpeedWPM))
	p.UnitUs = unit
	dotIdeal := unit
	dashIdeal := 3 * unit

	if p.AdaptiveMode {
		p.Dot = Bounds{MinUs: 0, MaxUs: 2 * dotIdeal}
		p.Dash = Bounds{MinUs: p.Dot.MaxUs, MaxUs: infinite}
		p.EOM = Bounds{MinUs: p.Dot.MinUs, MaxUs: p.Dot.MaxUs}
		p.EOC = Bounds{MinUs: p.EOM.MaxUs, MaxUs: 5 * dotIdeal}
	} else {
		spread := func(ideal int64) Bounds {
			delta := ideal * int64(p.TolerancePct) / 100
			return Bounds{MinUs: ideal - delta, MaxUs: ideal + delta}
		}
		dot := spread(dotIdeal)
		dash := spread(dashIdeal)
		p.Dot = dot
		p.Dash = dash
		p.EOM = Bounds{MinUs: dot.MinUs, MaxUs: dot.MaxUs}

		additionalDelay := int64(p.GapUnits) * unit
		adjustmentDelay := (7 * additionalDelay) / 3
		p.EOC = Bounds{MinUs: dash.MinUs, MaxUs: dash.MaxUs + additionalDelay + adjustmentDelay}
	}
	p.dirty = false
}

// IdentifyMark classifies a mark duration against the current (synced)
// bounds. It returns (isDash, ok); ok is false when the duration falls in
// neither dot nor dash range (fixed mode only - adaptive mode's ranges
// cover [0,infinity) so this always succeeds there).
//
// The dot_max == dash_min tie-break (spec.md §9 open question) resolves to
// dot: Dot.Contains is checked first and its upper bound is inclusive.
func (p *ReceiveParams) IdentifyMark(durationUs int64) (isDash, ok bool) {
	p.Sync()
	if p.Dot.Contains(durationUs) {
		return false, true
	}
	if p.Dash.Contains(durationUs) {
		return true, true
	}
	return false, false
}

// SendParams holds the generator's independent timing configuration
// (spec.md §3, §4.2).
type SendParams struct {
	SpeedWPM      int
	TolerancePct  int
	GapUnits      int
	WeightingPct  int
	FarnsworthWPM int // 0 = same as SpeedWPM

	dirty bool

	UnitUs          int64
	DotLengthUs     int64
	DashLengthUs    int64
	EOEDelayUs      int64 // inter-element (intra-character) silence
	EOCDelayUs      int64 // inter-character silence
	EOWDelayUs      int64 // inter-word silence
	AdditionalDelay int64
	AdjustmentDelay int64
}

// NewSendParams constructs validated send timing parameters and performs
// the initial sync.
func NewSendParams(speedWPM, tolerancePct, gapUnits, weightingPct, farnsworthWPM int) (*SendParams, error) {
	p := &SendParams{
		SpeedWPM:      speedWPM,
		TolerancePct:  tolerancePct,
		GapUnits:      gapUnits,
		WeightingPct:  weightingPct,
		FarnsworthWPM: farnsworthWPM,
		dirty:         true,
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	p.Sync()
	return p, nil
}

func (p *SendParams) validate() error {
	if p.SpeedWPM < 5 || p.SpeedWPM > 60 {
		return ErrInvalidParameter
	}
	if p.TolerancePct < 0 || p.TolerancePct > 90 {
		return ErrInvalidParameter
	}
	if p.GapUnits < 0 || p.GapUnits > 60 {
		return ErrInvalidParameter
	}
	if p.WeightingPct < 20 || p.WeightingPct > 80 {
		return ErrInvalidParameter
	}
	return nil
}

// SetSpeed updates the character speed.
func (p *SendParams) SetSpeed(wpm int) error {
	if wpm < 5 || wpm > 60 {
		return ErrInvalidParameter
	}
	p.SpeedWPM = wpm
	p.dirty = true
	return nil
}

// SetGap updates the additional inter-character/word gap, in dot units.
func (p *SendParams) SetGap(units int) error {
	if units < 0 || units > 60 {
		return ErrInvalidParameter
	}
	p.GapUnits = units
	p.dirty = true
	return nil
}

// SetWeighting updates the dot/dash weighting percentage.
func (p *SendParams) SetWeighting(pct int) error {
	if pct < 20 || pct > 80 {
		return ErrInvalidParameter
	}
	p.WeightingPct = pct
	p.dirty = true
	return nil
}

// SetFarnsworth updates the Farnsworth spacing speed (0 disables it).
func (p *SendParams) SetFarnsworth(wpm int) error {
	if wpm != 0 && (wpm < 5 || wpm > p.SpeedWPM) {
		return ErrInvalidParameter
	}
	p.FarnsworthWPM = wpm
	p.dirty = true
	return nil
}

// Sync recomputes derived send timings if dirty; idempotent (spec.md §4.2).
//
// Weighting biases dot vs dash while keeping dot+dash = 4*unit: at the
// neutral 50% weighting dot=unit, dash=3*unit exactly; moving weighting
// toward 80% lengthens dots and shortens dashes proportionally (and vice
// versa toward 20%), per spec.md §4.2. The combination of weighting with
// eoe_delay is, per spec.md §9, the one place the source is flagged as
// under-documented; this implements the literal derivation spec.md gives
// and does not attempt an independent re-derivation.
func (p *SendParams) Sync() {
	if !p.dirty {
		return
	}
	spacingWPM := p.SpeedWPM
	if p.FarnsworthWPM > 0 && p.FarnsworthWPM < p.SpeedWPM {
		spacingWPM = p.FarnsworthWPM
	}

	unit := int64(DotCalibration / float64(p.SpeedWPM))
	p.UnitUs = unit

	weightDelta := (float64(p.WeightingPct) - 50.0) / 100.0 * float64(unit) * 2
	p.DotLengthUs = unit + int64(weightDelta)
	p.DashLengthUs = 4*unit - p.DotLengthUs
	if p.DotLengthUs < 1 {
		p.DotLengthUs = 1
	}
	if p.DashLengthUs < p.DotLengthUs {
		p.DashLengthUs = p.DotLengthUs
	}

	spacingUnit := int64(DotCalibration / float64(spacingWPM))
	p.AdditionalDelay = int64(p.GapUnits) * spacingUnit
	p.AdjustmentDelay = (7 * p.AdditionalDelay) / 3

	p.EOEDelayUs = spacingUnit
	p.EOCDelayUs = 3*spacingUnit + p.AdditionalDelay
	p.EOWDelayUs = 7*spacingUnit + p.AdjustmentDelay

	p.dirty = false
}
