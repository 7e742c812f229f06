// internal/receiver/receiver.go
// Package receiver implements the edge-driven CW receive state machine of
// spec.md §4.3: it consumes keying edges with timestamps and produces
// representations and characters, with optional adaptive speed tracking and
// timing statistics.
//
// This generalizes the teacher's tree-walking tone decoder (which walked a
// binary tree from ToneEvent on/off pairs) to the full edge-timestamp model
// the spec requires: explicit states (not just "in/out of character"), a
// representation buffer instead of a tree index, end-of-word detection, and
// noise-spike suppression. internal/dsp feeds this package via
// BridgeToReceiver, translating Goertzel/AGC ToneEvents into the
// NotifyMarkBegin/NotifyMarkEnd calls this state machine consumes.
package receiver

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/ColonelBlimp/gocw/internal/morse"
	"github.com/ColonelBlimp/gocw/internal/timing"
)

// State is one of the seven receiver states of spec.md §3/§4.3.
type State int

const (
	Idle State = iota
	Mark
	Space
	EOCGap
	EOWGap
	EOCGapErr
	EOWGapErr
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Mark:
		return "MARK"
	case Space:
		return "SPACE"
	case EOCGap:
		return "EOC_GAP"
	case EOWGap:
		return "EOW_GAP"
	case EOCGapErr:
		return "EOC_GAP_ERR"
	case EOWGapErr:
		return "EOW_GAP_ERR"
	default:
		return "UNKNOWN"
	}
}

var (
	// ErrOutOfOrder indicates an edge arrived while the state machine was
	// not prepared to accept it (spec.md §4.3).
	ErrOutOfOrder = errors.New("receiver: edge out of order")
	// ErrBufferFull indicates the representation buffer overflowed
	// (MaxRepLen+1 elements).
	ErrBufferFull = errors.New("receiver: representation buffer full")
	// ErrTryAgain indicates the caller should poll again later.
	ErrTryAgain = errors.New("receiver: try again")
	// ErrNoise indicates a mark was suppressed as a noise spike.
	ErrNoise = errors.New("receiver: noise spike suppressed")
	// ErrUnrecognized indicates a mark duration matched neither dot nor
	// dash bounds.
	ErrUnrecognized = errors.New("receiver: mark duration unrecognized")
)

// repBufferCap is MaxRepLen+1 (room for a NUL-equivalent terminator, per
// spec.md §3 "capacity 7 + NUL"); Go strings don't need the NUL byte, so the
// buffer itself only ever holds up to MaxRepLen dot/dash bytes and overflow
// is detected at the (MaxRepLen+1)'th append.
const repBufferCap = morse.MaxRepLen + 1

// avgRingLen is the moving-average ring length for adaptive dot/dash
// tracking (spec.md §4.3 "Adaptive tracking").
const avgRingLen = 4

// statsRingCap is the statistics ring buffer capacity (spec.md §3).
const statsRingCap = 256

// StatKind labels one recorded timing-delta sample.
type StatKind int

const (
	StatDot StatKind = iota
	StatDash
	StatIMarkSpace // inter-mark space, within a character
	StatICharSpace // inter-character space
)

type statRecord struct {
	kind  StatKind
	delta int64 // observed - ideal, microseconds
}

// Receiver is the stateful edge-to-character decoder of spec.md §4.3. Not
// safe for concurrent use by multiple goroutines on the same instance - the
// spec explicitly says receivers are invoked from whichever thread observes
// edges and are not expected to be called concurrently (spec.md §5).
type Receiver struct {
	ID uuid.UUID

	params *timing.ReceiveParams

	state State
	rep   []byte

	markStart time.Time
	markEnd   time.Time

	dotAvg  [avgRingLen]int64
	dashAvg [avgRingLen]int64
	dotN    int
	dashN   int
	dotIdx  int
	dashIdx int

	stats    [statsRingCap]statRecord
	statLen  int
	statHead int
}

// New constructs a Receiver from validated timing parameters.
func New(params *timing.ReceiveParams) *Receiver {
	return &Receiver{
		ID:     uuid.New(),
		params: params,
		state:  Idle,
		rep:    make([]byte, 0, repBufferCap),
	}
}

// State returns the current receiver state.
func (r *Receiver) State() State {
	return r.state
}

// monotonicNow is a seam so timestamps default to time.Now() exactly as
// spec.md §4.3 describes ("if t is null, take now") while tests can pass
// explicit timestamps for determinism.
func monotonicNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

// NotifyMarkBegin records the start of a keying mark. Precondition:
// state ∈ {Idle, Space}.
func (r *Receiver) NotifyMarkBegin(t time.Time) error {
	if r.state != Idle && r.state != Space {
		return ErrOutOfOrder
	}
	t = monotonicNow(t)
	if r.state == Space {
		r.params.Sync()
		r.recordStat(StatIMarkSpace, t.Sub(r.markEnd).Microseconds(), r.params.UnitUs)
	}
	r.markStart = t
	r.state = Mark
	return nil
}

// NotifyMarkEnd records the end of a keying mark and classifies it.
// Precondition: state == Mark.
func (r *Receiver) NotifyMarkEnd(t time.Time) error {
	if r.state != Mark {
		return ErrOutOfOrder
	}
	t = monotonicNow(t)
	markLen := t.Sub(r.markStart).Microseconds()

	if r.params.NoiseSpikeThresholdUs > 0 && markLen <= r.params.NoiseSpikeThresholdUs {
		// Suppress: revert to the pre-mark state exactly (spec.md §4.3,
		// §8 "Noise suppression" property). The buffer cursor is already
		// untouched since we haven't appended anything yet.
		if len(r.rep) == 0 {
			r.state = Idle
		} else {
			r.state = Space
		}
		return ErrNoise
	}

	return r.classifyAndAppend(markLen, t)
}

// classifyAndAppend is the tail of NotifyMarkEnd: it classifies a mark,
// appends to the rep buffer, and transitions to Space - or, on overflow,
// to EOCGapErr.
func (r *Receiver) classifyAndAppend(markLen int64, end time.Time) error {
	isDash, ok := r.identifyMark(markLen)
	if !ok {
		// identify_mark failed to classify; the decision of *which* error
		// state to enter is made here, by comparing against eoc_max,
		// never by re-invoking mark classification on a space-shaped
		// value (spec.md §9 open question #2).
		if markLen > r.params.EOC.MaxUs {
			r.state = EOWGapErr
		} else {
			r.state = EOCGapErr
		}
		return ErrUnrecognized
	}

	r.recordMarkStat(isDash, markLen)
	if r.params.AdaptiveMode {
		r.updateAdaptiveTracking(isDash, markLen)
	}

	elem := byte('.')
	if isDash {
		elem = '-'
	}
	if len(r.rep) >= morse.MaxRepLen {
		r.state = EOCGapErr
		return ErrBufferFull
	}
	r.rep = append(r.rep, elem)
	r.markEnd = end
	r.state = Space
	return nil
}

// identifyMark classifies a mark duration only - it never decides which
// error state to enter (spec.md §9 open question #2 separates the two
// concerns that the original conflated).
func (r *Receiver) identifyMark(markLen int64) (isDash, ok bool) {
	return r.params.IdentifyMark(markLen)
}

func (r *Receiver) recordMarkStat(isDash bool, observed int64) {
	ideal := r.params.UnitUs
	kind := StatDot
	if isDash {
		ideal = 3 * r.params.UnitUs
		kind = StatDash
	}
	r.recordStat(kind, observed, ideal)
}

func (r *Receiver) recordStat(kind StatKind, observed, ideal int64) {
	rec := statRecord{kind: kind, delta: observed - ideal}
	idx := (r.statHead + r.statLen) % statsRingCap
	if r.statLen < statsRingCap {
		r.statLen++
	} else {
		r.statHead = (r.statHead + 1) % statsRingCap
	}
	r.stats[idx] = rec
}

// TimingStdDevUs reports the standard deviation, in microseconds, of the
// observed-minus-ideal deltas recorded for kind over the statistics ring
// buffer (spec.md §3's 256-slot stats buffer). Returns 0 if fewer than two
// samples of kind have been recorded.
func (r *Receiver) TimingStdDevUs(kind StatKind) float64 {
	var deltas []float64
	for i := 0; i < r.statLen; i++ {
		rec := r.stats[(r.statHead+i)%statsRingCap]
		if rec.kind == kind {
			deltas = append(deltas, float64(rec.delta))
		}
	}
	if len(deltas) < 2 {
		return 0
	}
	return stat.StdDev(deltas, nil)
}

// AddDot appends a synthetic dot (e.g. from a straight key simulator or
// paddle emulation) without needing matched begin/end edges.
// Precondition: state ∈ {Idle, Space}.
func (r *Receiver) AddDot(t time.Time) error {
	return r.addSynthetic(false, t)
}

// AddDash appends a synthetic dash. Precondition: state ∈ {Idle, Space}.
func (r *Receiver) AddDash(t time.Time) error {
	return r.addSynthetic(true, t)
}

func (r *Receiver) addSynthetic(isDash bool, t time.Time) error {
	if r.state != Idle && r.state != Space {
		return ErrOutOfOrder
	}
	t = monotonicNow(t)
	elem := byte('.')
	if isDash {
		elem = '-'
	}
	if len(r.rep) >= morse.MaxRepLen {
		r.state = EOCGapErr
		return ErrBufferFull
	}
	r.rep = append(r.rep, elem)
	r.markEnd = t
	r.state = Space
	return nil
}

// PollResult is the outcome of PollRepresentation.
type PollResult struct {
	Representation string
	IsEndOfWord    bool
	IsError        bool
}

// PollRepresentation attempts to resolve the current buffer into a
// completed representation given the elapsed silence since the last mark
// (spec.md §4.3). Returns ErrTryAgain while still inside a mark, with an
// empty buffer, or while the trailing space hasn't reached eoc_min yet.
func (r *Receiver) PollRepresentation(now time.Time) (PollResult, error) {
	now = monotonicNow(now)

	switch r.state {
	case Idle, Mark:
		return PollResult{}, ErrTryAgain
	case EOWGap, EOWGapErr:
		// Idempotent once in EOW_GAP[_ERR] (spec.md §8 "Receiver
		// idempotence on EOW"): repeated polls return the same result
		// without mutating state or consulting now.
		return PollResult{
			Representation: string(r.rep),
			IsEndOfWord:    true,
			IsError:        r.state == EOWGapErr,
		}, nil
	}

	spaceLen := now.Sub(r.markEnd).Microseconds()

	switch {
	case spaceLen < r.params.EOC.MinUs:
		return PollResult{}, ErrTryAgain

	case spaceLen <= r.params.EOC.MaxUs:
		// End of character.
		wasSpace := r.state == Space
		result := PollResult{Representation: string(r.rep), IsError: r.state == EOCGapErr}
		if wasSpace {
			r.recordStat(StatICharSpace, spaceLen, 3*r.params.UnitUs)
			r.state = EOCGap
		}
		// EOCGapErr is preserved as-is (not overwritten) per spec.md §4.3.
		return result, nil

	default:
		// End of word: EOC_GAP -> EOW_GAP, SPACE -> EOW_GAP,
		// EOC_GAP_ERR -> EOW_GAP_ERR.
		isErr := r.state == EOCGapErr
		if isErr {
			r.state = EOWGapErr
		} else {
			r.state = EOWGap
		}
		return PollResult{Representation: string(r.rep), IsEndOfWord: true, IsError: isErr}, nil
	}
}

// CharacterResult is the outcome of PollCharacter.
type CharacterResult struct {
	Character      byte
	Representation string
	IsEndOfWord    bool
	IsError        bool
	Unrecognizable bool
}

// PollCharacter composes PollRepresentation with the reverse Morse lookup.
func (r *Receiver) PollCharacter(now time.Time) (CharacterResult, error) {
	rep, err := r.PollRepresentation(now)
	if err != nil {
		return CharacterResult{}, err
	}
	res := CharacterResult{
		Representation: rep.Representation,
		IsEndOfWord:    rep.IsEndOfWord,
		IsError:        rep.IsError,
	}
	if rep.Representation == "" {
		return res, nil
	}
	c, ok := morse.RepresentationToCharacter(rep.Representation)
	if !ok {
		res.Unrecognizable = true
		return res, nil
	}
	res.Character = c
	return res, nil
}

// ClearBuffer resets the representation buffer and state to Idle;
// statistics are preserved.
func (r *Receiver) ClearBuffer() {
	r.rep = r.rep[:0]
	r.state = Idle
}

// Reset performs a full reset, including statistics and adaptive tracking.
func (r *Receiver) Reset() {
	r.ClearBuffer()
	r.markStart = time.Time{}
	r.markEnd = time.Time{}
	r.dotAvg = [avgRingLen]int64{}
	r.dashAvg = [avgRingLen]int64{}
	r.dotN, r.dashN, r.dotIdx, r.dashIdx = 0, 0, 0, 0
	r.statLen, r.statHead = 0, 0
}

// updateAdaptiveTracking updates the dot/dash moving averages and
// recomputes the adaptive speed threshold (spec.md §4.3 "Adaptive
// tracking"). Per spec.md, the clamped speed is re-synced twice so it fully
// propagates through the derived bounds.
func (r *Receiver) updateAdaptiveTracking(isDash bool, observed int64) {
	if isDash {
		r.dashAvg[r.dashIdx%avgRingLen] = observed
		r.dashIdx++
		if r.dashN < avgRingLen {
			r.dashN++
		}
	} else {
		r.dotAvg[r.dotIdx%avgRingLen] = observed
		r.dotIdx++
		if r.dotN < avgRingLen {
			r.dotN++
		}
	}
	if r.dotN == 0 || r.dashN == 0 {
		return
	}
	avgDot := average(r.dotAvg[:], r.dotN)
	avgDash := average(r.dashAvg[:], r.dashN)
	threshold := avgDot + (avgDash-avgDot)/2

	r.params.SetAdaptiveThreshold(threshold)
	r.params.Sync()
	r.params.Sync() // re-sync twice, per spec.md §4.3
}

func average(ring []int64, n int) int64 {
	if n == 0 {
		return 0
	}
	var sum int64
	for i := 0; i < n; i++ {
		sum += ring[i]
	}
	return sum / int64(n)
}
