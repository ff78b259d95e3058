// Package sequencer turns a declarative sweep configuration into a
// deterministic, sample-accurate stream of note on/off events.
//
// The state machine is advanced in frame increments rather than
// precomputing the whole schedule, so the real-time audio callback can
// drive it one frame at a time without allocating, while the same
// sequencer replayed offline produces the exact event schedule for a
// dry run.
package sequencer

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"time"

	"github.com/james-see/multisampler/pkg/midinote"
)

// Config describes one auto-sampling sweep.
//
// Step, VelocityLevels and RoundRobins treat zero as one, so the zero
// value of the non-range fields is usable.
type Config struct {
	// Start and End bound the range of MIDI note numbers to visit,
	// inclusive.
	Start uint8
	End   uint8
	// Step is the interval in semitones between sampled pitches.
	Step uint8
	// VelocityLevels is the number of velocity layers to sample.
	VelocityLevels uint8
	// RoundRobins is the number of duplicate samples recorded at each
	// pitch and velocity.
	RoundRobins uint8
	// Length is the sustain time each note is held for.
	Length time.Duration
	// Gap is the release time allowed before the next note begins.
	Gap time.Duration
}

// DefaultConfig covers the full MIDI range one semitone at a time with
// a single velocity layer and half a second of sustain and release.
func DefaultConfig() Config {
	return Config{
		Start:          0,
		End:            127,
		Step:           1,
		VelocityLevels: 1,
		RoundRobins:    1,
		Length:         500 * time.Millisecond,
		Gap:            500 * time.Millisecond,
	}
}

// Sentinel errors for configuration problems detected by New.
var (
	ErrStartNote      = errors.New("invalid start of note range")
	ErrEndNote        = errors.New("invalid end of note range")
	ErrVelocityLevels = errors.New("invalid velocity levels")
)

// AdvanceKind discriminates the outcome of an Advance call.
type AdvanceKind uint8

const (
	// NoEventsInFrame means the whole frame budget elapsed without
	// crossing an event boundary.
	NoEventsInFrame AdvanceKind = iota
	// Event means a note boundary was crossed within the budget.
	Event
	// SequenceComplete means no more events will ever be produced.
	SequenceComplete
)

// AdvanceResult is the outcome of advancing the sequencer.
type AdvanceResult struct {
	Kind AdvanceKind
	// Position is the number of frames consumed from the call's budget
	// before the event. Only meaningful when Kind is Event; the
	// sequencer's internal counter has only advanced to this point.
	Position uint64
	// Note is the event itself. Only meaningful when Kind is Event.
	Note midinote.Note
}

// Sequencer drives the auto-sampling schedule. It is owned by a single
// goroutine; Advance mutates it and performs no allocation.
type Sequencer struct {
	length           uint64
	gap              uint64
	pitch            int
	pitchStep        int
	finalPitch       int
	velocity         uint8
	velocityStep     uint8
	roundRobin       uint8
	roundRobinCount  uint8
	samplesRemaining uint64
	next             midinote.State
}

// New validates the configuration and builds a sequencer for the given
// sample rate. Hold and gap durations are converted to whole sample
// counts, truncating.
func New(cfg Config, sampleRate uint32) (*Sequencer, error) {
	if _, err := midinote.NewPitch(cfg.Start); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStartNote, err)
	}
	if _, err := midinote.NewPitch(cfg.End); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEndNote, err)
	}

	levels := cfg.VelocityLevels
	if levels == 0 {
		levels = 1
	}
	if levels > 128 {
		return nil, fmt.Errorf("%w: maximum 128 possible velocity layers, specified %d", ErrVelocityLevels, levels)
	}
	velocityStep := uint8((128 + int(levels) - 1) / int(levels))

	step := cfg.Step
	if step == 0 {
		step = 1
	}
	robins := cfg.RoundRobins
	if robins == 0 {
		robins = 1
	}

	return &Sequencer{
		length:          durationToSamples(cfg.Length, sampleRate),
		gap:             durationToSamples(cfg.Gap, sampleRate),
		pitch:           int(cfg.Start),
		pitchStep:       int(step),
		finalPitch:      int(cfg.End),
		velocity:        127,
		velocityStep:    velocityStep,
		roundRobinCount: robins,
		next:            midinote.On,
	}, nil
}

func durationToSamples(d time.Duration, sampleRate uint32) uint64 {
	if d <= 0 {
		return 0
	}
	return uint64(d) * uint64(sampleRate) / uint64(time.Second)
}

// Advance tries to move forward by numFrames, producing the next event
// if one falls inside the budget.
//
// Only one event boundary is handled per call even when the budget
// spans several; callers draining all pending events call repeatedly,
// passing the unconsumed remainder as the next budget.
func (s *Sequencer) Advance(numFrames uint64) AdvanceResult {
	if numFrames <= s.samplesRemaining {
		s.samplesRemaining -= numFrames
		return AdvanceResult{Kind: NoEventsInFrame}
	}

	result := AdvanceResult{
		Kind:     Event,
		Position: s.samplesRemaining,
		Note: midinote.Note{
			Pitch:    uint8(s.pitch),
			Velocity: s.velocity,
			State:    s.next,
		},
	}
	s.samplesRemaining = 0

	switch s.next {
	case midinote.On:
		if s.pitch > s.finalPitch {
			// would start a note outside the range
			return AdvanceResult{Kind: SequenceComplete}
		}
		s.samplesRemaining = s.length
		s.next = midinote.Off
	case midinote.Off:
		s.samplesRemaining = s.gap
		s.next = midinote.On

		// prepare state for the next note-on
		s.roundRobin++
		if s.roundRobin == s.roundRobinCount {
			s.roundRobin = 0
			if s.velocity >= s.velocityStep {
				s.velocity -= s.velocityStep
			} else {
				s.velocity = 127
				s.pitch += s.pitchStep
			}
		}
	}

	return result
}

// Events consumes the sequencer, yielding every remaining event with
// its absolute sample position. Positions accumulate from the point
// the iterator was created and never reset; the sequence is
// restartable from the start only.
//
// If the position counter reaches the uint64 limit it wraps, and all
// subsequent events are produced starting from position 0 again.
// Events panics if a single note or gap segment is 2^64-1 samples long
// at the configured sample rate.
func (s *Sequencer) Events() iter.Seq2[uint64, midinote.Note] {
	return func(yield func(uint64, midinote.Note) bool) {
		var position uint64
		for {
			switch res := s.Advance(math.MaxUint64); res.Kind {
			case SequenceComplete:
				return
			case Event:
				position += res.Position
				if !yield(position, res.Note) {
					return
				}
			case NoEventsInFrame:
				panic("sequencer: segment length equals the position limit")
			}
		}
	}
}
