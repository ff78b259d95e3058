// Package capture implements the real-time recording pipeline: the
// audio-callback processor that advances the sequencer, the worker
// that transmits MIDI, and the worker that writes segmented WAV files.
package capture

import (
	"sync/atomic"

	"github.com/james-see/multisampler/pkg/midinote"
)

// RunState is the process-wide state of one capture run, shared by
// reference between the audio callback, both workers and the main
// goroutine. It holds exactly three atomics and no locks.
//
// The note identity is packed into a single word so readers always
// observe a consistent (pitch, velocity, round robin) triple. The top
// byte flags the initial state, before any note has started; the
// round-robin byte is reconstructed on each write by comparing against
// the previous identity, so the writer of the word needs no state of
// its own.
type RunState struct {
	noteData atomic.Uint32
	done     atomic.Bool
	latency  atomic.Uint64
}

func packNote(initial byte, pitch, velocity, roundRobin uint8) uint32 {
	return uint32(initial)<<24 | uint32(pitch)<<16 | uint32(velocity)<<8 | uint32(roundRobin)
}

// NewRunState creates the state for a run whose first note will have
// the given pitch.
func NewRunState(initialPitch uint8) *RunState {
	s := &RunState{}
	s.noteData.Store(packNote(1, initialPitch, 127, 0))
	return s
}

// Done reports whether the sequencer has completed.
func (s *RunState) Done() bool {
	return s.done.Load()
}

// MarkDone flags the run as complete. The flag is one-way; it is never
// cleared.
func (s *RunState) MarkDone() {
	s.done.Store(true)
}

// Latency returns the largest measured round-trip latency, in samples.
func (s *RunState) Latency() uint64 {
	return s.latency.Load()
}

// RecordLatency keeps the running maximum of measured latencies.
func (s *RunState) RecordLatency(samples uint64) {
	for {
		cur := s.latency.Load()
		if samples <= cur || s.latency.CompareAndSwap(cur, samples) {
			return
		}
	}
}

// Note returns the identity of the most recently started note.
func (s *RunState) Note() (pitch, velocity, roundRobin uint8) {
	v := s.noteData.Load()
	return uint8(v >> 16), uint8(v >> 8), uint8(v)
}

// RecordNoteOn publishes the identity of a note that just started.
// Called only from the audio callback, before the matching segment
// boundary is enqueued. The round-robin index increments when an
// identical pitch and velocity pair is re-announced and resets to zero
// otherwise.
func (s *RunState) RecordNoteOn(n midinote.Note) {
	old := s.noteData.Load()
	initial := uint8(old >> 24)
	oldPitch := uint8(old >> 16)
	oldVelocity := uint8(old >> 8)

	var roundRobin uint8
	if initial == 0 && oldPitch == n.Pitch && oldVelocity == n.Velocity {
		roundRobin = uint8(old) + 1
	}
	s.noteData.Store(packNote(0, n.Pitch, n.Velocity, roundRobin))
}
