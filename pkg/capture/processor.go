package capture

import (
	"sync/atomic"

	"github.com/james-see/multisampler/pkg/midinote"
	"github.com/james-see/multisampler/pkg/ring"
	"github.com/james-see/multisampler/pkg/sequencer"
)

// Queue capacities, in elements. Overflow is dropped, never blocked on.
const (
	NoteQueueSize  = 1024
	AudioQueueSize = 4096
)

// Sample is one element of the audio queue: either a PCM value or a
// segment boundary telling the writer to rotate to a new file. Carrying
// both in one queue keeps control and payload ordered relative to each
// other without a second synchronization channel.
type Sample struct {
	Boundary bool
	PCM      int16
}

// Processor runs inside the audio-device callback. For every input
// frame it advances the sequencer by one frame and fans out note events
// and PCM samples to the worker queues.
//
// It must never block, lock or allocate: the only fallible operations
// are non-blocking queue pushes, and their only failure mode is a
// counted drop.
type Processor struct {
	notes    *ring.Buffer[midinote.Note]
	seq      *sequencer.Sequencer
	audio    *ring.Buffer[Sample]
	state    *RunState
	channels int

	trimStart bool

	latencyArmed bool
	latencyTimer uint64
	sounded      bool

	noteDrops  atomic.Uint64
	audioDrops atomic.Uint64
}

// NewProcessor wires a processor to its sequencer, queues and shared
// state. channels is the number of interleaved input channels per
// frame.
func NewProcessor(seq *sequencer.Sequencer, notes *ring.Buffer[midinote.Note], audio *ring.Buffer[Sample], state *RunState, channels int, trimStart bool) *Processor {
	if channels < 1 {
		channels = 1
	}
	return &Processor{
		notes:     notes,
		seq:       seq,
		audio:     audio,
		state:     state,
		channels:  channels,
		trimStart: trimStart,
	}
}

// NoteDrops returns how many note events were lost to a full queue.
func (p *Processor) NoteDrops() uint64 {
	return p.noteDrops.Load()
}

// AudioDrops returns how many audio queue items were lost to a full
// queue.
func (p *Processor) AudioDrops() uint64 {
	return p.audioDrops.Load()
}

// beginFrame runs the per-frame sequencer logic and decides whether
// the frame's samples should be emitted.
func (p *Processor) beginFrame(silent bool) bool {
	if p.latencyArmed {
		p.latencyTimer++
	}

	switch res := p.seq.Advance(1); res.Kind {
	case sequencer.NoEventsInFrame:
	case sequencer.SequenceComplete:
		// audio for the buffer keeps flowing so in-flight I/O is not
		// truncated; only the sequencer logic stops mattering
		p.state.MarkDone()
	case sequencer.Event:
		if res.Note.State == midinote.On {
			p.latencyArmed = true
			p.latencyTimer = 0
			p.sounded = false

			// identity must be published before the boundary marker so
			// the writer names the rotated file from fresh state
			p.state.RecordNoteOn(res.Note)
			if !p.audio.Push(Sample{Boundary: true}) {
				p.audioDrops.Add(1)
			}
		}
		if !p.notes.Push(res.Note) {
			p.noteDrops.Add(1)
		}
	}

	if silent {
		if p.trimStart && !p.sounded {
			return false
		}
	} else {
		p.sounded = true
		if p.latencyArmed {
			p.latencyArmed = false
			p.state.RecordLatency(p.latencyTimer)
		}
	}
	return true
}

func (p *Processor) pushPCM(v int16) {
	if !p.audio.Push(Sample{PCM: v}) {
		p.audioDrops.Add(1)
	}
}

// ProcessInt16 consumes one interleaved 16-bit input buffer.
func (p *Processor) ProcessInt16(in []int16) {
	for f := 0; f+p.channels <= len(in); f += p.channels {
		frame := in[f : f+p.channels]
		silent := true
		for _, s := range frame {
			if s != 0 {
				silent = false
				break
			}
		}
		if !p.beginFrame(silent) {
			continue
		}
		for _, s := range frame {
			p.pushPCM(s)
		}
	}
}

// ProcessInt32 consumes one interleaved 32-bit input buffer,
// truncating each sample to 16 bits.
func (p *Processor) ProcessInt32(in []int32) {
	for f := 0; f+p.channels <= len(in); f += p.channels {
		frame := in[f : f+p.channels]
		silent := true
		for _, s := range frame {
			if int16(s>>16) != 0 {
				silent = false
				break
			}
		}
		if !p.beginFrame(silent) {
			continue
		}
		for _, s := range frame {
			p.pushPCM(int16(s >> 16))
		}
	}
}

// ProcessFloat32 consumes one interleaved float input buffer, scaling
// each sample to 16 bits.
func (p *Processor) ProcessFloat32(in []float32) {
	for f := 0; f+p.channels <= len(in); f += p.channels {
		frame := in[f : f+p.channels]
		silent := true
		for _, s := range frame {
			if int16FromFloat(s) != 0 {
				silent = false
				break
			}
		}
		if !p.beginFrame(silent) {
			continue
		}
		for _, s := range frame {
			p.pushPCM(int16FromFloat(s))
		}
	}
}

func int16FromFloat(v float32) int16 {
	switch {
	case v >= 1:
		return 32767
	case v <= -1:
		return -32768
	default:
		return int16(v * 32767)
	}
}
