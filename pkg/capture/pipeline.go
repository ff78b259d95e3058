package capture

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/james-see/multisampler/pkg/midinote"
	"github.com/james-see/multisampler/pkg/ring"
	"github.com/james-see/multisampler/pkg/sequencer"
)

// Options configures a capture pipeline.
type Options struct {
	// Sequencer drives the note schedule. The pipeline's processor
	// takes ownership of it.
	Sequencer *sequencer.Sequencer
	// Channel is the MIDI channel notes are dispatched on.
	Channel midinote.Channel
	// Send transmits raw MIDI messages on the output port.
	Send SendFunc
	// Channels is the number of interleaved audio input channels.
	Channels int
	// InitialPitch seeds the run state before the first note starts.
	InitialPitch uint8
	// TrimStart drops leading silence from each recorded segment.
	TrimStart bool

	// Save selects recording mode; when false the writer discards all
	// audio (test runs).
	Save bool
	// Open opens the encoder for each output file. Required when Save
	// is set; NewWavOpener provides the WAV implementation.
	Open OpenFunc
	// Namer names the output files. Required when Save is set.
	Namer *Namer

	Log *zap.Logger
}

// Pipeline owns the queues and worker goroutines around one capture
// run. The audio device callback calls the Processor; Start launches
// the workers; Wait joins them after the sequence completes.
type Pipeline struct {
	Processor *Processor
	state     *RunState
	notes     *ring.Buffer[midinote.Note]
	audio     *ring.Buffer[Sample]

	dispatcher *Dispatcher
	writer     *Writer
	save       bool
	log        *zap.Logger

	midiDone  chan error
	writeDone chan error
	files     []RecordedFile
}

// NewPipeline builds the queues, processor and workers for a run.
func NewPipeline(opts Options) *Pipeline {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	state := NewRunState(opts.InitialPitch)
	notes := ring.New[midinote.Note](NoteQueueSize)
	audio := ring.New[Sample](AudioQueueSize)

	if opts.Namer != nil {
		opts.Namer.State = state
	}

	p := &Pipeline{
		Processor:  NewProcessor(opts.Sequencer, notes, audio, state, opts.Channels, opts.TrimStart),
		state:      state,
		notes:      notes,
		audio:      audio,
		dispatcher: NewDispatcher(notes, state, opts.Channel, opts.Send, log),
		save:       opts.Save,
		log:        log,
		midiDone:   make(chan error, 1),
		writeDone:  make(chan error, 1),
	}
	if opts.Save {
		p.writer = NewWriter(audio, state, opts.Namer, opts.Open, log)
	}
	return p
}

// State exposes the shared run state for polling and reporting.
func (p *Pipeline) State() *RunState {
	return p.state
}

// Start launches the dispatch and writer workers.
func (p *Pipeline) Start() {
	go p.runWorker("MIDI", p.midiDone, func() error {
		return p.dispatcher.Run()
	})

	if p.save {
		go p.runWorker("I/O", p.writeDone, func() error {
			files, err := p.writer.Run()
			p.files = files
			return err
		})
	} else {
		go p.runWorker("I/O", p.writeDone, func() error {
			Drain(p.audio, p.state)
			return nil
		})
	}
}

// runWorker executes fn, converting a panic into a reported error
// instead of unwinding into the runtime.
func (p *Pipeline) runWorker(name string, done chan<- error, fn func() error) {
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s thread panicked: %v", name, r)
		}
		done <- err
	}()
	err = fn()
}

// Abandon signals both queues that the producer is gone. Called when
// the audio stream stops delivering callbacks before the sequence
// completed (device errors, aborted runs); the workers drain what is
// queued and exit.
func (p *Pipeline) Abandon() {
	p.notes.Abandon()
	p.audio.Abandon()
}

// Wait joins the MIDI worker, then the writer, and returns the list of
// files produced. Worker errors and panics surface here.
func (p *Pipeline) Wait() ([]RecordedFile, error) {
	p.log.Debug("waiting for MIDI thread to finish")
	midiErr := <-p.midiDone
	p.log.Debug("MIDI thread exited, waiting for writer")
	writeErr := <-p.writeDone
	p.log.Debug("writer exited")

	if midiErr != nil {
		return p.files, midiErr
	}
	return p.files, writeErr
}
