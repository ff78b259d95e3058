package capture

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/james-see/multisampler/pkg/midinote"
	"github.com/james-see/multisampler/pkg/ring"
)

// Namer builds output file paths from the note identity published in
// the run state. Velocity and round-robin parts only appear when that
// dimension of the sweep has more than one layer.
type Namer struct {
	State         *RunState
	Dir           string
	Prefix        string
	HasVelocity   bool
	HasRoundRobin bool
}

// Next returns the path for the file about to be recorded, together
// with the identity it was derived from.
func (n *Namer) Next() (string, RecordedFile) {
	pitch, velocity, roundRobin := n.State.Note()

	var b strings.Builder
	if n.Prefix != "" {
		b.WriteString(n.Prefix)
		b.WriteByte('_')
	}
	b.WriteString(midinote.Pitch(pitch).String())
	if n.HasVelocity {
		fmt.Fprintf(&b, "_V%d", velocity)
	}
	if n.HasRoundRobin {
		fmt.Fprintf(&b, "_RR%d", roundRobin+1)
	}
	b.WriteString(".wav")

	path := filepath.Join(n.Dir, b.String())
	return path, RecordedFile{
		Path:       path,
		Pitch:      pitch,
		Velocity:   velocity,
		RoundRobin: roundRobin,
	}
}

// RecordedFile is one produced output file tagged with the note it
// recorded.
type RecordedFile struct {
	Path       string
	Pitch      uint8
	Velocity   uint8
	RoundRobin uint8
}

// Encoder receives the PCM of one output file.
type Encoder interface {
	WriteSample(v int16) error
	Close() error
}

// OpenFunc opens the encoder for the next file in the rotation.
type OpenFunc func(path string) (Encoder, error)

// Writer drains the audio queue to disk, rotating to a new file at
// every segment boundary. File I/O errors are fatal and surface
// through Run's return value.
type Writer struct {
	audio *ring.Buffer[Sample]
	state *RunState
	namer *Namer
	open  OpenFunc
	log   *zap.Logger
}

// NewWriter builds a recording writer.
func NewWriter(audio *ring.Buffer[Sample], state *RunState, namer *Namer, open OpenFunc, log *zap.Logger) *Writer {
	return &Writer{
		audio: audio,
		state: state,
		namer: namer,
		open:  open,
		log:   log,
	}
}

// pop polls the audio queue. The second result is false once the queue
// is empty and the run is done, after which nothing more can arrive.
func (w *Writer) pop() (Sample, bool) {
	for {
		if item, ok := w.audio.Pop(); ok {
			return item, true
		}
		if w.state.Done() || w.audio.Abandoned() {
			// check emptiness again: done may have been set between
			// the failed pop and the flag read
			if item, ok := w.audio.Pop(); ok {
				return item, true
			}
			return Sample{}, false
		}
		time.Sleep(time.Millisecond)
	}
}

// Run consumes the audio queue until it is empty and the run is done,
// returning the list of files produced.
func (w *Writer) Run() ([]RecordedFile, error) {
	// nothing should precede the first segment boundary; drop anything
	// that does
	for {
		item, ok := w.pop()
		if !ok {
			w.log.Debug("run completed before any segment was recorded")
			return nil, nil
		}
		if item.Boundary {
			break
		}
	}

	var files []RecordedFile

	path, file := w.namer.Next()
	enc, err := w.open(path)
	if err != nil {
		return nil, err
	}
	files = append(files, file)

	for {
		item, ok := w.pop()
		if !ok {
			w.log.Debug("writer shutting down")
			if err := enc.Close(); err != nil {
				return files, fmt.Errorf("failed to finalize %s: %w", path, err)
			}
			return files, nil
		}

		switch {
		case item.Boundary:
			if err := enc.Close(); err != nil {
				return files, fmt.Errorf("failed to finalize %s: %w", path, err)
			}
			w.log.Debug("rotating to next file")
			path, file = w.namer.Next()
			if enc, err = w.open(path); err != nil {
				return files, err
			}
			files = append(files, file)
		default:
			if err := enc.WriteSample(item.PCM); err != nil {
				return files, fmt.Errorf("failed to write to %s: %w", path, err)
			}
		}
	}
}

// Drain is the discarding writer used by dry test runs: it empties the
// audio queue so the producer is never starved of capacity, throwing
// the contents away, and returns once the queue is empty and the run
// is done.
func Drain(audio *ring.Buffer[Sample], state *RunState) {
	for {
		if _, ok := audio.Pop(); ok {
			continue
		}
		if state.Done() || audio.Abandoned() {
			if _, ok := audio.Pop(); !ok {
				return
			}
			continue
		}
		time.Sleep(time.Millisecond)
	}
}
