package capture

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/james-see/multisampler/pkg/midinote"
	"github.com/james-see/multisampler/pkg/ring"
)

// SendFunc transmits one raw MIDI wire message over the output port.
type SendFunc func(msg []byte) error

// Dispatcher drains the note queue and transmits each event as a
// 3-byte MIDI message. It runs on an ordinary goroutine and may block
// on the port; it polls the queue with a short sleep because the queue
// has no wake primitive.
type Dispatcher struct {
	notes   *ring.Buffer[midinote.Note]
	state   *RunState
	channel midinote.Channel
	send    SendFunc
	log     *zap.Logger
}

// NewDispatcher builds a dispatcher sending on the given channel.
func NewDispatcher(notes *ring.Buffer[midinote.Note], state *RunState, channel midinote.Channel, send SendFunc, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		notes:   notes,
		state:   state,
		channel: channel,
		send:    send,
		log:     log,
	}
}

// Run transmits "all sound off" on the target channel, then polls the
// note queue until the producer abandons it or the run completes.
// Individual transmit failures are logged and skipped; only the
// initial all-sound-off send is fatal.
func (d *Dispatcher) Run() error {
	off := d.channel.AllSoundOff()
	if err := d.send(off[:]); err != nil {
		return fmt.Errorf("failed to send all sound off: %w", err)
	}

	for {
		if d.notes.Abandoned() {
			d.log.Debug("note queue producer was dropped")
			return nil
		}
		if d.state.Done() {
			d.log.Debug("audio callback has set the done flag")
			return nil
		}

		any := false
		for {
			note, ok := d.notes.Pop()
			if !ok {
				break
			}
			any = true

			msg := note.Message(d.channel)
			d.log.Debug("sending note",
				zap.Uint8("status", msg[0]),
				zap.Uint8("pitch", msg[1]),
				zap.Uint8("velocity", msg[2]))
			if err := d.send(msg[:]); err != nil {
				d.log.Error("failed to send MIDI note message", zap.Error(err))
			}
		}

		if !any {
			time.Sleep(time.Millisecond)
		}
	}
}
