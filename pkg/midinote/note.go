// Package midinote provides the MIDI value types used throughout the
// sampler: note events, channels, and pitches with their note-name
// representation.
package midinote

import "fmt"

// State is the kind of note event.
type State uint8

const (
	// On marks the start of a played note (status 0x90).
	On State = 0x90
	// Off marks the release of a played note (status 0x80).
	Off State = 0x80
)

// String returns "On" or "Off".
func (s State) String() string {
	if s == On {
		return "On"
	}
	return "Off"
}

// Status renders the state as the status byte of a channel voice message.
func (s State) Status(ch Channel) uint8 {
	return uint8(s) | uint8(ch)
}

// Note is an immutable note event produced by the sequencer.
type Note struct {
	Pitch    uint8 // MIDI note number (0-127)
	Velocity uint8 // Velocity (0-127)
	State    State
}

// Message renders the note as a 3-byte MIDI wire message on the given
// channel.
func (n Note) Message(ch Channel) [3]byte {
	return [3]byte{n.State.Status(ch), n.Pitch, n.Velocity}
}

// Channel is a validated MIDI channel number (0-15).
type Channel uint8

// NewChannel validates a zero-based MIDI channel number.
func NewChannel(n uint8) (Channel, error) {
	if n > 15 {
		return 0, &OutOfRangeError{What: "MIDI channel", Value: n, Max: 15}
	}
	return Channel(n), nil
}

// Number returns the zero-based channel number.
func (c Channel) Number() uint8 {
	return uint8(c)
}

// AllSoundOff builds the MIDI "All Sound Off" control message for this
// channel.
func (c Channel) AllSoundOff() [3]byte {
	return [3]byte{0xB0 | uint8(c), 120, 0}
}

// OutOfRangeError reports a MIDI value above its allowed maximum.
type OutOfRangeError struct {
	What  string
	Value uint8
	Max   uint8
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("%s %d is larger than maximum %d", e.What, e.Value, e.Max)
}
