package midinote

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Pitch is a validated MIDI note number.
//
// It renders as a note name with octave, e.g. pitch 60 is "C4", and
// parses back from either that form or a raw number. Sharps are only
// accepted on C, D, F, G and A; the octave may be negative.
type Pitch uint8

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NewPitch validates a MIDI note number.
func NewPitch(n uint8) (Pitch, error) {
	if n > 127 {
		return 0, &OutOfRangeError{What: "MIDI note", Value: n, Max: 127}
	}
	return Pitch(n), nil
}

// Number returns the MIDI note number.
func (p Pitch) Number() uint8 {
	return uint8(p)
}

// String renders the pitch as its note name, octave -1 through 9.
func (p Pitch) String() string {
	return fmt.Sprintf("%s%d", noteNames[p%12], int(p/12)-1)
}

// ErrEmptyPitch is returned when parsing an empty string as a pitch.
var ErrEmptyPitch = errors.New("empty pitch")

// ParsePitch accepts either a raw MIDI note number (0-127) or a note
// name of the form <letter>[#]<octave>. It round-trips with String.
func ParsePitch(s string) (Pitch, error) {
	if s == "" {
		return 0, ErrEmptyPitch
	}

	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > 127 {
			return 0, fmt.Errorf("MIDI note %d is outside 0-127", n)
		}
		return Pitch(n), nil
	}

	name := s[0]
	var note int
	var canSharpen bool
	switch name &^ 0x20 { // uppercase
	case 'C':
		note, canSharpen = 0, true
	case 'D':
		note, canSharpen = 2, true
	case 'E':
		note, canSharpen = 4, false
	case 'F':
		note, canSharpen = 5, true
	case 'G':
		note, canSharpen = 7, true
	case 'A':
		note, canSharpen = 9, true
	case 'B':
		note, canSharpen = 11, false
	default:
		return 0, fmt.Errorf("%q is not a valid note name", string(name))
	}

	rest := s[1:]
	if strings.HasPrefix(rest, "#") {
		if !canSharpen {
			return 0, fmt.Errorf("note %c cannot have a sharp attached to it", name&^0x20)
		}
		note++
		rest = rest[1:]
	}

	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("invalid octave in %q: %w", s, err)
	}

	n := (octave+1)*12 + note
	if n < 0 || n > 127 {
		return 0, fmt.Errorf("note %q is outside the MIDI range", s)
	}
	return Pitch(n), nil
}
