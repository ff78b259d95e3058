package midinote

import (
	"testing"
)

func TestNoteMessage(t *testing.T) {
	tests := []struct {
		name     string
		note     Note
		channel  uint8
		expected [3]byte
	}{
		{"note on ch 0", Note{Pitch: 60, Velocity: 127, State: On}, 0, [3]byte{0x90, 60, 127}},
		{"note off ch 0", Note{Pitch: 60, Velocity: 127, State: Off}, 0, [3]byte{0x80, 60, 127}},
		{"note on ch 9", Note{Pitch: 36, Velocity: 100, State: On}, 9, [3]byte{0x99, 36, 100}},
		{"note off ch 15", Note{Pitch: 127, Velocity: 1, State: Off}, 15, [3]byte{0x8F, 127, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch, err := NewChannel(tt.channel)
			if err != nil {
				t.Fatalf("NewChannel(%d) error = %v", tt.channel, err)
			}
			if got := tt.note.Message(ch); got != tt.expected {
				t.Errorf("Message() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestNewChannelOutOfRange(t *testing.T) {
	if _, err := NewChannel(16); err == nil {
		t.Error("NewChannel(16) should fail")
	}
}

func TestAllSoundOff(t *testing.T) {
	ch, _ := NewChannel(3)
	if got := ch.AllSoundOff(); got != [3]byte{0xB3, 120, 0} {
		t.Errorf("AllSoundOff() = %v, want [0xB3 120 0]", got)
	}
}

func TestStateString(t *testing.T) {
	if On.String() != "On" || Off.String() != "Off" {
		t.Errorf("State strings = %q, %q", On.String(), Off.String())
	}
}
