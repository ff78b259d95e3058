package audiodev

import "testing"

func TestParseMatcher(t *testing.T) {
	names := []string{"MacBook Pro Microphone", "Scarlett 2i2 USB", "BlackHole 2ch"}
	name := func(i int) string { return names[i] }

	tests := []struct {
		input   string
		want    int
		matched bool
	}{
		{"0", 0, true},
		{"2", 2, true},
		{"3", 0, false},
		{"scarlett", 1, true},
		{"USB", 1, true},
		{"blackhole", 2, true},
		{"2i2", 1, true},
		{"focusrite", 0, false},
		{"-1", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			m := ParseMatcher(tt.input)
			got, ok := m.Pick(len(names), name)
			if ok != tt.matched {
				t.Fatalf("Pick(%q) matched = %v, want %v", tt.input, ok, tt.matched)
			}
			if ok && got != tt.want {
				t.Errorf("Pick(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestMatcherString(t *testing.T) {
	if got := ParseMatcher("3").String(); got != "3" {
		t.Errorf("String() = %q, want %q", got, "3")
	}
	if got := ParseMatcher("Scarlett").String(); got != "scarlett" {
		t.Errorf("String() = %q, want %q", got, "scarlett")
	}
}

func TestLookupError(t *testing.T) {
	err := &LookupError{What: "MIDI port", Query: "td-3"}
	want := `no MIDI port matching "td-3"`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
