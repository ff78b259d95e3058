package capture

import (
	"testing"
	"time"

	"github.com/james-see/multisampler/pkg/midinote"
	"github.com/james-see/multisampler/pkg/ring"
	"github.com/james-see/multisampler/pkg/sequencer"
)

// newTestSequencer runs at 1 kHz with 100 ms hold and gap, so one note
// occupies samples [0, 101) and the next note-on lands 202 samples
// after the previous one.
func newTestSequencer(t *testing.T, cfg sequencer.Config) *sequencer.Sequencer {
	t.Helper()
	cfg.Length = 100 * time.Millisecond
	cfg.Gap = 100 * time.Millisecond
	seq, err := sequencer.New(cfg, 1000)
	if err != nil {
		t.Fatalf("sequencer.New() error = %v", err)
	}
	return seq
}

func constantBuffer(frames int, value int16) []int16 {
	buf := make([]int16, frames)
	for i := range buf {
		buf[i] = value
	}
	return buf
}

func drainNotes(notes *ring.Buffer[midinote.Note]) []midinote.Note {
	var out []midinote.Note
	for {
		n, ok := notes.Pop()
		if !ok {
			return out
		}
		out = append(out, n)
	}
}

func TestProcessorFansOutEvents(t *testing.T) {
	seq := newTestSequencer(t, sequencer.Config{Start: 60, End: 60})
	notes := ring.New[midinote.Note](NoteQueueSize)
	audio := ring.New[Sample](AudioQueueSize)
	state := NewRunState(60)
	p := NewProcessor(seq, notes, audio, state, 1, false)

	p.ProcessInt16(constantBuffer(300, 1000))

	got := drainNotes(notes)
	want := []midinote.Note{
		{Pitch: 60, Velocity: 127, State: midinote.On},
		{Pitch: 60, Velocity: 127, State: midinote.Off},
	}
	if len(got) != len(want) {
		t.Fatalf("note count = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("note %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	if !state.Done() {
		t.Error("done flag should be set after the sequence completes")
	}

	// the first queue item must be the segment boundary, published
	// after the note identity
	first, ok := audio.Pop()
	if !ok || !first.Boundary {
		t.Fatalf("first audio item = %+v, %v, want a boundary", first, ok)
	}
	samples := 0
	for {
		item, ok := audio.Pop()
		if !ok {
			break
		}
		if item.Boundary {
			t.Error("unexpected extra boundary for a single note")
		}
		samples++
	}
	if samples != 300 {
		t.Errorf("sample count = %d, want 300", samples)
	}

	if p.NoteDrops() != 0 || p.AudioDrops() != 0 {
		t.Errorf("drops = %d/%d, want none", p.NoteDrops(), p.AudioDrops())
	}
}

func TestProcessorMeasuresLatency(t *testing.T) {
	seq := newTestSequencer(t, sequencer.Config{Start: 60, End: 60})
	notes := ring.New[midinote.Note](NoteQueueSize)
	audio := ring.New[Sample](AudioQueueSize)
	state := NewRunState(60)
	p := NewProcessor(seq, notes, audio, state, 1, false)

	// ten silent frames after the note-on, then sound
	buf := constantBuffer(300, 2000)
	for i := 0; i < 10; i++ {
		buf[i] = 0
	}
	p.ProcessInt16(buf)

	if state.Latency() != 10 {
		t.Errorf("Latency() = %d, want 10", state.Latency())
	}
}

func TestProcessorTrimStart(t *testing.T) {
	seq := newTestSequencer(t, sequencer.Config{Start: 60, End: 60})
	notes := ring.New[midinote.Note](NoteQueueSize)
	audio := ring.New[Sample](AudioQueueSize)
	state := NewRunState(60)
	p := NewProcessor(seq, notes, audio, state, 1, true)

	buf := constantBuffer(300, 2000)
	for i := 0; i < 10; i++ {
		buf[i] = 0
	}
	p.ProcessInt16(buf)

	items := 0
	boundaries := 0
	for {
		item, ok := audio.Pop()
		if !ok {
			break
		}
		if item.Boundary {
			boundaries++
		} else {
			items++
		}
	}
	if boundaries != 1 {
		t.Errorf("boundary count = %d, want 1", boundaries)
	}
	// the ten leading silent frames were trimmed
	if items != 290 {
		t.Errorf("sample count = %d, want 290", items)
	}
}

func TestProcessorInterleavedChannels(t *testing.T) {
	seq := newTestSequencer(t, sequencer.Config{Start: 60, End: 60})
	notes := ring.New[midinote.Note](NoteQueueSize)
	audio := ring.New[Sample](AudioQueueSize)
	state := NewRunState(60)
	p := NewProcessor(seq, notes, audio, state, 2, false)

	// 50 stereo frames: left channel silent, right channel sounding
	buf := make([]int16, 100)
	for i := 1; i < len(buf); i += 2 {
		buf[i] = 3000
	}
	p.ProcessInt16(buf)

	// a frame is silent only when every channel sample is zero
	if state.Latency() != 0 {
		t.Errorf("Latency() = %d, want 0", state.Latency())
	}

	first, _ := audio.Pop()
	if !first.Boundary {
		t.Fatal("expected leading boundary")
	}
	var samples []int16
	for {
		item, ok := audio.Pop()
		if !ok {
			break
		}
		samples = append(samples, item.PCM)
	}
	if len(samples) != 100 {
		t.Fatalf("sample count = %d, want 100", len(samples))
	}
	// interleaving is preserved
	if samples[0] != 0 || samples[1] != 3000 {
		t.Errorf("first frame = [%d %d], want [0 3000]", samples[0], samples[1])
	}
}

func TestProcessorCountsDrops(t *testing.T) {
	seq := newTestSequencer(t, sequencer.Config{Start: 60, End: 60})
	notes := ring.New[midinote.Note](NoteQueueSize)
	audio := ring.New[Sample](4)
	state := NewRunState(60)
	p := NewProcessor(seq, notes, audio, state, 1, false)

	// 300 samples plus one boundary compete for 4 slots; nothing
	// drains the queue, so the rest is dropped, never blocked on
	p.ProcessInt16(constantBuffer(300, 1000))

	if p.AudioDrops() != 297 {
		t.Errorf("AudioDrops() = %d, want 297", p.AudioDrops())
	}
	if p.NoteDrops() != 0 {
		t.Errorf("NoteDrops() = %d, want 0", p.NoteDrops())
	}
}

func TestProcessorInt32Truncation(t *testing.T) {
	seq := newTestSequencer(t, sequencer.Config{Start: 60, End: 60})
	notes := ring.New[midinote.Note](NoteQueueSize)
	audio := ring.New[Sample](AudioQueueSize)
	state := NewRunState(60)
	p := NewProcessor(seq, notes, audio, state, 1, false)

	// values below 1<<16 truncate to zero and count as silence
	p.ProcessInt32([]int32{0xFFFF, 1 << 16, 5 << 16})

	if state.Latency() != 1 {
		t.Errorf("Latency() = %d, want 1", state.Latency())
	}

	audio.Pop() // boundary
	var samples []int16
	for {
		item, ok := audio.Pop()
		if !ok {
			break
		}
		samples = append(samples, item.PCM)
	}
	want := []int16{0, 1, 5}
	if len(samples) != len(want) {
		t.Fatalf("sample count = %d, want %d", len(samples), len(want))
	}
	for i := range want {
		if samples[i] != want[i] {
			t.Errorf("sample %d = %d, want %d", i, samples[i], want[i])
		}
	}
}

func TestProcessorFloat32Scaling(t *testing.T) {
	seq := newTestSequencer(t, sequencer.Config{Start: 60, End: 60})
	notes := ring.New[midinote.Note](NoteQueueSize)
	audio := ring.New[Sample](AudioQueueSize)
	state := NewRunState(60)
	p := NewProcessor(seq, notes, audio, state, 1, false)

	p.ProcessFloat32([]float32{0, 0.5, 1.5, -2})

	audio.Pop() // boundary
	var samples []int16
	for {
		item, ok := audio.Pop()
		if !ok {
			break
		}
		samples = append(samples, item.PCM)
	}
	want := []int16{0, 16383, 32767, -32768}
	if len(samples) != len(want) {
		t.Fatalf("sample count = %d, want %d", len(samples), len(want))
	}
	for i := range want {
		if samples[i] != want[i] {
			t.Errorf("sample %d = %d, want %d", i, samples[i], want[i])
		}
	}
}
