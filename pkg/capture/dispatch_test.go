package capture

import (
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/james-see/multisampler/pkg/midinote"
	"github.com/james-see/multisampler/pkg/ring"
)

type sendRecorder struct {
	mu   sync.Mutex
	sent [][]byte
}

func (r *sendRecorder) send(msg []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, append([]byte(nil), msg...))
	return nil
}

func (r *sendRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func (r *sendRecorder) message(i int) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sent[i]
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for condition")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestDispatcherSendsQueuedNotes(t *testing.T) {
	notes := ring.New[midinote.Note](NoteQueueSize)
	state := NewRunState(60)
	rec := &sendRecorder{}
	ch, _ := midinote.NewChannel(2)
	d := NewDispatcher(notes, state, ch, rec.send, zap.NewNop())

	done := make(chan error, 1)
	go func() { done <- d.Run() }()

	notes.Push(midinote.Note{Pitch: 60, Velocity: 100, State: midinote.On})
	notes.Push(midinote.Note{Pitch: 60, Velocity: 100, State: midinote.Off})
	waitFor(t, func() bool { return rec.count() == 3 })

	state.MarkDone()
	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// all sound off goes out before any note
	if got := rec.message(0); got[0] != 0xB2 || got[1] != 120 || got[2] != 0 {
		t.Errorf("first message = % X, want B2 78 00", got)
	}
	if got := rec.message(1); got[0] != 0x92 || got[1] != 60 || got[2] != 100 {
		t.Errorf("note on = % X, want 92 3C 64", got)
	}
	if got := rec.message(2); got[0] != 0x82 || got[1] != 60 || got[2] != 100 {
		t.Errorf("note off = % X, want 82 3C 64", got)
	}
}

func TestDispatcherAllSoundOffFailureIsFatal(t *testing.T) {
	notes := ring.New[midinote.Note](NoteQueueSize)
	state := NewRunState(60)
	ch, _ := midinote.NewChannel(0)
	d := NewDispatcher(notes, state, ch, func([]byte) error {
		return errors.New("port closed")
	}, zap.NewNop())

	if err := d.Run(); err == nil {
		t.Fatal("Run() should fail when all sound off cannot be sent")
	}
}

func TestDispatcherSkipsFailedNoteSends(t *testing.T) {
	notes := ring.New[midinote.Note](NoteQueueSize)
	state := NewRunState(60)
	rec := &sendRecorder{}
	var calls int
	send := func(msg []byte) error {
		calls++
		if calls == 2 {
			// first note message fails, later ones still go out
			return errors.New("transient")
		}
		return rec.send(msg)
	}
	ch, _ := midinote.NewChannel(0)
	d := NewDispatcher(notes, state, ch, send, zap.NewNop())

	// queued before Run starts so the first drain sees both notes
	notes.Push(midinote.Note{Pitch: 40, Velocity: 80, State: midinote.On})
	notes.Push(midinote.Note{Pitch: 41, Velocity: 80, State: midinote.On})

	done := make(chan error, 1)
	go func() { done <- d.Run() }()

	// the recorder sees all sound off and the second note; the first
	// note's failure is logged and skipped
	waitFor(t, func() bool { return rec.count() == 2 })
	state.MarkDone()
	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := rec.message(1); got[1] != 41 {
		t.Errorf("delivered note pitch = %d, want 41", got[1])
	}
}
