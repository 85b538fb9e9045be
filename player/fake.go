package player

import (
	"context"
	"sync"
)

// FakePlay records one Play call.
type FakePlay struct {
	Session uint64
	Ref     string
}

// FakePlayer scripts playback without a sound device. It mirrors the real
// Device's event behavior: Play supersedes, Stop reports the halted
// session, and tests drive natural completion with Finish or Fail.
type FakePlayer struct {
	PlayErr error
	StopErr error

	mu      sync.Mutex
	events  chan Event
	plays   []FakePlay
	stops   int
	current *FakePlay
}

func NewFakePlayer() *FakePlayer {
	return &FakePlayer{events: make(chan Event, 16)}
}

func (f *FakePlayer) Play(_ context.Context, session uint64, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.current != nil {
		f.send(Event{Session: f.current.Session, Ref: f.current.Ref, Kind: KindStopped})
		f.current = nil
	}
	if f.PlayErr != nil {
		return f.PlayErr
	}

	p := FakePlay{Session: session, Ref: ref}
	f.plays = append(f.plays, p)
	f.current = &p
	f.send(Event{Session: session, Ref: ref, Kind: KindStarted})
	return nil
}

func (f *FakePlayer) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.stops++
	if f.StopErr != nil {
		return f.StopErr
	}
	if f.current != nil {
		f.send(Event{Session: f.current.Session, Ref: f.current.Ref, Kind: KindStopped})
		f.current = nil
	}
	return nil
}

func (f *FakePlayer) Events() <-chan Event { return f.events }

func (f *FakePlayer) Close() {}

// Finish simulates the current clip reaching its natural end.
func (f *FakePlayer) Finish() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil {
		return
	}
	f.send(Event{Session: f.current.Session, Ref: f.current.Ref, Kind: KindFinished})
	f.current = nil
}

// Fail simulates the device dying mid-clip.
func (f *FakePlayer) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil {
		return
	}
	f.send(Event{Session: f.current.Session, Ref: f.current.Ref, Kind: KindFailed, Err: err})
	f.current = nil
}

// Emit injects an arbitrary event, stale tags included.
func (f *FakePlayer) Emit(ev Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.send(ev)
}

func (f *FakePlayer) Plays() []FakePlay {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakePlay(nil), f.plays...)
}

func (f *FakePlayer) Stops() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

// Playing returns the in-flight session, if any.
func (f *FakePlayer) Playing() (FakePlay, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil {
		return FakePlay{}, false
	}
	return *f.current, true
}

func (f *FakePlayer) send(ev Event) {
	select {
	case f.events <- ev:
	default:
	}
}
