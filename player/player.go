package player

import (
	"context"
	"fmt"
	"sync"
)

type Kind int

const (
	KindStarted Kind = iota
	KindFinished      // clip reached its end
	KindStopped       // halted by request or supersession
	KindFailed
)

func (k Kind) String() string {
	switch k {
	case KindStarted:
		return "started"
	case KindFinished:
		return "finished"
	case KindStopped:
		return "stopped"
	case KindFailed:
		return "failed"
	}
	return "unknown"
}

// Event reports a playback status change. Session and Ref carry the
// caller-assigned identity of the playback they belong to, so a consumer
// can discard reports from sessions it has already moved past.
type Event struct {
	Session uint64
	Ref     string
	Kind    Kind
	Err     error
}

type Player interface {
	// Play decodes ref (a clip path) and starts it, superseding whatever
	// was playing. The caller assigns the session identity so it can
	// attribute events it may receive before Play even returns.
	Play(ctx context.Context, session uint64, ref string) error
	// Stop halts the current playback, if any.
	Stop() error
	Events() <-chan Event
	Close()
}

type clip struct {
	path       string
	samples    []int16
	sampleRate int
	channels   int
}

func (c *clip) seconds() float64 {
	if c.sampleRate == 0 || c.channels == 0 {
		return 0
	}
	return float64(len(c.samples)) / float64(c.sampleRate*c.channels)
}

// backend turns a decoded clip into sound. play calls done once when the
// clip ends on its own or the device fails mid-clip; stop aborts early.
// done may race stop, the engine guards against stale completions.
type backend interface {
	play(c *clip, done func(error)) (stop func(), err error)
	close()
}

type activeSession struct {
	id      uint64
	ref     string
	stop    func()
	stopped bool
}

// Device drives one playback at a time over a platform backend and
// publishes session-tagged events.
type Device struct {
	backend backend
	events  chan Event

	mu      sync.Mutex
	current *activeSession
	cache   *clip // last decoded clip, kept for instant replay
}

// New opens the platform playback backend.
func New() (*Device, error) {
	b, err := newBackend()
	if err != nil {
		return nil, fmt.Errorf("opening playback device: %w", err)
	}
	return newDevice(b), nil
}

func newDevice(b backend) *Device {
	return &Device{
		backend: b,
		events:  make(chan Event, 16),
	}
}

func (d *Device) Events() <-chan Event { return d.events }

func (d *Device) Play(ctx context.Context, session uint64, ref string) error {
	if ref == "" {
		return fmt.Errorf("nothing to play")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// supersede whatever is playing; its Stopped event keeps its own tag
	d.Stop()

	c, err := d.loadClip(ref)
	if err != nil {
		return err
	}

	d.mu.Lock()
	sess := &activeSession{id: session, ref: ref}
	d.current = sess
	d.cache = c
	d.mu.Unlock()

	d.emit(Event{Session: session, Ref: ref, Kind: KindStarted})

	stop, err := d.backend.play(c, func(playErr error) { d.finish(sess, playErr) })
	if err != nil {
		d.mu.Lock()
		if d.current == sess {
			d.current = nil
		}
		d.cache = nil
		d.mu.Unlock()
		return err
	}

	d.mu.Lock()
	if sess.stopped {
		// Stop raced us before the backend handle existed
		d.mu.Unlock()
		stop()
		return nil
	}
	sess.stop = stop
	d.mu.Unlock()
	return nil
}

func (d *Device) Stop() error {
	d.mu.Lock()
	sess := d.current
	if sess == nil {
		d.mu.Unlock()
		return nil
	}
	sess.stopped = true
	d.current = nil
	d.cache = nil // an explicit stop releases the loaded clip
	stop := sess.stop
	d.mu.Unlock()

	if stop != nil {
		stop()
	}
	d.emit(Event{Session: sess.id, Ref: sess.ref, Kind: KindStopped})
	return nil
}

func (d *Device) Close() {
	d.Stop()
	d.backend.close()
}

// loadClip reuses the cached decode when the same clip plays again.
func (d *Device) loadClip(ref string) (*clip, error) {
	d.mu.Lock()
	cached := d.cache
	d.mu.Unlock()
	if cached != nil && cached.path == ref {
		return cached, nil
	}
	return decodeClip(ref)
}

func (d *Device) finish(sess *activeSession, playErr error) {
	d.mu.Lock()
	if d.current == sess {
		d.current = nil
	}
	stopped := sess.stopped
	d.mu.Unlock()

	if stopped {
		return // Stop already reported this session
	}

	kind := KindFinished
	if playErr != nil {
		kind = KindFailed
	}
	d.emit(Event{Session: sess.id, Ref: sess.ref, Kind: kind, Err: playErr})
}

func (d *Device) emit(ev Event) {
	select {
	case d.events <- ev:
	default:
		// consumer wedged; drop rather than stall the audio path
	}
}
