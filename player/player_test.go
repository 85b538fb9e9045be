package player

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// scriptedBackend stands in for the platform sound device. Tests fire the
// captured done callbacks to simulate clips ending on their own.
type scriptedBackend struct {
	mu      sync.Mutex
	playErr error
	plays   []*clip
	dones   []func(error)
	stops   int
}

func (b *scriptedBackend) play(c *clip, done func(error)) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.playErr != nil {
		return nil, b.playErr
	}
	b.plays = append(b.plays, c)
	b.dones = append(b.dones, done)
	return func() {
		b.mu.Lock()
		b.stops++
		b.mu.Unlock()
	}, nil
}

func (b *scriptedBackend) close() {}

func (b *scriptedBackend) done(i int, err error) {
	b.mu.Lock()
	done := b.dones[i]
	b.mu.Unlock()
	done(err)
}

func (b *scriptedBackend) clipAt(i int) *clip {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.plays[i]
}

func (b *scriptedBackend) stopCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stops
}

func expectEvent(t *testing.T, ch <-chan Event, session uint64, ref string, kind Kind) {
	t.Helper()
	select {
	case ev := <-ch:
		if ev.Session != session || ev.Ref != ref || ev.Kind != kind {
			t.Fatalf("event = {%d %q %v}, want {%d %q %v}", ev.Session, ev.Ref, ev.Kind, session, ref, kind)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %v event", kind)
	}
}

func expectNoEvent(t *testing.T, ch <-chan Event) {
	t.Helper()
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event {%d %q %v}", ev.Session, ev.Ref, ev.Kind)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDevicePlayLifecycle(t *testing.T) {
	path := writeEncodedClip(t, "wav", testTone(128))
	b := &scriptedBackend{}
	d := newDevice(b)

	if err := d.Play(context.Background(), 7, path); err != nil {
		t.Fatalf("Play: %v", err)
	}
	expectEvent(t, d.Events(), 7, path, KindStarted)

	b.done(0, nil)
	expectEvent(t, d.Events(), 7, path, KindFinished)
	expectNoEvent(t, d.Events())
}

func TestDeviceStopSuppressesLateDone(t *testing.T) {
	path := writeEncodedClip(t, "wav", testTone(128))
	b := &scriptedBackend{}
	d := newDevice(b)

	if err := d.Play(context.Background(), 1, path); err != nil {
		t.Fatalf("Play: %v", err)
	}
	expectEvent(t, d.Events(), 1, path, KindStarted)

	if err := d.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	expectEvent(t, d.Events(), 1, path, KindStopped)
	if got := b.stopCount(); got != 1 {
		t.Errorf("backend stops = %d, want 1", got)
	}

	// the backend drains after the halt; its completion must stay silent
	b.done(0, nil)
	expectNoEvent(t, d.Events())
}

func TestDeviceStopWithoutPlayback(t *testing.T) {
	d := newDevice(&scriptedBackend{})
	if err := d.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	expectNoEvent(t, d.Events())
}

func TestDeviceSupersession(t *testing.T) {
	first := writeEncodedClip(t, "wav", testTone(128))
	second := writeEncodedClip(t, "wav", testTone(64))
	b := &scriptedBackend{}
	d := newDevice(b)

	if err := d.Play(context.Background(), 1, first); err != nil {
		t.Fatalf("Play first: %v", err)
	}
	if err := d.Play(context.Background(), 2, second); err != nil {
		t.Fatalf("Play second: %v", err)
	}

	expectEvent(t, d.Events(), 1, first, KindStarted)
	expectEvent(t, d.Events(), 1, first, KindStopped)
	expectEvent(t, d.Events(), 2, second, KindStarted)
	if got := b.stopCount(); got != 1 {
		t.Errorf("backend stops = %d, want 1", got)
	}

	// the superseded clip's completion arrives late and stays silent
	b.done(0, nil)
	expectNoEvent(t, d.Events())

	b.done(1, nil)
	expectEvent(t, d.Events(), 2, second, KindFinished)
}

func TestDeviceFailureMidClip(t *testing.T) {
	path := writeEncodedClip(t, "wav", testTone(128))
	b := &scriptedBackend{}
	d := newDevice(b)

	if err := d.Play(context.Background(), 3, path); err != nil {
		t.Fatalf("Play: %v", err)
	}
	expectEvent(t, d.Events(), 3, path, KindStarted)

	b.done(0, errors.New("device gone"))
	select {
	case ev := <-d.Events():
		if ev.Kind != KindFailed || ev.Session != 3 || ev.Err == nil {
			t.Fatalf("event = {%d %q %v %v}, want failed with error", ev.Session, ev.Ref, ev.Kind, ev.Err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for failure event")
	}
}

func TestDeviceReplayReusesDecodedClip(t *testing.T) {
	path := writeEncodedClip(t, "wav", testTone(128))
	b := &scriptedBackend{}
	d := newDevice(b)

	if err := d.Play(context.Background(), 1, path); err != nil {
		t.Fatalf("Play: %v", err)
	}
	b.done(0, nil)

	if err := d.Play(context.Background(), 2, path); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if b.clipAt(0) != b.clipAt(1) {
		t.Error("replay after natural finish decoded the clip again")
	}
}

func TestDeviceStopDropsDecodedClip(t *testing.T) {
	path := writeEncodedClip(t, "wav", testTone(128))
	b := &scriptedBackend{}
	d := newDevice(b)

	if err := d.Play(context.Background(), 1, path); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if err := d.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := d.Play(context.Background(), 2, path); err != nil {
		t.Fatalf("Play after stop: %v", err)
	}
	if b.clipAt(0) == b.clipAt(1) {
		t.Error("clip survived an explicit stop")
	}
}

func TestDevicePlayErrors(t *testing.T) {
	t.Run("empty ref", func(t *testing.T) {
		d := newDevice(&scriptedBackend{})
		if err := d.Play(context.Background(), 1, ""); err == nil {
			t.Error("expected error for empty ref")
		}
	})

	t.Run("undecodable ref", func(t *testing.T) {
		d := newDevice(&scriptedBackend{})
		if err := d.Play(context.Background(), 1, "no-such-clip.wav"); err == nil {
			t.Error("expected decode error")
		}
		expectNoEvent(t, d.Events())
	})

	t.Run("backend refuses", func(t *testing.T) {
		path := writeEncodedClip(t, "wav", testTone(64))
		b := &scriptedBackend{playErr: errors.New("no sink")}
		d := newDevice(b)
		if err := d.Play(context.Background(), 1, path); err == nil {
			t.Error("expected backend error")
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		d := newDevice(&scriptedBackend{})
		if err := d.Play(ctx, 1, "whatever.wav"); !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	})
}

func TestFakePlayerMirrorsDevice(t *testing.T) {
	f := NewFakePlayer()

	if err := f.Play(context.Background(), 1, "a.wav"); err != nil {
		t.Fatalf("Play: %v", err)
	}
	expectEvent(t, f.Events(), 1, "a.wav", KindStarted)

	if err := f.Play(context.Background(), 2, "b.wav"); err != nil {
		t.Fatalf("Play: %v", err)
	}
	expectEvent(t, f.Events(), 1, "a.wav", KindStopped)
	expectEvent(t, f.Events(), 2, "b.wav", KindStarted)

	f.Finish()
	expectEvent(t, f.Events(), 2, "b.wav", KindFinished)
	if _, ok := f.Playing(); ok {
		t.Error("still playing after Finish")
	}
	if got := len(f.Plays()); got != 2 {
		t.Errorf("plays = %d, want 2", got)
	}
}

func TestFakePlayerFailedStopKeepsPlaying(t *testing.T) {
	f := NewFakePlayer()
	f.StopErr = errors.New("stuck")

	if err := f.Play(context.Background(), 1, "a.wav"); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if err := f.Stop(); err == nil {
		t.Fatal("expected stop error")
	}
	if _, ok := f.Playing(); !ok {
		t.Error("failed stop should leave the session in flight")
	}
}
