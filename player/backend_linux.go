//go:build linux

package player

import (
	"fmt"
	"sync"

	"github.com/jfreymuth/pulse"
)

type pulseBackend struct {
	client *pulse.Client
}

func newBackend() (backend, error) {
	c, err := pulse.NewClient(pulse.ClientApplicationName("barkback"))
	if err != nil {
		return nil, fmt.Errorf("pulse: %w", err)
	}
	return &pulseBackend{client: c}, nil
}

func (b *pulseBackend) play(c *clip, done func(error)) (func(), error) {
	pos := 0
	samples := c.samples
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if pos >= len(samples) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, samples[pos:])
		pos += n
		return n, nil
	})

	opts := []pulse.PlaybackOption{
		pulse.PlaybackSampleRate(c.sampleRate),
		pulse.PlaybackLatency(0.1),
	}
	if c.channels == 2 {
		opts = append(opts, pulse.PlaybackStereo)
	} else {
		opts = append(opts, pulse.PlaybackMono)
	}

	stream, err := b.client.NewPlayback(reader, opts...)
	if err != nil {
		return nil, fmt.Errorf("pulse playback: %w", err)
	}

	halt := make(chan struct{})
	var once sync.Once
	stop := func() { once.Do(func() { close(halt) }) }

	go func() {
		drained := make(chan struct{})
		go func() {
			stream.Start()
			stream.Drain()
			close(drained)
		}()

		select {
		case <-drained:
			stream.Stop()
			stream.Close()
			select {
			case <-halt: // stop raced completion, Stopped already reported
			default:
				done(nil)
			}
		case <-halt:
			stream.Stop()
			stream.Close()
		}
	}()

	return stop, nil
}

func (b *pulseBackend) close() {
	b.client.Close()
}
