//go:build !linux

package player

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

type malgoBackend struct {
	ctx *malgo.AllocatedContext
}

func newBackend() (backend, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, err
	}
	return &malgoBackend{ctx: ctx}, nil
}

func (b *malgoBackend) play(c *clip, done func(error)) (func(), error) {
	pcm := make([]byte, len(c.samples)*2)
	for i, s := range c.samples {
		pcm[i*2] = byte(s)
		pcm[i*2+1] = byte(s >> 8)
	}

	finished := make(chan struct{})
	var finishOnce sync.Once
	var pos int // touched only by the device callback thread

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = uint32(c.channels)
	config.SampleRate = uint32(c.sampleRate)

	callbacks := malgo.DeviceCallbacks{
		Data: func(out, _ []byte, frameCount uint32) {
			want := int(frameCount) * c.channels * 2
			remaining := len(pcm) - pos
			if remaining <= 0 {
				for i := range out {
					out[i] = 0
				}
				finishOnce.Do(func() { close(finished) })
				return
			}
			n := min(want, remaining)
			copy(out[:n], pcm[pos:pos+n])
			pos += n
			for i := n; i < want; i++ {
				out[i] = 0
			}
		},
	}

	dev, err := malgo.InitDevice(b.ctx.Context, config, callbacks)
	if err != nil {
		return nil, fmt.Errorf("malgo playback: %w", err)
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		return nil, fmt.Errorf("malgo playback start: %w", err)
	}

	halt := make(chan struct{})
	var stopOnce sync.Once
	stop := func() { stopOnce.Do(func() { close(halt) }) }

	go func() {
		select {
		case <-finished:
			dev.Uninit()
			select {
			case <-halt: // stop raced completion, Stopped already reported
			default:
				done(nil)
			}
		case <-halt:
			dev.Uninit()
		}
	}()

	return stop, nil
}

func (b *malgoBackend) close() {
	b.ctx.Uninit()
	b.ctx.Free()
}
