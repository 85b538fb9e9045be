// Package recorder captures microphone audio and encodes it into clip
// files ready for upload.
package recorder

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/MartinO24/BarkBack/audio"
	"github.com/MartinO24/BarkBack/encoder"
	"github.com/MartinO24/BarkBack/log"
)

// Clip is one finished recording on disk.
type Clip struct {
	Path    string
	Seconds float64
	SizeKB  float64
}

// Recorder runs one take at a time: Start begins capture, Stop finalizes
// the clip file and returns it.
type Recorder interface {
	// EnsurePermission opens the capture device so the OS surfaces its
	// microphone prompt before the first real take.
	EnsurePermission() error
	Start(ctx context.Context) error
	Stop() (*Clip, error)
	Close()
}

// Service records through a platform audio context. The capture device is
// opened once and reused across takes.
type Service struct {
	audioCtx audio.Context
	dir      string
	format   string
	device   string

	mu      sync.Mutex
	capture audio.CaptureDevice
	take    *take
}

func New(audioCtx audio.Context, dir, format, device string) *Service {
	return &Service{audioCtx: audioCtx, dir: dir, format: format, device: device}
}

func (s *Service) EnsurePermission() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureCaptureLocked()
}

func (s *Service) ensureCaptureLocked() error {
	if s.capture != nil {
		return nil
	}

	device, err := audio.FindDevice(s.audioCtx, s.device)
	if err != nil {
		return fmt.Errorf("listing capture devices: %w", err)
	}
	if s.device != "" && device == nil {
		log.Warnf("capture device %q not found, using default", s.device)
	}
	if device != nil && audio.IsBluetooth(device.Name) {
		log.Warnf("bluetooth mic %q may degrade clips", device.Name)
	}

	capture, err := s.audioCtx.NewCapture(device, audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   1,
	})
	if err != nil {
		return fmt.Errorf("opening capture device: %w", err)
	}
	s.capture = capture
	return nil
}

func (s *Service) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.take != nil {
		return fmt.Errorf("already recording")
	}
	if err := s.ensureCaptureLocked(); err != nil {
		return err
	}

	tk, err := newTake(s.format)
	if err != nil {
		return err
	}

	s.capture.SetCallback(func(data []byte, _ uint32) {
		tk.feed(data)
	})
	if err := s.capture.Start(); err != nil {
		s.capture.ClearCallback()
		tk.abort()
		return fmt.Errorf("starting capture: %w", err)
	}
	s.take = tk
	return nil
}

func (s *Service) Stop() (*Clip, error) {
	s.mu.Lock()
	tk := s.take
	s.take = nil
	capture := s.capture
	s.mu.Unlock()

	if tk == nil {
		return nil, fmt.Errorf("not recording")
	}

	capture.Stop()
	capture.ClearCallback()

	data, frames, err := tk.finish()
	if err != nil {
		return nil, fmt.Errorf("finalizing clip: %w", err)
	}

	now := time.Now()
	name := fmt.Sprintf("recording-%s-%03d.%s", now.Format("20060102-150405"), now.Nanosecond()/1e6, s.format)
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("saving clip: %w", err)
	}

	clip := &Clip{
		Path:    path,
		Seconds: float64(frames) / float64(encoder.SampleRate),
		SizeKB:  float64(len(data)) / 1024,
	}
	log.Infof("clip_saved %s (%.1fs, %.1f KB)", name, clip.Seconds, clip.SizeKB)
	return clip, nil
}

func (s *Service) Close() {
	s.mu.Lock()
	tk := s.take
	s.take = nil
	capture := s.capture
	s.capture = nil
	s.mu.Unlock()

	if capture == nil {
		return
	}
	if tk != nil {
		capture.Stop()
		capture.ClearCallback()
		tk.abort()
	}
	capture.Close()
}

// take buffers incoming PCM and encodes it block by block off the audio
// callback. The partial tail flushes at finish.
type take struct {
	enc        encoder.Encoder
	blockChan  chan []int16
	encodeDone chan struct{}

	mu        sync.Mutex
	sampleBuf []int16
	stopped   bool
	encErr    error
}

func newTake(format string) (*take, error) {
	enc, err := encoder.New(format)
	if err != nil {
		return nil, err
	}

	tk := &take{
		enc:        enc,
		blockChan:  make(chan []int16, 64),
		encodeDone: make(chan struct{}),
	}

	go func() {
		defer close(tk.encodeDone)
		for block := range tk.blockChan {
			if err := tk.enc.EncodeBlock(block); err != nil {
				tk.mu.Lock()
				if tk.encErr == nil {
					tk.encErr = err
				}
				tk.mu.Unlock()
			}
		}
	}()

	return tk, nil
}

func (tk *take) feed(pcm []byte) {
	tk.mu.Lock()
	if tk.stopped {
		tk.mu.Unlock()
		return
	}
	for i := 0; i+1 < len(pcm); i += 2 {
		tk.sampleBuf = append(tk.sampleBuf, int16(binary.LittleEndian.Uint16(pcm[i:])))
	}
	var blocks [][]int16
	for len(tk.sampleBuf) >= encoder.BlockSize {
		block := make([]int16, encoder.BlockSize)
		copy(block, tk.sampleBuf[:encoder.BlockSize])
		tk.sampleBuf = tk.sampleBuf[encoder.BlockSize:]
		blocks = append(blocks, block)
	}
	tk.mu.Unlock()

	for _, block := range blocks {
		tk.blockChan <- block
	}
}

// finish drains the encode pipeline and returns the encoded clip. Callers
// must stop the capture device first so no feed is in flight.
func (tk *take) finish() ([]byte, uint64, error) {
	tk.mu.Lock()
	tk.stopped = true
	partial := tk.sampleBuf
	tk.sampleBuf = nil
	tk.mu.Unlock()

	if len(partial) > 0 {
		tk.blockChan <- partial
	}
	close(tk.blockChan)
	<-tk.encodeDone

	tk.mu.Lock()
	encErr := tk.encErr
	tk.mu.Unlock()
	if encErr != nil {
		tk.enc.Close()
		return nil, 0, encErr
	}

	if err := tk.enc.Close(); err != nil {
		return nil, 0, err
	}
	return tk.enc.Bytes(), tk.enc.TotalFrames(), nil
}

func (tk *take) abort() {
	tk.mu.Lock()
	tk.stopped = true
	tk.mu.Unlock()
	close(tk.blockChan)
	<-tk.encodeDone
	tk.enc.Close()
}
