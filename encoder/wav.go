package encoder

import (
	"bytes"
	"encoding/binary"
	"sync"
)

const wavHeaderSize = 44

// WavEncoder accumulates 16-bit PCM and prefixes the canonical 44-byte
// RIFF header when closed. The header carries sizes, so Bytes is only
// valid after Close.
type WavEncoder struct {
	buf         bytes.Buffer
	out         []byte
	totalFrames uint64
	mu          sync.Mutex
}

func NewWav() *WavEncoder {
	return &WavEncoder{}
}

func (e *WavEncoder) EncodeBlock(block []int16) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	b := make([]byte, len(block)*2)
	for i, s := range block {
		binary.LittleEndian.PutUint16(b[i*2:], uint16(s))
	}
	e.buf.Write(b)
	e.totalFrames += uint64(len(block))
	return nil
}

func (e *WavEncoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	data := e.buf.Bytes()
	e.out = make([]byte, 0, wavHeaderSize+len(data))
	e.out = append(e.out, wavHeader(len(data))...)
	e.out = append(e.out, data...)
	return nil
}

func (e *WavEncoder) Bytes() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.out
}

func (e *WavEncoder) TotalFrames() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalFrames
}

func wavHeader(dataLen int) []byte {
	const (
		byteRate   = SampleRate * Channels * BitsPerSample / 8
		blockAlign = Channels * BitsPerSample / 8
	)

	h := make([]byte, wavHeaderSize)
	copy(h[0:4], "RIFF")
	binary.LittleEndian.PutUint32(h[4:8], uint32(36+dataLen))
	copy(h[8:12], "WAVE")
	copy(h[12:16], "fmt ")
	binary.LittleEndian.PutUint32(h[16:20], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(h[20:22], 1)  // PCM
	binary.LittleEndian.PutUint16(h[22:24], Channels)
	binary.LittleEndian.PutUint32(h[24:28], SampleRate)
	binary.LittleEndian.PutUint32(h[28:32], byteRate)
	binary.LittleEndian.PutUint16(h[32:34], blockAlign)
	binary.LittleEndian.PutUint16(h[34:36], BitsPerSample)
	copy(h[36:40], "data")
	binary.LittleEndian.PutUint32(h[40:44], uint32(dataLen))
	return h
}
