package player

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mewkiz/flac"
)

func decodeClip(path string) (*clip, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return decodeWAV(path)
	case ".flac":
		return decodeFLAC(path)
	default:
		return nil, fmt.Errorf("cannot play %q: unsupported format", filepath.Base(path))
	}
}

func decodeWAV(path string) (*clip, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading clip: %w", err)
	}
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%s is not a WAV file", filepath.Base(path))
	}

	var (
		sampleRate int
		channels   int
		bits       int
		pcm        []byte
		haveFmt    bool
	)

	// walk the chunk list; files from other tools carry LIST/INFO chunks
	for pos := 12; pos+8 <= len(data); {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if body+size > len(data) {
			size = len(data) - body // tolerate a short final chunk
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("%s has a malformed fmt chunk", filepath.Base(path))
			}
			format := binary.LittleEndian.Uint16(data[body : body+2])
			if format != 1 {
				return nil, fmt.Errorf("%s is not PCM audio", filepath.Base(path))
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bits = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			haveFmt = true
		case "data":
			pcm = data[body : body+size]
		}

		pos = body + size
		if size%2 == 1 {
			pos++ // chunks are word-aligned
		}
	}

	if !haveFmt || pcm == nil {
		return nil, fmt.Errorf("%s is missing audio data", filepath.Base(path))
	}
	if bits != 16 {
		return nil, fmt.Errorf("%s: only 16-bit PCM is supported, got %d-bit", filepath.Base(path), bits)
	}
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("%s: unsupported channel count %d", filepath.Base(path), channels)
	}

	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}

	return &clip{
		path:       path,
		samples:    samples,
		sampleRate: sampleRate,
		channels:   channels,
	}, nil
}

func decodeFLAC(path string) (*clip, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading clip: %w", err)
	}
	defer stream.Close()

	info := stream.Info
	channels := int(info.NChannels)
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("%s: unsupported channel count %d", filepath.Base(path), channels)
	}
	if info.BitsPerSample != 16 {
		return nil, fmt.Errorf("%s: only 16-bit FLAC is supported, got %d-bit", filepath.Base(path), info.BitsPerSample)
	}

	var samples []int16
	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
		}
		n := frame.Subframes[0].NSamples
		for i := 0; i < n; i++ {
			for ch := 0; ch < channels; ch++ {
				samples = append(samples, int16(frame.Subframes[ch].Samples[i]))
			}
		}
	}

	return &clip{
		path:       path,
		samples:    samples,
		sampleRate: int(info.SampleRate),
		channels:   channels,
	}, nil
}
