// Package cue plays short feedback tones around recording state changes,
// so the user hears when a capture starts, stops, or goes wrong without
// looking at the screen.
package cue

import "math"

var disabled bool

func Disable() { disabled = true }

const (
	sampleRate = 44100

	// Record-start cue: high pitch, short
	startFreq   = 1040
	startVolume = 0.5
	startDecay  = 60

	// Record-stop cue: medium pitch, slightly longer
	endFreq   = 780
	endVolume = 0.5
	endDecay  = 40

	// Error cue: low pitch double-tick
	errorFreq   = 320
	errorVolume = 0.6
	errorDecay  = 30
)

// tick synthesizes a mono sine burst with an exponential fade-out.
func tick(freq, duration, volume, decay float64) []int16 {
	n := int(sampleRate * duration)
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		t := float64(i) / sampleRate
		envelope := math.Exp(-t * decay)
		samples[i] = int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
	}
	return samples
}

func doubleTick(freq, tickDur, gapDur, volume, decay float64) []int16 {
	one := tick(freq, tickDur, volume, decay)
	gap := make([]int16, int(sampleRate*gapDur))
	out := make([]int16, 0, len(one)*2+len(gap))
	out = append(out, one...)
	out = append(out, gap...)
	out = append(out, one...)
	return out
}
