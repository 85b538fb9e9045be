package recorder

import (
	"context"
	"sync"
)

// FakeRecorder scripts takes without touching a sound device.
type FakeRecorder struct {
	PermissionErr error
	StartErr      error
	StopErr       error
	Clip          *Clip // returned by Stop

	mu        sync.Mutex
	starts    int
	stops     int
	recording bool
}

func NewFakeRecorder() *FakeRecorder {
	return &FakeRecorder{Clip: &Clip{Path: "recording.wav", Seconds: 1.5, SizeKB: 130}}
}

func (f *FakeRecorder) EnsurePermission() error { return f.PermissionErr }

func (f *FakeRecorder) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.StartErr != nil {
		return f.StartErr
	}
	f.starts++
	f.recording = true
	return nil
}

func (f *FakeRecorder) Stop() (*Clip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	f.recording = false
	if f.StopErr != nil {
		return nil, f.StopErr
	}
	return f.Clip, nil
}

func (f *FakeRecorder) Close() {}

func (f *FakeRecorder) Starts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

func (f *FakeRecorder) Stops() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

func (f *FakeRecorder) Recording() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recording
}
