package translate

import (
	"context"
	"path/filepath"
	"sync"
)

// FakeClient returns a scripted translation (or error) and records the
// paths it was asked to upload.
type FakeClient struct {
	Translation string
	Filename    string
	Err         error

	mu      sync.Mutex
	uploads []string
}

func NewFake(translation string, err error) *FakeClient {
	return &FakeClient{Translation: translation, Err: err}
}

func (f *FakeClient) Upload(_ context.Context, path string) (*Result, error) {
	f.mu.Lock()
	f.uploads = append(f.uploads, path)
	f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}
	filename := f.Filename
	if filename == "" {
		filename = filepath.Base(path)
	}
	return &Result{
		Filename:    filename,
		Translation: f.Translation,
		Status:      200,
	}, nil
}

func (f *FakeClient) Uploads() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.uploads...)
}
