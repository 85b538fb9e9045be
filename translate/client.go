package translate

import (
	"context"
	"errors"
	"time"
)

// Result is the parsed success payload from the translation service.
type Result struct {
	Filename    string
	Translation string
	Status      int
	Elapsed     time.Duration
	PayloadKB   float64
}

var (
	// ErrNoEndpoint means no service URL is configured.
	ErrNoEndpoint = errors.New("translation endpoint not configured")

	// ErrNoTranslation means the server answered 2xx but returned no usable
	// text. The app treats this the same as a failed upload.
	ErrNoTranslation = errors.New("translation missing from server response")
)

type Client interface {
	Upload(ctx context.Context, path string) (*Result, error)
}
