package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// fieldName is the multipart key the service binds the clip to.
const fieldName = "uploaded_file"

var contentTypes = map[string]string{
	".wav":  "audio/wav",
	".flac": "audio/flac",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/m4a",
	".ogg":  "audio/ogg",
	".aac":  "audio/aac",
	".webm": "audio/webm",
}

type HTTPClient struct {
	endpoint string
	client   *http.Client
}

// NewHTTP returns a client for the given translation endpoint URL. The
// endpoint is the full route, e.g. http://localhost:8000/api/translate-audio.
func NewHTTP(endpoint string) *HTTPClient {
	return &HTTPClient{
		endpoint: endpoint,
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:    4,
				IdleConnTimeout: 90 * time.Second,
			},
		},
	}
}

func (c *HTTPClient) Upload(ctx context.Context, path string) (*Result, error) {
	if c.endpoint == "" {
		return nil, ErrNoEndpoint
	}

	clip, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("recording not readable: %w", err)
	}

	filename := uploadName(path)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	// CreateFormFile would label the part application/octet-stream, which
	// the service rejects; declare the real audio type instead.
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name=%q; filename=%q`, fieldName, filename))
	header.Set("Content-Type", clipContentType(filename))
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(clip); err != nil {
		return nil, err
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("building upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("translation request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("translation request failed: %w", err)
	}
	elapsed := time.Since(start)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("translation server error %d: %s",
			resp.StatusCode, serverDetail(respBody))
	}

	var payload struct {
		Filename    string `json:"filename"`
		Translation string `json:"translation"`
	}
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return nil, fmt.Errorf("translation response parse error: %w", err)
	}
	if strings.TrimSpace(payload.Translation) == "" {
		return nil, ErrNoTranslation
	}
	if payload.Filename == "" {
		payload.Filename = filename
	}

	return &Result{
		Filename:    payload.Filename,
		Translation: payload.Translation,
		Status:      resp.StatusCode,
		Elapsed:     elapsed,
		PayloadKB:   float64(len(clip)) / 1024.0,
	}, nil
}

// uploadName derives the multipart filename from the clip path.
func uploadName(path string) string {
	name := filepath.Base(path)
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "recording"
	}
	return name
}

func clipContentType(filename string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// serverDetail pulls the {"detail": "..."} message out of an error
// response, falling back to the raw body.
func serverDetail(body []byte) string {
	var e struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Detail != "" {
		return e.Detail
	}
	detail := strings.TrimSpace(string(body))
	if detail == "" {
		return "no details"
	}
	if len(detail) > 200 {
		detail = detail[:200] + "..."
	}
	return detail
}
