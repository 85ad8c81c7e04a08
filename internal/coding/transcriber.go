package coding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Cue is one transcript line returned by the transcription collaborator.
type Cue struct {
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
	Text      string  `json:"text"`
}

// Transcriber turns raw video bytes into timed transcript cues. The model
// behind it is opaque to this service.
type Transcriber interface {
	Transcribe(ctx context.Context, video []byte, mimeType string) ([]Cue, error)
}

// HTTPTranscriber calls an external transcription endpoint: the video bytes
// are posted as the request body with their MIME type, and the response is a
// JSON array of cues.
type HTTPTranscriber struct {
	URL    string
	Client *http.Client
}

// NewHTTPTranscriber returns a transcriber for the given endpoint with a
// generous timeout; transcription of long videos is slow.
func NewHTTPTranscriber(url string) *HTTPTranscriber {
	return &HTTPTranscriber{
		URL:    url,
		Client: &http.Client{Timeout: 10 * time.Minute},
	}
}

// Transcribe implements Transcriber.
func (t *HTTPTranscriber) Transcribe(ctx context.Context, video []byte, mimeType string) ([]Cue, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.URL, bytes.NewReader(video))
	if err != nil {
		return nil, fmt.Errorf("build transcribe request: %w", err)
	}
	req.Header.Set("Content-Type", mimeType)

	resp, err := t.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call transcriber: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("transcriber returned %d: %s", resp.StatusCode, body)
	}

	var cues []Cue
	if err := json.NewDecoder(resp.Body).Decode(&cues); err != nil {
		return nil, fmt.Errorf("decode transcriber response: %w", err)
	}
	return cues, nil
}
