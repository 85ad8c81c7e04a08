package coding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPTranscriber(t *testing.T) {
	var gotMime string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMime = r.Header.Get("Content-Type")
		_ = json.NewEncoder(w).Encode([]Cue{{StartTime: 0, EndTime: 3, Text: "hi"}})
	}))
	defer srv.Close()

	tr := NewHTTPTranscriber(srv.URL)
	cues, err := tr.Transcribe(context.Background(), []byte("bytes"), "video/webm")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if gotMime != "video/webm" {
		t.Errorf("expected MIME type forwarded, got %q", gotMime)
	}
	if len(cues) != 1 || cues[0].Text != "hi" {
		t.Errorf("unexpected cues: %+v", cues)
	}
}

func TestHTTPTranscriber_error_status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	tr := NewHTTPTranscriber(srv.URL)
	if _, err := tr.Transcribe(context.Background(), []byte("bytes"), "video/mp4"); err == nil {
		t.Error("expected error on non-200 response")
	}
}

func TestHTTPTranscriber_bad_payload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	tr := NewHTTPTranscriber(srv.URL)
	if _, err := tr.Transcribe(context.Background(), []byte("bytes"), "video/mp4"); err == nil {
		t.Error("expected decode error")
	}
}
