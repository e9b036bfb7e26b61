package tts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSynthesizeSendsRequest(t *testing.T) {
	var gotPath, gotKey string
	var gotBody synthesisRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("xi-api-key")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("mp3-bytes"))
	}))
	defer server.Close()

	client, err := NewElevenLabsClient(ElevenLabsDeps{
		APIKey:     "el-key",
		VoiceID:    "voice-1",
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
	})
	if err != nil {
		t.Fatalf("NewElevenLabsClient returned error: %v", err)
	}

	audio, err := client.Synthesize(context.Background(), "Hola, ¿en qué te ayudo?")
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if string(audio) != "mp3-bytes" {
		t.Errorf("unexpected audio %q", audio)
	}
	if gotPath != "/text-to-speech/voice-1" {
		t.Errorf("unexpected path %s", gotPath)
	}
	if gotKey != "el-key" {
		t.Errorf("unexpected api key header %s", gotKey)
	}
	if gotBody.ModelID != defaultModelID {
		t.Errorf("unexpected model id %s", gotBody.ModelID)
	}
	if gotBody.Text == "" {
		t.Error("expected text in request body")
	}
}

func TestSynthesizeRejectsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, err := NewElevenLabsClient(ElevenLabsDeps{
		APIKey:     "el-key",
		VoiceID:    "voice-1",
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
	})
	if err != nil {
		t.Fatalf("NewElevenLabsClient returned error: %v", err)
	}

	if _, err := client.Synthesize(context.Background(), "hola"); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestDataURL(t *testing.T) {
	if got := DataURL(nil); got != "" {
		t.Errorf("expected empty data url, got %q", got)
	}
	got := DataURL([]byte{0x49, 0x44, 0x33})
	if !strings.HasPrefix(got, "data:audio/mpeg;base64,") {
		t.Errorf("unexpected prefix in %q", got)
	}
	if !strings.HasSuffix(got, "SUQz") {
		t.Errorf("unexpected payload in %q", got)
	}
}
