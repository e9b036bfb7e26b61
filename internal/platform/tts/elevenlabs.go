package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.elevenlabs.io/v1"
	defaultModelID = "eleven_multilingual_v2"
	defaultTimeout = 8 * time.Second
)

// ErrUnavailable signals that no TTS backend is configured.
var ErrUnavailable = errors.New("tts: no backend configured")

// Synthesizer converts reply text to audio bytes. Implementations are
// best-effort: callers omit audio when synthesis fails.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// ElevenLabsClient implements Synthesizer against the ElevenLabs HTTP API.
type ElevenLabsClient struct {
	apiKey  string
	voiceID string
	baseURL string
	timeout time.Duration
	http    *http.Client
	limiter *rate.Limiter
}

// ElevenLabsDeps lists the dependencies required to build an ElevenLabsClient.
type ElevenLabsDeps struct {
	APIKey  string
	VoiceID string
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// NewElevenLabsClient validates dependencies and returns an ElevenLabsClient.
func NewElevenLabsClient(deps ElevenLabsDeps) (*ElevenLabsClient, error) {
	apiKey := strings.TrimSpace(deps.APIKey)
	if apiKey == "" {
		return nil, errors.New("tts: api key is required")
	}
	voiceID := strings.TrimSpace(deps.VoiceID)
	if voiceID == "" {
		return nil, errors.New("tts: voice id is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(deps.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := deps.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &ElevenLabsClient{
		apiKey:  apiKey,
		voiceID: voiceID,
		baseURL: baseURL,
		timeout: timeout,
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(2), 2),
	}, nil
}

type synthesisRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Synthesize sends the text to ElevenLabs and returns MPEG audio bytes.
func (c *ElevenLabsClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("tts: text is required")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("tts: rate limit wait: %w", err)
	}

	payload, err := json.Marshal(synthesisRequest{
		Text:    text,
		ModelID: defaultModelID,
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("tts: encode request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s", c.baseURL, c.voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("tts: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tts: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tts: read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("tts: empty audio response")
	}
	return audio, nil
}

// Disabled is a Synthesizer that always reports ErrUnavailable.
type Disabled struct{}

// Synthesize implements Synthesizer.
func (Disabled) Synthesize(context.Context, string) ([]byte, error) {
	return nil, ErrUnavailable
}

// DataURL encodes MPEG audio bytes as a data URL for inline transport.
func DataURL(audio []byte) string {
	if len(audio) == 0 {
		return ""
	}
	return "data:audio/mpeg;base64," + base64.StdEncoding.EncodeToString(audio)
}
