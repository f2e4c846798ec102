// Package tts turns assistant utterances into audio the gateway can play,
// fronted by a content-keyed cache so repeated prompts cost one synthesis.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Synthesizer is the speech-synthesis provider contract: text in, audio bytes
// out.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

type elevenLabsClient struct {
	apiKey     string
	voiceID    string
	baseURL    string
	httpClient *http.Client
}

// NewElevenLabsClient creates an ElevenLabs text-to-speech client.
func NewElevenLabsClient(apiKey, voiceID string) Synthesizer {
	return &elevenLabsClient{
		apiKey:     apiKey,
		voiceID:    voiceID,
		baseURL:    "https://api.elevenlabs.io",
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type synthesisRequest struct {
	Text          string        `json:"text"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

func (c *elevenLabsClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if c.apiKey == "" || c.voiceID == "" {
		return nil, fmt.Errorf("elevenlabs not configured")
	}

	reqBody := synthesisRequest{
		Text: text,
		VoiceSettings: voiceSettings{
			Stability:       0.25,
			SimilarityBoost: 0.95,
			Style:           0.8,
			UseSpeakerBoost: true,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal synthesis request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s", c.baseURL, c.voiceID)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create synthesis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesis request failed: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read synthesis response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("synthesis API returned status %d: %s", resp.StatusCode, truncate(string(audio), 200))
	}

	return audio, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
