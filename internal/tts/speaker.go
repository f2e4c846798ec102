package tts

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Speaker resolves utterance text to a servable audio path, synthesizing on
// cache miss and writing the artifact under dir.
type Speaker struct {
	synth Synthesizer
	cache Cache
	dir   string
}

func NewSpeaker(synth Synthesizer, cache Cache, dir string) *Speaker {
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Printf("⚠️ Failed to create audio cache directory: %v", err)
	}
	return &Speaker{synth: synth, cache: cache, dir: dir}
}

// AudioPath returns a relative URL path ("/static/audio/<id>.mp3") for the
// given text. An error leaves the caller to fall back to gateway-side
// text-to-speech; it never has to abort the turn.
func (s *Speaker) AudioPath(ctx context.Context, text string) (string, error) {
	if path, ok := s.cache.Lookup(text); ok {
		return path, nil
	}

	audio, err := s.synth.Synthesize(ctx, text)
	if err != nil {
		return "", fmt.Errorf("failed to synthesize audio: %w", err)
	}

	filename := uuid.NewString() + ".mp3"
	if err := os.WriteFile(filepath.Join(s.dir, filename), audio, 0644); err != nil {
		return "", fmt.Errorf("failed to write audio file: %w", err)
	}

	path := "/static/audio/" + filename
	s.cache.Store(text, path)
	return path, nil
}

// Precache synthesizes a list of prompts up front so the first calls of the
// day do not pay synthesis latency.
func (s *Speaker) Precache(ctx context.Context, prompts []string) {
	for _, prompt := range prompts {
		if _, err := s.AudioPath(ctx, prompt); err != nil {
			log.Printf("⚠️ Could not pre-cache prompt %q: %v", truncate(prompt, 50), err)
		}
	}
	log.Printf("📋 Audio cache primed with %d entries", s.cache.Len())
}
