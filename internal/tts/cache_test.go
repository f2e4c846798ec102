package tts

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSynth struct {
	calls int
	err   error
}

func (c *countingSynth) Synthesize(_ context.Context, _ string) ([]byte, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []byte("mp3-bytes"), nil
}

func TestMemoryCacheNormalizesWhitespace(t *testing.T) {
	c := NewMemoryCache()
	c.Store("Hello   there\nfriend", "/static/audio/a.mp3")

	path, ok := c.Lookup("Hello there friend")
	assert.True(t, ok)
	assert.Equal(t, "/static/audio/a.mp3", path)
	assert.Equal(t, 1, c.Len())
}

func TestMemoryCacheMiss(t *testing.T) {
	c := NewMemoryCache()
	_, ok := c.Lookup("never stored")
	assert.False(t, ok)
}

func TestAudioPathSynthesizesOncePerText(t *testing.T) {
	synth := &countingSynth{}
	s := NewSpeaker(synth, NewMemoryCache(), t.TempDir())

	first, err := s.AudioPath(context.Background(), "What's your first name?")
	require.NoError(t, err)
	assert.Contains(t, first, "/static/audio/")
	assert.Contains(t, first, ".mp3")

	second, err := s.AudioPath(context.Background(), "What's your first name?")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, synth.calls, "second request is a cache hit")
}

func TestAudioPathSynthFailure(t *testing.T) {
	synth := &countingSynth{err: errors.New("quota exceeded")}
	s := NewSpeaker(synth, NewMemoryCache(), t.TempDir())

	_, err := s.AudioPath(context.Background(), "hello")
	assert.Error(t, err)
}

func TestPrecacheSurvivesFailures(t *testing.T) {
	synth := &countingSynth{err: errors.New("down")}
	cache := NewMemoryCache()
	s := NewSpeaker(synth, cache, t.TempDir())

	s.Precache(context.Background(), []string{"one", "two"})

	assert.Equal(t, 2, synth.calls)
	assert.Equal(t, 0, cache.Len())
}
