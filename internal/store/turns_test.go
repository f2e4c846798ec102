package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-voiceagent/internal/models"
)

func TestAppendTurnIdempotent(t *testing.T) {
	repo := testRepository(t)
	ctx := context.Background()
	in := testInteraction(t, repo, "CA-ledger-")

	seq, err := repo.NextSequence(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, seq)

	first := &models.Turn{
		InteractionID: in.ID,
		ThreadID:      in.ThreadID,
		Speaker:       models.SpeakerUser,
		Text:          "hello",
		Sequence:      seq,
	}
	firstID, err := repo.AppendTurn(ctx, first)
	require.NoError(t, err)
	require.NotEmpty(t, firstID)

	// A retried delivery lands on the same (interaction, sequence, speaker)
	// slot; it must resolve to the first turn's id, never a second row.
	retry := &models.Turn{
		InteractionID: in.ID,
		ThreadID:      in.ThreadID,
		Speaker:       models.SpeakerUser,
		Text:          "hello",
		Sequence:      seq,
	}
	retryID, err := repo.AppendTurn(ctx, retry)
	require.NoError(t, err)
	assert.Equal(t, firstID, retryID)

	next, err := repo.NextSequence(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, next, "the slot is occupied exactly once")
}

func TestAppendTurnSequencesStayDense(t *testing.T) {
	repo := testRepository(t)
	ctx := context.Background()
	in := testInteraction(t, repo, "CA-dense-")

	speakers := []models.Speaker{models.SpeakerAssistant, models.SpeakerUser, models.SpeakerAssistant}
	for i, speaker := range speakers {
		seq, err := repo.NextSequence(ctx, in.ID)
		require.NoError(t, err)
		require.Equal(t, i+1, seq)

		_, err = repo.AppendTurn(ctx, &models.Turn{
			InteractionID: in.ID,
			Speaker:       speaker,
			Text:          "turn",
			Sequence:      seq,
		})
		require.NoError(t, err)
	}

	turns, err := repo.RecentTurns(ctx, in.ID, 10)
	require.NoError(t, err)
	require.Len(t, turns, 3)
	for i, turn := range turns {
		assert.Equal(t, i+1, turn.Sequence)
		assert.Equal(t, speakers[i], turn.Speaker)
	}
}
