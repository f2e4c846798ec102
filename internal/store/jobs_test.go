package store

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueueCallCreatesTriple(t *testing.T) {
	repo := testRepository(t)
	ctx := context.Background()

	key := "qualification-test-" + uuid.NewString()
	job, err := repo.EnqueueCall(ctx, nil, "+15550001111", key, nil)
	require.NoError(t, err)

	require.NotNil(t, job.ThreadID)
	require.NotNil(t, job.InteractionID)

	in, err := repo.InteractionByID(ctx, *job.InteractionID)
	require.NoError(t, err)
	require.NotNil(t, in)
	assert.Equal(t, Provider, in.Provider)
	assert.Equal(t, pendingRef(*job.ThreadID), in.ProviderRef)
}

func TestEnqueueCallDedupes(t *testing.T) {
	repo := testRepository(t)
	ctx := context.Background()

	key := "qualification-test-" + uuid.NewString()
	first, err := repo.EnqueueCall(ctx, nil, "+15550002222", key, nil)
	require.NoError(t, err)

	second, err := repo.EnqueueCall(ctx, nil, "+15550002222", key, nil)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.ThreadID, second.ThreadID)
	assert.Equal(t, first.InteractionID, second.InteractionID)
}
