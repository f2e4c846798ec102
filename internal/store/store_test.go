package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"go-voiceagent/internal/models"
)

// testRepository connects to the database named by TEST_DATABASE_URL, or
// skips. These tests exercise the SQL conflict paths that cannot be faked.
func testRepository(t *testing.T) *Repository {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	repo, err := Connect(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(repo.Close)
	return repo
}

// testInteraction creates a fresh thread + interaction pair to hang test
// rows off.
func testInteraction(t *testing.T, repo *Repository, ref string) *models.Interaction {
	t.Helper()
	ctx := context.Background()

	thread := &models.Thread{Subject: "Qualification call"}
	require.NoError(t, repo.CreateThread(ctx, thread))

	in := &models.Interaction{
		ThreadID:    &thread.ID,
		Channel:     "voice",
		Direction:   "outbound",
		Provider:    Provider,
		ProviderRef: ref + thread.ID,
	}
	require.NoError(t, repo.CreateInteraction(ctx, in))
	return in
}
