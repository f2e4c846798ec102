package main

import (
	"context"
	"log"

	"go-voiceagent/internal/agent"
	"go-voiceagent/internal/ai"
	"go-voiceagent/internal/config"
	"go-voiceagent/internal/normalize"
	"go-voiceagent/internal/orchestrator"
	"go-voiceagent/internal/reconcile"
	"go-voiceagent/internal/store"
	"go-voiceagent/internal/tts"
	"go-voiceagent/internal/web"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	if err := store.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	repo, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer repo.Close()

	aiClient := ai.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	convAgent := agent.New(aiClient, cfg.AssistantName, cfg.CompanyName, cfg.RoleLockThreshold)

	canon := normalize.NewCanon(cfg.Industries, cfg.IndustrySynonyms)
	reconciler := reconcile.New(repo, canon, cfg.RoleLockThreshold)

	speaker := tts.NewSpeaker(
		tts.NewElevenLabsClient(cfg.ElevenAPIKey, cfg.ElevenVoiceID),
		tts.NewMemoryCache(),
		cfg.AudioCacheDir,
	)

	orch := orchestrator.New(repo, repo, convAgent, reconciler, speaker, orchestrator.Config{
		BaseURL:       cfg.PublicBaseURL,
		AssistantName: cfg.AssistantName,
		CompanyName:   cfg.CompanyName,
		HistoryWindow: cfg.HistoryWindow,
	})

	// Fixed script lines are synthesized ahead of time so the first call of
	// the day answers without a synthesis round trip.
	speaker.Precache(ctx, orch.CommonPrompts())

	server := web.NewServer(cfg, repo, orch)
	log.Printf("🚀 Voice agent listening on port %s", cfg.Port)
	if err := server.Run(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
