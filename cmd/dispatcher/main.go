package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go-voiceagent/internal/config"
	"go-voiceagent/internal/dispatcher"
	"go-voiceagent/internal/reporter"
	"go-voiceagent/internal/store"
	"go-voiceagent/internal/telephony"
)

func main() {
	continuous := flag.Bool("continuous", false, "keep polling instead of running one batch")
	interval := flag.Duration("interval", 0, "poll interval override (e.g. 30s)")
	flag.Parse()

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer repo.Close()

	var alerter dispatcher.Alerter
	if cfg.TelegramToken != "" {
		tg, err := reporter.NewTelegramReporter(cfg)
		if err != nil {
			log.Printf("⚠️ Telegram reporter unavailable, alerts disabled: %v", err)
		} else {
			alerter = tg
		}
	}

	pollInterval := cfg.DispatcherInterval
	if *interval > 0 {
		pollInterval = *interval
	}

	caller := telephony.NewRESTCaller(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioPhoneNumber)
	d := dispatcher.New(repo, caller, alerter, dispatcher.Config{
		BaseURL:     cfg.PublicBaseURL,
		Interval:    pollInterval,
		Limit:       cfg.DispatcherLimit,
		MaxAttempts: cfg.MaxCallAttempts,
	})

	if *continuous {
		d.Run(ctx)
		return
	}

	start := time.Now()
	placed := d.RunOnce(ctx)
	log.Printf("✅ Dispatched %d call(s) in %s", placed, time.Since(start).Round(time.Millisecond))
}
