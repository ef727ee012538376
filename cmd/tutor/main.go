package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/classroom-tools/lesson-tutor/internal/api"
	"github.com/classroom-tools/lesson-tutor/internal/conf"
	"github.com/classroom-tools/lesson-tutor/internal/server"
	"github.com/classroom-tools/lesson-tutor/internal/service"
)

const (
	readyPollInterval = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := conf.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := wire(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer app.repos.Close()

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "push-now":
			pushOnce(ctx, app)
			return
		default:
			log.Fatalf("Unknown command %q (usage: tutor [push-now])", os.Args[1])
		}
	}

	serve(ctx, cfg, app)
}

// serve runs the webhook, the admin API and the daily push until a signal arrives
func serve(ctx context.Context, cfg *conf.Config, app *components) {
	uc := app.usecases

	// Wait for the messaging account before anything is sent
	if err := app.whatsapp.WaitUntilReady(ctx, readyPollInterval); err != nil {
		log.Fatalf("WhatsApp not ready: %v", err)
	}

	// Initialize service layer
	inboundSvc := service.NewInboundService(uc.Schedule, uc.Conversation, uc.Composer, app.repos.Messenger)
	dispatcher := service.NewDispatcher(inboundSvc.HandleMessage, cfg.InboundQueueDepth)

	loc, _ := cfg.Push.Location()
	scheduler := service.NewPushScheduler(uc.Push, uc.Session, service.PushSchedule{
		Hour:       cfg.Push.Hour,
		Minute:     cfg.Push.Minute,
		Location:   loc,
		RunOnStart: cfg.Push.OnStartup,
	})

	// Initialize HTTP server
	var validator server.SignatureValidator = app.whatsapp
	if cfg.Debug && cfg.HTTP.PublicURL == "" {
		validator = nil
	}
	webhook := server.NewWhatsAppServer(dispatcher, validator, server.WebhookConfig{
		PublicURL: cfg.HTTP.PublicURL,
	})
	adminAPI := api.NewServer(api.Options{
		Schedule:     uc.Schedule,
		Session:      uc.Session,
		Conversation: uc.Conversation,
		Push:         uc.Push,
		Transcript:   app.repos.Transcript,
		Ready:        app.whatsapp,
		Token:        cfg.HTTP.AdminToken,
	})
	// The webhook is public; the admin API gets its own listener (loopback by default)
	webhookServer := server.NewHTTPServer(fmt.Sprintf(":%d", cfg.HTTP.Port), webhook)
	adminServer := server.NewHTTPServer(cfg.HTTP.AdminAddr, adminAPI)
	if cfg.HTTP.AdminToken == "" {
		fmt.Printf("[Tutor] Admin API on %s without a token\n", cfg.HTTP.AdminAddr)
	}

	for _, srv := range []*server.HTTPServer{webhookServer, adminServer} {
		go func(srv *server.HTTPServer) {
			if err := srv.Start(); err != nil {
				log.Fatalf("HTTP server error: %v", err)
			}
		}(srv)
	}

	scheduler.Start(ctx)

	fmt.Println("Lesson tutor running. Press Ctrl+C to stop.")
	<-ctx.Done()

	// Graceful shutdown
	fmt.Println("\nShutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for _, srv := range []*server.HTTPServer{webhookServer, adminServer} {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("[Tutor] HTTP shutdown error: %v\n", err)
		}
	}
	scheduler.Stop()
	dispatcher.Stop(shutdownCtx)
}

// pushOnce runs a single push and prints the report
func pushOnce(ctx context.Context, app *components) {
	readyCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if err := app.whatsapp.WaitUntilReady(readyCtx, readyPollInterval); err != nil {
		log.Fatalf("WhatsApp not ready: %v", err)
	}

	report, err := app.usecases.Push.Run(ctx)
	if err != nil {
		log.Fatalf("Push failed: %v", err)
	}

	out, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(out))
}
