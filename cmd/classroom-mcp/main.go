package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/classroom-tools/lesson-tutor/internal/mcp"
)

// Version is set at build time
var Version = "dev"

// Serves the classroom tools over stdio. Tool calls are relayed to the
// tutor's admin API at TUTOR_API_URL.
func main() {
	_ = godotenv.Load()

	baseURL := os.Getenv("TUTOR_API_URL")
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8081"
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := mcp.NewClient(baseURL, os.Getenv("ADMIN_TOKEN"))
	server := mcp.NewServer(mcp.NewHandler(client), Version)

	// stdout carries the protocol, so diagnostics go to stderr
	fmt.Fprintf(os.Stderr, "[classroom-mcp] relaying to %s\n", baseURL)

	if err := mcp.Run(ctx, server); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "[classroom-mcp] server error: %v\n", err)
		os.Exit(1)
	}
}
