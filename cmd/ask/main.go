package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/classroom-tools/lesson-tutor/internal/mcp"
)

const defaultAPIURL = "http://127.0.0.1:8081"

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 3 {
		fmt.Println("Usage: ask <phone> <message...>")
		os.Exit(1)
	}

	recipient := os.Args[1]
	message := strings.Join(os.Args[2:], " ")

	baseURL := os.Getenv("TUTOR_API_URL")
	if baseURL == "" {
		baseURL = defaultAPIURL
	}
	client := mcp.NewClient(baseURL, os.Getenv("ADMIN_TOKEN"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := client.Ask(ctx, recipient, message)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if result.Error != "" {
		fmt.Printf("Error: %s\n", result.Error)
		os.Exit(1)
	}

	if result.IsNew {
		fmt.Printf("[new session %s]\n", result.SessionID)
	}
	fmt.Println(result.Reply)
}
