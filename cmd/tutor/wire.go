package main

import (
	"context"
	"fmt"

	"github.com/classroom-tools/lesson-tutor/internal/biz"
	"github.com/classroom-tools/lesson-tutor/internal/conf"
	"github.com/classroom-tools/lesson-tutor/internal/data"
	"github.com/classroom-tools/lesson-tutor/internal/infra/openai"
	"github.com/classroom-tools/lesson-tutor/internal/infra/sheets"
	"github.com/classroom-tools/lesson-tutor/internal/infra/whatsapp"
)

// components holds everything main starts and stops
type components struct {
	whatsapp *whatsapp.Client
	repos    *data.Repositories
	usecases *biz.Usecases
}

// wire builds infra clients, repositories and usecases from configuration
func wire(ctx context.Context, cfg *conf.Config) (*components, error) {
	loc, err := cfg.Push.Location()
	if err != nil {
		return nil, err
	}

	// Initialize clients
	sheetsClient, err := sheets.NewClient(ctx, cfg.Sheets.SpreadsheetID, cfg.Sheets.Credentials)
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}

	whatsappClient := whatsapp.NewClient(whatsapp.Config{
		AccountSID: cfg.WhatsApp.AccountSID,
		AuthToken:  cfg.WhatsApp.AuthToken,
		From:       cfg.WhatsApp.From,
		Session:    cfg.WhatsApp.Session,
	})

	llmClient := openai.NewClient(openai.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxOutputTokens,
		Temperature: cfg.LLM.Temperature,
		TopP:        cfg.LLM.TopP,
		Timeout:     cfg.LLM.Timeout(),
	})
	fmt.Printf("[Tutor] LLM model: %s\n", llmClient.Model())

	// Initialize repository layer
	repos, err := data.NewRepositories(
		sheetsClient,
		data.SheetNames{CoursePlan: cfg.Sheets.CoursePlanSheet, Students: cfg.Sheets.StudentSheet},
		whatsappClient,
		llmClient,
		cfg.TranscriptDBPath,
	)
	if err != nil {
		return nil, fmt.Errorf("create repositories: %w", err)
	}
	if cfg.TranscriptDBPath != "" {
		fmt.Printf("[Tutor] Transcript DB: %s\n", cfg.TranscriptDBPath)
	}

	// Initialize usecase layer
	usecases := biz.NewUsecases(biz.Repos{
		Schedule:   repos.Schedule,
		Session:    repos.Session,
		LLM:        repos.LLM,
		Messenger:  repos.Messenger,
		Transcript: repos.Transcript,
	}, biz.Options{
		Prompts:     cfg.ToPromptConfig(),
		Session:     cfg.Session.ToSessionConfig(),
		CountryCode: cfg.WhatsApp.CountryCode,
		Location:    loc,
		MaxHistory:  cfg.LLM.MaxHistoryTurns,
	})

	return &components{
		whatsapp: whatsappClient,
		repos:    repos,
		usecases: usecases,
	}, nil
}
