package llm

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/hollowbrook/reverie/internal/config"
	"github.com/hollowbrook/reverie/internal/provider"
)

// LiveClient generates narrative text through the provider router.
type LiveClient struct {
	router *provider.Router
	model  string
	logger *zap.Logger
}

// NewLiveClient creates a client backed by the given router.
func NewLiveClient(router *provider.Router, cfg config.LLMConfig, logger *zap.Logger) *LiveClient {
	if cfg.ProviderID != "" {
		router.SetDefault(cfg.ProviderID)
	}
	return &LiveClient{
		router: router,
		model:  cfg.Model,
		logger: logger,
	}
}

func (c *LiveClient) complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	resp, err := c.router.Route(ctx, &provider.ChatRequest{
		Model: c.model,
		Messages: []provider.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: temperature,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}

// GenerateDailySchedule asks for a pipe-separated plan and parses it.
func (c *LiveClient) GenerateDailySchedule(ctx context.Context, personaName, personaSummary string) ([]ScheduleEntry, error) {
	text, err := c.complete(ctx, schedulePrompt(personaName, personaSummary), 0.7)
	if err != nil {
		return nil, fmt.Errorf("generate schedule for %s: %w", personaName, err)
	}

	entries := ParseSchedule(text)
	if len(entries) == 0 {
		return nil, fmt.Errorf("generate schedule for %s: no parseable entries in %q", personaName, text)
	}
	return entries, nil
}

// GenerateObservation produces a first-person observation.
func (c *LiveClient) GenerateObservation(ctx context.Context, personaName, personaSummary, currentBehavior string) (string, error) {
	text, err := c.complete(ctx, observationPrompt(personaName, personaSummary, currentBehavior), 1.0)
	if err != nil {
		return "", fmt.Errorf("generate observation for %s: %w", personaName, err)
	}
	return text, nil
}

// GenerateDialogue produces one conversation turn.
func (c *LiveClient) GenerateDialogue(ctx context.Context, speaker, listener, location, topic string) (string, error) {
	text, err := c.complete(ctx, dialoguePrompt(speaker, listener, location, topic), 1.0)
	if err != nil {
		return "", fmt.Errorf("generate dialogue for %s: %w", speaker, err)
	}
	// Models sometimes echo the "Name:" prefix despite the instruction.
	if rest, ok := strings.CutPrefix(text, speaker+":"); ok {
		text = strings.TrimSpace(rest)
	}
	return text, nil
}

// GenerateInterrogation answers a user question in persona voice.
func (c *LiveClient) GenerateInterrogation(ctx context.Context, personaName, personaSummary, memoryContext, question, history string) (string, error) {
	text, err := c.complete(ctx, interrogationPrompt(personaName, personaSummary, memoryContext, question, history), 0.7)
	if err != nil {
		return "", fmt.Errorf("generate interrogation answer for %s: %w", personaName, err)
	}
	return text, nil
}

// GenerateNarration produces ambient scene narration for the narrator.
func (c *LiveClient) GenerateNarration(ctx context.Context, setting, recentActivity string) (string, error) {
	text, err := c.complete(ctx, narrationPrompt(setting, recentActivity), 1.0)
	if err != nil {
		return "", fmt.Errorf("generate narration: %w", err)
	}
	return text, nil
}

// EstimateImportance rates a memory 0-9, defaulting on unparseable replies.
func (c *LiveClient) EstimateImportance(ctx context.Context, conceptText string) (int, error) {
	text, err := c.complete(ctx, importancePrompt(conceptText), 0)
	if err != nil {
		return DefaultImportance, fmt.Errorf("estimate importance: %w", err)
	}
	return ParseImportance(text), nil
}

// ParseSchedule extracts (description, duration, start time) triples from
// pipe-separated lines, skipping anything malformed.
func ParseSchedule(text string) []ScheduleEntry {
	var entries []ScheduleEntry
	for _, line := range strings.Split(text, "\n") {
		parts := strings.Split(line, "|")
		if len(parts) != 3 {
			continue
		}
		entry := ScheduleEntry{
			Description:   strings.TrimSpace(parts[0]),
			DurationHours: strings.TrimSpace(parts[1]),
			StartTime:     strings.TrimSpace(parts[2]),
		}
		if entry.Description == "" || entry.DurationHours == "" || entry.StartTime == "" {
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

// ParseImportance returns the first digit found in the reply, or
// DefaultImportance when there is none.
func ParseImportance(text string) int {
	for _, r := range text {
		if unicode.IsDigit(r) {
			return int(r - '0')
		}
	}
	return DefaultImportance
}
