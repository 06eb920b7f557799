package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/joescharf/clawdash/internal/process"
)

// Summary holds the LLM-generated digest of a board snapshot.
type Summary struct {
	Headline  string   `json:"headline"`
	Details   string   `json:"details"`
	Attention []string `json:"attention"` // processes that need a human look
}

// Client wraps the Anthropic API for board summarization.
type Client struct {
	api   *anthropic.Client
	model anthropic.Model
}

// NewClient creates an LLM client with the given API key and model.
func NewClient(apiKey, model string) *Client {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	return &Client{
		api:   &client,
		model: anthropic.Model(model),
	}
}

// buildPrompt constructs the system and user prompts for board summarization.
func buildPrompt(processes []process.Process, now time.Time) (system string, user string) {
	system = `You summarize the state of an agent monitoring board. The input is a JSON array of processes, each with a status (running, waiting, idle, completed, error), a type (session, cron, sub-agent, background, system), token counts, and timestamps. Return ONLY a JSON object with these fields:
- "headline": one sentence capturing the overall board state
- "details": a short paragraph (2-4 sentences) describing what is running, what finished, and anything unusual
- "attention": an array of process titles that need a human look (errors, long waits, stuck runs); empty array if nothing does

Rules:
- Count processes by status rather than listing every one
- Call out any process with status "error" by title
- Mention sessions waiting on input for a long time
- Return valid JSON only, no markdown fencing or explanation`

	payload, _ := json.Marshal(processes)

	var sb strings.Builder
	sb.WriteString("Current time: ")
	sb.WriteString(now.UTC().Format(time.RFC3339))
	sb.WriteString("\n\nSummarize this board:\n\n")
	sb.Write(payload)
	user = sb.String()
	return
}

// Summarize sends a board snapshot to the LLM and returns a structured digest.
func (c *Client) Summarize(ctx context.Context, processes []process.Process) (*Summary, error) {
	systemPrompt, userPrompt := buildPrompt(processes, time.Now())

	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic API call: %w", err)
	}

	// Extract text from response
	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}

	if text == "" {
		return nil, fmt.Errorf("no text content in API response")
	}

	// Strip markdown fencing if present
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		lines := strings.SplitN(text, "\n", 2)
		if len(lines) > 1 {
			text = lines[1]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	var summary Summary
	if err := json.Unmarshal([]byte(text), &summary); err != nil {
		return nil, fmt.Errorf("parse LLM response as JSON: %w\nraw response: %s", err, text)
	}

	return &summary, nil
}
