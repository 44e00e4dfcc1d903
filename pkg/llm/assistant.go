// Package llm phrases setup replies with an OpenAI-compatible chat model.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-pkgz/lgr"
	"github.com/sashabaranov/go-openai"

	"github.com/umputun/newsdigest/pkg/config"
	"github.com/umputun/newsdigest/pkg/domain"
)

// ErrNoAPIKey is returned when the assistant is asked to reply without an API key
var ErrNoAPIKey = errors.New("OPENAI_API_KEY not set")

// DefaultSystemPrompt tells the model what the setup conversation collects
const DefaultSystemPrompt = `You are a news feed setup assistant. Collect the user's search keywords, ` +
	`cadence in minutes, sender email, sender password, recipient email, SMTP server and SMTP port. ` +
	`Suggest improved keywords after the user provides initial topics. ` +
	`After gathering all details, summarize them and ask for yes/no confirmation to start the agent. ` +
	`Keep every reply short and never repeat the sender password.`

// Assistant composes conversational replies with the chat completion API
type Assistant struct {
	client    *openai.Client
	config    config.LLMConfig
	systemMsg string
}

// NewAssistant creates a new assistant for the given LLM config
func NewAssistant(cfg config.LLMConfig) *Assistant {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientConfig.BaseURL = cfg.Endpoint
	}
	if cfg.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	// use custom system prompt if provided, otherwise use default
	systemMsg := cfg.SystemPrompt
	if systemMsg == "" {
		systemMsg = DefaultSystemPrompt
	}

	return &Assistant{
		client:    openai.NewClientWithConfig(clientConfig),
		config:    cfg,
		systemMsg: systemMsg,
	}
}

// Reply sends the transcript, prefixed with the system prompt, and returns the model's answer
func (a *Assistant) Reply(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	if strings.TrimSpace(a.config.APIKey) == "" {
		return "", ErrNoAPIKey
	}

	req := openai.ChatCompletionRequest{
		Model:       a.config.Model,
		Temperature: float32(a.config.Temperature),
		MaxTokens:   a.config.MaxTokens,
		Messages:    a.buildMessages(messages),
	}

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("llm request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from llm")
	}

	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return "", fmt.Errorf("empty response from llm")
	}
	lgr.Printf("[DEBUG] assistant reply for %d messages, %d tokens used", len(messages), resp.Usage.TotalTokens)
	return reply, nil
}

func (a *Assistant) buildMessages(messages []domain.ChatMessage) []openai.ChatCompletionMessage {
	res := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	res = append(res, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: a.systemMsg})
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case domain.RoleSystem:
			role = openai.ChatMessageRoleSystem
		case domain.RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		}
		res = append(res, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return res
}
