package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirillkom/document-qa/internal/core/domain"
	"github.com/kirillkom/document-qa/internal/infrastructure/llm/backend"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Completer struct {
	client      *Client
	temperature float64
}

func NewCompleter(client *Client, temperature float64) *Completer {
	return &Completer{client: client, temperature: temperature}
}

func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	request := map[string]any{
		"messages":    []ChatMessage{{Role: "user", Content: prompt}},
		"temperature": c.temperature,
		"stream":      false,
	}
	if c.client.cfg.APIType != APITypeAzure {
		request["model"] = c.client.cfg.ChatModel
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	endpoint := c.client.endpoint("chat/completions", c.client.cfg.ChatModel)
	if err := c.client.postJSON(ctx, endpoint, request, &parsed, "complete"); err != nil {
		return "", backend.Translate(domain.ErrLLMBackendUnavailable, "openai complete", err)
	}
	if len(parsed.Choices) == 0 {
		return "", domain.WrapError(domain.ErrLLMBackendUnavailable, "openai complete", fmt.Errorf("empty llm choices"))
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
