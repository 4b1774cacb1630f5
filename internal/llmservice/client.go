package llmservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"contract-assistant/internal/config"
	"contract-assistant/internal/models"
)

// Client wraps the answer-generation model behind a single call.
type Client struct {
	llm *openai.LLM
}

func New(llmConfig *config.LLMConfig) (*Client, error) {
	llm, err := openai.New(
		openai.WithBaseURL(llmConfig.BaseURL),
		openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
		openai.WithModel(llmConfig.Model),
	)
	if err != nil {
		return nil, err
	}
	return &Client{llm: llm}, nil
}

// Generate runs one completion over the prepared messages. No retry: a
// transport failure or empty response surfaces as ErrModelCall.
func (c *Client) Generate(ctx context.Context, messages []llms.MessageContent) (string, error) {
	res, err := c.llm.GenerateContent(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrModelCall, err)
	}
	if len(res.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response", models.ErrModelCall)
	}
	return res.Choices[0].Content, nil
}
