package guardrail

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"contract-assistant/internal/config"
	"contract-assistant/internal/models"
)

const systemPrompt = `You are a security filter for a Contract Assistant.
Analyze the user's question and determine if it is related to contract analysis
or document retrieval.

Respond ONLY with a JSON object following this structure:
{
  "is_relevant": true/false,
  "reasoning": "brief explanation"
}`

// Classifier decides whether a question is in scope for document analysis
// before any retrieval or answer generation runs. Output the model cannot
// produce in the expected shape fails closed with ErrGuardrailParse.
type Classifier struct {
	client *openai.Client
	model  string
	schema *jsonschema.Definition
}

func New(llmConfig *config.LLMConfig) (*Classifier, error) {
	schema, err := jsonschema.GenerateSchemaForType(models.GuardrailVerdict{})
	if err != nil {
		return nil, fmt.Errorf("generating verdict schema: %w", err)
	}

	cfg := openai.DefaultConfig(strings.TrimPrefix(llmConfig.Key, "Bearer "))
	if llmConfig.BaseURL != "" {
		cfg.BaseURL = llmConfig.BaseURL
	}
	return &Classifier{
		client: openai.NewClientWithConfig(cfg),
		model:  llmConfig.Model,
		schema: schema,
	}, nil
}

// Check classifies one question. A transport failure is ErrModelCall; a
// response that does not unmarshal into the verdict is ErrGuardrailParse.
func (c *Classifier) Check(ctx context.Context, question string) (models.GuardrailVerdict, error) {
	var verdict models.GuardrailVerdict

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: question},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "guardrail_verdict",
				Schema: c.schema,
				Strict: true,
			},
		},
	})
	if err != nil {
		return verdict, fmt.Errorf("%w: %v", models.ErrModelCall, err)
	}
	if len(resp.Choices) == 0 {
		return verdict, fmt.Errorf("%w: empty response", models.ErrGuardrailParse)
	}

	content := resp.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), &verdict); err != nil {
		return verdict, fmt.Errorf("%w: %v", models.ErrGuardrailParse, err)
	}
	return verdict, nil
}
