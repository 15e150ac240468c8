package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/tickerpulse/tickerpulse/internal/models"
)

// Client sends one batch to one model and returns the raw response. A
// transport error (timeout, non-2xx, empty body) is returned as error and
// treated by the orchestrator exactly like a parse failure.
type Client interface {
	Send(ctx context.Context, b models.Batch, md models.ModelDescriptor) (*models.LLMResponse, error)
}

// OpenRouterClient talks to OpenRouter's OpenAI-compatible endpoint, holding
// one chat model per roster entry.
type OpenRouterClient struct {
	chatModels map[string]model.BaseChatModel
}

// NewOpenRouterClient builds a chat model for every descriptor in the roster.
func NewOpenRouterClient(ctx context.Context, apiKey, baseURL string, roster []models.ModelDescriptor) (*OpenRouterClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenRouter API key is required")
	}
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}

	maxTokens := 2000
	temperature := float32(0.1)

	chatModels := make(map[string]model.BaseChatModel, len(roster))
	for _, md := range roster {
		cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL:     baseURL,
			APIKey:      apiKey,
			Model:       md.ID,
			MaxTokens:   &maxTokens,
			Temperature: &temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("create chat model %s: %w", md.ID, err)
		}
		chatModels[md.ID] = cm
	}

	return &OpenRouterClient{chatModels: chatModels}, nil
}

// Send renders the batch prompt and calls the descriptor's model.
func (c *OpenRouterClient) Send(ctx context.Context, b models.Batch, md models.ModelDescriptor) (*models.LLMResponse, error) {
	cm, ok := c.chatModels[md.ID]
	if !ok {
		return nil, fmt.Errorf("no chat model configured for %s", md.ID)
	}

	msg, err := cm.Generate(ctx, []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(BuildPrompt(b)),
	})
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", md.DisplayName, err)
	}
	if msg == nil || msg.Content == "" {
		return nil, fmt.Errorf("model %s: empty response", md.DisplayName)
	}

	return &models.LLMResponse{
		Model:      md,
		BatchIndex: b.Index,
		Content:    msg.Content,
	}, nil
}
