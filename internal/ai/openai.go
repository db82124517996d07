package ai

import (
	"context"
	"encoding/base64"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"market-pulse/internal/domain"
)

type OpenAIClient struct {
	client openai.Client
	model  string
}

func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIClient{
		client: openai.NewClient(option.WithAPIKey(apiKey), option.WithMaxRetries(1)),
		model:  model,
	}
}

func (c *OpenAIClient) Complete(ctx context.Context, prompt string, image []byte) (Completion, error) {
	parts := []openai.ChatCompletionContentPartUnionParam{openai.TextContentPart(prompt)}
	if len(image) > 0 {
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(image),
		}))
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(parts)},
	})
	if err != nil {
		return Completion{}, err
	}
	if len(resp.Choices) == 0 {
		return Completion{}, errors.New("empty completion")
	}
	return Completion{
		Text: resp.Choices[0].Message.Content,
		Usage: domain.TokenUsage{
			Prompt:     resp.Usage.PromptTokens,
			Completion: resp.Usage.CompletionTokens,
			Total:      resp.Usage.TotalTokens,
		},
	}, nil
}
