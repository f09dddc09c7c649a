package enhancer

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type anthropicCompleter struct {
	messages    anthropic.MessageService
	model       string
	temperature float32
	maxTokens   int64
}

func newAnthropicCompleter(config Config, opts ...option.RequestOption) *anthropicCompleter {
	opts = append([]option.RequestOption{option.WithAPIKey(config.APIKey)}, opts...)
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	client := anthropic.NewClient(opts...)

	return &anthropicCompleter{
		messages:    client.Messages,
		model:       modelOrDefault(ProviderAnthropic, config.Model),
		temperature: config.Temperature,
		maxTokens:   int64(config.MaxTokens),
	}
}

func (a *anthropicCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: a.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if a.temperature > 0 {
		params.Temperature = anthropic.Float(float64(a.temperature))
	}

	resp, err := a.messages.New(ctx, params)
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", errors.New("empty response from Anthropic")
	}
	return text.String(), nil
}
