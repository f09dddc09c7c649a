package enhancer

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"
)

// openAICompleter also serves OpenAI-compatible endpoints through BaseURL
type openAICompleter struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

func newOpenAICompleter(config Config) *openAICompleter {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &openAICompleter{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       modelOrDefault(ProviderOpenAI, config.Model),
		temperature: config.Temperature,
		maxTokens:   config.MaxTokens,
	}
}

func (o *openAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: o.temperature,
		MaxTokens:   o.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", errors.New("empty response from chat completion")
	}
	return resp.Choices[0].Message.Content, nil
}
