package enhancer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

type geminiCompleter struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int32
}

func newGeminiCompleter(ctx context.Context, config Config) (*geminiCompleter, error) {
	clientConfig := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &geminiCompleter{
		client:      client,
		model:       modelOrDefault(ProviderGemini, config.Model),
		temperature: config.Temperature,
		maxTokens:   int32(config.MaxTokens),
	}, nil
}

func (g *geminiCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	generateConfig := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(g.temperature),
		MaxOutputTokens: g.maxTokens,
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}, generateConfig)
	if err != nil {
		return "", err
	}

	text := geminiText(resp)
	if text == "" {
		return "", errors.New("empty response from Gemini")
	}
	return text, nil
}

func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part != nil {
				sb.WriteString(part.Text)
			}
		}
		if sb.Len() > 0 {
			break
		}
	}
	return sb.String()
}
