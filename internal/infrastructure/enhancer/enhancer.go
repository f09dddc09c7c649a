package enhancer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ecometri/catalog-converter/internal/domain"
)

// Supported providers
const (
	ProviderNone      = "none"
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultMaxTokens = 1024
)

// Config selects and tunes the model behind the enhancer
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// completer sends a single-turn prompt and returns the model's text
type completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Enhancer rewrites product copy through a chat model
type Enhancer struct {
	completer completer
	provider  string
	model     string
	timeout   time.Duration
}

// New builds the enhancer for config.Provider. It returns nil when enhancement is disabled.
func New(ctx context.Context, config Config) (domain.TextEnhancer, error) {
	provider := strings.ToLower(strings.TrimSpace(config.Provider))
	if provider == "" || provider == ProviderNone {
		return nil, nil
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("enhancer %q requires an API key", provider)
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = defaultMaxTokens
	}

	var (
		c   completer
		err error
	)
	switch provider {
	case ProviderGemini:
		c, err = newGeminiCompleter(ctx, config)
	case ProviderOpenAI:
		c = newOpenAICompleter(config)
	case ProviderAnthropic:
		c = newAnthropicCompleter(config)
	default:
		return nil, fmt.Errorf("unknown enhancer provider %q", config.Provider)
	}
	if err != nil {
		return nil, err
	}

	e := newEnhancer(c, provider, modelOrDefault(provider, config.Model), config.Timeout)

	log.Info().
		Str("component", "enhancer").
		Str("provider", provider).
		Str("model", e.model).
		Msg("text enhancer ready")

	return e, nil
}

func newEnhancer(c completer, provider, model string, timeout time.Duration) *Enhancer {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Enhancer{completer: c, provider: provider, model: model, timeout: timeout}
}

func modelOrDefault(provider, model string) string {
	if model != "" {
		return model
	}
	switch provider {
	case ProviderGemini:
		return "gemini-2.0-flash"
	case ProviderOpenAI:
		return "gpt-4o-mini"
	case ProviderAnthropic:
		return "claude-3-5-haiku-latest"
	}
	return ""
}

// Enhance implements domain.TextEnhancer
func (e *Enhancer) Enhance(ctx context.Context, rawTitle, rawDescription, contextHint string) (domain.Enhancement, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	text, err := e.completer.Complete(ctx, BuildPrompt(rawTitle, rawDescription, contextHint))
	if err != nil {
		return domain.Enhancement{}, fmt.Errorf("%w: %s: %v", domain.ErrEnhancementFailed, e.provider, err)
	}

	title, description, err := ParseResponse(text)
	if err != nil {
		log.Debug().
			Str("component", "enhancer").
			Str("provider", e.provider).
			Str("reply", text).
			Msg("unparseable model reply")
		return domain.Enhancement{}, fmt.Errorf("%w: %v", domain.ErrEnhancementFailed, err)
	}

	return domain.Enhancement{
		Title:       title,
		Description: description,
		Succeeded:   true,
		Model:       e.model,
	}, nil
}
