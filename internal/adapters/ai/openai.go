package ai

import (
	"context"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"hermes/internal/adapters/config"
	"hermes/pkg/errors"
	"hermes/pkg/logger"
)

const openaiTimeout = 60 * time.Second

// OpenAIProvider implements ChatProvider on the official OpenAI Go SDK.
type OpenAIProvider struct {
	client  openai.Client // NewClient returns Client (not *Client)
	model   openai.ChatModel
	limiter *Limiter
	log     *logger.Logger
}

var _ ChatProvider = (*OpenAIProvider)(nil)

// NewOpenAIProvider creates a chat provider from configuration.
func NewOpenAIProvider(cfg config.AIConfig) (*OpenAIProvider, error) {
	if cfg.OpenAIKey == "" {
		return nil, errors.Wrap(errors.ErrInvalidConfig, "openai API key is required")
	}

	rpm := cfg.RequestsPerMinute
	if rpm < 1 {
		rpm = 60
	}

	client := openai.NewClient(
		option.WithAPIKey(cfg.OpenAIKey),
	)

	return &OpenAIProvider{
		client:  client,
		model:   openai.ChatModel(cfg.Model),
		limiter: NewLimiter("openai", rpm),
		log:     logger.Get().With("component", "openai_chat", "model", cfg.Model),
	}, nil
}

// Chat sends a single-turn completion and returns the first choice.
func (p *OpenAIProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, openaiTimeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: p.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	start := time.Now()
	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, errors.Wrap(err, "openai API call failed")
	}

	if len(completion.Choices) == 0 {
		return nil, errors.Wrap(errors.ErrInternal, "no completion choices returned")
	}

	p.log.Debugf("Completion in %s (%d in / %d out tokens)",
		time.Since(start).Round(time.Millisecond),
		completion.Usage.PromptTokens,
		completion.Usage.CompletionTokens)

	return &ChatResponse{
		Content:      completion.Choices[0].Message.Content,
		InputTokens:  completion.Usage.PromptTokens,
		OutputTokens: completion.Usage.CompletionTokens,
	}, nil
}
