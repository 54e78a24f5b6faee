package ai

import (
	"context"
	"encoding/json"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"golang.org/x/time/rate"

	"trusio/pkg/errors"
	"trusio/pkg/logger"
)

// OpenAIProvider implements Provider using the official OpenAI Go SDK
type OpenAIProvider struct {
	client  openai.Client
	model   shared.ChatModel
	timeout time.Duration
	limiter *rate.Limiter
	log     *logger.Logger
}

// OpenAIConfig configures the OpenAI provider
type OpenAIConfig struct {
	APIKey        string
	Model         string
	Timeout       time.Duration
	RatePerMinute float64
	RateBurst     int
}

// NewOpenAIProvider creates a new OpenAI-backed provider
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "openai API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = openai.ChatModelGPT4oMini
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RatePerMinute <= 0 {
		cfg.RatePerMinute = 300
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 10
	}

	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
	)

	return &OpenAIProvider{
		client:  client,
		model:   shared.ChatModel(cfg.Model),
		timeout: cfg.Timeout,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerMinute/60.0), cfg.RateBurst),
		log:     logger.Get().With("component", "openai_provider", "model", cfg.Model),
	}, nil
}

// Name returns the provider identifier
func (p *OpenAIProvider) Name() string { return "openai" }

// Invoke sends the conversation to the chat completions API
func (p *OpenAIProvider) Invoke(ctx context.Context, req InvokeRequest) (*InvokeResult, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "rate limit wait")
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model:    p.model,
		Messages: p.buildMessages(req),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	for _, spec := range req.Tools {
		params.Tools = append(params.Tools, openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        spec.Name,
			Description: openai.String(spec.Description),
			Parameters:  shared.FunctionParameters(spec.Parameters),
		}))
	}

	response, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.Wrap(errors.ErrTimeout, "openai call timed out")
		}
		return nil, errors.Wrap(err, "openai API call failed")
	}
	if len(response.Choices) == 0 {
		return nil, errors.Wrapf(errors.ErrInternal, "no completion choices returned")
	}

	choice := response.Choices[0].Message
	result := &InvokeResult{Text: choice.Content}

	for _, tc := range choice.ToolCalls {
		args := map[string]interface{}{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				p.log.Warnf("unparseable tool arguments for %s: %v", tc.Function.Name, err)
			}
		}
		result.ToolCalls = append(result.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}

	p.log.Debugf("completion: tokens=%d tool_calls=%d",
		response.Usage.TotalTokens, len(result.ToolCalls))

	return result, nil
}

// buildMessages converts runtime messages into SDK params
func (p *OpenAIProvider) buildMessages(req InvokeRequest) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)

	if req.Instructions != "" {
		messages = append(messages, openai.SystemMessage(req.Instructions))
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleUser:
			messages = append(messages, openai.UserMessage(msg.Content))

		case RoleAssistant:
			if len(msg.ToolCalls) == 0 {
				messages = append(messages, openai.AssistantMessage(msg.Content))
				continue
			}
			assistant := openai.ChatCompletionAssistantMessageParam{}
			if msg.Content != "" {
				assistant.Content.OfString = openai.String(msg.Content)
			}
			for _, tc := range msg.ToolCalls {
				argsJSON, _ := json.Marshal(tc.Arguments)
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: tc.ID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      tc.Name,
							Arguments: string(argsJSON),
						},
					},
				})
			}
			messages = append(messages, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})

		case RoleTool:
			messages = append(messages, openai.ToolMessage(msg.Content, msg.ToolCallID))

		case RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))
		}
	}

	return messages
}
