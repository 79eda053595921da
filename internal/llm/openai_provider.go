package llm

import (
	"context"
	"encoding/json"

	openai "github.com/sashabaranov/go-openai"

	"github.com/haasonsaas/nexus/internal/backoff"
	"github.com/haasonsaas/nexus/pkg/models"
)

// chatCompletionRetries bounds the number of attempts a single decide call
// makes against the provider before surfacing an LLMError (§7). Every
// completion round-trip is a tick's critical path item, so retries use the
// package's default policy rather than a provider-specific one.
const chatCompletionRetries = 3

// OpenAIProvider implements ChatCompletion against OpenAI's chat completion
// API, including function-calling for decide_with_tools.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider builds an adapter for the given API key and default
// model (overridable per-call via Options.Model).
func NewOpenAIProvider(apiKey, defaultModel string) *OpenAIProvider {
	if defaultModel == "" {
		defaultModel = openai.GPT4oMini
	}
	return &OpenAIProvider{client: openai.NewClient(apiKey), model: defaultModel}
}

func (p *OpenAIProvider) model_(opts Options) string {
	if opts.Model != "" {
		return opts.Model
	}
	return p.model
}

func (p *OpenAIProvider) DecideWithTools(ctx context.Context, system, user string, tools []ToolSchema, opts Options) ([]models.ToolCall, *models.Failure) {
	req := openai.ChatCompletionRequest{
		Model: p.model_(opts),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: float32(opts.Temperature),
		MaxTokens:   opts.MaxTokens,
		Tools:       toOpenAITools(tools),
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, wrapError("openai", err)
	}
	if len(resp.Choices) == 0 {
		return nil, nil
	}

	msg := resp.Choices[0].Message
	calls := make([]models.ToolCall, 0, len(msg.ToolCalls))
	for _, tc := range msg.ToolCalls {
		calls = append(calls, models.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}
	return calls, nil
}

func (p *OpenAIProvider) DecidePlain(ctx context.Context, system, user string, opts Options) (string, *models.Failure) {
	req := openai.ChatCompletionRequest{
		Model: p.model_(opts),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: float32(opts.Temperature),
		MaxTokens:   opts.MaxTokens,
	}
	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", wrapError("openai", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func toOpenAITools(tools []ToolSchema) []openai.Tool {
	out := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return out
}

var _ ChatCompletion = (*OpenAIProvider)(nil)
