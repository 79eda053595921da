package llm

import (
	"context"
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/haasonsaas/nexus/pkg/models"
)

// AnthropicProvider implements ChatCompletion against Anthropic's Messages
// API. The Agent Controller needs only a single request/response per tick,
// so this adapter uses Messages.New rather than Messages.NewStreaming.
type AnthropicProvider struct {
	client anthropic.Client
	model  string
}

// NewAnthropicProvider builds an adapter for the given API key and default
// model.
func NewAnthropicProvider(apiKey, defaultModel string) *AnthropicProvider {
	if defaultModel == "" {
		defaultModel = string(anthropic.ModelClaude3_5HaikuLatest)
	}
	return &AnthropicProvider{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  defaultModel,
	}
}

func (p *AnthropicProvider) model_(opts Options) string {
	if opts.Model != "" {
		return opts.Model
	}
	return p.model
}

func (p *AnthropicProvider) maxTokens(opts Options) int64 {
	if opts.MaxTokens > 0 {
		return int64(opts.MaxTokens)
	}
	return 1024
}

func (p *AnthropicProvider) DecideWithTools(ctx context.Context, system, user string, tools []ToolSchema, opts Options) ([]models.ToolCall, *models.Failure) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model_(opts)),
		MaxTokens: p.maxTokens(opts),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Type: "text", Text: system}}
	}
	if len(tools) > 0 {
		params.Tools = toAnthropicTools(tools)
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, wrapError("anthropic", err)
	}

	var calls []models.ToolCall
	for _, block := range msg.Content {
		if tu, ok := block.AsAny().(anthropic.ToolUseBlock); ok {
			calls = append(calls, models.ToolCall{
				ID:        tu.ID,
				Name:      tu.Name,
				Arguments: json.RawMessage(tu.Input),
			})
		}
	}
	return calls, nil
}

func (p *AnthropicProvider) DecidePlain(ctx context.Context, system, user string, opts Options) (string, *models.Failure) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model_(opts)),
		MaxTokens: p.maxTokens(opts),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Type: "text", Text: system}}
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", wrapError("anthropic", err)
	}

	var text string
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text += tb.Text
		}
	}
	return text, nil
}

func toAnthropicTools(tools []ToolSchema) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		schema := anthropic.ToolInputSchemaParam{
			Properties: t.Parameters["properties"],
		}
		tp := anthropic.ToolUnionParamOfTool(schema, t.Name)
		if tp.OfTool != nil {
			tp.OfTool.Description = anthropic.String(t.Description)
		}
		out = append(out, tp)
	}
	return out
}

var _ ChatCompletion = (*AnthropicProvider)(nil)
