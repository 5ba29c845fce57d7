// Package model holds LLM backends that plug into the ADK runtime in place
// of the default Gemini model.
package model

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"sort"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	adkmodel "google.golang.org/adk/model"
	"google.golang.org/genai"
)

const defaultMaxTokens = 4096

// AnthropicModel implements adkmodel.LLM on top of the Claude Messages API.
type AnthropicModel struct {
	client    anthropic.Client
	modelName string
}

// NewAnthropicModel creates a Claude-backed model.
func NewAnthropicModel(ctx context.Context, modelName, apiKey string, opts ...option.RequestOption) (*AnthropicModel, error) {
	if modelName == "" {
		return nil, fmt.Errorf("anthropic: model name is required")
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &AnthropicModel{
		client:    anthropic.NewClient(opts...),
		modelName: modelName,
	}, nil
}

func (m *AnthropicModel) Name() string {
	return m.modelName
}

// GenerateContent sends one request and yields a single complete response.
// The stream flag is ignored.
func (m *AnthropicModel) GenerateContent(ctx context.Context, req *adkmodel.LLMRequest, stream bool) iter.Seq2[*adkmodel.LLMResponse, error] {
	return func(yield func(*adkmodel.LLMResponse, error) bool) {
		params, err := m.buildParams(req)
		if err != nil {
			yield(nil, fmt.Errorf("anthropic: build request: %w", err))
			return
		}

		msg, err := m.client.Messages.New(ctx, params)
		if err != nil {
			yield(nil, fmt.Errorf("anthropic: %w", err))
			return
		}
		slog.Debug("anthropic response", "model", m.modelName, "blocks", len(msg.Content), "stop_reason", msg.StopReason)

		yield(fromMessage(msg), nil)
	}
}

func (m *AnthropicModel) buildParams(req *adkmodel.LLMRequest) (anthropic.MessageNewParams, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(m.modelName),
		MaxTokens: defaultMaxTokens,
	}

	var system []anthropic.TextBlockParam
	if cfg := req.Config; cfg != nil {
		if cfg.SystemInstruction != nil {
			system = append(system, textBlocks(cfg.SystemInstruction)...)
		}
		if cfg.Temperature != nil {
			params.Temperature = anthropic.Float(float64(*cfg.Temperature))
		}
		if cfg.TopP != nil {
			params.TopP = anthropic.Float(float64(*cfg.TopP))
		}
		if cfg.MaxOutputTokens > 0 {
			params.MaxTokens = int64(cfg.MaxOutputTokens)
		}
	}

	for _, c := range req.Contents {
		if c == nil {
			continue
		}
		if c.Role == "system" {
			system = append(system, textBlocks(c)...)
			continue
		}
		msg, err := toMessageParam(c)
		if err != nil {
			return anthropic.MessageNewParams{}, err
		}
		params.Messages = append(params.Messages, msg)
	}
	if len(system) > 0 {
		params.System = system
	}

	tools, err := toToolParams(req.Tools)
	if err != nil {
		return anthropic.MessageNewParams{}, err
	}
	params.Tools = tools
	return params, nil
}

func textBlocks(c *genai.Content) []anthropic.TextBlockParam {
	var out []anthropic.TextBlockParam
	for _, p := range c.Parts {
		if p != nil && p.Text != "" {
			out = append(out, anthropic.TextBlockParam{Text: p.Text})
		}
	}
	return out
}

func toMessageParam(c *genai.Content) (anthropic.MessageParam, error) {
	var blocks []anthropic.ContentBlockParamUnion
	for _, p := range c.Parts {
		switch {
		case p == nil, p.Thought:
			// Thought summaries are not replayed.
		case p.FunctionCall != nil:
			blocks = append(blocks, anthropic.NewToolUseBlock(p.FunctionCall.ID, p.FunctionCall.Args, p.FunctionCall.Name))
		case p.FunctionResponse != nil:
			out, err := json.Marshal(p.FunctionResponse.Response)
			if err != nil {
				return anthropic.MessageParam{}, fmt.Errorf("encode result of %s: %w", p.FunctionResponse.Name, err)
			}
			blocks = append(blocks, anthropic.NewToolResultBlock(p.FunctionResponse.ID, string(out), false))
		case p.Text != "":
			blocks = append(blocks, anthropic.NewTextBlock(p.Text))
		}
	}

	if c.Role == "model" || c.Role == "assistant" {
		return anthropic.NewAssistantMessage(blocks...), nil
	}
	return anthropic.NewUserMessage(blocks...), nil
}

type declarer interface {
	Declaration() *genai.FunctionDeclaration
}

// toToolParams converts the runtime's tool table. Tools are emitted in name
// order so requests are deterministic.
func toToolParams(tools map[string]any) ([]anthropic.ToolUnionParam, error) {
	names := make([]string, 0, len(tools))
	for name := range tools {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []anthropic.ToolUnionParam
	for _, name := range names {
		var decl *genai.FunctionDeclaration
		switch v := tools[name].(type) {
		case *genai.FunctionDeclaration:
			decl = v
		case declarer:
			decl = v.Declaration()
		}
		if decl == nil {
			slog.Warn("skipping tool without declaration", "tool", name, "type", fmt.Sprintf("%T", tools[name]))
			continue
		}

		schema, err := toInputSchema(decl)
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", name, err)
		}
		out = append(out, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        name,
			Description: anthropic.String(decl.Description),
			InputSchema: schema,
		}})
	}
	return out, nil
}

func toInputSchema(decl *genai.FunctionDeclaration) (anthropic.ToolInputSchemaParam, error) {
	schema := anthropic.ToolInputSchemaParam{Type: "object"}

	var src any
	switch {
	case decl.ParametersJsonSchema != nil:
		src = decl.ParametersJsonSchema
	case decl.Parameters != nil:
		src = decl.Parameters
	default:
		return schema, nil
	}

	b, err := json.Marshal(src)
	if err != nil {
		return schema, fmt.Errorf("encode parameters: %w", err)
	}
	var raw struct {
		Properties any      `json:"properties"`
		Required   []string `json:"required"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return schema, fmt.Errorf("decode parameters: %w", err)
	}
	schema.Properties = raw.Properties
	schema.Required = raw.Required
	return schema, nil
}

func fromMessage(msg *anthropic.Message) *adkmodel.LLMResponse {
	var parts []*genai.Part
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			parts = append(parts, &genai.Part{Text: block.Text})
		case "tool_use":
			args := map[string]any{}
			if len(block.Input) > 0 {
				if err := json.Unmarshal(block.Input, &args); err != nil {
					slog.Warn("tool_use input is not an object", "tool", block.Name, "err", err)
				}
			}
			parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
				ID:   block.ID,
				Name: block.Name,
				Args: args,
			}})
		}
	}

	resp := &adkmodel.LLMResponse{
		Content:      &genai.Content{Role: "model", Parts: parts},
		FinishReason: genai.FinishReasonStop,
		TurnComplete: true,
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     int32(msg.Usage.InputTokens),
			CandidatesTokenCount: int32(msg.Usage.OutputTokens),
			TotalTokenCount:      int32(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}
	switch msg.StopReason {
	case anthropic.StopReasonToolUse:
		// The runtime still has tools to execute.
		resp.TurnComplete = false
	case anthropic.StopReasonMaxTokens:
		resp.FinishReason = genai.FinishReasonMaxTokens
	}
	return resp
}
