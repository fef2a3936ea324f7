// Package anthropic adapts the Anthropic Messages API (including tool use)
// to the generic model.Model interface. System instructions are peeled off
// into the request's dedicated system field and tool results are paired with
// their originating tool_use blocks, which the API requires.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/agentnetio/agentnet/core"
	"github.com/agentnetio/agentnet/model"
)

// Options configure the Anthropic model adapter. The API key falls back to
// the ANTHROPIC_API_KEY environment variable when unset.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Model wraps the Anthropic Messages API behind the generic model.Model
// interface.
type Model struct {
	client *anthropic.Client
	opts   Options
}

// New creates a new Anthropic model using the official client.
func New(optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Model{client: &client, opts: opts}
}

// NewFromClient creates a new Anthropic model from an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Model{client: client, opts: opts}
}

// Infer implements model.Model with a single Messages API call.
func (m *Model) Infer(ctx context.Context, req *model.Request) (*model.Response, error) {
	params := m.buildParams(req)

	resp, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic api error: %w", err)
	}

	var (
		output []core.Message
		calls  []core.ToolCall
	)

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text := block.AsText()
			if text.Text != "" {
				output = append(output, core.TextMessage{Role: core.RoleAssistant, Content: text.Text})
			}
		case "tool_use":
			use := block.AsToolUse()
			calls = append(calls, core.ToolCall{
				ID:    use.ID,
				Name:  use.Name,
				Input: decodeToolInput(use.Input),
			})
		}
	}

	if len(calls) > 0 {
		output = append(output, core.ToolCallMessage{Role: core.RoleAssistant, Tools: calls})
	}

	stampStopReason(output, stopReason(string(resp.StopReason), len(calls) > 0))

	return &model.Response{
		Output: output,
		Usage: model.TokenUsage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
		Raw: resp.RawJSON(),
	}, nil
}

// buildParams assembles the request parameters including system blocks, tool
// declarations and the tool choice policy.
func (m *Model) buildParams(req *model.Request) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:       m.opts.Model,
		Messages:    buildMessages(req.Messages),
		MaxTokens:   m.opts.MaxTokens,
		Temperature: anthropic.Float(m.opts.Temperature),
	}

	if system := collectSystemBlocks(req.Messages); len(system) > 0 {
		params.System = system
	}

	if len(req.Tools) == 0 {
		return params
	}

	params.Tools = buildTools(req.Tools)

	switch req.ToolChoice.Mode {
	case model.ToolChoiceAny:
		params.ToolChoice = anthropic.ToolChoiceUnionParam{
			OfAny: &anthropic.ToolChoiceAnyParam{},
		}
	case model.ToolChoiceTool:
		params.ToolChoice = anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: req.ToolChoice.Name},
		}
	}

	return params
}

// collectSystemBlocks peels system-role messages off the transcript; the
// Messages API carries instructions in a dedicated request field.
func collectSystemBlocks(msgs []core.Message) []anthropic.TextBlockParam {
	var blocks []anthropic.TextBlockParam

	for _, msg := range msgs {
		if text, ok := msg.(core.TextMessage); ok && text.Role == core.RoleSystem && text.Content != "" {
			blocks = append(blocks, anthropic.TextBlockParam{Text: text.Content})
		}
	}

	return blocks
}

// buildMessages converts the normalized message union into Messages API
// turns. Tool results are indexed by call id and emitted as a user turn
// directly after the assistant turn carrying the matching tool_use block;
// the API rejects tool_result blocks anywhere else.
func buildMessages(msgs []core.Message) []anthropic.MessageParam {
	responses, order := collectToolResponses(msgs)

	var out []anthropic.MessageParam

	for _, msg := range msgs {
		switch m := msg.(type) {
		case core.TextMessage:
			switch m.Role {
			case core.RoleSystem:
				// Carried in the params' System field instead.
			case core.RoleAssistant:
				if m.Content != "" {
					out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
				}
			default:
				if m.Content != "" {
					out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
				}
			}
		case core.ToolCallMessage:
			var (
				blocks  []anthropic.ContentBlockParamUnion
				results []anthropic.ContentBlockParamUnion
			)

			for _, call := range m.Tools {
				var input any = map[string]any{}
				if call.Input != nil {
					input = call.Input
				}

				blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, input, call.Name))

				if resp, ok := responses[call.ID]; ok {
					results = append(results, anthropic.NewToolResultBlock(call.ID, resp.content, resp.isError))
					delete(responses, call.ID)
				}
			}

			if len(blocks) > 0 {
				out = append(out, anthropic.NewAssistantMessage(blocks...))
			}

			if len(results) > 0 {
				out = append(out, anthropic.NewUserMessage(results...))
			}
		}
	}

	// Results whose originating call never appeared lose their pairing and
	// travel as plain user text.
	for _, id := range order {
		if resp, ok := responses[id]; ok {
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(resp.content)))
		}
	}

	return out
}

// toolResponse pairs serialized tool output with the error flag carried on
// its tool_result block.
type toolResponse struct {
	content string
	isError bool
}

// collectToolResponses indexes tool result content by call id preserving
// first-seen order.
func collectToolResponses(msgs []core.Message) (map[string]toolResponse, []string) {
	responses := map[string]toolResponse{}
	var order []string

	for _, msg := range msgs {
		tr, ok := msg.(core.ToolResultMessage)
		if !ok || tr.Tool.ID == "" {
			continue
		}

		if _, exists := responses[tr.Tool.ID]; exists {
			continue
		}

		_, isErr := tr.Content.(core.ToolErrorContent)

		responses[tr.Tool.ID] = toolResponse{
			content: serializeToolContent(tr.Content),
			isError: isErr,
		}
		order = append(order, tr.Tool.ID)
	}

	return responses, order
}

// serializeToolContent renders arbitrary tool result content as text for the
// wire.
func serializeToolContent(content any) string {
	switch v := content.(type) {
	case string:
		return v
	case nil:
		return core.ToolSuccessMessage
	default:
		if data, err := json.Marshal(v); err == nil {
			return string(data)
		}

		return fmt.Sprintf("%v", v)
	}
}

// buildTools converts tool declarations into the Messages API tool format.
func buildTools(defs []model.ToolDefinition) []anthropic.ToolUnionParam {
	tools := make([]anthropic.ToolUnionParam, len(defs))

	for i, def := range defs {
		schema := anthropic.ToolInputSchemaParam{
			Type: constant.Object("object"),
		}

		if def.Parameters != nil {
			if props, ok := def.Parameters["properties"]; ok {
				schema.Properties = props
			}

			schema.Required = requiredNames(def.Parameters["required"])
		}

		tool := anthropic.ToolUnionParamOfTool(schema, def.Name)
		if tool.OfTool != nil && def.Description != "" {
			tool.OfTool.Description = anthropic.String(def.Description)
		}

		tools[i] = tool
	}

	return tools
}

// requiredNames accepts both the []string form produced by schema builders
// and the []any form produced by JSON decoding.
func requiredNames(required any) []string {
	switch v := required.(type) {
	case []string:
		return v
	case []any:
		var names []string

		for _, entry := range v {
			if name, ok := entry.(string); ok {
				names = append(names, name)
			}
		}

		return names
	default:
		return nil
	}
}

// decodeToolInput normalizes the provider's free-form input payload into the
// map form tools validate against.
func decodeToolInput(raw any) map[string]any {
	input := map[string]any{}

	if raw == nil {
		return input
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return input
	}

	// Malformed payloads surface as an empty input map so the tool layer's
	// validation reports the mismatch.
	_ = json.Unmarshal(data, &input)

	return input
}

// stopReason maps the provider stop reason onto the message-level stop
// reason.
func stopReason(finish string, hasToolCalls bool) core.StopReason {
	if finish == "tool_use" || hasToolCalls {
		return core.StopReasonTool
	}

	return core.StopReasonStop
}

// stampStopReason attaches the stop reason to the last output message.
func stampStopReason(output []core.Message, stop core.StopReason) {
	if len(output) == 0 {
		return
	}

	switch m := output[len(output)-1].(type) {
	case core.TextMessage:
		m.StopReason = stop
		output[len(output)-1] = m
	case core.ToolCallMessage:
		m.StopReason = stop
		output[len(output)-1] = m
	}
}

// Info returns metadata describing this Anthropic model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:          string(m.opts.Model),
		Provider:      "anthropic",
		SupportsTools: true,
	}
}
