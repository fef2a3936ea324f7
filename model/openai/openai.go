// Package openai adapts the OpenAI Chat Completions API (including
// function/tool calling) to the generic model.Model interface. It converts
// AgentNet's normalized message union into the SDK's message format and
// parses completions back into output messages with a stop reason attached.
package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/agentnetio/agentnet/core"
	"github.com/agentnetio/agentnet/model"
)

// Options configure the OpenAI model adapter.
// Fields mirror a subset of Chat Completion parameters intentionally kept
// minimal; extend via functional options without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Model wraps the OpenAI Chat Completions API behind the generic
// model.Model interface.
type Model struct {
	client *openai.Client
	opts   Options
}

// New creates a new OpenAI model using the official client, configured from
// the environment.
func New(optFns ...func(o *Options)) *Model {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates a new OpenAI model from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Model{client: client, opts: opts}
}

// Infer implements model.Model with a single completion call.
func (m *Model) Infer(ctx context.Context, req *model.Request) (*model.Response, error) {
	params := m.buildParams(req)

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: no choices returned")
	}

	choice := resp.Choices[0]

	var calls []core.ToolCall
	for _, tc := range choice.Message.ToolCalls {
		input := map[string]any{}
		if tc.Function.Arguments != "" {
			// Malformed arguments surface as an empty input map so the tool
			// layer's validation reports the mismatch.
			_ = json.Unmarshal([]byte(tc.Function.Arguments), &input)
		}

		calls = append(calls, core.ToolCall{
			ID:    tc.ID,
			Name:  tc.Function.Name,
			Input: input,
		})
	}

	var output []core.Message
	if choice.Message.Content != "" {
		output = append(output, core.TextMessage{Role: core.RoleAssistant, Content: choice.Message.Content})
	}
	if len(calls) > 0 {
		output = append(output, core.ToolCallMessage{Role: core.RoleAssistant, Tools: calls})
	}

	stampStopReason(output, stopReason(choice.FinishReason, len(calls) > 0))

	return &model.Response{
		Output: output,
		Usage: model.TokenUsage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
		Raw: resp.RawJSON(),
	}, nil
}

// buildParams assembles the request parameters including tool declarations
// and the tool choice policy.
func (m *Model) buildParams(req *model.Request) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Messages:            buildMessages(req.Messages),
		Model:               m.opts.Model,
		Temperature:         openai.Float(m.opts.Temperature),
		MaxCompletionTokens: openai.Int(m.opts.MaxCompletionTokens),
	}

	if len(req.Tools) == 0 {
		return params
	}

	tools := make([]openai.ChatCompletionToolParam, len(req.Tools))
	for i, def := range req.Tools {
		tools[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        def.Name,
				Description: openai.String(def.Description),
				Parameters:  def.Parameters,
			},
		}
	}
	params.Tools = tools

	switch req.ToolChoice.Mode {
	case model.ToolChoiceAny:
		params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
			OfAuto: openai.String("required"),
		}
	case model.ToolChoiceTool:
		params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
			OfChatCompletionNamedToolChoice: &openai.ChatCompletionNamedToolChoiceParam{
				Type: "function",
				Function: openai.ChatCompletionNamedToolChoiceFunctionParam{
					Name: req.ToolChoice.Name,
				},
			},
		}
	}

	return params
}

// buildMessages converts the normalized message union into chat messages.
// Tool results are indexed by call id and attached immediately after the
// assistant message carrying the matching call, regardless of where the
// history formatter placed them.
func buildMessages(msgs []core.Message) []openai.ChatCompletionMessageParamUnion {
	responses, order := collectToolResponses(msgs)

	var out []openai.ChatCompletionMessageParamUnion

	for _, msg := range msgs {
		switch m := msg.(type) {
		case core.TextMessage:
			switch m.Role {
			case core.RoleSystem:
				out = append(out, openai.SystemMessage(m.Content))
			case core.RoleAssistant:
				out = append(out, openai.AssistantMessage(m.Content))
			default:
				out = append(out, openai.UserMessage(m.Content))
			}
		case core.ToolCallMessage:
			calls := make([]openai.ChatCompletionMessageToolCallParam, 0, len(m.Tools))
			ids := make([]string, 0, len(m.Tools))

			for _, call := range m.Tools {
				args := "{}"
				if call.Input != nil {
					if data, err := json.Marshal(call.Input); err == nil {
						args = string(data)
					}
				}

				calls = append(calls, openai.ChatCompletionMessageToolCallParam{
					ID:   call.ID,
					Type: "function",
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      call.Name,
						Arguments: args,
					},
				})
				ids = append(ids, call.ID)
			}

			out = append(out, openai.ChatCompletionMessageParamUnion{
				OfAssistant: &openai.ChatCompletionAssistantMessageParam{
					Role:      "assistant",
					ToolCalls: calls,
				},
			})

			for _, id := range ids {
				if resp, ok := responses[id]; ok {
					out = append(out, openai.ToolMessage(resp, id))
					delete(responses, id)
				}
			}
		}
	}

	for _, id := range order {
		if resp, ok := responses[id]; ok {
			out = append(out, openai.ToolMessage(resp, id))
		}
	}

	return out
}

// collectToolResponses indexes tool result content by call id preserving
// first-seen order.
func collectToolResponses(msgs []core.Message) (map[string]string, []string) {
	responses := map[string]string{}
	var order []string

	for _, msg := range msgs {
		tr, ok := msg.(core.ToolResultMessage)
		if !ok || tr.Tool.ID == "" {
			continue
		}

		if _, exists := responses[tr.Tool.ID]; exists {
			continue
		}

		responses[tr.Tool.ID] = serializeToolContent(tr.Content)
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

// stopReason maps a finish reason onto the message-level stop reason.
func stopReason(finish string, hasToolCalls bool) core.StopReason {
	if finish == "tool_calls" || hasToolCalls {
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

// Info returns metadata describing this OpenAI model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:          m.opts.Model,
		Provider:      "openai",
		SupportsTools: true,
	}
}
