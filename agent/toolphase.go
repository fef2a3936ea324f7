package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/agentnetio/agentnet/core"
	"github.com/agentnetio/agentnet/stream"
)

// resolveTools executes the given tool calls in order and returns one tool
// result message per call. A call naming an unregistered tool aborts the run
// before any result is recorded. Tool failures and panics are recovered into
// error-shaped result content so the model can react to them.
func (a *Agent) resolveTools(ctx context.Context, calls []core.ToolCall, opts *RunOptions) ([]core.ToolResultMessage, error) {
	results := make([]core.ToolResultMessage, 0, len(calls))

	for _, call := range calls {
		t, ok := a.GetTool(call.Name)
		if !ok {
			a.logger.Error("agent.tool.unknown", "agent", a.name, "tool", call.Name)
			return nil, fmt.Errorf("tool %q not found for agent %q", call.Name, a.name)
		}

		toolCtx := core.NewToolContext(core.ToolContextConfig{
			Context: ctx,
			CallID:  call.ID,
			Agent:   a.Info(),
			State:   opts.State,
			Network: opts.Network,
			Step:    opts.Step,
			Logger:  a.logger,
		})

		part := opts.Stream.NewPart(ctx, stream.PartToolOutput)

		stepID := fmt.Sprintf("%s.tool.%s", a.name, call.ID)
		start := time.Now()

		opts.Stream.StepStarted(ctx, stepID)

		raw, err := opts.Step.Run(ctx, stepID, func(ctx context.Context) (out any, err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("tool %s panicked: %v", call.Name, r)
					a.logger.Error("agent.tool.panic",
						"agent", a.name,
						"tool", call.Name,
						"recover", r,
						"stack", string(debug.Stack()),
					)
				}
			}()

			return t.Call(toolCtx, call.Input)
		})

		a.logger.Info("agent.tool.executed",
			"agent", a.name,
			"tool", call.Name,
			"call_id", call.ID,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err != nil,
		)

		var content any

		switch {
		case err != nil:
			content = core.NewToolErrorContent(err)
			part.Fail(ctx, err)
		case raw == nil:
			content = core.ToolSuccessMessage
			opts.Stream.StepCompleted(ctx, stepID)
			part.Complete(ctx, map[string]any{"tool": call.Name, "call_id": call.ID, "output": content})
		default:
			content = raw
			opts.Stream.StepCompleted(ctx, stepID)
			if encoded, encErr := json.Marshal(raw); encErr == nil {
				part.Delta(ctx, string(encoded))
			}
			part.Complete(ctx, map[string]any{"tool": call.Name, "call_id": call.ID})
		}

		results = append(results, core.NewToolResultMessage(call, content))
	}

	return results, nil
}
