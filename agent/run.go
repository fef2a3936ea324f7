package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/agentnetio/agentnet/core"
	"github.com/agentnetio/agentnet/model"
	"github.com/agentnetio/agentnet/stream"
)

// RunOptions configures a single agent run. The zero value of each field
// falls back to the agent's own configuration.
type RunOptions struct {
	// State is the shared conversation state. A fresh empty state is used
	// when neither this nor Network is set.
	State *core.State

	// Network is the surrounding network run, or nil for standalone runs.
	// When set and State is nil, the network's state is used.
	Network core.Run

	// Model overrides the agent's model for this run.
	Model model.Model

	// MaxToolRounds overrides the agent's tool round bound for this run.
	MaxToolRounds int

	// Step wraps inference and tool calls for durable execution. Defaults
	// to inline execution. Step handles must return the wrapped function's
	// value unchanged.
	Step core.StepHandle

	// Stream receives progress events for this run. Nil disables streaming.
	Stream *stream.Context

	// HistoryFormatter overrides how prior results are rendered into
	// history messages.
	HistoryFormatter core.HistoryFormatter
}

// Run executes the agent once: assemble the prompt, infer, resolve tool
// calls, and collect the output into an AgentResult. The result is returned
// to the caller and not appended to state; owning loops such as a network
// run decide what to record.
func (a *Agent) Run(ctx context.Context, input string, optFns ...func(o *RunOptions)) (*core.AgentResult, error) {
	opts := RunOptions{
		Model:         a.model,
		MaxToolRounds: a.maxToolRounds,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.State == nil {
		if opts.Network != nil {
			opts.State = opts.Network.State()
		} else {
			opts.State = core.NewState()
		}
	}

	if opts.Step == nil {
		opts.Step = core.InlineStep{}
	}

	if opts.Model == nil {
		return nil, fmt.Errorf("agent %q has no model configured", a.name)
	}

	if err := a.ensureCatalogTools(ctx); err != nil {
		return nil, err
	}

	opts.Stream.RunStarted(ctx)

	result, err := a.loop(ctx, input, &opts)
	if err != nil {
		opts.Stream.RunFailed(ctx, err)
		return nil, err
	}

	opts.Stream.RunCompleted(ctx)

	return result, nil
}

// loop drives the prompt assembly, inference rounds and lifecycle hooks for
// one run.
func (a *Agent) loop(ctx context.Context, input string, opts *RunOptions) (*core.AgentResult, error) {
	system, err := a.system.Resolve(ctx, opts.Network)
	if err != nil {
		return nil, fmt.Errorf("resolve system prompt for agent %q: %w", a.name, err)
	}

	prompt := make([]core.Message, 0, 3)
	if system != "" {
		prompt = append(prompt, core.NewSystemMessage(system))
	}
	if input != "" {
		prompt = append(prompt, core.NewUserMessage(input))
	}
	if a.assistant != "" {
		prompt = append(prompt, core.NewAssistantMessage(a.assistant))
	}

	history := opts.State.FormatHistory(opts.HistoryFormatter)

	if a.lifecycle.OnStart != nil {
		hc := &StartContext{
			Agent:   a,
			Network: opts.Network,
			Input:   input,
			Prompt:  prompt,
			History: history,
		}

		if err := a.lifecycle.OnStart(ctx, hc); err != nil {
			return nil, fmt.Errorf("on start hook for agent %q: %w", a.name, err)
		}

		prompt, history = hc.Prompt, hc.History

		if hc.Stop {
			a.logger.Info("agent.run.stopped", "agent", a.name)
			return a.finish(ctx, opts, prompt, history, nil, nil, "")
		}
	}

	defs := a.toolDefinitions()

	var (
		output      []core.Message
		toolResults []core.ToolResultMessage
		transcript  []core.Message
		lastRaw     string
	)

	for round := 0; ; round++ {
		req := &model.Request{
			AgentID:    a.name,
			Messages:   assembleMessages(prompt, history, transcript),
			Tools:      defs,
			ToolChoice: a.toolChoice,
		}

		a.logger.Debug("agent.infer.start", "agent", a.name, "round", round, "messages", len(req.Messages))

		resp, err := a.infer(ctx, opts, round, req)
		if err != nil {
			return nil, fmt.Errorf("inference failed for agent %q: %w", a.name, err)
		}

		lastRaw = resp.Raw

		roundResult := core.NewAgentResult(a.name, resp.Output, nil)
		roundResult.Raw = resp.Raw

		if a.lifecycle.OnResponse != nil {
			hc := &ResultContext{Agent: a, Network: opts.Network, Result: roundResult}
			if err := a.lifecycle.OnResponse(ctx, hc); err != nil {
				return nil, fmt.Errorf("on response hook for agent %q: %w", a.name, err)
			}
		}

		publishOutput(ctx, opts.Stream, roundResult.Output)

		output = append(output, roundResult.Output...)
		transcript = append(transcript, roundResult.Output...)

		// The tool phase only runs for agents that own tools; without any,
		// a requested call cannot be resolved and the round is terminal.
		calls := collectToolCalls(roundResult.Output)
		if len(calls) == 0 || len(defs) == 0 {
			break
		}

		results, err := a.resolveTools(ctx, calls, opts)
		if err != nil {
			return nil, err
		}

		toolResults = append(toolResults, results...)
		for _, tr := range results {
			transcript = append(transcript, tr)
		}

		if round >= opts.MaxToolRounds {
			break
		}
	}

	return a.finish(ctx, opts, prompt, history, output, toolResults, lastRaw)
}

// infer performs one model call through the step handle.
func (a *Agent) infer(ctx context.Context, opts *RunOptions, round int, req *model.Request) (*model.Response, error) {
	stepID := fmt.Sprintf("%s.infer.%d", a.name, round)

	opts.Stream.StepStarted(ctx, stepID)

	raw, err := opts.Step.Run(ctx, stepID, func(ctx context.Context) (any, error) {
		return opts.Model.Infer(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	resp, ok := raw.(*model.Response)
	if !ok {
		return nil, fmt.Errorf("step handle returned %T, want *model.Response", raw)
	}

	opts.Stream.StepCompleted(ctx, stepID)

	return resp, nil
}

// finish seals the run result and invokes the OnFinish hook.
func (a *Agent) finish(ctx context.Context, opts *RunOptions, prompt, history, output []core.Message, toolResults []core.ToolResultMessage, raw string) (*core.AgentResult, error) {
	result := core.NewAgentResult(a.name, output, toolResults)
	result.Prompt = prompt
	result.History = history
	result.Raw = raw

	if a.lifecycle.OnFinish != nil {
		hc := &ResultContext{Agent: a, Network: opts.Network, Result: result}
		if err := a.lifecycle.OnFinish(ctx, hc); err != nil {
			return nil, fmt.Errorf("on finish hook for agent %q: %w", a.name, err)
		}
	}

	a.logger.Info("agent.run.finished",
		"agent", a.name,
		"output", len(result.Output),
		"tool_calls", len(result.ToolCalls),
	)

	return result, nil
}

// assembleMessages concatenates prompt, history and the transcript of this
// run into a single request message list.
func assembleMessages(prompt, history, transcript []core.Message) []core.Message {
	msgs := make([]core.Message, 0, len(prompt)+len(history)+len(transcript))
	msgs = append(msgs, prompt...)
	msgs = append(msgs, history...)
	msgs = append(msgs, transcript...)

	return msgs
}

// collectToolCalls gathers the tool calls from the model output in order.
func collectToolCalls(output []core.Message) []core.ToolCall {
	var calls []core.ToolCall

	for _, msg := range output {
		if tc, ok := msg.(core.ToolCallMessage); ok {
			calls = append(calls, tc.Tools...)
		}
	}

	return calls
}

// publishOutput emits stream parts for the model output of one round.
func publishOutput(ctx context.Context, sc *stream.Context, output []core.Message) {
	for _, msg := range output {
		switch m := msg.(type) {
		case core.TextMessage:
			part := sc.NewPart(ctx, stream.PartText)
			part.Delta(ctx, m.Content)
			part.Complete(ctx, map[string]any{"content": m.Content})
		case core.ToolCallMessage:
			for _, call := range m.Tools {
				part := sc.NewPart(ctx, stream.PartToolCall)
				if args, err := json.Marshal(call.Input); err == nil {
					part.Delta(ctx, string(args))
				}
				part.Complete(ctx, map[string]any{"tool": call.Name, "call_id": call.ID})
			}
		}
	}
}
