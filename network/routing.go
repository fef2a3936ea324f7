package network

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentnetio/agentnet/agent"
	"github.com/agentnetio/agentnet/core"
	"github.com/agentnetio/agentnet/model"
	"github.com/agentnetio/agentnet/tool"
)

// SelectAgentToolName is the name of the built-in routing tool.
const SelectAgentToolName = "select_agent"

// NewSelectAgentTool returns the routing tool a routing agent calls to name
// the next agent. The handler echoes the selection; interpretation happens
// in the router's OnRoute.
func NewSelectAgentTool() tool.Tool {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"agent": map[string]any{
				"type":        "string",
				"description": "Name of the agent that should act next",
			},
			"reason": map[string]any{
				"type":        "string",
				"description": "Short justification for the choice",
			},
		},
		"required": []string{"agent"},
	}

	return tool.New(
		SelectAgentToolName,
		"Select which agent should act next",
		params,
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			name, _ := args["agent"].(string)
			if name == "" {
				return nil, fmt.Errorf("no agent named")
			}

			toolCtx.Logger().Debug("network.route.selected", "agent", name)

			return map[string]any{"agent": name}, nil
		},
	)
}

// NewRoutingAgent builds the default model-backed routing agent: its system
// prompt enumerates the run's agents and the tool choice forces a call to
// select_agent, so every routing turn names a next agent. A result without a
// select_agent call still stops the run via DefaultOnRoute; pair the default
// router with MaxCalls to bound long conversations.
func NewRoutingAgent(mdl model.Model) *agent.Agent {
	return agent.New("routing_agent", func(o *agent.Options) {
		o.Description = "Decides which agent acts next"
		o.Model = mdl
		o.System = agent.NewSystemFromFunc(routingSystem)
		o.Tools = []tool.Tool{NewSelectAgentTool()}
		o.ToolChoice = model.ToolChoice{Mode: model.ToolChoiceAny}
	})
}

// DefaultRouter returns a ModelRouter that selects agents with the built-in
// routing agent and interprets its select_agent calls.
func DefaultRouter(mdl model.Model) *ModelRouter {
	return &ModelRouter{
		Agent:   NewRoutingAgent(mdl),
		OnRoute: DefaultOnRoute,
	}
}

// DefaultOnRoute reads the chosen agent name from the first select_agent
// call of the routing agent's result. A result without a select_agent call
// stops the run.
func DefaultOnRoute(_ context.Context, args *RouteArgs) ([]string, error) {
	if args == nil || args.Result == nil {
		return nil, nil
	}

	for _, msg := range args.Result.Output {
		tc, ok := msg.(core.ToolCallMessage)
		if !ok {
			continue
		}

		for _, call := range tc.Tools {
			if call.Name != SelectAgentToolName {
				continue
			}

			name, _ := call.Input["agent"].(string)
			if name == "" {
				return nil, fmt.Errorf("select_agent call %s names no agent", call.ID)
			}

			return []string{name}, nil
		}
	}

	return nil, nil
}

// routingSystem renders the routing agent's system prompt from the run's
// agent roster.
func routingSystem(_ context.Context, run core.Run) (string, error) {
	var b strings.Builder

	b.WriteString("You are the orchestrator of a network of AI agents. ")
	b.WriteString("Review the conversation so far and decide which agent should act next to make progress on the user's request.\n\n")

	if run != nil {
		infos := run.AgentInfos()
		if len(infos) > 0 {
			b.WriteString("Available agents:\n")

			for _, info := range infos {
				if info.Description != "" {
					fmt.Fprintf(&b, "- %s: %s\n", info.Name, info.Description)
				} else {
					fmt.Fprintf(&b, "- %s\n", info.Name)
				}
			}

			b.WriteString("\n")
		}
	}

	b.WriteString("Think about what has been done already and what remains. ")
	b.WriteString("Call select_agent with the name of the single agent best suited to act next. ")
	b.WriteString("Do not select an agent whose work is already reflected in the conversation unless it must revise its output.")

	return b.String(), nil
}
