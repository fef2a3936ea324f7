package tool

import (
	"fmt"

	"github.com/agentnetio/agentnet/core"
)

// StateTool exposes the shared run state and roster to the model through a
// single dispatching tool.
//
// It demonstrates how tools use the ToolContext for framework integration
// and gives prompt-driven workflows a uniform way to stash intermediate
// values, inspect the roster and hand work to other agents without a
// bespoke tool per operation.
type StateTool struct {
	name        string
	description string
}

// NewStateTool creates the state management tool.
//
// Supported operations:
//   - get_state / set_state / delete_state / list_keys for the shared
//     key/value store
//   - list_agents to inspect the network roster
//   - schedule_agent to push another agent onto the pending stack
func NewStateTool() *StateTool {
	return &StateTool{
		name: "manage_state",
		description: "Manages shared run state and agent scheduling. " +
			"Supports operations: get_state, set_state, delete_state, list_keys, " +
			"list_agents, schedule_agent.",
	}
}

// Name returns the tool identifier.
func (t *StateTool) Name() string {
	return t.name
}

// Description returns the tool description.
func (t *StateTool) Description() string {
	return t.description
}

// Parameters returns the JSON schema for tool parameters.
func (t *StateTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"operation": map[string]any{
				"type": "string",
				"enum": []string{
					"get_state", "set_state", "delete_state", "list_keys",
					"list_agents", "schedule_agent",
				},
				"description": "The operation to perform",
			},
			"key": map[string]any{
				"type":        "string",
				"description": "State key for get_state/set_state/delete_state operations",
			},
			"value": map[string]any{
				"description": "Value for set_state operations (any type)",
			},
			"agent_name": map[string]any{
				"type":        "string",
				"description": "Agent name for schedule_agent operation",
			},
		},
		"required": []string{"operation"},
	}
}

// Call implements the Tool interface with structured arguments.
func (t *StateTool) Call(toolCtx *core.ToolContext, args map[string]any) (any, error) {
	operation, ok := args["operation"].(string)
	if !ok {
		return nil, fmt.Errorf("operation parameter is required")
	}

	switch operation {
	case "get_state":
		return t.handleGetState(toolCtx, args)
	case "set_state":
		return t.handleSetState(toolCtx, args)
	case "delete_state":
		return t.handleDeleteState(toolCtx, args)
	case "list_keys":
		return t.handleListKeys(toolCtx)
	case "list_agents":
		return t.handleListAgents(toolCtx)
	case "schedule_agent":
		return t.handleScheduleAgent(toolCtx, args)
	default:
		return nil, fmt.Errorf("unknown operation: %s", operation)
	}
}

// handleGetState retrieves a value from shared state.
func (t *StateTool) handleGetState(toolCtx *core.ToolContext, args map[string]any) (any, error) {
	key, ok := args["key"].(string)
	if !ok {
		return nil, fmt.Errorf("key parameter is required for get_state operation")
	}

	value, exists := toolCtx.GetState(key)

	return map[string]any{
		"key":    key,
		"exists": exists,
		"value":  value,
	}, nil
}

// handleSetState stores a value in shared state.
func (t *StateTool) handleSetState(toolCtx *core.ToolContext, args map[string]any) (any, error) {
	key, ok := args["key"].(string)
	if !ok {
		return nil, fmt.Errorf("key parameter is required for set_state operation")
	}

	value := args["value"] // Can be any type

	toolCtx.SetState(key, value)

	return map[string]any{
		"key":     key,
		"value":   value,
		"success": true,
	}, nil
}

// handleDeleteState removes a key from shared state.
func (t *StateTool) handleDeleteState(toolCtx *core.ToolContext, args map[string]any) (any, error) {
	key, ok := args["key"].(string)
	if !ok {
		return nil, fmt.Errorf("key parameter is required for delete_state operation")
	}

	toolCtx.State().Delete(key)

	return map[string]any{
		"key":     key,
		"success": true,
	}, nil
}

// handleListKeys enumerates the shared state keys.
func (t *StateTool) handleListKeys(toolCtx *core.ToolContext) (any, error) {
	keys := toolCtx.State().Keys()

	return map[string]any{
		"keys":  keys,
		"count": len(keys),
	}, nil
}

// handleListAgents lists the agents registered with the surrounding run.
func (t *StateTool) handleListAgents(toolCtx *core.ToolContext) (any, error) {
	run := toolCtx.Network()
	if run == nil {
		return nil, fmt.Errorf("list_agents requires a network run")
	}

	return map[string]any{
		"agents": run.AgentInfos(),
	}, nil
}

// handleScheduleAgent pushes another agent onto the pending stack.
func (t *StateTool) handleScheduleAgent(toolCtx *core.ToolContext, args map[string]any) (any, error) {
	agentName, ok := args["agent_name"].(string)
	if !ok {
		return nil, fmt.Errorf("agent_name parameter is required for schedule_agent operation")
	}

	if err := toolCtx.Schedule(agentName); err != nil {
		return nil, err
	}

	return map[string]any{
		"agent_name": agentName,
		"success":    true,
		"message":    fmt.Sprintf("Agent '%s' scheduled", agentName),
	}, nil
}
