// Package agent provides the model-backed worker at the heart of AgentNet.
//
// An Agent owns a system prompt, a set of tools and a model. Running an
// agent assembles a prompt from the system text, the caller's input and the
// shared conversation history, performs inference, resolves any tool calls
// the model makes, and returns the collected output as a core.AgentResult.
//
// By default an agent performs a single inference pass and resolves its tool
// calls exactly once. Setting MaxToolRounds lets the agent feed tool results
// back into the model and infer again, up to the configured bound.
//
// Lifecycle hooks observe and steer a run: OnStart may rewrite the prompt or
// stop the run before inference, OnResponse sees each inference result
// before its tool calls resolve, and OnFinish sees the sealed result.
//
// Agents run standalone or inside a network. Inside a network the agent
// shares the network's state and may schedule other agents through the tool
// context.
package agent
