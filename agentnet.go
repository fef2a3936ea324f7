// Package agentnet is the root of a library for building networks of LLM
// agents that share state, call tools and hand work to each other. Most
// applications interact with the subpackages directly:
//  1. Wrap a provider with model/openai or model/anthropic (or script a
//     model.Mock in tests).
//  2. Declare tools with tool.New or tool.NewTyped, or pull them from an
//     MCP server via tool/mcp.
//  3. Create workers with agent.New and compose them with network.New,
//     routing between them with a RouterFunc or the model-backed
//     DefaultRouter.
//  4. Call Network.Run; read the final answer off the returned run's state
//     or subscribe a stream.Publisher for live events.
//
// State carries the conversation across agents, history stores persist it
// across runs (history, history/redis) and every blocking operation takes a
// context.
package agentnet

// Version of the library. Reported to MCP servers during the protocol
// handshake.
const Version = "0.1.0"
