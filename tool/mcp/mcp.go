// Package mcp exposes tools served over the Model Context Protocol as a
// tool catalog for agents.
//
// A Catalog wraps one server. It connects lazily: the first Tools call
// starts the session, performs the protocol handshake and lists the remote
// tools. Tool names are namespaced "<server>_<tool>" so catalogs from
// several servers can coexist on one agent. Catalog satisfies the agent
// package's ToolCatalog contract.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/agentnetio/agentnet"
	"github.com/agentnetio/agentnet/core"
	"github.com/agentnetio/agentnet/logging"
	"github.com/agentnetio/agentnet/tool"
)

const protocolVersion = "2024-11-05"

// TransportConfig selects how the catalog reaches its server. Implementations
// are StdioTransport and SSETransport.
type TransportConfig interface{ isTransport() }

// StdioTransport launches the server as a subprocess speaking the protocol
// over stdin/stdout.
type StdioTransport struct {
	Command string
	Args    []string
	Env     map[string]string
}

// isTransport implements the TransportConfig interface.
func (StdioTransport) isTransport() {}

// SSETransport connects to an already running server over HTTP server-sent
// events.
type SSETransport struct {
	URL     string
	Headers map[string]string
}

// isTransport implements the TransportConfig interface.
func (SSETransport) isTransport() {}

// ServerConfig describes one MCP server and which of its tools to expose.
// A non-empty Include restricts exposure to the named tools; Exclude then
// removes tools and wins on overlap. Names refer to the server-side tool
// names, before namespacing.
type ServerConfig struct {
	Name      string
	Transport TransportConfig
	Include   []string
	Exclude   []string
}

// Options configures a Catalog.
type Options struct {
	Logger logging.Logger
}

// Catalog provides the tools of a single MCP server to agents.
type Catalog struct {
	cfg    ServerConfig
	logger logging.Logger
	dial   func() (*client.Client, error)

	mu        sync.Mutex
	client    *client.Client
	tools     []tool.Tool
	connected bool
}

// NewCatalog creates a catalog for one server. Connecting is deferred until
// Tools is first called.
func NewCatalog(cfg ServerConfig, optFns ...func(o *Options)) (*Catalog, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("mcp: server name is required")
	}

	if cfg.Transport == nil {
		return nil, fmt.Errorf("mcp: transport configuration is required")
	}

	opts := Options{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Catalog{cfg: cfg, logger: opts.Logger}, nil
}

// Name returns the server name, which doubles as the tool name namespace.
func (c *Catalog) Name() string { return c.cfg.Name }

// Tools connects on first use and returns the wrapped remote tools.
func (c *Catalog) Tools(ctx context.Context) ([]tool.Tool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		if err := c.connect(ctx); err != nil {
			return nil, fmt.Errorf("connect to mcp server %q: %w", c.cfg.Name, err)
		}
	}

	tools := make([]tool.Tool, len(c.tools))
	copy(tools, c.tools)

	return tools, nil
}

// Close tears the session down. A later Tools call reconnects.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.connected = false
	c.tools = nil

	if c.client == nil {
		return nil
	}

	err := c.client.Close()
	c.client = nil

	return err
}

// connect establishes the session and lists the server's tools. The caller
// holds c.mu.
func (c *Catalog) connect(ctx context.Context) error {
	dial := c.dial
	if dial == nil {
		dial = c.transportClient
	}

	mcpClient, err := dial()
	if err != nil {
		return err
	}

	if err := mcpClient.Start(ctx); err != nil {
		return fmt.Errorf("start client: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = protocolVersion
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "agentnet",
		Version: agentnet.Version,
	}

	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		mcpClient.Close()
		return fmt.Errorf("initialize: %w", err)
	}

	listResp, err := mcpClient.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		mcpClient.Close()
		return fmt.Errorf("list tools: %w", err)
	}

	var tools []tool.Tool

	for _, remote := range listResp.Tools {
		if !c.exposed(remote.Name) {
			continue
		}

		tools = append(tools, &remoteTool{
			catalog:     c,
			name:        c.cfg.Name + "_" + remote.Name,
			remoteName:  remote.Name,
			description: remote.Description,
			parameters:  decodeSchema(remote.InputSchema),
		})
	}

	c.client = mcpClient
	c.tools = tools
	c.connected = true

	c.logger.Info("mcp.catalog.connected",
		"server", c.cfg.Name,
		"tools", len(tools),
	)

	return nil
}

// transportClient builds the client matching the configured transport.
func (c *Catalog) transportClient() (*client.Client, error) {
	switch t := c.cfg.Transport.(type) {
	case StdioTransport:
		return client.NewStdioMCPClient(t.Command, envList(t.Env), t.Args...)
	case SSETransport:
		var opts []transport.ClientOption
		if len(t.Headers) > 0 {
			opts = append(opts, transport.WithHeaders(t.Headers))
		}

		return client.NewSSEMCPClient(t.URL, opts...)
	default:
		return nil, fmt.Errorf("unsupported transport %T", t)
	}
}

// exposed applies the include and exclude filters to a remote tool name.
func (c *Catalog) exposed(name string) bool {
	if len(c.cfg.Include) > 0 && !slices.Contains(c.cfg.Include, name) {
		return false
	}

	return !slices.Contains(c.cfg.Exclude, name)
}

// envList flattens the env map into the KEY=VALUE form subprocesses expect.
func envList(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}

	out := make([]string, 0, len(env))
	for _, k := range slices.Sorted(maps.Keys(env)) {
		out = append(out, k+"="+env[k])
	}

	return out
}

// decodeSchema converts the remote input schema into the plain map form the
// Tool interface declares.
func decodeSchema(schema mcp.ToolInputSchema) map[string]any {
	fallback := map[string]any{"type": "object"}

	data, err := json.Marshal(schema)
	if err != nil {
		return fallback
	}

	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil || out == nil {
		return fallback
	}

	return out
}

// remoteTool adapts one remote tool descriptor to the Tool interface.
type remoteTool struct {
	catalog     *Catalog
	name        string
	remoteName  string
	description string
	parameters  map[string]any
}

// Name returns the namespaced tool name.
func (t *remoteTool) Name() string { return t.name }

// Description returns the server-provided description.
func (t *remoteTool) Description() string { return t.description }

// Parameters returns the server-provided input schema.
func (t *remoteTool) Parameters() map[string]any { return t.parameters }

// Call forwards the invocation to the remote server. Results the server
// marks as errors surface as handler errors so they serialize like any
// other failed tool.
func (t *remoteTool) Call(toolCtx *core.ToolContext, args map[string]any) (any, error) {
	t.catalog.mu.Lock()
	mcpClient := t.catalog.client
	t.catalog.mu.Unlock()

	if mcpClient == nil {
		return nil, tool.NewError(t.name, "mcp session is closed", tool.CodeExecution)
	}

	ctx := context.Background()
	if toolCtx != nil {
		ctx = toolCtx.Context()
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = t.remoteName
	req.Params.Arguments = args

	resp, err := mcpClient.CallTool(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("mcp call %s: %w", t.remoteName, err)
	}

	text := textContent(resp)

	if resp.IsError {
		if text == "" {
			text = "unknown error"
		}

		return nil, tool.NewError(t.name, text, tool.CodeExecution)
	}

	return text, nil
}

// textContent concatenates the text blocks of a tool result.
func textContent(resp *mcp.CallToolResult) string {
	var parts []string

	for _, content := range resp.Content {
		if tc, ok := content.(mcp.TextContent); ok && tc.Text != "" {
			parts = append(parts, tc.Text)
		}
	}

	return strings.Join(parts, "\n")
}

var _ tool.Tool = (*remoteTool)(nil)
