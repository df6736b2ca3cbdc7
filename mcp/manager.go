package mcp

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hupe1980/taskmesh/logging"
)

// ServerConfig describes how to reach one MCP server. Exactly one of Command
// or URL must be set.
type ServerConfig struct {
	// Command launches a stdio server as a subprocess, argv style.
	Command []string `json:"command,omitempty"`

	// Env is appended to the subprocess environment.
	Env []string `json:"env,omitempty"`

	// URL connects to a streamable HTTP server.
	URL string `json:"url,omitempty"`
}

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	// Name reported to servers during initialization.
	Name string

	// Version reported during initialization.
	Version string

	// Logger for connection lifecycle logging. Defaults to NoOp.
	Logger logging.Logger
}

// Manager owns a named table of MCP client sessions. It implements
// core.ResourceClient so tool handlers can call connected servers without
// knowing transport details. Safe for concurrent use.
type Manager struct {
	mu       sync.RWMutex
	client   *sdk.Client
	sessions map[string]*sdk.ClientSession
	logger   logging.Logger
}

// NewManager constructs a manager with an empty connection table.
func NewManager(optFns ...func(o *ManagerOptions)) *Manager {
	opts := ManagerOptions{
		Name:    "taskmesh",
		Version: "0.1.0",
		Logger:  logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &Manager{
		client:   sdk.NewClient(&sdk.Implementation{Name: opts.Name, Version: opts.Version}, nil),
		sessions: make(map[string]*sdk.ClientSession),
		logger:   opts.Logger,
	}
}

// Connect establishes a session over the given transport and registers it
// under name. An existing session with the same name is closed first.
func (m *Manager) Connect(ctx context.Context, name string, transport sdk.Transport) error {
	session, err := m.client.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", name, err)
	}

	m.mu.Lock()
	old := m.sessions[name]
	m.sessions[name] = session
	m.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}

	m.logger.Info("mcp.connected", "server", name)
	return nil
}

// ConnectConfig builds the transport described by cfg and connects.
func (m *Manager) ConnectConfig(ctx context.Context, name string, cfg ServerConfig) error {
	switch {
	case len(cfg.Command) > 0:
		cmd := exec.Command(cfg.Command[0], cfg.Command[1:]...)
		if len(cfg.Env) > 0 {
			cmd.Env = append(cmd.Environ(), cfg.Env...)
		}
		return m.Connect(ctx, name, &sdk.CommandTransport{Command: cmd})
	case cfg.URL != "":
		return m.Connect(ctx, name, &sdk.StreamableClientTransport{Endpoint: cfg.URL})
	default:
		return fmt.Errorf("server %s: config needs a command or url", name)
	}
}

// Disconnect closes and removes the named session. Unknown names are a no-op.
func (m *Manager) Disconnect(name string) error {
	m.mu.Lock()
	session, ok := m.sessions[name]
	delete(m.sessions, name)
	m.mu.Unlock()

	if !ok {
		return nil
	}

	m.logger.Info("mcp.disconnected", "server", name)
	return session.Close()
}

// Close tears down every session in the table.
func (m *Manager) Close() error {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*sdk.ClientSession)
	m.mu.Unlock()

	var firstErr error
	for name, session := range sessions {
		if err := session.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close %s: %w", name, err)
		}
	}
	return firstErr
}

// Servers returns the names of all connected servers.
func (m *Manager) Servers() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.sessions))
	for name := range m.sessions {
		names = append(names, name)
	}
	return names
}

// IsConnected implements core.ResourceClient.
func (m *Manager) IsConnected(server string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.sessions[server]
	return ok
}

// ListTools implements core.ResourceClient; it returns the tool names
// advertised by the named server.
func (m *Manager) ListTools(ctx context.Context, server string) ([]string, error) {
	session, err := m.session(server)
	if err != nil {
		return nil, err
	}

	res, err := session.ListTools(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list tools on %s: %w", server, err)
	}

	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	return names, nil
}

// CallTool implements core.ResourceClient; it invokes a tool on the named
// server and flattens the textual content of the result.
func (m *Manager) CallTool(ctx context.Context, server, tool string, args map[string]any) (string, error) {
	session, err := m.session(server)
	if err != nil {
		return "", err
	}

	res, err := session.CallTool(ctx, &sdk.CallToolParams{
		Name:      tool,
		Arguments: args,
	})
	if err != nil {
		return "", fmt.Errorf("call %s on %s: %w", tool, server, err)
	}

	text := flattenContent(res.Content)
	if res.IsError {
		return "", fmt.Errorf("tool %s reported an error: %s", tool, text)
	}
	return text, nil
}

// ReadResource implements core.ResourceClient; it reads a resource by URI and
// flattens its textual contents.
func (m *Manager) ReadResource(ctx context.Context, server, uri string) (string, error) {
	session, err := m.session(server)
	if err != nil {
		return "", err
	}

	res, err := session.ReadResource(ctx, &sdk.ReadResourceParams{URI: uri})
	if err != nil {
		return "", fmt.Errorf("read %s from %s: %w", uri, server, err)
	}

	var sb strings.Builder
	for _, contents := range res.Contents {
		if contents.Text != "" {
			sb.WriteString(contents.Text)
		}
	}
	return sb.String(), nil
}

func (m *Manager) session(server string) (*sdk.ClientSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[server]
	if !ok {
		return nil, fmt.Errorf("mcp server %q is not connected", server)
	}
	return session, nil
}

// flattenContent joins the text blocks of a tool result.
func flattenContent(blocks []sdk.Content) string {
	var sb strings.Builder
	for _, block := range blocks {
		if tc, ok := block.(*sdk.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	return sb.String()
}
