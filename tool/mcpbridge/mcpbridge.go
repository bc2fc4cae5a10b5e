// Package mcpbridge exposes tools served by Model Context Protocol servers
// as registry tools.
package mcpbridge

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hupe1980/agentstudio/logging"
	"github.com/hupe1980/agentstudio/tool"
)

// ProtocolVersion is the MCP protocol revision announced during initialization.
const ProtocolVersion = "2024-11-05"

// Category is the registry category of bridged tools.
const Category = "mcp"

var invalidIDChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// Session is the subset of an MCP client used by the bridge.
type Session interface {
	ListTools(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
	Close() error
}

// ServerConfig describes a stdio MCP server.
type ServerConfig struct {
	Name     string   `yaml:"name" json:"name"`
	Command  string   `yaml:"command" json:"command"`
	Args     []string `yaml:"args" json:"args"`
	Env      []string `yaml:"env" json:"env"`
	Disabled bool     `yaml:"disabled" json:"disabled"`
}

// Options configure a Bridge.
type Options struct {
	Logger logging.Logger
	// ClientName and ClientVersion are reported to servers on initialize.
	ClientName    string
	ClientVersion string
	// ListTimeout bounds tool discovery per server.
	ListTimeout time.Duration
	// CallTimeout bounds a single tool call. Zero means no extra bound.
	CallTimeout time.Duration
}

// Bridge manages MCP server sessions and registers their tools.
type Bridge struct {
	mu       sync.Mutex
	sessions map[string]Session
	opts     Options
}

// New creates an empty Bridge.
func New(optFns ...func(o *Options)) *Bridge {
	opts := Options{
		Logger:        logging.NoOpLogger{},
		ClientName:    "agentstudio",
		ClientVersion: "1.0.0",
		ListTimeout:   5 * time.Second,
		CallTimeout:   60 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Bridge{sessions: map[string]Session{}, opts: opts}
}

// Connect launches a stdio server, performs the initialize handshake and
// keeps the session under cfg.Name.
func (b *Bridge) Connect(ctx context.Context, cfg ServerConfig) error {
	if cfg.Name == "" || cfg.Command == "" {
		return errors.New("mcp server requires name and command")
	}

	c, err := client.NewStdioMCPClient(cfg.Command, cfg.Env, cfg.Args...)
	if err != nil {
		return fmt.Errorf("failed to create MCP client for %s: %w", cfg.Name, err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = ProtocolVersion
	initReq.Params.Capabilities = mcp.ClientCapabilities{}
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    b.opts.ClientName,
		Version: b.opts.ClientVersion,
	}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		_ = c.Close()
		return fmt.Errorf("failed to initialize MCP client for %s: %w", cfg.Name, err)
	}

	b.opts.Logger.Info("mcp.server.connected", "server", cfg.Name, "command", cfg.Command)
	return b.Attach(cfg.Name, c)
}

// Attach registers an already initialized session under name.
func (b *Bridge) Attach(name string, s Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.sessions[name]; exists {
		return fmt.Errorf("mcp server %q already connected", name)
	}
	b.sessions[name] = s
	return nil
}

// Servers returns the connected server names, sorted.
func (b *Bridge) Servers() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, 0, len(b.sessions))
	for name := range b.sessions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Register discovers the tools of every connected server and registers
// them in r. Tool ids have the form "<server>__<tool>".
func (b *Bridge) Register(ctx context.Context, r *tool.Registry) error {
	var errs []error
	for _, name := range b.Servers() {
		b.mu.Lock()
		s := b.sessions[name]
		b.mu.Unlock()

		factories, err := b.discover(ctx, name, s)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, f := range factories {
			if err := r.Register(f); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (b *Bridge) discover(ctx context.Context, server string, s Session) ([]tool.Factory, error) {
	listCtx := ctx
	if b.opts.ListTimeout > 0 {
		var cancel context.CancelFunc
		listCtx, cancel = context.WithTimeout(ctx, b.opts.ListTimeout)
		defer cancel()
	}

	res, err := s.ListTools(listCtx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("list tools of %s: %w", server, err)
	}

	factories := make([]tool.Factory, 0, len(res.Tools))
	for _, t := range res.Tools {
		rt := &remoteTool{
			session:     s,
			remoteName:  t.Name,
			callTimeout: b.opts.CallTimeout,
			desc: tool.Descriptor{
				ID:          ToolID(server, t.Name),
				Name:        t.Name,
				Description: t.Description,
				Category:    Category,
				Tags:        []string{"mcp", server},
				Parameters:  parametersFromSchema(t.InputSchema),
			},
		}
		factories = append(factories, func(tool.Config) tool.Tool { return rt })
	}
	b.opts.Logger.Debug("mcp.tools.discovered", "server", server, "count", len(factories))
	return factories, nil
}

// Close terminates every session.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var errs []error
	for name, s := range b.sessions {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
		delete(b.sessions, name)
	}
	return errors.Join(errs...)
}

// ToolID builds the registry id of a bridged tool.
func ToolID(server, name string) string {
	return invalidIDChars.ReplaceAllString(server, "_") + "__" + invalidIDChars.ReplaceAllString(name, "_")
}

type remoteTool struct {
	session     Session
	remoteName  string
	callTimeout time.Duration
	desc        tool.Descriptor
}

func (t *remoteTool) Descriptor() tool.Descriptor { return t.desc }

func (t *remoteTool) Execute(ctx context.Context, params map[string]any) (*tool.Result, error) {
	if t.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.callTimeout)
		defer cancel()
	}

	res, err := t.session.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      t.remoteName,
			Arguments: params,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", t.remoteName, err)
	}

	text := collectText(res.Content)
	if res.IsError {
		if text == "" {
			text = "remote tool reported an error"
		}
		return tool.NewFailure("%s", text), nil
	}
	return tool.NewSuccess(text), nil
}

func collectText(content []mcp.Content) string {
	parts := make([]string, 0, len(content))
	for _, c := range content {
		switch tc := c.(type) {
		case mcp.TextContent:
			parts = append(parts, tc.Text)
		case *mcp.TextContent:
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func parametersFromSchema(schema mcp.ToolInputSchema) []tool.ParameterSpec {
	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	specs := make([]tool.ParameterSpec, 0, len(names))
	for _, name := range names {
		prop, _ := schema.Properties[name].(map[string]any)
		typ := tool.ParameterType(fmt.Sprint(prop["type"]))
		if !typ.Valid() {
			typ = tool.TypeString
		}
		desc, _ := prop["description"].(string)

		var opts []tool.ParamOption
		if !required[name] {
			opts = append(opts, tool.Optional())
		}
		if enum, ok := prop["enum"].([]any); ok && len(enum) > 0 {
			opts = append(opts, tool.WithEnum(enum...))
		}
		if def, ok := prop["default"]; ok {
			opts = append(opts, tool.WithDefault(def))
		}

		spec := tool.NewParam(name, typ, desc, opts...)
		if items, ok := prop["items"].(map[string]any); ok {
			spec.Items = items
		}
		if props, ok := prop["properties"].(map[string]any); ok {
			spec.Properties = props
		}
		specs = append(specs, spec)
	}
	return specs
}
