// Package mcp implements a Model Context Protocol server that lets an agent
// scrub a TimeWarp timeline: list commits, render frames and click files.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/timewarp/internal/observability"
	"github.com/Sumatoshi-tech/timewarp/pkg/version"
	"github.com/Sumatoshi-tech/timewarp/pkg/viewer"
)

const (
	// serverName is the MCP server implementation name.
	serverName = "timewarp"

	// toolCount is the expected number of registered tools.
	toolCount = 3
)

// ErrNoSession is returned by NewServer when no viewer session is supplied.
var ErrNoSession = errors.New("mcp: viewer session is required")

// ServerDeps holds injectable dependencies for the MCP server.
type ServerDeps struct {
	// Session is the viewer the tools drive. Required.
	Session *viewer.Session

	// Logger is an optional structured logger. Nil uses slog default.
	Logger *slog.Logger

	// Metrics counts tool calls. Nil disables per-tool metrics.
	Metrics *observability.CallMetrics

	// Tracer is an optional OTel tracer for per-tool-call spans. Nil disables tracing.
	Tracer trace.Tracer
}

// Server wraps the MCP SDK server with the TimeWarp tool registrations.
type Server struct {
	inner   *mcpsdk.Server
	tools   *toolset
	mu      sync.RWMutex
	names   []string
	metrics *observability.CallMetrics
	tracer  trace.Tracer
}

// NewServer creates a new MCP server with all tools registered.
func NewServer(deps ServerDeps) (*Server, error) {
	if deps.Session == nil {
		return nil, ErrNoSession
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	inner := mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    serverName,
			Version: version.Version,
		},
		&mcpsdk.ServerOptions{Logger: logger},
	)

	srv := &Server{
		inner:   inner,
		tools:   &toolset{session: deps.Session, logger: logger},
		names:   make([]string, 0, toolCount),
		metrics: deps.Metrics,
		tracer:  deps.Tracer,
	}

	srv.registerTools()

	return srv, nil
}

// ListToolNames returns the sorted names of all registered tools.
func (s *Server) ListToolNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.names))
	copy(names, s.names)
	sort.Strings(names)

	return names
}

// Run starts the MCP server on stdio transport. It blocks until the context
// is canceled or the connection closes.
func (s *Server) Run(ctx context.Context) error {
	return s.RunWithTransport(ctx, &mcpsdk.StdioTransport{})
}

// RunWithTransport starts the MCP server on the given transport. It blocks
// until the context is canceled or the connection closes.
func (s *Server) RunWithTransport(ctx context.Context, transport mcpsdk.Transport) error {
	err := s.inner.Run(ctx, transport)
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameTimeline,
		Description: timelineToolDescription,
	}, withMetrics(s.metrics, ToolNameTimeline, withTracing(s.tracer, ToolNameTimeline, s.tools.handleTimeline)))
	s.trackTool(ToolNameTimeline)

	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameFrame,
		Description: frameToolDescription,
	}, withMetrics(s.metrics, ToolNameFrame, withTracing(s.tracer, ToolNameFrame, s.tools.handleFrame)))
	s.trackTool(ToolNameFrame)

	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNamePointer,
		Description: pointerToolDescription,
	}, withMetrics(s.metrics, ToolNamePointer, withTracing(s.tracer, ToolNamePointer, s.tools.handlePointer)))
	s.trackTool(ToolNamePointer)
}

// mcpSpanPrefix is the prefix for MCP tool span names.
const mcpSpanPrefix = "mcp."

// traceIDMetaKey is the metadata key for trace_id in MCP tool responses.
const traceIDMetaKey = "trace_id"

// withTracing wraps an MCP tool handler to create an OTel span per invocation
// and include trace_id in the response content when sampled.
func withTracing[Input any](
	tracer trace.Tracer,
	toolName string,
	handler func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error),
) func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if tracer == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		ctx, span := tracer.Start(ctx, mcpSpanPrefix+toolName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("mcp.tool", toolName)),
		)
		defer span.End()

		result, output, err := handler(ctx, req, input)

		if result != nil && result.IsError {
			span.SetAttributes(attribute.String("error.type", observability.ErrTypeValidation))
		}

		sc := span.SpanContext()
		if sc.IsSampled() && result != nil {
			traceContent := &mcpsdk.TextContent{Text: fmt.Sprintf("%s=%s", traceIDMetaKey, sc.TraceID().String())}
			result.Content = append(result.Content, traceContent)
		}

		return result, output, err
	}
}

// withMetrics wraps an MCP tool handler to count each invocation. A tool
// result flagged IsError counts as failed.
func withMetrics[Input any](
	metrics *observability.CallMetrics,
	toolName string,
	handler func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error),
) func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if metrics == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		end := metrics.Start(ctx, mcpSpanPrefix+toolName)

		result, output, err := handler(ctx, req, input)

		end(err != nil || (result != nil && result.IsError))

		return result, output, err
	}
}

func (s *Server) trackTool(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.names = append(s.names, name)
}

// Tool description constants.
const (
	timelineToolDescription = "List the commits of the TimeWarp timeline in order, " +
		"with the active position. Supports offset and limit paging."

	frameToolDescription = "Render the 3D churn scene for a commit. Optional inputs change the view " +
		"(commit, index, hotspot_only, threshold, color_mode, directories, include) before rendering. " +
		"Returns the status line and the positioned, colored files."

	pointerToolDescription = "Send a pointer event (enter, leave or click) to a file of the last frame " +
		"by index. A click returns the file's diff statistics."
)
