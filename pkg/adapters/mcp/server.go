package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/statelens"
	"github.com/aretw0/statelens/internal/logging"
	"github.com/aretw0/statelens/internal/presentation/diagram"
	"github.com/aretw0/statelens/internal/sanitize"
	"github.com/aretw0/statelens/pkg/domain"
	"github.com/aretw0/statelens/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	diagramURI = "statelens://diagram"
	stateURI   = "statelens://state"
)

// StepResponse is returned by every tool that changes or inspects the session.
type StepResponse struct {
	Status          string                `json:"status" jsonschema_description:"Interpreter status"`
	Current         *domain.Configuration `json:"current,omitempty" jsonschema_description:"The current configuration"`
	Preview         *domain.Configuration `json:"preview,omitempty" jsonschema_description:"The configuration a pending preview would produce"`
	Selected        string                `json:"selected,omitempty" jsonschema_description:"ID of the selected node"`
	AvailableEvents []string              `json:"available_events" jsonschema_description:"Events some active node handles"`
	Traversed       []string              `json:"traversed" jsonschema_description:"Node IDs visited so far"`
}

// Server exposes one session as an MCP server.
type Server struct {
	session   *session.Session
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server bound to sess.
func NewServer(sess *session.Session, opts ...Option) *Server {
	s := &Server{
		session:   sess,
		mcpServer: server.NewMCPServer("statelens-mcp", strings.TrimSpace(statelens.Version)),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on addr using SSE and stops when ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr string) error {
	baseURL := "http://" + addr
	if strings.HasPrefix(addr, ":") {
		baseURL = "http://localhost" + addr
	}
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("load_definition",
		mcp.WithDescription("Load a machine definition (YAML or JSON), replacing the current machine and its history."),
		mcp.WithString("definition", mcp.Required(), mcp.Description("The machine definition document")),
	), s.handleLoad)

	s.mcpServer.AddTool(mcp.NewTool("send_event",
		mcp.WithDescription("Send an event to the interpreter. The event is a name or an object such as {type: SUBMIT, amount: 2}."),
		mcp.WithString("event", mcp.Required(), mcp.Description("Event name or event object")),
	), s.handleSend)

	s.mcpServer.AddTool(mcp.NewTool("preview_event",
		mcp.WithDescription("Compute the configuration an event would produce without applying it."),
		mcp.WithString("event", mcp.Required(), mcp.Description("Event name or event object")),
	), s.handlePreview)

	s.mcpServer.AddTool(mcp.NewTool("cancel_preview",
		mcp.WithDescription("Discard the pending preview."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		s.session.CancelPreview()
		return s.result()
	})

	s.mcpServer.AddTool(mcp.NewTool("select_node",
		mcp.WithDescription("Select a node by dotted path. An empty path clears the selection."),
		mcp.WithString("path", mcp.Description("Dotted path from the root, e.g. red.walk")),
	), s.handleSelect)

	s.mcpServer.AddTool(mcp.NewTool("reset",
		mcp.WithDescription("Restart the interpreter from the initial configuration and clear history."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := s.session.Reset(ctx); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return s.result()
	})

	s.mcpServer.AddTool(mcp.NewTool("get_state",
		mcp.WithDescription("Get the current configuration, pending preview, selection and traversal."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return s.result()
	})

	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Get the static edge set of the loaded machine."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		v := s.session.Snapshot()
		if v.Graph == nil {
			return mcp.NewToolResultError(domain.ErrNoMachine.Error()), nil
		}
		jsonBytes, _ := json.Marshal(v.Graph)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

func (s *Server) handleLoad(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	def, err := request.RequireString("definition")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.session.Load(ctx, []byte(def)); err != nil {
		s.logger.Warn("MCP load rejected", "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.result()
}

func (s *Server) handleSend(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	payload, err := eventArg(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.session.SendRaw(ctx, payload); err != nil {
		s.logger.Warn("MCP send rejected", "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.result()
}

func (s *Server) handlePreview(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	payload, err := eventArg(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	evt, err := domain.ParseEvent(payload)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.session.Preview(ctx, evt); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.result()
}

func (s *Server) handleSelect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := strings.TrimSpace(request.GetString("path", ""))
	if path == "" {
		s.session.ClearSelection()
		return s.result()
	}
	ok, err := s.session.SelectByPath(domain.ParsePath(path))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("no node at path %q", path)), nil
	}
	return s.result()
}

func eventArg(request mcp.CallToolRequest) ([]byte, error) {
	raw, err := request.RequireString("event")
	if err != nil {
		return nil, err
	}
	return sanitize.Event([]byte(raw))
}

func (s *Server) response() StepResponse {
	v := s.session.Snapshot()
	return StepResponse{
		Status:          v.Status,
		Current:         v.Current,
		Preview:         v.Preview,
		Selected:        v.Selected,
		AvailableEvents: v.AvailableEvents,
		Traversed:       v.History.Traversed,
	}
}

func (s *Server) result() (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(s.response())
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(diagramURI, "Mermaid diagram of the machine",
		mcp.WithMIMEType("text/plain"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		text, err := s.diagram()
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      diagramURI,
				MIMEType: "text/plain",
				Text:     text,
			},
		}, nil
	})

	s.mcpServer.AddResource(mcp.NewResource(stateURI, "Current session state",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, _ := json.Marshal(s.response())
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      stateURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}

func (s *Server) diagram() (string, error) {
	v := s.session.Snapshot()
	if v.Graph == nil {
		return "", errors.New("failed to render diagram: " + domain.ErrNoMachine.Error())
	}
	return diagram.GenerateMermaid(v.Graph, diagram.OverlayFromView(v)), nil
}
