// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes drawings, diagrams and the recents registry over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/excalibur/internal/diagram"
	"github.com/starford/excalibur/internal/launch"
	"github.com/starford/excalibur/internal/models"
	"github.com/starford/excalibur/internal/scene"
	"github.com/starford/excalibur/internal/storage"
)

// RecentLister reads the recents registry.
type RecentLister interface {
	List(ctx context.Context, limit int) ([]models.RecentEntry, error)
}

// OpenFunc hands a path to the running instance.
type OpenFunc func(ctx context.Context, path string) error

// Server wraps the MCP server with the document tools.
type Server struct {
	mcp     *server.MCPServer
	store   storage.Provider
	recents RecentLister
	open    OpenFunc
	limit   int
}

// DiagramResult is the read_diagram payload.
type DiagramResult struct {
	Path  string `json:"path"`
	Type  string `json:"type,omitempty"`
	Title string `json:"title,omitempty"`
	Text  string `json:"text"`
}

// New creates a new MCP server with all tools registered. open may be nil,
// in which case open_file reports that no instance is reachable.
func New(store storage.Provider, recents RecentLister, open OpenFunc, limit int) *Server {
	s := &Server{store: store, recents: recents, open: open, limit: limit}

	s.mcp = server.NewMCPServer(
		"Excalibur",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	s.mcp.AddTool(mcp.NewTool("list_recents",
		mcp.WithDescription("List recently opened drawings and diagrams, most recent first."),
	), s.listRecents)

	s.mcp.AddTool(mcp.NewTool("read_drawing",
		mcp.WithDescription("Read an Excalidraw drawing. Returns the scene in the versioned export format "+
			"with element fields normalized."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute path or file:// URL of the .excalidraw file")),
	), s.readDrawing)

	s.mcp.AddTool(mcp.NewTool("read_diagram",
		mcp.WithDescription("Read a Mermaid diagram. Returns the text with its detected diagram type and title."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute path or file:// URL of the diagram file")),
	), s.readDiagram)

	s.mcp.AddTool(mcp.NewTool("open_file",
		mcp.WithDescription("Open a drawing or diagram in the running Excalibur window."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute path or file:// URL to open")),
	), s.openFile)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listRecents(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := s.recents.List(ctx, s.limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if entries == nil {
		entries = []models.RecentEntry{}
	}
	out, _ := json.MarshalIndent(entries, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readDrawing(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, data, res := s.readPath(req)
	if res != nil {
		return res, nil
	}
	doc, err := scene.Decode(data)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not a valid drawing: %s", path)), nil
	}
	out, err := scene.Encode(doc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readDiagram(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, data, res := s.readPath(req)
	if res != nil {
		return res, nil
	}
	text := string(data)
	info := diagram.Parse(text)
	out, _ := json.MarshalIndent(DiagramResult{
		Path:  path,
		Type:  info.Type,
		Title: info.Title,
		Text:  text,
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) openFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path, err := launch.PathFromArg(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if s.open == nil {
		return mcp.NewToolResultError("no running instance"), nil
	}
	if err := s.open(ctx, path); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("opened: %s", path)), nil
}

// readPath resolves the path argument and reads the file. A non-nil result
// is a tool error to hand back as is.
func (s *Server) readPath(req mcp.CallToolRequest) (string, []byte, *mcp.CallToolResult) {
	raw, err := req.RequireString("path")
	if err != nil {
		return "", nil, mcp.NewToolResultError(err.Error())
	}
	path, err := launch.PathFromArg(raw)
	if err != nil {
		return "", nil, mcp.NewToolResultError(err.Error())
	}
	data, err := s.store.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil, mcp.NewToolResultError(fmt.Sprintf("not found: %s", path))
	}
	if err != nil {
		return "", nil, mcp.NewToolResultError(err.Error())
	}
	return path, data, nil
}
