// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Waystation tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/waystation/internal/schema"
	"github.com/starford/waystation/internal/stationservice"
	"github.com/starford/waystation/internal/waystation"
)

// Resource URIs served by the server.
const (
	SchemaURI    = "waystation://schema"
	MarkInputURI = "waystation://mark-input"
)

// Server wraps the MCP server with Waystation tools.
type Server struct {
	mcp *server.MCPServer
	svc *stationservice.Service
}

// New creates a new MCP server with all Waystation tools registered.
func New(svc *stationservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Waystation",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("current_waystation",
		mcp.WithDescription("Return the current Waystation as JSON."),
	), s.currentWaystation)

	s.mcp.AddTool(mcp.NewTool("list_marks",
		mcp.WithDescription("List the marks of the current Waystation, one per line as <index>: <name> <path:line:column>."),
	), s.listMarks)

	s.mcp.AddTool(mcp.NewTool("add_mark",
		mcp.WithDescription("Add a mark to the current Waystation. Input is free text such as "+
			"path/to/file.go:12:4:matching line; see the waystation://mark-input resource."),
		mcp.WithString("input", mcp.Required(), mcp.Description("Location text, typically path:line:column:body")),
		mcp.WithString("name", mcp.Description("Optional mark name overriding the parsed one")),
	), s.addMark)

	s.mcp.AddTool(mcp.NewTool("add_note",
		mcp.WithDescription("Attach a note to the mark at index of the current Waystation."),
		mcp.WithNumber("index", mcp.Required(), mcp.Description("Zero-based mark index")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Note text")),
	), s.addNote)

	s.mcp.AddTool(mcp.NewTool("add_tag",
		mcp.WithDescription("Add a tag to the current Waystation."),
		mcp.WithString("tag", mcp.Required(), mcp.Description("Tag to add")),
	), s.addTag)

	s.mcp.AddTool(mcp.NewTool("search_waystations",
		mcp.WithDescription("Full-text search through saved Waystations: names, mark paths, bodies, notes and tags."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchWaystations)

	s.mcp.AddTool(mcp.NewTool("validate_waystation",
		mcp.WithDescription("Validate a Waystation JSON document against the schema. "+
			"Returns {success, data} or {success: false, issues}. Nothing is saved."),
		mcp.WithString("document", mcp.Required(), mcp.Description("Waystation JSON text")),
	), s.validateWaystation)

	s.mcp.AddResource(
		mcp.NewResource(SchemaURI, "Waystation JSON Schema",
			mcp.WithResourceDescription("JSON Schema every stored Waystation document satisfies."),
			mcp.WithMIMEType("application/schema+json"),
		),
		s.readSchemaResource,
	)

	s.mcp.AddResource(
		mcp.NewResource(MarkInputURI, "Mark Input Format",
			mcp.WithResourceDescription("How add_mark input text is split into path, line, column and body."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readMarkInputResource,
	)

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

func (s *Server) currentWaystation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	w, err := s.svc.Current(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(w)
}

func (s *Server) listMarks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	w, err := s.svc.Current(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(w.Marks) == 0 {
		return mcp.NewToolResultText("no marks"), nil
	}
	lines := make([]string, 0, len(w.Marks))
	for i, m := range w.Marks {
		lines = append(lines, fmt.Sprintf("%d: %s %s", i, m.DisplayName(), waystation.MarkWithPath(m)))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) addMark(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := req.RequireString("input")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	_, mark, err := s.svc.AddMark(ctx, input, req.GetString("name", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(mark)
}

func (s *Server) addNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	index, err := req.RequireInt("index")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	w, err := s.svc.AddNote(ctx, index, text)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(w.Marks[index])
}

func (s *Server) addTag(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tag, err := req.RequireString("tag")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	w, err := s.svc.AddTag(ctx, tag)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s: [%s]", w.DisplayName(), strings.Join(w.Tags, ", "))), nil
}

func (s *Server) searchWaystations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) validateWaystation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, err := req.RequireString("document")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.svc.Validate([]byte(doc)))
}

func (s *Server) readSchemaResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      SchemaURI,
			MIMEType: "application/schema+json",
			Text:     string(schema.Document()),
		},
	}, nil
}

func (s *Server) readMarkInputResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      MarkInputURI,
			MIMEType: "text/markdown",
			Text:     MarkInputFormat,
		},
	}, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}
