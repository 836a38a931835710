// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Dagaz document tools for LLM integration via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/dagaz/internal/docservice"
)

// Server wraps the MCP server with Dagaz tools.
type Server struct {
	mcp       *server.MCPServer
	svc       *docservice.Service
	agentName string
}

// New creates a new MCP server with all Dagaz tools registered. Writes
// performed through it are attributed to agentName.
func New(svc *docservice.Service, agentName string) *Server {
	if agentName == "" {
		agentName = "Agent"
	}
	s := &Server{svc: svc, agentName: agentName}

	s.mcp = server.NewMCPServer(
		"Dagaz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List all documents in the dashboard index with their titles and categories."),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read a document's content. The metadata header is stripped."),
		mcp.WithString("filename", mcp.Required(), mcp.Description("Document filename (e.g. weekly-report.md)")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("write_document",
		mcp.WithDescription("Replace a document's content. The prior content is snapshotted first, "+
			"so the edit can always be undone. Content is the Markdown body only; do not include "+
			"a metadata header. Read the contract first via the get_document_contract tool or the "+
			"dagaz://document-format resource."),
		mcp.WithString("filename", mcp.Required(), mcp.Description("Document filename (must end with .md)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("New Markdown body")),
	), s.writeDocument)

	s.mcp.AddTool(mcp.NewTool("create_document",
		mcp.WithDescription("Create a new document. The filename is derived from the title; "+
			"the category defaults from title keywords when omitted."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Human-readable document title")),
		mcp.WithString("category", mcp.Description("Optional category (Guide, Security, Reference, Project, System, Spec, Pulse, Report)")),
		mcp.WithString("content", mcp.Description("Optional initial Markdown body")),
	), s.createDocument)

	s.mcp.AddTool(mcp.NewTool("list_versions",
		mcp.WithDescription("List a document's snapshot history, newest first."),
		mcp.WithString("filename", mcp.Required(), mcp.Description("Document filename")),
	), s.listVersions)

	s.mcp.AddTool(mcp.NewTool("get_document_contract",
		mcp.WithDescription("Returns the canonical Dagaz document format contract. "+
			"Call this before creating or updating documents to ensure correct structure."),
	), s.getDocumentContract)

	// Resource: document format contract.
	s.mcp.AddResource(
		mcp.NewResource("dagaz://document-format", "Document Format Contract",
			mcp.WithResourceDescription("Canonical Markdown document format that all documents must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readDocumentFormatResource,
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

func (s *Server) listDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := s.svc.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(entries, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filename, err := req.RequireString("filename")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := s.svc.GetContent(ctx, filename)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("read %s: %v", filename, err)), nil
	}
	return mcp.NewToolResultText(content), nil
}

func (s *Server) writeDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filename, err := req.RequireString("filename")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.Write(ctx, filename, content, s.agentName); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("write %s: %v", filename, err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("written: %s", filename)), nil
}

func (s *Server) createDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	category := ""
	if c, err := req.RequireString("category"); err == nil {
		category = c
	}
	content := ""
	if c, err := req.RequireString("content"); err == nil {
		content = c
	}

	entry, err := s.svc.Create(ctx, docservice.CreateParams{
		Title:    title,
		Category: category,
		Body:     content,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", entry.Filename)), nil
}

func (s *Server) listVersions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filename, err := req.RequireString("filename")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	descs, err := s.svc.ListVersions(ctx, filename)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(descs) == 0 {
		return mcp.NewToolResultText("no versions recorded"), nil
	}
	out, _ := json.MarshalIndent(descs, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getDocumentContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DocumentFormatContract), nil
}

func (s *Server) readDocumentFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "dagaz://document-format",
			MIMEType: "text/markdown",
			Text:     DocumentFormatContract,
		},
	}, nil
}
