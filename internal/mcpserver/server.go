// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes NAARAD client tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/naarad/internal/apperr"
	"github.com/starford/naarad/internal/clientservice"
	"github.com/starford/naarad/internal/views"
)

const csvFormatURI = "naarad://csv-format"

// Server wraps the MCP server with NAARAD tools.
type Server struct {
	mcp *server.MCPServer
	svc *clientservice.Service
}

// New creates a new MCP server with all NAARAD tools registered.
func New(svc *clientservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"NAARAD",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_clients",
		mcp.WithDescription("List clients, optionally filtered by a search query and a status."),
		mcp.WithString("query", mcp.Description("Case-insensitive match on name or company")),
		mcp.WithString("status", mcp.Description("One of all, active, pending, overdue, responded")),
	), s.listClients)

	s.mcp.AddTool(mcp.NewTool("get_client",
		mcp.WithDescription("Get one client by id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Client id")),
	), s.getClient)

	s.mcp.AddTool(mcp.NewTool("get_history",
		mcp.WithDescription("Get the interaction history of a client, oldest first."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Client id")),
	), s.getHistory)

	s.mcp.AddTool(mcp.NewTool("toggle_auto",
		mcp.WithDescription("Enable or disable automated follow-ups for a client."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Client id")),
		mcp.WithBoolean("auto", mcp.Required(), mcp.Description("Desired automation flag")),
	), s.toggleAuto)

	s.mcp.AddTool(mcp.NewTool("send_reply",
		mcp.WithDescription("Send a manual reply to a client on behalf of NAARAD."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Client id")),
		mcp.WithString("reply", mcp.Required(), mcp.Description("Reply text")),
	), s.sendReply)

	s.mcp.AddTool(mcp.NewTool("log_response",
		mcp.WithDescription("Record a response received from a client and mark them as responded."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Client id")),
		mcp.WithString("response", mcp.Required(), mcp.Description("What the client said")),
	), s.logResponse)

	s.mcp.AddTool(mcp.NewTool("upload_csv",
		mcp.WithDescription("Replace the client list from CSV. Pass the document inline via csv, "+
			"or a url (http, https or a base64 data URI). Read the format first via the "+
			"get_csv_format tool or the "+csvFormatURI+" resource."),
		mcp.WithString("csv", mcp.Description("CSV document text")),
		mcp.WithString("url", mcp.Description("Location of the CSV document")),
	), s.uploadCSV)

	s.mcp.AddTool(mcp.NewTool("get_csv_format",
		mcp.WithDescription("Returns the client CSV format accepted by upload_csv."),
	), s.getCSVFormat)

	s.mcp.AddTool(mcp.NewTool("recent_activity",
		mcp.WithDescription("List recent follow-up activity, newest first."),
	), s.recentActivity)

	s.mcp.AddResource(
		mcp.NewResource(csvFormatURI, "Client CSV Format",
			mcp.WithResourceDescription("Columns, defaults and rules of the client CSV upload."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readCSVFormatResource,
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

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// toolError turns a service error into a tool-level failure the model can read.
func toolError(id string, err error) *mcp.CallToolResult {
	var se *apperr.StatusError
	switch {
	case errors.Is(err, apperr.ErrNotFound) && !errors.As(err, &se):
		return mcp.NewToolResultError(fmt.Sprintf("client not found: %s", id))
	default:
		return mcp.NewToolResultError(err.Error())
	}
}

func (s *Server) listClients(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	status := views.ParseStatusFilter(req.GetString("status", ""))
	return jsonResult(views.Filter(s.svc.Clients(), query, status))
}

func (s *Server) getClient(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	c, err := s.svc.Get(id)
	if err != nil {
		return toolError(id, err), nil
	}
	return jsonResult(c)
}

func (s *Server) getHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.svc.Get(id); err != nil {
		return toolError(id, err), nil
	}
	entries, err := s.svc.History(ctx, id)
	if err != nil {
		return toolError(id, err), nil
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText("no history yet"), nil
	}
	return jsonResult(entries)
}

func (s *Server) toggleAuto(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	auto, err := req.RequireBool("auto")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	c, err := s.svc.SetAuto(ctx, id, auto)
	if err != nil {
		return toolError(id, err), nil
	}
	state := "disabled"
	if c.Auto {
		state = "enabled"
	}
	return mcp.NewToolResultText(fmt.Sprintf("auto follow-up %s for %s", state, id)), nil
}

func (s *Server) sendReply(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.send(ctx, req, "reply", "reply sent", s.svc.Reply)
}

func (s *Server) logResponse(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.send(ctx, req, "response", "response logged", s.svc.LogResponse)
}

func (s *Server) send(ctx context.Context, req mcp.CallToolRequest, field, done string,
	fn func(ctx context.Context, id, text string) error,
) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := req.RequireString(field)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.svc.Get(id); err != nil {
		return toolError(id, err), nil
	}
	if err := fn(ctx, id, text); err != nil {
		return toolError(id, err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s: %s", done, id)), nil
}

func (s *Server) recentActivity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	acts := s.svc.Activities()
	if len(acts) == 0 {
		return mcp.NewToolResultText("no recent activity"), nil
	}
	return jsonResult(acts)
}

func (s *Server) getCSVFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(CSVFormatContract), nil
}

func (s *Server) readCSVFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      csvFormatURI,
			MIMEType: "text/markdown",
			Text:     CSVFormatContract,
		},
	}, nil
}
