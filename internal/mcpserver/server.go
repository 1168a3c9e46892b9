// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes notekeep tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/notekeep/internal/apperr"
	"github.com/starford/notekeep/internal/models"
	"github.com/starford/notekeep/internal/notelist"
	"github.com/starford/notekeep/internal/noteservice"
)

// Server wraps the MCP server with notekeep tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates a new MCP server with all notekeep tools registered.
func New(svc *noteservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"notekeep",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("whoami",
		mcp.WithDescription("Return the logged-in user's profile."),
	), s.whoami)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List the current user's notes, optionally filtered by category and search words. "+
			"See the "+NoteFormatURI+" resource for matching rules."),
		mcp.WithString("category", mcp.Description("Exact category name; All or empty for every category")),
		mcp.WithString("query", mcp.Description("Whitespace-separated words; a note matches if any word occurs")),
		mcp.WithString("order", mcp.Enum("desc", "asc"), mcp.Description("Sort by creation time, newest first by default")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read one note by id. The result includes an etag for update_note."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a note for the current user."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Note text")),
		mcp.WithString("category", mcp.Required(), mcp.Description("Category name, e.g. Work")),
		mcp.WithString("title", mcp.Description("Optional title")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("update_note",
		mcp.WithDescription("Change the given fields of a note. Omitted fields are kept."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("content", mcp.Description("New content")),
		mcp.WithString("category", mcp.Description("New category")),
		mcp.WithString("etag", mcp.Description("Etag from read_note; the update fails if the note changed since")),
	), s.updateNote)

	s.mcp.AddTool(mcp.NewTool("delete_note",
		mcp.WithDescription("Delete a note by id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.deleteNote)

	s.mcp.AddTool(mcp.NewTool("list_categories",
		mcp.WithDescription("List the current user's categories."),
	), s.listCategories)

	s.mcp.AddTool(mcp.NewTool("create_category",
		mcp.WithDescription("Create a category. Names are unique per user ignoring case."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Category name, at most 50 characters")),
	), s.createCategory)

	s.mcp.AddTool(mcp.NewTool("delete_category",
		mcp.WithDescription("Delete a category by id. Notes keep their category text."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Category id")),
	), s.deleteCategory)

	// Resource: note format.
	s.mcp.AddResource(
		mcp.NewResource(NoteFormatURI, "Note Format",
			mcp.WithResourceDescription("Note record fields, list filtering rules and Markdown import layout."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
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
		return nil, err
	}
	return mcp.NewToolResultText(string(out)), nil
}

func errorResult(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("not found")
	case errors.Is(err, apperr.ErrConflict):
		return mcp.NewToolResultError("note changed since it was read; read it again")
	default:
		return mcp.NewToolResultError(err.Error())
	}
}

// optional returns a pointer to the named string argument, or nil when the
// caller did not pass it.
func optional(req mcp.CallToolRequest, name string) *string {
	v, ok := req.GetArguments()[name].(string)
	if !ok {
		return nil
	}
	return &v
}

func (s *Server) session(ctx context.Context) (models.User, *mcp.CallToolResult) {
	u, err := s.svc.CurrentUser(ctx)
	if err != nil {
		return models.User{}, mcp.NewToolResultError("no active session; log in through the app first")
	}
	return u, nil
}

func (s *Server) whoami(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	u, res := s.session(ctx)
	if res != nil {
		return res, nil
	}
	return jsonResult(u.Profile())
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	u, res := s.session(ctx)
	if res != nil {
		return res, nil
	}
	order, err := notelist.ParseOrder(req.GetString("order", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	notes := s.svc.ListNotes(ctx, u.ID, notelist.Filter{
		Category: req.GetString("category", ""),
		Query:    req.GetString("query", ""),
		Order:    order,
	})
	return jsonResult(notes)
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	u, res := s.session(ctx)
	if res != nil {
		return res, nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.svc.GetNote(ctx, u.ID, id)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(struct {
		models.Note
		ETag string `json:"etag"`
	}{n, noteservice.ETag(n)})
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	u, res := s.session(ctx)
	if res != nil {
		return res, nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	category, err := req.RequireString("category")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.svc.CreateNote(ctx, u.ID, noteservice.NoteInput{
		Title:    req.GetString("title", ""),
		Content:  content,
		Category: category,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(n)
}

func (s *Server) updateNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	u, res := s.session(ctx)
	if res != nil {
		return res, nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.svc.UpdateNote(ctx, u.ID, id, noteservice.NoteUpdate{
		Title:    optional(req, "title"),
		Content:  optional(req, "content"),
		Category: optional(req, "category"),
	}, req.GetString("etag", ""))
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(n)
}

func (s *Server) deleteNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	u, res := s.session(ctx)
	if res != nil {
		return res, nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.DeleteNote(ctx, u.ID, id); err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

func (s *Server) listCategories(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	u, res := s.session(ctx)
	if res != nil {
		return res, nil
	}
	return jsonResult(s.svc.ListCategories(ctx, u.ID))
}

func (s *Server) createCategory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	u, res := s.session(ctx)
	if res != nil {
		return res, nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	c, err := s.svc.CreateCategory(ctx, u.ID, noteservice.CategoryInput{Name: name})
	if err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			return mcp.NewToolResultError(fmt.Sprintf("category already exists: %s", name)), nil
		}
		return errorResult(err), nil
	}
	return jsonResult(c)
}

func (s *Server) deleteCategory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	u, res := s.session(ctx)
	if res != nil {
		return res, nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.DeleteCategory(ctx, u.ID, id); err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

func (s *Server) readNoteFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      NoteFormatURI,
			MIMEType: "text/markdown",
			Text:     NoteFormat,
		},
	}, nil
}
