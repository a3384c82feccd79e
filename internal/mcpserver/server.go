// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Laguz tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/laguz/internal/backup"
	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/query"
	"github.com/starford/laguz/internal/repository"
	"github.com/starford/laguz/internal/search"
)

// Server wraps the MCP server with Laguz tools.
type Server struct {
	mcp    *server.MCPServer
	repo   *repository.Repository
	engine *backup.Engine
}

// New creates a new MCP server with all Laguz tools registered.
func New(repo *repository.Repository, engine *backup.Engine) *Server {
	s := &Server{repo: repo, engine: engine}

	s.mcp = server.NewMCPServer(
		"Laguz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Relevance-ranked full-text search through note titles, content, categories and tags."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a single note by id, including soft-deleted notes."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a new note. Fields MUST follow the note contract; "+
			"read it first via the get_note_contract tool or the laguz://note-contract resource."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title (required, at most 200 characters)")),
		mcp.WithString("content", mcp.Description("Note body text")),
		mcp.WithString("category", mcp.Description("Optional category")),
		mcp.WithString("tags", mcp.Description("Optional comma-separated tags")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("delete_note",
		mcp.WithDescription("Soft-delete a note by id. The note can be restored later."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.deleteNote)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the canonical Laguz note contract. "+
			"Call this before creating or updating notes to ensure correct structure."),
	), s.getNoteContract)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List active notes, optionally filtered by category."),
		mcp.WithString("category", mcp.Description("Optional category to filter by (empty for all)")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("create_backup",
		mcp.WithDescription("Snapshot the full note collection and settings into a backup record."),
	), s.createBackup)

	// Resource: note contract.
	s.mcp.AddResource(
		mcp.NewResource("laguz://note-contract", "Note Contract",
			mcp.WithResourceDescription("Canonical note field constraints that all notes must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteContractResource,
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

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	term, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	notes, err := s.repo.LoadAll()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(search.Search(notes, term), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	notes, err := s.repo.LoadAll()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	for _, n := range notes {
		if n.ID == id {
			out, _ := json.MarshalIndent(n, "", "  ")
			return mcp.NewToolResultText(string(out)), nil
		}
	}
	return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	in := models.NoteInput{Title: title}
	if content, cerr := req.RequireString("content"); cerr == nil {
		in.Content = content
	}
	if category, cerr := req.RequireString("category"); cerr == nil {
		in.Category = category
	}
	if tags, terr := req.RequireString("tags"); terr == nil {
		in.Tags = splitTags(tags)
	}

	note, err := s.repo.Create(in)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", note.ID)), nil
}

func (s *Server) deleteNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.repo.SoftDelete(id); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notes, err := s.repo.LoadAll()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	opts := query.Options{}
	if category, cerr := req.RequireString("category"); cerr == nil && category != "" {
		opts.Category = &category
	}

	type item struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	var items []item
	for _, n := range query.Apply(notes, opts) {
		items = append(items, item{ID: n.ID, Title: n.Title})
	}
	out, _ := json.MarshalIndent(items, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) createBackup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	meta, err := s.engine.Create(models.BackupSourceManual)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("backup created: %s (%d notes)", meta.ID, meta.NotesCount)), nil
}

func (s *Server) getNoteContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFieldContract), nil
}

func (s *Server) readNoteContractResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "laguz://note-contract",
			MIMEType: "text/markdown",
			Text:     NoteFieldContract,
		},
	}, nil
}

func splitTags(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
