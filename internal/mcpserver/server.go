// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the Maxwell memory engine to agents via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/maxwell/internal/apperr"
	"github.com/starford/maxwell/internal/memory"
)

const (
	curatedURI    = "memory://curated"
	noteFormatURI = "memory://note-format"
)

// Server wraps the MCP server with memory tools.
type Server struct {
	mcp *server.MCPServer
	svc *memory.Service
	// recency is the default for search_memory and build_context.
	recency bool
}

// New creates a new MCP server with all memory tools registered.
func New(svc *memory.Service, recency bool) *Server {
	s := &Server{svc: svc, recency: recency}

	s.mcp = server.NewMCPServer(
		"Maxwell",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_memory",
		mcp.WithDescription("Full-text search over observations extracted from notes. "+
			"Results are grouped by entity; lower score is better."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query. Supports AND/OR/NOT, \"phrases\" and prefix*")),
		mcp.WithNumber("limit", mcp.Description("Max entities (1-100, default 20)")),
		mcp.WithBoolean("recency", mcp.Description("Discount older observations")),
		mcp.WithNumber("half_life_days", mcp.Description("Recency half-life in days (1-365, default 30)")),
	), s.searchMemory)

	s.mcp.AddTool(mcp.NewTool("build_context",
		mcp.WithDescription("Assemble a markdown context bundle from an entity, a search, "+
			"a daily note, recent days and pending tasks."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("query", mcp.Description("Search query")),
		mcp.WithString("entity", mcp.Description("Entity name or permalink")),
		mcp.WithString("date", mcp.Description("Daily note date (YYYY-MM-DD)")),
		mcp.WithNumber("recent_days", mcp.Description("Include observations from the last N days")),
		mcp.WithBoolean("include_pending_tasks", mcp.Description("Include open tasks")),
		mcp.WithNumber("limit", mcp.Description("Max observations (default 50)")),
		mcp.WithBoolean("curated", mcp.Description("Prefix the bundle with curated memory")),
	), s.buildContext)

	s.mcp.AddTool(mcp.NewTool("get_pending_tasks",
		mcp.WithDescription("List open tasks, newest first."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("entity", mcp.Description("Scope to one entity")),
		mcp.WithNumber("limit", mcp.Description("Max tasks (default 50)")),
	), s.getPendingTasks)

	s.mcp.AddTool(mcp.NewTool("get_stats",
		mcp.WithDescription("Count entities, observations and relations in memory."),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.getStats)

	s.mcp.AddTool(mcp.NewTool("find_entity",
		mcp.WithDescription("Resolve an entity by name or permalink and return its observations and neighbours."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("name", mcp.Required(), mcp.Description("Entity name or permalink")),
	), s.findEntity)

	s.mcp.AddTool(mcp.NewTool("activity_digest",
		mcp.WithDescription("Summarise recent comms actions and code events by day."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithNumber("days", mcp.Description("Window in days (default 7)")),
		mcp.WithNumber("limit", mcp.Description("Max items per source (default 50)")),
		mcp.WithBoolean("include_comms", mcp.Description("Include comms actions (default true)")),
		mcp.WithBoolean("include_code", mcp.Description("Include code events (default true)")),
	), s.activityDigest)

	s.mcp.AddTool(mcp.NewTool("index_notes",
		mcp.WithDescription("Index new and changed notes. Unchanged notes are skipped."),
		mcp.WithIdempotentHintAnnotation(true),
	), s.indexNotes)

	s.mcp.AddResource(
		mcp.NewResource(curatedURI, "Curated Memory",
			mcp.WithResourceDescription("RESET.md, MEMORY.md and USER.md rendered for prompt injection."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readCuratedResource,
	)

	s.mcp.AddResource(
		mcp.NewResource(noteFormatURI, "Note Format",
			mcp.WithResourceDescription("How notes are written so that memory extraction picks them up."),
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

func toolError(err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError("not found")
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) searchMemory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(query, memory.SearchOptions{
		Limit:        req.GetInt("limit", 0),
		Recency:      req.GetBool("recency", s.recency),
		HalfLifeDays: req.GetFloat("half_life_days", 0),
	})
	if err != nil {
		return toolError(err), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no matches"), nil
	}
	return jsonResult(results)
}

func (s *Server) buildContext(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.svc.BuildContext(memory.ContextQuery{
		Query:               req.GetString("query", ""),
		Entity:              req.GetString("entity", ""),
		Date:                req.GetString("date", ""),
		RecentDays:          req.GetInt("recent_days", 0),
		IncludePendingTasks: req.GetBool("include_pending_tasks", false),
		Limit:               req.GetInt("limit", 0),
		Recency:             s.recency,
	})
	if err != nil {
		return toolError(err), nil
	}
	text := res.Formatted
	if req.GetBool("curated", false) {
		curated, err := s.svc.CuratedMemory()
		if err != nil {
			return toolError(err), nil
		}
		if curated != "" {
			text = curated + "\n\n---\n\n" + text
		}
	}
	if text == "" {
		text = "no context found"
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) getPendingTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var scope string
	if name := req.GetString("entity", ""); name != "" {
		e, err := s.svc.FindEntity(name)
		if err != nil {
			return toolError(err), nil
		}
		scope = e.ID
	}
	tasks, err := s.svc.PendingTasks(scope, req.GetInt("limit", 50))
	if err != nil {
		return toolError(err), nil
	}
	if len(tasks) == 0 {
		return mcp.NewToolResultText("no pending tasks"), nil
	}
	return jsonResult(tasks)
}

func (s *Server) getStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.svc.Stats()
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(st)
}

func (s *Server) findEntity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	e, err := s.svc.FindEntity(name)
	if err != nil {
		return toolError(err), nil
	}
	obs, err := s.svc.Observations(e.ID)
	if err != nil {
		return toolError(err), nil
	}
	related, err := s.svc.Related(e.ID)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(map[string]any{
		"entity":       e,
		"observations": obs,
		"related":      related,
	})
}

func (s *Server) activityDigest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	def := memory.DefaultDigestOptions()
	d, err := s.svc.BuildActivityDigest(memory.DigestOptions{
		Days:         req.GetInt("days", def.Days),
		Limit:        req.GetInt("limit", def.Limit),
		IncludeComms: req.GetBool("include_comms", def.IncludeComms),
		IncludeCode:  req.GetBool("include_code", def.IncludeCode),
	})
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n(%d comms, %d code)", d.Summary, d.CommsCount, d.CodeCount)), nil
}

func (s *Server) indexNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rep, err := s.svc.IndexAll()
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("scanned %d, indexed %d, skipped %d, failed %d",
		rep.Scanned, rep.Indexed, rep.Skipped, rep.Failed)), nil
}

func (s *Server) readCuratedResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	text, err := s.svc.CuratedMemory()
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      curatedURI,
			MIMEType: "text/markdown",
			Text:     text,
		},
	}, nil
}

func (s *Server) readNoteFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      noteFormatURI,
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}
