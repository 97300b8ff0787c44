// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the Mindmarks reading list for LLM integration via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mindmarks/mindmarks-go/internal/content"
	"github.com/mindmarks/mindmarks-go/internal/models"
	"github.com/mindmarks/mindmarks-go/internal/store"
)

// Server wraps the MCP server with Mindmarks tools.
type Server struct {
	mcp   *server.MCPServer
	store *store.Store
}

// New creates a new MCP server with all Mindmarks tools registered.
func New(st *store.Store) *Server {
	s := &Server{store: st}

	s.mcp = server.NewMCPServer(
		"Mindmarks",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_content",
		mcp.WithDescription("List the user's tracked content (books, articles, videos, podcasts) with board columns."),
		mcp.WithString("column", mcp.Description("Optional board column filter: planned, in-progress, or done")),
	), s.listContent)

	s.mcp.AddTool(mcp.NewTool("read_content_page",
		mcp.WithDescription("Read the full document (notes, summary, key takeaways) for one content item."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Content id")),
	), s.readContentPage)

	s.mcp.AddTool(mcp.NewTool("add_content",
		mcp.WithDescription("Add a new item to the reading list. "+
			"Read the entry contract first via the get_content_contract tool or the "+
			"mindmarks://content-format resource."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Title of the content")),
		mcp.WithString("type", mcp.Required(), mcp.Description("Content type: book, article, video, podcast, course, or other")),
		mcp.WithString("url", mcp.Description("Optional source URL")),
		mcp.WithString("summary", mcp.Description("Optional one-paragraph summary")),
		mcp.WithString("tags", mcp.Description("Optional comma-separated tags")),
	), s.addContent)

	s.mcp.AddTool(mcp.NewTool("move_content",
		mcp.WithDescription("Move a content item to another board column."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Content id")),
		mcp.WithString("column", mcp.Required(), mcp.Description("Target column: planned, in-progress, or done")),
	), s.moveContent)

	s.mcp.AddTool(mcp.NewTool("remove_content",
		mcp.WithDescription("Remove a content item from the reading list."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Content id")),
	), s.removeContent)

	s.mcp.AddTool(mcp.NewTool("search_content",
		mcp.WithDescription("Search the reading list by title, description, and tags."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchContent)

	s.mcp.AddTool(mcp.NewTool("get_content_contract",
		mcp.WithDescription("Returns the canonical Mindmarks content entry contract. "+
			"Call this before adding content to ensure correct structure."),
	), s.getContentContract)

	// Resource: content entry contract.
	s.mcp.AddResource(
		mcp.NewResource("mindmarks://content-format", "Content Entry Contract",
			mcp.WithResourceDescription("Canonical content entry format for the Mindmarks reading list."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContentFormatResource,
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

func (s *Server) listContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.store.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if column, colErr := req.RequireString("column"); colErr == nil && column != "" {
		var filtered []models.ContentItem
		for _, it := range items {
			if it.Column == column {
				filtered = append(filtered, it)
			}
		}
		items = filtered
	}
	out, _ := json.MarshalIndent(items, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readContentPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page, err := s.store.Page(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if page == nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	out, _ := json.MarshalIndent(page, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) addContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	typ, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	in := content.CreateInput{
		Title: title,
		Type:  models.ContentType(typ),
	}
	if url, uErr := req.RequireString("url"); uErr == nil {
		in.URL = url
	}
	if summary, sErr := req.RequireString("summary"); sErr == nil {
		in.Summary = summary
	}
	if tags, tErr := req.RequireString("tags"); tErr == nil && tags != "" {
		for _, tag := range strings.Split(tags, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				in.Tags = append(in.Tags, tag)
			}
		}
	}

	item, err := s.store.Add(ctx, in)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s (%s)", item.ID, item.Name)), nil
}

func (s *Server) moveContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	column, err := req.RequireString("column")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, ok := models.StatusForColumn(column); !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown column: %s", column)), nil
	}
	item, err := s.store.Update(ctx, id, store.ItemUpdate{Column: &column})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("moved %q to %s", item.Name, column)), nil
}

func (s *Server) removeContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.store.Remove(ctx, id); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("removed: %s", id)), nil
}

func (s *Server) searchContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	items, err := s.store.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	needle := strings.ToLower(query)
	var hits []models.ContentItem
	for _, it := range items {
		if matchesQuery(it, needle) {
			hits = append(hits, it)
		}
	}
	if len(hits) == 0 {
		return mcp.NewToolResultText("no matches"), nil
	}
	out, _ := json.MarshalIndent(hits, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func matchesQuery(it models.ContentItem, needle string) bool {
	if strings.Contains(strings.ToLower(it.Name), needle) ||
		strings.Contains(strings.ToLower(it.Description), needle) {
		return true
	}
	for _, tag := range it.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

func (s *Server) getContentContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ContentFormatContract), nil
}

func (s *Server) readContentFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "mindmarks://content-format",
			MIMEType: "text/markdown",
			Text:     ContentFormatContract,
		},
	}, nil
}
