package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// bookSummary is the trimmed-down list_books entry.
type bookSummary struct {
	Title        string `json:"title"`
	Author       string `json:"author"`
	RelativePath string `json:"relative_path"`
	Language     string `json:"language,omitempty"`
}

func (s *Server) handleListBooks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	books := s.lib.Discover()

	summaries := make([]bookSummary, 0, len(books))
	for _, b := range books {
		summaries = append(summaries, bookSummary{
			Title:        b.Title,
			Author:       b.Author,
			RelativePath: b.RelativePath,
			Language:     b.Language,
		})
	}
	return jsonResult(summaries)
}

func (s *Server) handleGetBookInfo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	bookPath := req.GetString("book_path", "")
	if bookPath == "" {
		return mcp.NewToolResultError("book_path is required"), nil
	}

	info, ok := s.lib.BookInfo(bookPath)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("Book not found: %s", bookPath)), nil
	}
	return jsonResult(info)
}

func (s *Server) handleGetChapter(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	bookPath := req.GetString("book_path", "")
	chapterNumber := req.GetInt("chapter_number", 0)

	content, ok := s.lib.ChapterText(bookPath, chapterNumber)
	if !ok {
		return mcp.NewToolResultText(
			fmt.Sprintf("Chapter %d not found in '%s'", chapterNumber, bookPath)), nil
	}
	return mcp.NewToolResultText(content), nil
}

func (s *Server) handleGetChaptersRange(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	bookPath := req.GetString("book_path", "")
	start := req.GetInt("start_chapter", 0)
	end := req.GetInt("end_chapter", 0)

	content, ok := s.lib.ChaptersRange(bookPath, start, end)
	if !ok {
		return mcp.NewToolResultText(
			fmt.Sprintf("Chapters %d-%d not found in '%s'", start, end, bookPath)), nil
	}
	return mcp.NewToolResultText(content), nil
}

func (s *Server) handleSearchBook(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	bookPath := req.GetString("book_path", "")
	query := req.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("query is required"), nil
	}

	results, ok := s.lib.SearchBook(bookPath, query)
	if !ok || len(results) == 0 {
		return jsonResult(map[string]string{
			"message": fmt.Sprintf("No matches found for '%s' in '%s'", query, bookPath),
		})
	}
	return jsonResult(results)
}

func (s *Server) handleSearchLibrary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("query is required"), nil
	}

	results := s.lib.SearchLibrary(query, s.maxPerBook)
	if len(results) == 0 {
		return jsonResult(map[string]string{
			"message": fmt.Sprintf("No matches found for '%s' in library", query),
		})
	}
	return jsonResult(results)
}

func (s *Server) handleHealthResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	status := map[string]any{
		"status":       "healthy",
		"library_path": s.lib.Root(),
		"book_count":   len(s.lib.Discover()),
	}

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal health status: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// jsonResult renders any value as an indented JSON tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
