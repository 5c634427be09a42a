// Package server exposes the library over the Model Context Protocol.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ebookshelf/ebookshelf/internal/library"
	"github.com/ebookshelf/ebookshelf/version"
)

const serverName = "ebook-server"

// Config holds server construction parameters.
type Config struct {
	// Library is the book index the tools operate on.
	Library *library.Library

	// Host and Port are used by the SSE transport.
	Host string
	Port string

	// MaxResultsPerBook caps per-book matches in search_library.
	MaxResultsPerBook int

	// Logger is the structured logger to use.
	Logger *slog.Logger
}

// Server wires the library's operations into MCP tools and resources.
type Server struct {
	lib        *library.Library
	host       string
	port       string
	maxPerBook int
	logger     *slog.Logger
	mcp        *mcpserver.MCPServer
}

// New creates the MCP server and registers all tools and resources.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxResultsPerBook <= 0 {
		cfg.MaxResultsPerBook = library.DefaultMaxPerBook
	}

	s := &Server{
		lib:        cfg.Library,
		host:       cfg.Host,
		port:       cfg.Port,
		maxPerBook: cfg.MaxResultsPerBook,
		logger:     cfg.Logger,
	}

	s.mcp = mcpserver.NewMCPServer(
		serverName,
		version.GitRelease,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(true, true),
		mcpserver.WithInstructions(instructions),
	)
	s.registerTools()
	s.registerResources()

	return s
}

const instructions = `This is an ebook library server that provides access to a collection of books.
Use these tools to browse, read, and search ebooks.

Common workflows:
1. Use list_books to see what's available
2. Use get_book_info to get chapter details for a specific book
3. Use get_chapter to read a specific chapter
4. Use search_book to find specific content

Book paths can be specified as:
- Relative paths from the library root (e.g., "Author Name/Book Title.epub")
- Full file paths
- Just the filename (will search for matches)`

// registerTools declares the caller-facing tool surface.
func (s *Server) registerTools() {
	s.mcp.AddTool(
		mcp.NewTool("list_books",
			mcp.WithDescription("List all ebooks in the library with their metadata: title, author, relative_path, and language."),
		),
		s.handleListBooks,
	)

	s.mcp.AddTool(
		mcp.NewTool("get_book_info",
			mcp.WithDescription("Get detailed information about a specific book including its metadata and chapter list."),
			mcp.WithString("book_path",
				mcp.Required(),
				mcp.Description("Path to the book (relative to library root, full path, or filename)"),
			),
		),
		s.handleGetBookInfo,
	)

	s.mcp.AddTool(
		mcp.NewTool("get_chapter",
			mcp.WithDescription("Get the full text content of a specific chapter."),
			mcp.WithString("book_path",
				mcp.Required(),
				mcp.Description("Path to the book (relative to library root or full path)"),
			),
			mcp.WithNumber("chapter_number",
				mcp.Required(),
				mcp.Description("Chapter number (1-indexed)"),
			),
		),
		s.handleGetChapter,
	)

	s.mcp.AddTool(
		mcp.NewTool("get_chapters_range",
			mcp.WithDescription("Get the text content for a range of chapters."),
			mcp.WithString("book_path",
				mcp.Required(),
				mcp.Description("Path to the book (relative to library root or full path)"),
			),
			mcp.WithNumber("start_chapter",
				mcp.Required(),
				mcp.Description("Starting chapter number (1-indexed, inclusive)"),
			),
			mcp.WithNumber("end_chapter",
				mcp.Required(),
				mcp.Description("Ending chapter number (1-indexed, inclusive)"),
			),
		),
		s.handleGetChaptersRange,
	)

	s.mcp.AddTool(
		mcp.NewTool("search_book",
			mcp.WithDescription("Search for text within a specific book. Returns matches with chapter info and surrounding context."),
			mcp.WithString("book_path",
				mcp.Required(),
				mcp.Description("Path to the book (relative to library root or full path)"),
			),
			mcp.WithString("query",
				mcp.Required(),
				mcp.Description("Text to search for (case-insensitive)"),
			),
		),
		s.handleSearchBook,
	)

	s.mcp.AddTool(
		mcp.NewTool("search_library",
			mcp.WithDescription("Search for text across all books in the library. Returns matches with book info, chapter info, and context."),
			mcp.WithString("query",
				mcp.Required(),
				mcp.Description("Text to search for (case-insensitive)"),
			),
		),
		s.handleSearchLibrary,
	)
}

// registerResources declares the health/status resource.
func (s *Server) registerResources() {
	s.mcp.AddResource(
		mcp.NewResource(
			"health://status",
			"Health Status",
			mcp.WithResourceDescription("Server health and corpus size for monitoring"),
			mcp.WithMIMEType("application/json"),
		),
		s.handleHealthResource,
	)
}

// Start runs the server on the configured transport and blocks until it
// stops. The stdio transport runs until stdin closes; the SSE transport runs
// until ctx is cancelled.
func (s *Server) Start(ctx context.Context, transport string) error {
	switch transport {
	case "", "stdio":
		s.logger.Info("starting MCP server on stdio")
		return mcpserver.ServeStdio(s.mcp)

	case "sse":
		addr := net.JoinHostPort(s.host, s.port)
		s.logger.Info("starting MCP server", "transport", "sse", "addr", addr)

		sse := mcpserver.NewSSEServer(s.mcp)
		errCh := make(chan error, 1)
		go func() {
			errCh <- sse.Start(addr)
		}()

		select {
		case <-ctx.Done():
			s.logger.Info("shutting down")
			return sse.Shutdown(context.Background())
		case err := <-errCh:
			return err
		}

	default:
		return fmt.Errorf("unknown transport: %s", transport)
	}
}
