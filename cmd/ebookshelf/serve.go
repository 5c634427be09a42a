package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ebookshelf/ebookshelf/internal/config"
	"github.com/ebookshelf/ebookshelf/internal/library"
	"github.com/ebookshelf/ebookshelf/internal/server"
)

var serveTransport string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the ebookshelf MCP server",
	Long: `Start the ebookshelf MCP server.

The server exposes the library as MCP tools (list_books, get_book_info,
get_chapter, get_chapters_range, search_book, search_library) plus a
health://status resource reporting the corpus size.

Examples:
  ebookshelf serve                          # stdio transport for MCP clients
  ebookshelf serve --transport sse          # SSE transport on host:port
  ebookshelf serve --library ~/books        # override the library root`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Logs go to stderr; the stdio transport owns stdout.
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))

		cm, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		cm.WatchConfig()
		cfg := cm.Get()

		root := cfg.LibraryPath
		if libraryPath != "" {
			root = libraryPath
		}
		lib := library.New(library.Config{
			Root:         root,
			ContextChars: cfg.Search.ContextChars,
			Logger:       logger,
		})
		logger.Info("initialized library", "path", root)

		// Discover books on startup so a misconfigured root is visible
		// immediately in the logs.
		books := lib.Discover()
		logger.Info("library ready", "books", len(books))

		transport := cfg.Transport
		if serveTransport != "" {
			transport = serveTransport
		}

		srv := server.New(server.Config{
			Library:           lib,
			Host:              cfg.Host,
			Port:              cfg.Port,
			MaxResultsPerBook: cfg.Search.MaxResultsPerBook,
			Logger:            logger,
		})
		return srv.Start(ctx, transport)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveTransport, "transport", "", "MCP transport: stdio or sse (overrides config)")

	rootCmd.AddCommand(serveCmd)
}
