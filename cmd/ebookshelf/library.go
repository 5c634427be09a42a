package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ebookshelf/ebookshelf/internal/cliout"
	"github.com/ebookshelf/ebookshelf/internal/config"
	"github.com/ebookshelf/ebookshelf/internal/library"
)

// newLibrary builds a Library from config and flags for the local commands.
func newLibrary() (*library.Library, *config.Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	cm, err := config.NewManager(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	cfg := cm.Get()

	root := cfg.LibraryPath
	if libraryPath != "" {
		root = libraryPath
	}
	return library.New(library.Config{
		Root:         root,
		ContextChars: cfg.Search.ContextChars,
		Logger:       logger,
	}), cfg, nil
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all books in the library",
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, _, err := newLibrary()
		if err != nil {
			return err
		}
		return cliout.Output(lib.Discover())
	},
}

var infoCmd = &cobra.Command{
	Use:   "info <book>",
	Short: "Show metadata and chapter list for a book",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, _, err := newLibrary()
		if err != nil {
			return err
		}
		info, ok := lib.BookInfo(args[0])
		if !ok {
			return fmt.Errorf("book not found: %s", args[0])
		}
		return cliout.Output(info)
	},
}

var readCmd = &cobra.Command{
	Use:   "read <book> <chapter>",
	Short: "Print the plain text of one chapter",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, _, err := newLibrary()
		if err != nil {
			return err
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid chapter number: %s", args[1])
		}
		text, ok := lib.ChapterText(args[0], n)
		if !ok {
			return fmt.Errorf("chapter %d not found in %s", n, args[0])
		}
		fmt.Println(text)
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search across all books in the library",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, cfg, err := newLibrary()
		if err != nil {
			return err
		}
		results := lib.SearchLibrary(args[0], cfg.Search.MaxResultsPerBook)
		return cliout.Output(results)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(searchCmd)
}
