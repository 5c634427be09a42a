package main

import (
	"github.com/spf13/cobra"

	"github.com/ebookshelf/ebookshelf/internal/cliout"
	"github.com/ebookshelf/ebookshelf/version"
)

var (
	cfgFile      string
	libraryPath  string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "ebookshelf",
	Short: "MCP server exposing a directory of ebooks as a queryable corpus",
	Long: `Ebookshelf turns a directory of EPUB files into a queryable corpus and
exposes it to MCP clients.

It discovers book files, extracts per-book metadata and an ordered chapter
list, serves chapter text, and performs context-aware substring search within
a book or across the whole collection.`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.ebookshelf/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&libraryPath, "library", "", "library root directory (overrides config)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		cliout.SetFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
