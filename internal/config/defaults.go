package config

import (
	"github.com/ebookshelf/ebookshelf/internal/book"
	"github.com/ebookshelf/ebookshelf/internal/library"
)

// DefaultConfig returns the built-in configuration defaults.
func DefaultConfig() *Config {
	return &Config{
		LibraryPath: "/ebooks",
		Host:        "0.0.0.0",
		Port:        "8080",
		Transport:   "stdio",
		Search: SearchConfig{
			ContextChars:      book.DefaultContextChars,
			MaxResultsPerBook: library.DefaultMaxPerBook,
		},
	}
}
