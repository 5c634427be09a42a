// Package library indexes a directory of ebook files: discovery, path
// resolution, a per-path document cache, and operations fanning out across
// one or many books.
package library

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ebookshelf/ebookshelf/internal/book"
)

// supportedExtensions are the book file extensions picked up by discovery,
// matched case-insensitively.
var supportedExtensions = map[string]bool{
	".epub": true,
}

// Summary is one discovery entry. A file whose metadata extraction failed is
// still listed, with fallback fields and Error set.
type Summary struct {
	Title        string `json:"title"`
	Author       string `json:"author"`
	Language     string `json:"language,omitempty"`
	FilePath     string `json:"file_path"`
	RelativePath string `json:"relative_path"`
	Error        string `json:"error,omitempty"`
}

// ChapterRef is a chapter's number and title, without its content.
type ChapterRef struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
}

// Info is the detailed per-book result: metadata plus the chapter list.
// When the resolved file cannot be parsed, Error is set instead.
type Info struct {
	book.Metadata
	ChapterCount int          `json:"chapter_count"`
	Chapters     []ChapterRef `json:"chapters"`
	Error        string       `json:"error,omitempty"`
}

// Result is a library-wide search match: a chapter match annotated with the
// book it came from.
type Result struct {
	book.SearchResult
	BookTitle  string `json:"book_title"`
	BookAuthor string `json:"book_author"`
	BookPath   string `json:"book_path"`
}

// DefaultMaxPerBook caps how many matches a single book contributes to a
// library-wide search.
const DefaultMaxPerBook = 5

// Config holds library construction parameters.
type Config struct {
	// Root is the library root directory.
	Root string

	// ContextChars is the search context-window radius.
	// Defaults to book.DefaultContextChars.
	ContextChars int

	// Opener overrides the container opener, for tests.
	Opener book.OpenFunc

	// Logger is the structured logger to use.
	Logger *slog.Logger
}

// Library is the index over one book directory. The corpus is read-only at
// runtime; the only mutable state is the path → Book cache, which is guarded
// so at most one Book instance exists per resolved path.
type Library struct {
	root         string
	contextChars int
	opener       book.OpenFunc
	logger       *slog.Logger

	mu    sync.Mutex
	books map[string]*book.Book
}

// New creates a Library over the given root directory. The root is
// absolutized so every resolved path, and thus every cache key, is absolute
// regardless of how the root was spelled.
func New(cfg Config) *Library {
	if abs, err := filepath.Abs(cfg.Root); err == nil {
		cfg.Root = abs
	}
	if cfg.ContextChars <= 0 {
		cfg.ContextChars = book.DefaultContextChars
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Library{
		root:         cfg.Root,
		contextChars: cfg.ContextChars,
		opener:       cfg.Opener,
		logger:       cfg.Logger,
		books:        make(map[string]*book.Book),
	}
}

// Root returns the library root directory.
func (l *Library) Root() string { return l.root }

// bookAt returns the cached Book for an absolute path, creating it if needed.
// Concurrent first access to the same path yields the same instance.
func (l *Library) bookAt(path string) *book.Book {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.books[path]
	if !ok {
		if l.opener != nil {
			b = book.NewWithOpener(path, l.opener)
		} else {
			b = book.New(path)
		}
		l.books[path] = b
	}
	return b
}

// Discover walks the library root and returns a summary for every supported
// book file. Discovery is total: a file that fails metadata extraction is
// listed with fallback fields and its error, never dropped, and a missing
// root yields an empty list.
func (l *Library) Discover() []Summary {
	var books []Summary

	if _, err := os.Stat(l.root); err != nil {
		l.logger.Warn("library root does not exist", "path", l.root)
		return books
	}

	l.walk(func(path string) bool {
		rel, err := filepath.Rel(l.root, path)
		if err != nil {
			rel = path
		}

		md, err := l.bookAt(path).Metadata()
		if err != nil {
			l.logger.Error("failed to parse book", "path", path, "error", err)
			books = append(books, Summary{
				Title:        filepath.Base(path),
				Author:       "Unknown",
				FilePath:     path,
				RelativePath: rel,
				Error:        err.Error(),
			})
			return false
		}

		books = append(books, Summary{
			Title:        md.Title,
			Author:       md.Author,
			Language:     md.Language,
			FilePath:     path,
			RelativePath: rel,
		})
		return false
	})

	l.logger.Info("discovered books in library", "count", len(books))
	return books
}

// walk visits every supported book file under the root in lexical traversal
// order, stopping early when fn returns true.
func (l *Library) walk(fn func(path string) bool) {
	_ = filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if !supportedExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		if fn(path) {
			return filepath.SkipAll
		}
		return nil
	})
}

// Resolve turns a user-supplied path fragment into an absolute book path.
//
// Tried in order: the fragment as an existing absolute path; the fragment
// relative to the library root; a scan of the root for the first file whose
// base name exactly equals the fragment's base name, then for the first
// whose name contains it case-insensitively. The scan order is the lexical
// directory traversal order.
func (l *Library) Resolve(fragment string) (string, bool) {
	if filepath.IsAbs(fragment) {
		if _, err := os.Stat(fragment); err == nil {
			return fragment, true
		}
	}

	full := filepath.Join(l.root, fragment)
	if _, err := os.Stat(full); err == nil {
		return full, true
	}

	base := filepath.Base(fragment)
	baseLower := strings.ToLower(base)
	var exact, partial string
	l.walk(func(path string) bool {
		name := filepath.Base(path)
		if name == base {
			exact = path
			return true
		}
		if partial == "" && strings.Contains(strings.ToLower(name), baseLower) {
			partial = path
		}
		return false
	})

	if exact != "" {
		return exact, true
	}
	if partial != "" {
		return partial, true
	}
	return "", false
}

// BookInfo returns metadata and the chapter list for one book. The second
// return value is false when the path does not resolve. A resolved file that
// fails to parse is reported with Error set, matching discovery.
func (l *Library) BookInfo(fragment string) (*Info, bool) {
	path, ok := l.Resolve(fragment)
	if !ok {
		l.logger.Warn("book not found", "path", fragment)
		return nil, false
	}

	b := l.bookAt(path)
	md, err := b.Metadata()
	if err != nil {
		l.logger.Error("failed to read book info", "path", path, "error", err)
		return &Info{Metadata: book.Metadata{FilePath: path}, Error: err.Error()}, true
	}

	chapters, err := b.Chapters()
	if err != nil {
		return &Info{Metadata: *md, Error: err.Error()}, true
	}

	info := &Info{
		Metadata:     *md,
		ChapterCount: len(chapters),
		Chapters:     make([]ChapterRef, 0, len(chapters)),
	}
	for _, ch := range chapters {
		info.Chapters = append(info.Chapters, ChapterRef{Number: ch.Number, Title: ch.Title})
	}
	return info, true
}

// ChapterText returns the plain text of one chapter of one book.
func (l *Library) ChapterText(fragment string, n int) (string, bool) {
	path, ok := l.Resolve(fragment)
	if !ok {
		return "", false
	}
	return l.bookAt(path).ChapterText(n)
}

// ChaptersRange returns the concatenated text of chapters start..end
// inclusive, each preceded by a separator block with its title. The end is
// clamped to the chapter count; an empty result (start beyond the count, or
// start > end) is reported as absent.
func (l *Library) ChaptersRange(fragment string, start, end int) (string, bool) {
	path, ok := l.Resolve(fragment)
	if !ok {
		return "", false
	}

	b := l.bookAt(path)
	chapters, err := b.Chapters()
	if err != nil {
		l.logger.Error("failed to read chapters", "path", path, "error", err)
		return "", false
	}
	if end > len(chapters) {
		end = len(chapters)
	}

	var parts []string
	sep := strings.Repeat("=", 60)
	for i := start; i <= end; i++ {
		ch, ok := b.Chapter(i)
		if !ok {
			continue
		}
		parts = append(parts, "\n"+sep+"\n"+ch.Title+"\n"+sep+"\n\n", ch.Text())
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, "\n"), true
}

// SearchBook searches one book for the query. The second return value is
// false only when the path does not resolve; a query with no matches yields
// an empty slice.
func (l *Library) SearchBook(fragment, query string) ([]book.SearchResult, bool) {
	path, ok := l.Resolve(fragment)
	if !ok {
		return nil, false
	}

	results, err := l.bookAt(path).Search(query, l.contextChars)
	if err != nil {
		l.logger.Error("search failed", "path", path, "error", err)
		return nil, true
	}
	return results, true
}

// SearchLibrary searches every discoverable book for the query, in discovery
// order. Error-marked books are skipped. Each book contributes at most
// maxPerBook matches, the first in chapter-then-position order, each
// annotated with the book's title, author, and path.
func (l *Library) SearchLibrary(query string, maxPerBook int) []Result {
	if maxPerBook <= 0 {
		maxPerBook = DefaultMaxPerBook
	}

	var all []Result
	for _, s := range l.Discover() {
		if s.Error != "" {
			continue
		}

		results, err := l.bookAt(s.FilePath).Search(query, l.contextChars)
		if err != nil {
			l.logger.Error("search failed", "path", s.FilePath, "error", err)
			continue
		}
		if len(results) > maxPerBook {
			results = results[:maxPerBook]
		}
		for _, r := range results {
			all = append(all, Result{
				SearchResult: r,
				BookTitle:    s.Title,
				BookAuthor:   s.Author,
				BookPath:     s.FilePath,
			})
		}
	}
	return all
}
