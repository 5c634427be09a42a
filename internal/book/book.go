// Package book holds the document model for a single ebook: lazily extracted
// metadata, the ordered chapter sequence, and substring search over the
// chapters' normalized text.
package book

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ebookshelf/ebookshelf/internal/epub"
)

// Container is the subset of the container reader the document model needs.
// *epub.Container satisfies it; tests supply fakes.
type Container interface {
	// Spine returns document items in declared reading order.
	Spine() []epub.Item

	// DocumentItems returns all document items in storage order, the
	// fallback when the spine is empty.
	DocumentItems() []epub.Item

	// Metadata returns the raw values of a Dublin Core field.
	Metadata(field string) []string
}

// OpenFunc opens the container backing a book file.
type OpenFunc func(path string) (Container, error)

// Metadata describes one book. Immutable once computed.
type Metadata struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Identifier  string `json:"identifier,omitempty"`
	Language    string `json:"language,omitempty"`
	Description string `json:"description,omitempty"`
	Publisher   string `json:"publisher,omitempty"`
	FilePath    string `json:"file_path"`
}

// Chapter is one numbered, titled unit of extracted book content.
// Chapters are immutable once extracted and owned by their parent Book.
type Chapter struct {
	// Number is the 1-indexed position after filtering; contiguous.
	Number int `json:"number"`

	// Title is the derived heading text, or "Chapter {n}" when none exists.
	Title string `json:"title"`

	// Name is the source content item name, kept for traceability.
	Name string `json:"file_name"`

	// Content is the raw markup of the source item.
	Content string `json:"-"`

	// text is the normalized plain text, computed during extraction.
	text string
}

// Text returns the chapter's whitespace-normalized plain text.
func (c Chapter) Text() string { return c.text }

// Book is one packaged book file, keyed by its resolved absolute path.
// Metadata and chapters are computed at most once per instance and cached for
// the Book's lifetime; the underlying file is assumed immutable. A Book is
// safe for concurrent readers.
type Book struct {
	path string
	open OpenFunc

	once     sync.Once
	loadErr  error
	meta     *Metadata
	chapters []Chapter
}

// New creates a Book backed by the EPUB container reader. The container is
// not opened until the first accessor call.
func New(path string) *Book {
	return NewWithOpener(path, func(p string) (Container, error) {
		return epub.Open(p)
	})
}

// NewWithOpener creates a Book with a custom container opener.
func NewWithOpener(path string, open OpenFunc) *Book {
	return &Book{path: path, open: open}
}

// Path returns the book's file path.
func (b *Book) Path() string { return b.path }

// load opens the container and extracts metadata and chapters exactly once.
func (b *Book) load() error {
	b.once.Do(func() {
		c, err := b.open(b.path)
		if err != nil {
			b.loadErr = err
			return
		}
		b.meta = buildMetadata(c, b.path)
		b.chapters = extractChapters(c)
	})
	return b.loadErr
}

// Metadata returns the book's metadata, computing it on first call.
func (b *Book) Metadata() (*Metadata, error) {
	if err := b.load(); err != nil {
		return nil, err
	}
	return b.meta, nil
}

// Chapters returns the ordered chapter sequence, extracting it on first call.
func (b *Book) Chapters() ([]Chapter, error) {
	if err := b.load(); err != nil {
		return nil, err
	}
	return b.chapters, nil
}

// Chapter returns the chapter with the given 1-indexed number. The second
// return value is false when the number is out of range or the book could
// not be loaded.
func (b *Book) Chapter(n int) (Chapter, bool) {
	chapters, err := b.Chapters()
	if err != nil || n < 1 || n > len(chapters) {
		return Chapter{}, false
	}
	return chapters[n-1], true
}

// ChapterText returns the normalized plain text of one chapter.
func (b *Book) ChapterText(n int) (string, bool) {
	ch, ok := b.Chapter(n)
	if !ok {
		return "", false
	}
	return ch.Text(), true
}

// FullText returns the whole book as plain text, each chapter preceded by a
// separator block carrying its title.
func (b *Book) FullText() (string, error) {
	chapters, err := b.Chapters()
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, ch := range chapters {
		sb.WriteString(fmt.Sprintf("\n\n%s\n%s\n%s\n\n", separatorLine, ch.Title, separatorLine))
		sb.WriteString(ch.Text())
	}
	return sb.String(), nil
}

// Search scans the book's chapters for the query substring. See
// SearchChapters for the match and context-window semantics.
func (b *Book) Search(query string, contextChars int) ([]SearchResult, error) {
	chapters, err := b.Chapters()
	if err != nil {
		return nil, err
	}
	return SearchChapters(chapters, query, contextChars), nil
}

// separatorLine is the visual divider used in full-text and range output.
var separatorLine = strings.Repeat("=", 60)

// buildMetadata extracts metadata from the container, applying the documented
// fallbacks: title defaults to the file's base name, author to "Unknown".
func buildMetadata(c Container, path string) *Metadata {
	first := func(field string) string {
		for _, v := range c.Metadata(field) {
			if v != "" {
				return v
			}
		}
		return ""
	}

	md := &Metadata{
		Title:       first("title"),
		Author:      first("creator"),
		Identifier:  first("identifier"),
		Language:    first("language"),
		Description: first("description"),
		Publisher:   first("publisher"),
		FilePath:    path,
	}
	if md.Title == "" {
		md.Title = filepath.Base(path)
	}
	if md.Author == "" {
		md.Author = "Unknown"
	}
	return md
}
