package library

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ebookshelf/ebookshelf/internal/book"
	"github.com/ebookshelf/ebookshelf/internal/epub"
)

// fakeContainer implements book.Container for tests.
type fakeContainer struct {
	spine []epub.Item
	meta  map[string][]string
}

func (f *fakeContainer) Spine() []epub.Item             { return f.spine }
func (f *fakeContainer) DocumentItems() []epub.Item     { return f.spine }
func (f *fakeContainer) Metadata(field string) []string { return f.meta[field] }

// chapterMarkup builds markup long enough to pass the chapter length filter,
// containing the given phrase.
func chapterMarkup(title, phrase string) string {
	return "<html><body><h1>" + title + "</h1><p>" + phrase + " " +
		strings.Repeat("filler ", 100) + "</p></body></html>"
}

func fakeBook(title, author string, chapters ...string) *fakeContainer {
	fc := &fakeContainer{meta: map[string][]string{
		"title":    {title},
		"creator":  {author},
		"language": {"en"},
	}}
	for i, markup := range chapters {
		fc.spine = append(fc.spine, epub.Item{
			Name:      "ch" + string(rune('0'+i+1)) + ".xhtml",
			MediaType: "application/xhtml+xml",
			Data:      []byte(markup),
		})
	}
	return fc
}

// testLibrary creates a temp root with placeholder book files and a Library
// whose opener serves fake containers keyed by base name.
func testLibrary(t *testing.T, containers map[string]book.Container) *Library {
	t.Helper()

	root := t.TempDir()
	for name := range containers {
		fp := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(fp), 0o755))
		require.NoError(t, os.WriteFile(fp, []byte("placeholder"), 0o644))
	}

	opener := func(path string) (book.Container, error) {
		for name, c := range containers {
			if filepath.Join(root, name) == path {
				if c == nil {
					return nil, errors.New("unreadable container")
				}
				return c, nil
			}
		}
		return nil, errors.New("no fixture for " + path)
	}

	return New(Config{
		Root:   root,
		Opener: opener,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestDiscoverListsAllBooks(t *testing.T) {
	lib := testLibrary(t, map[string]book.Container{
		"Author/Book.epub": fakeBook("First Book", "Ann Author", chapterMarkup("One", "dragons")),
		"Other/Novel.epub": fakeBook("Second Novel", "Bob Writer", chapterMarkup("One", "wizards")),
	})

	books := lib.Discover()
	require.Len(t, books, 2)

	assert.Equal(t, "First Book", books[0].Title)
	assert.Equal(t, "Ann Author", books[0].Author)
	assert.Equal(t, "en", books[0].Language)
	assert.Equal(t, filepath.Join("Author", "Book.epub"), books[0].RelativePath)
	assert.Empty(t, books[0].Error)

	assert.Equal(t, "Second Novel", books[1].Title)
}

func TestDiscoverKeepsUnreadableBooks(t *testing.T) {
	lib := testLibrary(t, map[string]book.Container{
		"Author/Book.epub": fakeBook("Good Book", "Ann Author", chapterMarkup("One", "fine")),
		"broken.epub":      nil,
	})

	books := lib.Discover()
	require.Len(t, books, 2, "discovery must be total")

	var bad *Summary
	for i := range books {
		if books[i].Error != "" {
			bad = &books[i]
		}
	}
	require.NotNil(t, bad, "unreadable book should carry an error marker")
	assert.Equal(t, "broken.epub", bad.Title)
	assert.Equal(t, "Unknown", bad.Author)
}

func TestDiscoverMissingRoot(t *testing.T) {
	lib := New(Config{
		Root:   filepath.Join(t.TempDir(), "does-not-exist"),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	assert.Empty(t, lib.Discover())
}

func TestDiscoverIgnoresOtherExtensions(t *testing.T) {
	lib := testLibrary(t, map[string]book.Container{
		"Author/Book.epub": fakeBook("Only Book", "Ann Author", chapterMarkup("One", "x")),
	})
	require.NoError(t, os.WriteFile(filepath.Join(lib.Root(), "notes.txt"), []byte("not a book"), 0o644))

	books := lib.Discover()
	require.Len(t, books, 1)
	assert.Equal(t, "Only Book", books[0].Title)
}

func TestResolve(t *testing.T) {
	lib := testLibrary(t, map[string]book.Container{
		"Author/Book.epub": fakeBook("B", "A", chapterMarkup("One", "x")),
		"Other/Novel.epub": fakeBook("N", "A", chapterMarkup("One", "y")),
	})

	t.Run("absolute path", func(t *testing.T) {
		abs := filepath.Join(lib.Root(), "Author", "Book.epub")
		got, ok := lib.Resolve(abs)
		require.True(t, ok)
		assert.Equal(t, abs, got)
	})

	t.Run("relative to root", func(t *testing.T) {
		got, ok := lib.Resolve(filepath.Join("Author", "Book.epub"))
		require.True(t, ok)
		assert.Equal(t, filepath.Join(lib.Root(), "Author", "Book.epub"), got)
	})

	t.Run("exact base name via scan", func(t *testing.T) {
		got, ok := lib.Resolve("Book.epub")
		require.True(t, ok)
		assert.Equal(t, filepath.Join(lib.Root(), "Author", "Book.epub"), got)
	})

	t.Run("case-insensitive substring via scan", func(t *testing.T) {
		got, ok := lib.Resolve("novel")
		require.True(t, ok)
		assert.Equal(t, filepath.Join(lib.Root(), "Other", "Novel.epub"), got)
	})

	t.Run("not found", func(t *testing.T) {
		_, ok := lib.Resolve("no-such-book")
		assert.False(t, ok)
	})
}

func TestBookInfoChapterFiltering(t *testing.T) {
	// Three document items: the first is 40 characters of text and must be
	// filtered out; the other two become chapters 1 and 2.
	short := "<html><body><p>Just a short cover page.</p></body></html>"
	lib := testLibrary(t, map[string]book.Container{
		"A/B.epub": fakeBook("Filtered", "Ann Author",
			short,
			chapterMarkup("Real One", "alpha"),
			chapterMarkup("Real Two", "beta"),
		),
	})

	info, ok := lib.BookInfo("A/B.epub")
	require.True(t, ok)
	require.Empty(t, info.Error)

	assert.Equal(t, 2, info.ChapterCount)
	require.Len(t, info.Chapters, 2)
	assert.Equal(t, 1, info.Chapters[0].Number)
	assert.Equal(t, "Real One", info.Chapters[0].Title)
	assert.Equal(t, 2, info.Chapters[1].Number)
	assert.Equal(t, "Real Two", info.Chapters[1].Title)
}

func TestBookInfoNotFound(t *testing.T) {
	lib := testLibrary(t, map[string]book.Container{})
	_, ok := lib.BookInfo("ghost.epub")
	assert.False(t, ok)
}

func TestBookInfoUnreadable(t *testing.T) {
	lib := testLibrary(t, map[string]book.Container{
		"broken.epub": nil,
	})

	info, ok := lib.BookInfo("broken.epub")
	require.True(t, ok, "resolved but unreadable books still report info")
	assert.NotEmpty(t, info.Error)
	assert.Equal(t, 0, info.ChapterCount)
}

func TestChapterText(t *testing.T) {
	lib := testLibrary(t, map[string]book.Container{
		"b.epub": fakeBook("B", "A", chapterMarkup("One", "unique-phrase")),
	})

	text, ok := lib.ChapterText("b.epub", 1)
	require.True(t, ok)
	assert.Contains(t, text, "unique-phrase")

	_, ok = lib.ChapterText("b.epub", 5)
	assert.False(t, ok)

	_, ok = lib.ChapterText("missing.epub", 1)
	assert.False(t, ok)
}

func TestChaptersRange(t *testing.T) {
	lib := testLibrary(t, map[string]book.Container{
		"b.epub": fakeBook("B", "A",
			chapterMarkup("One", "alpha"),
			chapterMarkup("Two", "beta"),
			chapterMarkup("Three", "gamma"),
		),
	})

	t.Run("full range", func(t *testing.T) {
		text, ok := lib.ChaptersRange("b.epub", 1, 3)
		require.True(t, ok)
		assert.Contains(t, text, "alpha")
		assert.Contains(t, text, "gamma")
		assert.Contains(t, text, "One")
	})

	t.Run("end clamped to chapter count", func(t *testing.T) {
		text, ok := lib.ChaptersRange("b.epub", 2, 99)
		require.True(t, ok)
		assert.NotContains(t, text, "alpha")
		assert.Contains(t, text, "beta")
		assert.Contains(t, text, "gamma")
	})

	t.Run("start greater than end is absent", func(t *testing.T) {
		_, ok := lib.ChaptersRange("b.epub", 5, 2)
		assert.False(t, ok)
	})

	t.Run("start beyond count is absent", func(t *testing.T) {
		_, ok := lib.ChaptersRange("b.epub", 7, 9)
		assert.False(t, ok)
	})
}

func TestSearchBook(t *testing.T) {
	lib := testLibrary(t, map[string]book.Container{
		"b.epub": fakeBook("B", "A", chapterMarkup("One", "the dragon sleeps")),
	})

	results, ok := lib.SearchBook("b.epub", "dragon")
	require.True(t, ok)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].ChapterNumber)
	assert.Contains(t, results[0].Context, "dragon sleeps")

	_, ok = lib.SearchBook("missing.epub", "dragon")
	assert.False(t, ok)
}

func TestSearchLibrary(t *testing.T) {
	// First book has 20 occurrences, second has 2; the broken book must be
	// skipped silently.
	many := "<html><body><h1>Hoard</h1><p>" + strings.Repeat("dragon ", 20) +
		strings.Repeat("filler ", 80) + "</p></body></html>"
	lib := testLibrary(t, map[string]book.Container{
		"a/many.epub":   fakeBook("Many Dragons", "Ann Author", many),
		"b/two.epub":    fakeBook("Two Dragons", "Bob Writer", chapterMarkup("Pair", "dragon and dragon")),
		"c/broken.epub": nil,
	})

	results := lib.SearchLibrary("dragon", 5)
	require.Len(t, results, 7, "5 capped from the first book plus 2 from the second")

	for i := 0; i < 5; i++ {
		assert.Equal(t, "Many Dragons", results[i].BookTitle)
		assert.Equal(t, "Ann Author", results[i].BookAuthor)
	}
	assert.Equal(t, "Two Dragons", results[5].BookTitle)
	assert.Equal(t, filepath.Join(lib.Root(), "b", "two.epub"), results[5].BookPath)
}

func TestSearchLibraryDefaultCap(t *testing.T) {
	many := "<html><body><h1>Hoard</h1><p>" + strings.Repeat("dragon ", 20) +
		strings.Repeat("filler ", 80) + "</p></body></html>"
	lib := testLibrary(t, map[string]book.Container{
		"many.epub": fakeBook("Many", "A", many),
	})

	results := lib.SearchLibrary("dragon", 0)
	assert.Len(t, results, DefaultMaxPerBook)
}

func TestBookCacheSingleInstance(t *testing.T) {
	lib := testLibrary(t, map[string]book.Container{
		"b.epub": fakeBook("B", "A", chapterMarkup("One", "x")),
	})
	path := filepath.Join(lib.Root(), "b.epub")

	b1 := lib.bookAt(path)
	b2 := lib.bookAt(path)
	assert.Same(t, b1, b2, "at most one Book instance per path")
}

func TestRelativeRootResolvesAbsolute(t *testing.T) {
	root := t.TempDir()
	abs := filepath.Join(root, "b.epub")
	require.NoError(t, os.WriteFile(abs, []byte("placeholder"), 0o644))

	opener := func(string) (book.Container, error) {
		return fakeBook("B", "A", chapterMarkup("One", "x")), nil
	}

	t.Chdir(filepath.Dir(root))
	lib := New(Config{
		Root:   filepath.Base(root),
		Opener: opener,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.True(t, filepath.IsAbs(lib.Root()), "root must be absolutized")

	// A relative fragment must resolve to the absolute path, so the cache
	// key matches the one an absolute fragment produces.
	path, ok := lib.Resolve("b.epub")
	require.True(t, ok)
	assert.Equal(t, abs, path)
	assert.Same(t, lib.bookAt(path), lib.bookAt(abs))
}
