package book

import "strings"

// DefaultContextChars is the default context-window radius around a match.
const DefaultContextChars = 200

// SearchResult is one substring match inside a chapter.
type SearchResult struct {
	ChapterNumber int    `json:"chapter_number"`
	ChapterTitle  string `json:"chapter_title"`
	Position      int    `json:"position"`
	Context       string `json:"context"`
}

// SearchChapters scans each chapter's normalized text for the query, case
// insensitively, and returns every occurrence in chapter-then-position order.
//
// Matching is overlapping: after a hit at position p the scan resumes at p+1,
// so "aa" occurs twice in "aaa". Each result carries a context window of up
// to contextChars characters either side of the match, sliced from the
// original-case text and marked with "..." on any truncated edge. An empty
// query yields no results. Every call is a fresh scan; nothing is memoized
// across queries.
func SearchChapters(chapters []Chapter, query string, contextChars int) []SearchResult {
	if query == "" {
		return nil
	}
	if contextChars < 0 {
		contextChars = DefaultContextChars
	}

	folded := strings.ToLower(query)
	var results []SearchResult

	for _, ch := range chapters {
		chText := ch.Text()
		lower := strings.ToLower(chText)

		for start := 0; ; {
			pos := strings.Index(lower[start:], folded)
			if pos < 0 {
				break
			}
			pos += start

			results = append(results, SearchResult{
				ChapterNumber: ch.Number,
				ChapterTitle:  ch.Title,
				Position:      pos,
				Context:       contextWindow(chText, pos, len(folded), contextChars),
			})
			start = pos + 1
		}
	}
	return results
}

// contextWindow slices the original-case text around a match, prefixing or
// suffixing "..." wherever the window was clamped short of the text bounds.
// Positions come from the case-folded copy, which can be longer than the
// original (some runes grow when lowercased), so every bound is clamped to
// the original text before slicing.
func contextWindow(text string, pos, matchLen, contextChars int) string {
	pos = min(pos, len(text))
	start := max(0, pos-contextChars)
	end := min(len(text), pos+matchLen+contextChars)

	window := text[start:end]
	if start > 0 {
		window = "..." + window
	}
	if end < len(text) {
		window = window + "..."
	}
	return window
}
