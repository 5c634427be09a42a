// Package text converts chapter markup into clean plain text.
//
// Normalize is the single place markup-to-text conversion happens: chapter
// length filtering and search both depend on its exact output, so it must be
// deterministic and idempotent.
package text

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// blockAtoms is the set of tags that insert a line break during extraction.
var blockAtoms = map[atom.Atom]bool{
	atom.P:          true,
	atom.Br:         true,
	atom.Div:        true,
	atom.H1:         true,
	atom.H2:         true,
	atom.H3:         true,
	atom.H4:         true,
	atom.H5:         true,
	atom.H6:         true,
	atom.Li:         true,
	atom.Tr:         true,
	atom.Blockquote: true,
	atom.Hr:         true,
	atom.Table:      true,
	atom.Section:    true,
	atom.Article:    true,
}

// skipAtoms is the set of tags whose subtree never contributes text.
var skipAtoms = map[atom.Atom]bool{
	atom.Script: true,
	atom.Style:  true,
}

// Normalize converts markup into whitespace-normalized plain text.
//
// Script and style subtrees are removed entirely, block-level boundaries
// become line breaks, every line is trimmed, empty lines are dropped, and the
// surviving lines are joined with a single newline. Plain text passes through
// unchanged apart from the same line cleanup, which makes the function
// idempotent.
func Normalize(markup string) string {
	tok := html.NewTokenizer(strings.NewReader(markup))

	var buf strings.Builder
	skipDepth := 0

	for {
		switch tok.Next() {
		case html.ErrorToken:
			// The tokenizer only fails at end of input for string readers.
			return cleanLines(buf.String())

		case html.StartTagToken:
			name, _ := tok.TagName()
			a := atom.Lookup(name)
			if skipAtoms[a] {
				skipDepth++
				continue
			}
			if skipDepth == 0 && blockAtoms[a] {
				buf.WriteByte('\n')
			}

		case html.SelfClosingTagToken:
			name, _ := tok.TagName()
			if skipDepth == 0 && blockAtoms[atom.Lookup(name)] {
				buf.WriteByte('\n')
			}

		case html.EndTagToken:
			name, _ := tok.TagName()
			a := atom.Lookup(name)
			if skipAtoms[a] && skipDepth > 0 {
				skipDepth--
				continue
			}
			if skipDepth == 0 && blockAtoms[a] {
				buf.WriteByte('\n')
			}

		case html.TextToken:
			if skipDepth == 0 {
				buf.Write(tok.Text())
			}
		}
	}
}

// cleanLines trims every line, drops empty lines, and joins the rest with a
// single newline separator.
func cleanLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// headingPriority lists heading-like tags in the order a chapter title is
// searched for: the first h1 anywhere in the document wins over any h2, and
// the document <title> element is the last resort.
var headingPriority = []atom.Atom{atom.H1, atom.H2, atom.H3, atom.Title}

// FirstHeading returns the stripped text of the highest-priority heading
// element found in markup, or "" when the document has none.
func FirstHeading(markup string) string {
	found := make(map[atom.Atom]string, len(headingPriority))
	wanted := make(map[atom.Atom]bool, len(headingPriority))
	for _, a := range headingPriority {
		wanted[a] = true
	}

	tok := html.NewTokenizer(strings.NewReader(markup))
	var capture atom.Atom
	var captured strings.Builder

	for {
		switch tok.Next() {
		case html.ErrorToken:
			for _, a := range headingPriority {
				if t, ok := found[a]; ok {
					return t
				}
			}
			return ""

		case html.StartTagToken:
			name, _ := tok.TagName()
			a := atom.Lookup(name)
			if capture == 0 && wanted[a] {
				if _, seen := found[a]; !seen {
					capture = a
					captured.Reset()
				}
			}

		case html.TextToken:
			if capture != 0 {
				captured.Write(tok.Text())
			}

		case html.EndTagToken:
			name, _ := tok.TagName()
			if capture != 0 && atom.Lookup(name) == capture {
				found[capture] = strings.TrimSpace(captured.String())
				capture = 0
			}
		}
	}
}
