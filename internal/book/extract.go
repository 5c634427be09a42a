package book

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ebookshelf/ebookshelf/internal/epub"
	"github.com/ebookshelf/ebookshelf/internal/text"
)

// minChapterChars is the normalized-text length below which a content item is
// treated as front/back matter (cover pages, dedications, blank spacers) and
// consumes no chapter number.
const minChapterChars = 100

// extractChapters turns the container's reading-order items into the ordered
// chapter sequence.
//
// Items come from the spine when one is declared, otherwise from every
// document item in storage order. Each item's markup is normalized once; the
// result doubles as the length filter input and the chapter's cached text.
// Numbering starts at 1 and stays contiguous no matter how many items are
// filtered out. A malformed item simply normalizes to little or no text and
// falls out at the length filter; it never aborts the rest.
func extractChapters(c Container) []Chapter {
	items := c.Spine()
	if len(items) == 0 {
		items = c.DocumentItems()
	}

	var chapters []Chapter
	for _, item := range items {
		content := strings.ToValidUTF8(string(item.Data), "�")

		plain := text.Normalize(content)
		if utf8.RuneCountInString(plain) < minChapterChars {
			continue
		}

		num := len(chapters) + 1
		title := text.FirstHeading(content)
		if title == "" {
			title = fmt.Sprintf("Chapter %d", num)
		}

		chapters = append(chapters, Chapter{
			Number:  num,
			Title:   title,
			Name:    item.Name,
			Content: content,
			text:    plain,
		})
	}
	return chapters
}

// compile-time check that the real container reader satisfies Container.
var _ Container = (*epub.Container)(nil)
