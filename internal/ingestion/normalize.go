package ingestion

import (
	"strings"
	"unicode/utf8"
)

// entityReplacer decodes the escaped HTML entities that survive the website
// export. Only the entities the export actually produces are handled; full
// HTML parsing is deliberately out of scope.
var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&#x27;", "'",
	"&quot;", `"`,
	"&lt;", "<",
	"&gt;", ">",
	"&nbsp;", " ",
)

// maxTitleScan bounds how far into the page text DeriveTitle looks for a
// title candidate.
const maxTitleScan = 200

// Normalize decodes escaped HTML entities and collapses runs of whitespace
// into single spaces, yielding the clean text that gets chunked and embedded.
func Normalize(raw string) string {
	decoded := entityReplacer.Replace(raw)
	return strings.Join(strings.Fields(decoded), " ")
}

// DeriveTitle extracts a display title from normalized page text. Exported
// pages lead with their HTML title, typically "Page Name | Site Name", so the
// first segment of the leading text is used. Falls back to the page URL when
// no usable text exists.
func DeriveTitle(text, pageURL string) string {
	head := text
	if len(head) > maxTitleScan {
		cut := maxTitleScan
		// Back up to a rune boundary so the cap never splits a multibyte
		// character and leaves invalid UTF-8 in the title.
		for cut > 0 && !utf8.RuneStart(head[cut]) {
			cut--
		}
		head = head[:cut]
	}
	title := strings.TrimSpace(strings.SplitN(head, "|", 2)[0])
	if title == "" {
		return pageURL
	}
	return title
}
