package source

import (
	"regexp"
	"strings"
)

var (
	frontMatter  = regexp.MustCompile(`(?s)\A(?:---|\+\+\+)\r?\n.*?\r?\n(?:---|\+\+\+)\r?\n`)
	codeFence    = regexp.MustCompile("(?m)^[ \t]*(```|~~~).*$")
	images       = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	links        = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	htmlTags     = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)
	headings     = regexp.MustCompile(`(?m)^[ \t]{0,3}#{1,6}[ \t]+`)
	blockquotes  = regexp.MustCompile(`(?m)^[ \t]*>[ \t]?`)
	rules        = regexp.MustCompile(`(?m)^[ \t]*[-*_]([ \t]*[-*_]){2,}[ \t]*$`)
	listMarkers  = regexp.MustCompile(`(?m)^([ \t]*)([-*+]|\d+[.)])[ \t]+`)
	emphasis     = regexp.MustCompile(`(\*\*|__|\*|~~)`)
	inlineCode   = regexp.MustCompile("`([^`]*)`")
	blankRuns    = regexp.MustCompile(`\n{3,}`)
	htmlEntities = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&#39;", "'", "&nbsp;", " ")
)

// PlainText reduces markdown to its readable text. Code blocks keep their
// contents, links keep their text, image alt text is kept, and front matter,
// markup and HTML tags are dropped.
func PlainText(md string) string {
	s := strings.ReplaceAll(md, "\r\n", "\n")
	s = frontMatter.ReplaceAllString(s, "")
	s = codeFence.ReplaceAllString(s, "")
	s = images.ReplaceAllString(s, "$1")
	s = links.ReplaceAllString(s, "$1")
	s = htmlTags.ReplaceAllString(s, "")
	s = headings.ReplaceAllString(s, "")
	s = blockquotes.ReplaceAllString(s, "")
	s = rules.ReplaceAllString(s, "")
	s = listMarkers.ReplaceAllString(s, "$1")
	s = inlineCode.ReplaceAllString(s, "$1")
	s = emphasis.ReplaceAllString(s, "")
	s = htmlEntities.Replace(s)
	s = blankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
