package knowledge

import (
	"regexp"
	"strings"
)

// heading is one ATX ("#".."######") heading found while scanning a
// document: its nesting level, title text, and the byte range of the
// heading line itself within the source text.
type heading struct {
	level      int
	text       string
	lineStart  int
	lineEnd    int
}

var atxHeadingRe = regexp.MustCompile(`(?m)^(#{1,6})[ \t]+(.+?)[ \t]*$`)

// parseHeadings finds every ATX heading line in text.
func parseHeadings(text string) []heading {
	matches := atxHeadingRe.FindAllStringSubmatchIndex(text, -1)
	out := make([]heading, 0, len(matches))
	for _, m := range matches {
		level := m[3] - m[2]
		title := text[m[4]:m[5]]
		out = append(out, heading{level: level, text: strings.TrimSpace(title), lineStart: m[0], lineEnd: m[1]})
	}
	return out
}

// section is one heading's content span plus its breadcrumb path from the
// document root.
type section struct {
	path    []string
	content string
}

// splitSections walks the heading list and breaks text into per-heading
// sections, each carrying its full breadcrumb.
// Content before the first heading becomes a root section with an empty
// path.
func splitSections(text string) []section {
	headings := parseHeadings(text)
	if len(headings) == 0 {
		return []section{{content: strings.TrimSpace(text)}}
	}

	var sections []section
	if lead := strings.TrimSpace(text[:headings[0].lineStart]); lead != "" {
		sections = append(sections, section{content: lead})
	}

	var stack []heading
	for i, h := range headings {
		contentEnd := len(text)
		if i+1 < len(headings) {
			contentEnd = headings[i+1].lineStart
		}
		content := strings.TrimSpace(text[h.lineEnd:contentEnd])

		for len(stack) > 0 && stack[len(stack)-1].level >= h.level {
			stack = stack[:len(stack)-1]
		}
		stack = append(stack, h)

		path := make([]string, len(stack))
		for j, s := range stack {
			path[j] = s.text
		}
		sections = append(sections, section{path: path, content: content})
	}
	return sections
}
