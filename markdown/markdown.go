// Package markdown converts the lightweight markup accepted in post bodies
// into HTML. Raw HTML in the input is escaped, never passed through, so the
// output is safe to store and render unescaped.
package markdown

import (
	"bytes"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"
)

var (
	reBold           = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reBoldUnderscore = regexp.MustCompile(`__(.+?)__`)
	reItalic         = regexp.MustCompile(`\*([^*]+)\*`)
	reInlineCode     = regexp.MustCompile("`([^`]+)`")
	reLink           = regexp.MustCompile(`\[(.*?)\]\((.*?)\)`)
	reOrderedItem    = regexp.MustCompile(`^\d+\.\s`)
)

// Render returns the HTML representation of md.
func Render(md string) string {
	var buf bytes.Buffer
	lines := strings.Split(md, "\n")
	inPara := false
	inList := false
	inOrderedList := false
	inQuote := false
	inCode := false

	flushPara := func() {
		if inPara {
			buf.WriteString("</p>\n")
			inPara = false
		}
	}
	flushList := func() {
		if inList {
			buf.WriteString("</ul>\n")
			inList = false
		}
	}
	flushOrderedList := func() {
		if inOrderedList {
			buf.WriteString("</ol>\n")
			inOrderedList = false
		}
	}
	flushQuote := func() {
		if inQuote {
			buf.WriteString("</blockquote>\n")
			inQuote = false
		}
	}
	flushBlocks := func() {
		flushPara()
		flushList()
		flushOrderedList()
		flushQuote()
	}

	for _, raw := range lines {
		line := strings.TrimRight(raw, "\r")

		if strings.HasPrefix(line, "```") {
			if inCode {
				buf.WriteString("</code></pre>\n")
				inCode = false
			} else {
				flushBlocks()
				buf.WriteString("<pre><code>")
				inCode = true
			}
			continue
		}
		if inCode {
			buf.WriteString(html.EscapeString(line))
			buf.WriteString("\n")
			continue
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flushBlocks()
			continue
		}

		if level, text, ok := heading(trimmed); ok {
			flushBlocks()
			fmt.Fprintf(&buf, "<h%d>%s</h%d>\n", level, inline(text), level)
			continue
		}
		if strings.HasPrefix(trimmed, "> ") {
			flushPara()
			flushList()
			flushOrderedList()
			if !inQuote {
				buf.WriteString("<blockquote>")
				inQuote = true
			} else {
				buf.WriteString("<br>")
			}
			buf.WriteString(inline(strings.TrimPrefix(trimmed, "> ")))
			continue
		}
		if strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* ") {
			flushPara()
			flushOrderedList()
			flushQuote()
			if !inList {
				buf.WriteString("<ul>\n")
				inList = true
			}
			fmt.Fprintf(&buf, "<li>%s</li>\n", inline(trimmed[2:]))
			continue
		}
		if m := reOrderedItem.FindString(trimmed); m != "" {
			flushPara()
			flushList()
			flushQuote()
			if !inOrderedList {
				buf.WriteString("<ol>\n")
				inOrderedList = true
			}
			fmt.Fprintf(&buf, "<li>%s</li>\n", inline(trimmed[len(m):]))
			continue
		}

		flushList()
		flushOrderedList()
		flushQuote()
		if !inPara {
			buf.WriteString("<p>")
			inPara = true
		} else {
			buf.WriteString("<br>")
		}
		buf.WriteString(inline(trimmed))
	}

	if inCode {
		buf.WriteString("</code></pre>\n")
	}
	flushBlocks()
	return strings.TrimRight(buf.String(), "\n")
}

func heading(line string) (level int, text string, ok bool) {
	for level = 0; level < len(line) && line[level] == '#'; level++ {
	}
	if level < 1 || level > 6 || level >= len(line) || line[level] != ' ' {
		return 0, "", false
	}
	return level, strings.TrimSpace(line[level:]), true
}

// inline escapes a line of text and applies the inline span rules. Escaping
// happens first; none of the patterns match the entities it produces.
func inline(text string) string {
	s := html.EscapeString(text)
	s = reInlineCode.ReplaceAllString(s, "<code>$1</code>")
	s = reBold.ReplaceAllString(s, "<strong>$1</strong>")
	s = reBoldUnderscore.ReplaceAllString(s, "<strong>$1</strong>")
	s = reItalic.ReplaceAllString(s, "<em>$1</em>")
	s = reLink.ReplaceAllStringFunc(s, func(m string) string {
		parts := reLink.FindStringSubmatch(m)
		label, href := parts[1], parts[2]
		if !safeHref(href) {
			return label
		}
		return fmt.Sprintf(`<a href="%s">%s</a>`, href, label)
	})
	return s
}

// safeHref allows http(s), mailto and site-relative link targets only.
func safeHref(href string) bool {
	if strings.HasPrefix(href, "/") || strings.HasPrefix(href, "#") {
		return true
	}
	u, err := url.Parse(href)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "http", "https", "mailto":
		return true
	}
	return false
}
