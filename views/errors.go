package views

import (
	"strings"

	"github.com/a-h/templ"
)

// NotFound is the styled 404 page.
func NotFound(p Page) templ.Component {
	return layout(p, "Not found", func(b *strings.Builder) {
		b.WriteString("<h1>Page not found</h1>\n")
		b.WriteString("<p>The post, comment or user you are looking for does not exist.</p>\n")
		b.WriteString("<p><a href=\"/\">Back to the front page</a></p>\n")
	})
}

// ServerError is the styled 500 page.
func ServerError(p Page) templ.Component {
	return layout(p, "Something went wrong", func(b *strings.Builder) {
		b.WriteString("<h1>Something went wrong</h1>\n")
		b.WriteString("<p>The server hit an unexpected error. Please try again in a moment.</p>\n")
		b.WriteString("<p><a href=\"/\">Back to the front page</a></p>\n")
	})
}
