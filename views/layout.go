package views

import (
	"context"
	"fmt"
	"html"
	"io"
	"strings"
	"time"

	"github.com/a-h/templ"
)

// layout wraps a page body in the shared HTML shell: head, navigation,
// flash messages, footer. Body content is written into a strings.Builder by
// the caller; everything dynamic in the shell is escaped here.
func layout(p Page, title string, body func(b *strings.Builder)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString("<!doctype html>\n<html lang=\"en\">\n<head>\n")
		b.WriteString("<meta charset=\"utf-8\">\n")
		b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
		fmt.Fprintf(&b, "<title>%s — %s</title>\n", esc(title), esc(p.SiteName))
		b.WriteString("<link rel=\"stylesheet\" href=\"/public/style.css\">\n")
		b.WriteString("</head>\n<body>\n")

		b.WriteString("<header class=\"site-header\">\n<nav>\n")
		fmt.Fprintf(&b, "<a class=\"brand\" href=\"/\">%s</a>\n", esc(p.SiteName))
		b.WriteString("<a href=\"/about/\">About</a>\n")
		b.WriteString("<a href=\"/tos/\">Terms</a>\n")
		if p.SignedIn() {
			fmt.Fprintf(&b, "<a href=\"/user/%d/\">%s</a>\n", p.User.ID, esc(p.User.Username))
			b.WriteString("<a href=\"/create/\">New post</a>\n")
			b.WriteString("<a href=\"/reset_password/\">Change password</a>\n")
			b.WriteString("<form class=\"inline\" method=\"post\" action=\"/logout/\">")
			writeCSRF(&b, p.CSRF)
			b.WriteString("<button type=\"submit\">Sign out</button></form>\n")
		} else {
			b.WriteString("<a href=\"/login/\">Sign in</a>\n")
		}
		b.WriteString("</nav>\n</header>\n")

		if len(p.Flashes) > 0 {
			b.WriteString("<ul class=\"messages\">\n")
			for _, f := range p.Flashes {
				fmt.Fprintf(&b, "<li class=\"%s\">%s</li>\n", esc(f.Kind), esc(f.Text))
			}
			b.WriteString("</ul>\n")
		}

		b.WriteString("<main>\n")
		body(&b)
		b.WriteString("</main>\n")

		fmt.Fprintf(&b, "<footer><p>%s</p></footer>\n", esc(p.SiteName))
		b.WriteString("</body>\n</html>\n")

		_, err := io.WriteString(w, b.String())
		return err
	})
}

func esc(s string) string {
	return html.EscapeString(s)
}

func writeCSRF(b *strings.Builder, token string) {
	fmt.Fprintf(b, "<input type=\"hidden\" name=\"_csrf\" value=\"%s\">", esc(token))
}

func formatDate(t time.Time) string {
	return t.Format("Jan 2, 2006 at 15:04")
}

// pageLinks renders previous/next links for a paginated listing.
func pageLinks(b *strings.Builder, base string, pg Pagination) {
	if pg.Pages <= 1 {
		return
	}
	b.WriteString("<nav class=\"pagination\">\n")
	if pg.HasPrev() {
		fmt.Fprintf(b, "<a href=\"%s?page=%d\">&laquo; Previous</a>\n", base, pg.Page-1)
	}
	fmt.Fprintf(b, "<span>Page %d of %d</span>\n", pg.Page, pg.Pages)
	if pg.HasNext() {
		fmt.Fprintf(b, "<a href=\"%s?page=%d\">Next &raquo;</a>\n", base, pg.Page+1)
	}
	b.WriteString("</nav>\n")
}
