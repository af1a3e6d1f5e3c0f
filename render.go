package bulletin

import (
	"net/http"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/st0h/bulletin/views"
)

// Render writes a templ component as an HTTP 200 HTML response.
func Render(c echo.Context, cmp templ.Component) error {
	return RenderStatus(c, http.StatusOK, cmp)
}

// RenderStatus writes a templ component with a specific HTTP status code.
func RenderStatus(c echo.Context, code int, cmp templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(code)
	return cmp.Render(c.Request().Context(), c.Response().Writer)
}

// page assembles the per-request data every view needs: site identity, the
// signed-in user, queued flash messages and the CSRF token for forms.
// Popping the flashes here means any message queued earlier in the same
// request is shown immediately rather than on the next page.
func (a *App) page(c echo.Context) views.Page {
	p := views.Page{
		SiteName: a.Config.Name,
		CSRF:     CsrfToken(c),
	}
	if u := a.sessionUser(c); u != nil {
		p.User = &views.User{ID: u.ID, Username: u.Username}
	}
	for _, f := range popFlashes(c) {
		p.Flashes = append(p.Flashes, views.Flash{Kind: f.Kind, Text: f.Text})
	}
	return p
}

func viewPost(p Post) views.Post {
	return views.Post{
		ID:         p.ID,
		Title:      p.Title,
		BodyHTML:   p.Body,
		PubDate:    p.PubDate,
		AuthorID:   p.AuthorID,
		AuthorName: p.AuthorName,
	}
}

func viewPosts(posts []Post) []views.Post {
	out := make([]views.Post, len(posts))
	for i, p := range posts {
		out[i] = viewPost(p)
	}
	return out
}

func viewComments(comments []Comment) []views.Comment {
	out := make([]views.Comment, len(comments))
	for i, cm := range comments {
		out[i] = views.Comment{
			ID:         cm.ID,
			PostID:     cm.PostID,
			AuthorID:   cm.AuthorID,
			AuthorName: cm.AuthorName,
			Body:       cm.Body,
			PubDate:    cm.PubDate,
		}
	}
	return out
}
