package bulletin

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/st0h/bulletin/views"
)

const (
	postsPerPage    = 10
	commentsPerPage = 100
	profilePosts    = 5
)

// handleIndex serves the paginated front page, newest posts first. Page 1
// comes from the cache; deeper pages hit the store directly.
func (a *App) handleIndex(c echo.Context) error {
	posts, total, err := a.Cache.FrontPage()
	if err != nil {
		return err
	}
	page, pages := pageOf(c.QueryParam("page"), total, postsPerPage)
	if page != 1 {
		posts, err = a.Store.ListPosts(postsPerPage, (page-1)*postsPerPage)
		if err != nil {
			return err
		}
	}
	return Render(c, views.Index(a.page(c), viewPosts(posts), views.Pagination{Page: page, Pages: pages}))
}

// handleView serves one post with its comments, oldest first, plus the total
// comment count independent of pagination.
func (a *App) handleView(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	post, err := a.Store.GetPost(id)
	if err != nil {
		return notFoundOr(err)
	}
	count, err := a.Store.CountComments(id)
	if err != nil {
		return err
	}
	page, pages := pageOf(c.QueryParam("page"), count, commentsPerPage)
	comments, err := a.Store.ListComments(id, commentsPerPage, (page-1)*commentsPerPage)
	if err != nil {
		return err
	}
	return Render(c, views.PostPage(a.page(c), viewPost(post), viewComments(comments), count,
		views.Pagination{Page: page, Pages: pages}))
}

// handleUser serves a profile page. The key is tried as a numeric id first,
// then as a username; the second try keeps all-digit usernames reachable.
// Both lookup keys produce the identical page.
func (a *App) handleUser(c echo.Context) error {
	key := c.Param("key")
	var u *User
	var err error
	if id, convErr := strconv.ParseInt(key, 10, 64); convErr == nil {
		u, err = a.Store.GetUserByID(id)
		if errors.Is(err, ErrNotFound) {
			u, err = a.Store.GetUserByUsername(key)
		}
	} else {
		u, err = a.Store.GetUserByUsername(key)
	}
	if err != nil {
		return notFoundOr(err)
	}

	stats, err := a.profileStats(u.ID)
	if err != nil {
		return err
	}
	posts, err := a.Store.ListPostsByAuthor(u.ID, profilePosts)
	if err != nil {
		return err
	}
	profile := views.Profile{
		ID:           u.ID,
		Username:     u.Username,
		Joined:       u.CreatedAt,
		PostCount:    stats.posts,
		CommentCount: stats.comments,
	}
	return Render(c, views.UserProfile(a.page(c), profile, viewPosts(posts)))
}

func (a *App) handleAbout(c echo.Context) error {
	return Render(c, views.About(a.page(c)))
}

func (a *App) handleTOS(c echo.Context) error {
	return Render(c, views.TOS(a.page(c)))
}

// handleRobots keeps crawlers off the authenticated form pages.
func (a *App) handleRobots(c echo.Context) error {
	const body = "User-agent: *\nAllow: /\nDisallow: /create/\nDisallow: /edit/\nDisallow: /login/\nDisallow: /reset_password/\n"
	return c.String(http.StatusOK, body)
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he, ok := err.(*echo.HTTPError)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, views.NotFound(a.page(c)))
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
		_ = RenderStatus(c, code, views.ServerError(a.page(c)))
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}

// pathID parses a numeric path parameter; malformed ids are a 404, the same
// as ids that do not exist.
func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		return 0, echo.NewHTTPError(http.StatusNotFound)
	}
	return id, nil
}

// notFoundOr maps a missing row onto the framework 404; anything else is a
// real error.
func notFoundOr(err error) error {
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	return err
}
