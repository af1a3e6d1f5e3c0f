package bulletin

import (
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	app := New(SiteConfig{
		Name:          "Testboard",
		DatabasePath:  filepath.Join(t.TempDir(), "app.db"),
		SessionSecret: "test-session-secret",
	})
	require.NoError(t, app.Init())
	t.Cleanup(func() { app.Close() })
	return app
}

// testClient drives the app over a real HTTP server with a cookie jar, so
// sessions, flashes and CSRF behave exactly as they do for a browser.
type testClient struct {
	t    *testing.T
	base string
	http *http.Client
}

func newTestClient(t *testing.T, app *App) *testClient {
	t.Helper()
	srv := httptest.NewServer(app.Echo)
	t.Cleanup(srv.Close)
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testClient{t: t, base: srv.URL, http: &http.Client{Jar: jar}}
}

// get fetches a path, following redirects, and returns the status, the path
// finally landed on, and the body.
func (tc *testClient) get(path string) (int, string, string) {
	tc.t.Helper()
	res, err := tc.http.Get(tc.base + path)
	require.NoError(tc.t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(tc.t, err)
	return res.StatusCode, res.Request.URL.Path, string(body)
}

var reCSRF = regexp.MustCompile(`name="_csrf" value="([^"]*)"`)

// submit loads formPath first, which arms the anti-automation probe and
// yields the CSRF token, then posts the form to actionPath.
func (tc *testClient) submit(formPath, actionPath string, form url.Values) (int, string, string) {
	tc.t.Helper()
	_, _, page := tc.get(formPath)
	m := reCSRF.FindStringSubmatch(page)
	if m == nil {
		// The form page redirected somewhere without a form; the login
		// page always carries a token for anonymous visitors.
		_, _, page = tc.get("/login/")
		m = reCSRF.FindStringSubmatch(page)
	}
	require.NotNil(tc.t, m, "no CSRF token found")
	form.Set("_csrf", m[1])

	res, err := tc.http.PostForm(tc.base+actionPath, form)
	require.NoError(tc.t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(tc.t, err)
	return res.StatusCode, res.Request.URL.Path, string(body)
}

func (tc *testClient) login(username, password string) (int, string, string) {
	tc.t.Helper()
	return tc.submit("/login/", "/login/", url.Values{
		"username": {username},
		"password": {password},
	})
}

func seedAppUser(t *testing.T, app *App, username string, perms ...Permission) *User {
	t.Helper()
	u, err := app.Store.CreateUser(username, "correct horse battery", perms...)
	require.NoError(t, err)
	return u
}

func TestAnonymousCreateRedirectsToLogin(t *testing.T) {
	app := newTestApp(t)
	tc := newTestClient(t, app)

	status, landed, body := tc.get("/create/")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "/login/", landed)
	assert.Contains(t, body, "You must be signed in to create posts!")
}

func TestLoginAndCreatePost(t *testing.T) {
	app := newTestApp(t)
	u := seedAppUser(t, app, "alice", AllPermissions...)
	tc := newTestClient(t, app)

	_, landed, body := tc.login("alice", "correct horse battery")
	assert.Equal(t, "/", landed)
	assert.Contains(t, body, "You have signed in successfully!")

	status, _, body := tc.get("/create/")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "New post")

	_, landed, body = tc.submit("/create/", "/create/", url.Values{
		"title":   {"Hello"},
		"message": {"**world**"},
	})
	assert.Equal(t, "/", landed)
	assert.Contains(t, body, "Your post was saved successfully!")
	assert.Contains(t, body, "Hello")

	posts, err := app.Store.ListPosts(10, 0)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "Hello", posts[0].Title)
	assert.Equal(t, "**world**", posts[0].Source)
	assert.Contains(t, posts[0].Body, "<strong>world</strong>")
	assert.Equal(t, u.ID, posts[0].AuthorID)
	assert.WithinDuration(t, time.Now(), posts[0].PubDate, 5*time.Second)
}

func TestLoginAttemptsCapped(t *testing.T) {
	app := newTestApp(t)
	seedAppUser(t, app, "alice", AllPermissions...)
	tc := newTestClient(t, app)

	for i := 0; i < 3; i++ {
		_, landed, body := tc.login("alice", "wrong password")
		assert.Equal(t, "/login/", landed)
		assert.Contains(t, body, "Username or password incorrect!")
	}

	// The fourth attempt is rejected before credentials are even checked,
	// so the correct password does not help.
	_, landed, body := tc.login("alice", "correct horse battery")
	assert.Equal(t, "/login/", landed)
	assert.Contains(t, body, "You have attempted to sign in too many times (3)!")

	_, landed, _ = tc.get("/create/")
	assert.Equal(t, "/login/", landed, "user must still be anonymous")
}

func TestCreateWithoutPermission(t *testing.T) {
	app := newTestApp(t)
	seedAppUser(t, app, "bob", PermAddComment)
	tc := newTestClient(t, app)
	tc.login("bob", "correct horse battery")

	_, landed, body := tc.get("/create/")
	assert.Equal(t, "/", landed)
	assert.Contains(t, body, "You do not have permission to post messages!")
}

func TestEditOtherUsersPostForbidden(t *testing.T) {
	app := newTestApp(t)
	alice := seedAppUser(t, app, "alice", AllPermissions...)
	seedAppUser(t, app, "bob", AllPermissions...)
	postID, err := app.Store.CreatePost(alice.ID, "Hers", "original", "<p>original</p>")
	require.NoError(t, err)

	tc := newTestClient(t, app)
	tc.login("bob", "correct horse battery")

	// Bob holds the manage permission, but the post is not his.
	_, landed, body := tc.submit("/about/", fmt.Sprintf("/edit/%d/", postID), url.Values{
		"title":   {"Mine now"},
		"message": {"replaced"},
		"submit":  {"save"},
	})
	assert.Equal(t, fmt.Sprintf("/view/%d/", postID), landed)
	assert.Contains(t, body, "You can only edit your own posts!")

	post, err := app.Store.GetPost(postID)
	require.NoError(t, err)
	assert.Equal(t, "Hers", post.Title)
	assert.Equal(t, "<p>original</p>", post.Body)
}

func TestDeletePostCascades(t *testing.T) {
	app := newTestApp(t)
	alice := seedAppUser(t, app, "alice", AllPermissions...)
	bob := seedAppUser(t, app, "bob", AllPermissions...)
	postID, err := app.Store.CreatePost(alice.ID, "Short lived", "x", "<p>x</p>")
	require.NoError(t, err)
	_, err = app.Store.CreateComment(postID, bob.ID, "first!")
	require.NoError(t, err)

	tc := newTestClient(t, app)
	tc.login("alice", "correct horse battery")

	_, landed, body := tc.submit(fmt.Sprintf("/edit/%d/", postID), fmt.Sprintf("/edit/%d/", postID), url.Values{
		"submit": {"delete"},
	})
	assert.Equal(t, "/", landed)
	assert.Contains(t, body, "Post deleted: Short lived")

	_, err = app.Store.GetPost(postID)
	assert.ErrorIs(t, err, ErrNotFound)
	n, err := app.Store.CountComments(postID)
	require.NoError(t, err)
	assert.Zero(t, n, "comments must be cascaded away")
}

func TestDeleteCommentPrincipals(t *testing.T) {
	app := newTestApp(t)
	alice := seedAppUser(t, app, "alice", AllPermissions...)
	bob := seedAppUser(t, app, "bob", AllPermissions...)
	seedAppUser(t, app, "carol", AllPermissions...)
	postID, err := app.Store.CreatePost(alice.ID, "Post", "x", "<p>x</p>")
	require.NoError(t, err)

	deletePath := func(commentID int64) string {
		return fmt.Sprintf("/comment/delete/%d/%d/", commentID, postID)
	}

	// Carol holds the delete permission but is neither the comment's nor
	// the post's author.
	commentID, err := app.Store.CreateComment(postID, bob.ID, "bob's comment")
	require.NoError(t, err)
	carol := newTestClient(t, app)
	carol.login("carol", "correct horse battery")
	_, _, body := carol.submit("/about/", deletePath(commentID), url.Values{})
	assert.Contains(t, body, "You do not have permission to delete this comment!")
	_, err = app.Store.GetComment(commentID)
	require.NoError(t, err, "comment must survive")

	// The comment's author may delete it.
	bobClient := newTestClient(t, app)
	bobClient.login("bob", "correct horse battery")
	_, _, body = bobClient.submit("/about/", deletePath(commentID), url.Values{})
	assert.Contains(t, body, "Comment deleted!")
	_, err = app.Store.GetComment(commentID)
	assert.ErrorIs(t, err, ErrNotFound)

	// The post's author may delete anyone's comment on their post.
	commentID, err = app.Store.CreateComment(postID, bob.ID, "another")
	require.NoError(t, err)
	aliceClient := newTestClient(t, app)
	aliceClient.login("alice", "correct horse battery")
	_, _, body = aliceClient.submit("/about/", deletePath(commentID), url.Values{})
	assert.Contains(t, body, "Comment deleted!")
	_, err = app.Store.GetComment(commentID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCommentFlow(t *testing.T) {
	app := newTestApp(t)
	alice := seedAppUser(t, app, "alice", AllPermissions...)
	seedAppUser(t, app, "bob", AllPermissions...)
	postID, err := app.Store.CreatePost(alice.ID, "Post", "x", "<p>x</p>")
	require.NoError(t, err)

	tc := newTestClient(t, app)
	tc.login("bob", "correct horse battery")

	commentPath := fmt.Sprintf("/comment/%d/", postID)
	_, landed, body := tc.submit(commentPath, commentPath, url.Values{
		"message": {"nice post"},
	})
	assert.Equal(t, fmt.Sprintf("/view/%d/", postID), landed)
	assert.Contains(t, body, "Your comment has been saved successfully!")
	assert.Contains(t, body, "nice post")
	assert.Contains(t, body, "Comments (1)")
}

func TestPostSessionRateLimit(t *testing.T) {
	if testing.Short() {
		t.Skip("drives 100 posts through the server")
	}
	app := newTestApp(t)
	seedAppUser(t, app, "alice", AllPermissions...)
	tc := newTestClient(t, app)
	tc.login("alice", "correct horse battery")

	for i := 0; i < maxPostsPerSession; i++ {
		_, landed, _ := tc.submit("/create/", "/create/", url.Values{
			"title":   {fmt.Sprintf("post %d", i)},
			"message": {"body"},
		})
		require.Equal(t, "/", landed)
	}

	// The 101st attempt is rejected regardless of form validity.
	status, _, body := tc.submit("/create/", "/create/", url.Values{
		"title":   {"one too many"},
		"message": {"body"},
	})
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "You have posted too many times (100) during this session!")

	n, err := app.Store.CountPosts()
	require.NoError(t, err)
	assert.Equal(t, maxPostsPerSession, n)
}

func TestCookieProbeRequired(t *testing.T) {
	app := newTestApp(t)
	seedAppUser(t, app, "alice", AllPermissions...)
	tc := newTestClient(t, app)
	tc.login("alice", "correct horse battery")

	// Posting without loading the form first means the probe was never
	// armed; /about/ only supplies the CSRF token.
	status, _, body := tc.submit("/about/", "/create/", url.Values{
		"title":   {"sneaky"},
		"message": {"scripted"},
	})
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "You must have cookies enabled to post.")
	n, err := app.Store.CountPosts()
	require.NoError(t, err)
	assert.Zero(t, n)

	// Loading the form arms the probe and the same submission goes through.
	_, landed, _ := tc.submit("/create/", "/create/", url.Values{
		"title":   {"sneaky"},
		"message": {"scripted"},
	})
	assert.Equal(t, "/", landed)
	n, err = app.Store.CountPosts()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestResetPasswordTooShort(t *testing.T) {
	app := newTestApp(t)
	seedAppUser(t, app, "bob", AllPermissions...)
	tc := newTestClient(t, app)
	tc.login("bob", "correct horse battery")

	_, landed, body := tc.submit("/reset_password/", "/reset_password/", url.Values{
		"password1": {"seven77"},
		"password2": {"seven77"},
	})
	assert.Equal(t, "/reset_password/", landed)
	assert.Contains(t, body, "Passwords must be a minimum of 8 characters!")

	_, err := app.Store.Authenticate("bob", "correct horse battery")
	assert.NoError(t, err, "credential must be unchanged")
}

func TestResetPasswordMismatch(t *testing.T) {
	app := newTestApp(t)
	seedAppUser(t, app, "bob", AllPermissions...)
	tc := newTestClient(t, app)
	tc.login("bob", "correct horse battery")

	_, landed, body := tc.submit("/reset_password/", "/reset_password/", url.Values{
		"password1": {"long enough one"},
		"password2": {"long enough two"},
	})
	assert.Equal(t, "/reset_password/", landed)
	assert.Contains(t, body, "The password values entered do not match. Please try again!")
}

func TestResetPasswordEndsSession(t *testing.T) {
	app := newTestApp(t)
	seedAppUser(t, app, "bob", AllPermissions...)
	tc := newTestClient(t, app)
	tc.login("bob", "correct horse battery")

	_, landed, body := tc.submit("/reset_password/", "/reset_password/", url.Values{
		"password1": {"a better password"},
		"password2": {"a better password"},
	})
	assert.Equal(t, "/login/", landed)
	assert.Contains(t, body, "You have successfully changed your password.")

	_, landed, _ = tc.get("/create/")
	assert.Equal(t, "/login/", landed, "old session must be terminated")

	_, err := app.Store.Authenticate("bob", "a better password")
	assert.NoError(t, err)
}

func TestLogout(t *testing.T) {
	app := newTestApp(t)
	seedAppUser(t, app, "alice", AllPermissions...)
	tc := newTestClient(t, app)
	tc.login("alice", "correct horse battery")

	_, landed, body := tc.submit("/about/", "/logout/", url.Values{})
	assert.Equal(t, "/", landed)
	assert.Contains(t, body, "You have signed out successfully!")

	_, landed, _ = tc.get("/create/")
	assert.Equal(t, "/login/", landed)
}

func TestAlreadySignedInLogin(t *testing.T) {
	app := newTestApp(t)
	seedAppUser(t, app, "alice", AllPermissions...)
	tc := newTestClient(t, app)
	tc.login("alice", "correct horse battery")

	_, landed, body := tc.get("/login/")
	assert.Equal(t, "/", landed)
	assert.Contains(t, body, "You are already signed in!")
}

func TestViewMissingPostIs404(t *testing.T) {
	app := newTestApp(t)
	tc := newTestClient(t, app)

	status, _, body := tc.get("/view/9999/")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body, "Page not found")
}

var reTextarea = regexp.MustCompile(`(?s)<textarea[^>]*>(.*?)</textarea>`)

func TestEditRoundTripKeepsFormatting(t *testing.T) {
	app := newTestApp(t)
	seedAppUser(t, app, "alice", AllPermissions...)
	tc := newTestClient(t, app)
	tc.login("alice", "correct horse battery")

	tc.submit("/create/", "/create/", url.Values{
		"title":   {"Hello"},
		"message": {"**world**"},
	})
	posts, err := app.Store.ListPosts(1, 0)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	post := posts[0]
	assert.Equal(t, "**world**", post.Source)
	assert.Contains(t, post.Body, "<strong>world</strong>")

	// The form must offer the author's markup, not the rendered HTML.
	editPath := fmt.Sprintf("/edit/%d/", post.ID)
	_, _, page := tc.get(editPath)
	m := reTextarea.FindStringSubmatch(page)
	require.NotNil(t, m, "edit form must contain the message textarea")
	prefill := html.UnescapeString(m[1])
	assert.Equal(t, "**world**", prefill)

	// Resubmitting exactly what the form offered must change nothing.
	_, landed, _ := tc.submit(editPath, editPath, url.Values{
		"title":   {post.Title},
		"message": {prefill},
		"submit":  {"save"},
	})
	assert.Equal(t, fmt.Sprintf("/view/%d/", post.ID), landed)

	after, err := app.Store.GetPost(post.ID)
	require.NoError(t, err)
	assert.Equal(t, "**world**", after.Source)
	assert.Contains(t, after.Body, "<strong>world</strong>")
	assert.NotContains(t, after.Body, "&lt;")
}

func TestUserProfileAllDigitUsername(t *testing.T) {
	app := newTestApp(t)
	u := seedAppUser(t, app, "12345", AllPermissions...)
	require.NotEqual(t, int64(12345), u.ID, "row id must differ for the fallback to matter")

	tc := newTestClient(t, app)
	status, _, body := tc.get("/user/12345/")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "12345")
}

// brokenSessionStore serves a pre-authenticated session whose writes always
// fail, the way an oversized cookie does.
type brokenSessionStore struct{ userID int64 }

func (s *brokenSessionStore) Get(r *http.Request, name string) (*sessions.Session, error) {
	return sessions.GetRegistry(r).Get(s, name)
}

func (s *brokenSessionStore) New(r *http.Request, name string) (*sessions.Session, error) {
	sess := sessions.NewSession(s, name)
	sess.Values[keyUserID] = s.userID
	sess.Values[keyCookieProbe] = true
	return sess, nil
}

func (s *brokenSessionStore) Save(*http.Request, http.ResponseWriter, *sessions.Session) error {
	return errors.New("session cookie not written")
}

func TestCreateSucceedsWhenCounterWriteFails(t *testing.T) {
	app := newTestApp(t)
	u := seedAppUser(t, app, "alice", AllPermissions...)
	store := &brokenSessionStore{userID: u.ID}

	postReq := func(target string, form url.Values) (*httptest.ResponseRecorder, echo.Context) {
		req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
		rec := httptest.NewRecorder()
		return rec, app.Echo.NewContext(req, rec)
	}

	// The row is inserted before the counter write; a session failure after
	// that point must not turn the created post into an error response.
	rec, c := postReq("/create/", url.Values{"title": {"Kept"}, "message": {"body"}})
	h := session.Middleware(store)(app.handleCreate)
	require.NoError(t, h(c))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))

	posts, err := app.Store.ListPosts(1, 0)
	require.NoError(t, err)
	require.Len(t, posts, 1)

	// Same discipline for comments.
	rec, c = postReq(fmt.Sprintf("/comment/%d/", posts[0].ID), url.Values{"message": {"still here"}})
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprintf("%d", posts[0].ID))
	h = session.Middleware(store)(app.handleComment)
	require.NoError(t, h(c))
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	n, err := app.Store.CountComments(posts[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestUserProfileBothLookupKeys(t *testing.T) {
	app := newTestApp(t)
	alice := seedAppUser(t, app, "alice", AllPermissions...)
	_, err := app.Store.CreatePost(alice.ID, "Only post", "x", "<p>x</p>")
	require.NoError(t, err)

	tc := newTestClient(t, app)
	byID, _, bodyID := tc.get(fmt.Sprintf("/user/%d/", alice.ID))
	byName, _, bodyName := tc.get("/user/alice/")

	assert.Equal(t, http.StatusOK, byID)
	assert.Equal(t, http.StatusOK, byName)
	for _, body := range []string{bodyID, bodyName} {
		assert.Contains(t, body, "alice")
		assert.Contains(t, body, "1 posts, 0 comments.")
		assert.Contains(t, body, "Only post")
	}

	status, _, _ := tc.get("/user/nobody/")
	assert.Equal(t, http.StatusNotFound, status)
}
