package bulletin

import (
	"encoding/gob"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
)

const sessionName = "bulletin_session"

// Session value keys. Counters accumulate for the lifetime of the session
// and are never explicitly zeroed mid-session; they reset only when the
// session ends (expiry, logout, password reset).
const (
	keyUserID        = "user_id"
	keyNumPosts      = "num_posts"
	keyNumComments   = "num_comments"
	keyLoginAttempts = "login_attempts"
	keyCookieProbe   = "cookie_probe"
)

// Per-session caps. Exceeding one blocks the action until the session ends.
const (
	maxPostsPerSession    = 100
	maxCommentsPerSession = 1000
	maxLoginAttempts      = 3
)

// Flash is a one-shot user-facing message carried in the session and shown
// on the next rendered page.
type Flash struct {
	Kind string // "success" or "error"
	Text string
}

func init() {
	// Flashes are gob-encoded into the session cookie.
	gob.Register(Flash{})
}

func (a *App) newSessionStore() *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(a.Config.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		MaxAge:   60 * 60 * 12,
		SameSite: http.SameSiteLaxMode,
		Secure:   a.Config.CookieSecure,
	}
	return store
}

func getSession(c echo.Context) *sessions.Session {
	// session.Get only fails on an undecodable cookie, in which case it
	// still hands back a fresh session.
	sess, _ := session.Get(sessionName, c)
	return sess
}

func saveSession(c echo.Context, sess *sessions.Session) error {
	return sess.Save(c.Request(), c.Response())
}

// sessionUser resolves the session's user id to an account. It returns nil
// for anonymous sessions, unknown ids and deactivated accounts, so a non-nil
// result is always an authenticated, active user.
func (a *App) sessionUser(c echo.Context) *User {
	sess := getSession(c)
	id, ok := sess.Values[keyUserID].(int64)
	if !ok || id == 0 {
		return nil
	}
	u, err := a.Store.GetUserByID(id)
	if err != nil || !u.Active {
		return nil
	}
	return u
}

// signIn binds the session to the user. Counters accumulated before signing
// in carry over; the session itself is what they are scoped to.
func signIn(c echo.Context, u *User) error {
	sess := getSession(c)
	sess.Values[keyUserID] = u.ID
	return saveSession(c, sess)
}

// signOut drops the session identity and counters but keeps the session
// alive so the flash message queued after it still reaches the user.
func signOut(c echo.Context) error {
	sess := getSession(c)
	delete(sess.Values, keyUserID)
	delete(sess.Values, keyNumPosts)
	delete(sess.Values, keyNumComments)
	delete(sess.Values, keyLoginAttempts)
	delete(sess.Values, keyCookieProbe)
	return saveSession(c, sess)
}

// sessionCounter reads an int counter from the session.
func sessionCounter(c echo.Context, key string) int {
	sess := getSession(c)
	n, _ := sess.Values[key].(int)
	return n
}

// bumpCounter increments a session counter. The read-modify-write is not
// atomic across concurrent requests on one session; that race is accepted,
// cookie-backed sessions have no server-side state to lock.
func bumpCounter(c echo.Context, key string) error {
	sess := getSession(c)
	n, _ := sess.Values[key].(int)
	sess.Values[key] = n + 1
	return saveSession(c, sess)
}

// armProbe plants the anti-automation marker. The marker is set when a form
// page is served and must come back in the session cookie on the submission;
// a client that never stored the cookie cannot pass the check.
func armProbe(c echo.Context) error {
	sess := getSession(c)
	sess.Values[keyCookieProbe] = true
	return saveSession(c, sess)
}

// consumeProbe reports whether the marker round-tripped, and clears it so
// every submission needs a fresh form load.
func consumeProbe(c echo.Context) bool {
	sess := getSession(c)
	armed, _ := sess.Values[keyCookieProbe].(bool)
	if armed {
		delete(sess.Values, keyCookieProbe)
	}
	return armed
}

func flashSuccess(c echo.Context, text string) {
	addFlash(c, Flash{Kind: "success", Text: text})
}

func flashError(c echo.Context, text string) {
	addFlash(c, Flash{Kind: "error", Text: text})
}

func addFlash(c echo.Context, f Flash) {
	sess := getSession(c)
	sess.AddFlash(f)
	// Saving here covers redirects, where no render pops the flashes.
	_ = saveSession(c, sess)
}

// popFlashes drains queued flash messages for display on the current page.
func popFlashes(c echo.Context) []Flash {
	sess := getSession(c)
	raw := sess.Flashes()
	if len(raw) == 0 {
		return nil
	}
	flashes := make([]Flash, 0, len(raw))
	for _, v := range raw {
		if f, ok := v.(Flash); ok {
			flashes = append(flashes, f)
		}
	}
	_ = saveSession(c, sess)
	return flashes
}
