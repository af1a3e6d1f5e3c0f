package views

import "time"

// Page carries the per-request data every template needs.
type Page struct {
	SiteName string
	User     *User // nil when the visitor is anonymous
	Flashes  []Flash
	CSRF     string
}

// SignedIn reports whether the page is being rendered for an authenticated user.
func (p Page) SignedIn() bool {
	return p.User != nil
}

// User identifies the signed-in account in the navigation bar.
type User struct {
	ID       int64
	Username string
}

// Flash is a categorized one-shot message shown at the top of the page.
type Flash struct {
	Kind string // "success" or "error"
	Text string
}

// Post is the display shape of a post. BodyHTML is trusted markup rendered
// from the author's input at save time; everything else is escaped.
type Post struct {
	ID         int64
	Title      string
	BodyHTML   string
	PubDate    time.Time
	AuthorID   int64
	AuthorName string
}

// Comment is the display shape of a comment. Body is plain text and is
// escaped when rendered.
type Comment struct {
	ID         int64
	PostID     int64
	AuthorID   int64
	AuthorName string
	Body       string
	PubDate    time.Time
}

// Profile is the display shape of a user profile page.
type Profile struct {
	ID           int64
	Username     string
	Joined       time.Time
	PostCount    int
	CommentCount int
}

// Pagination describes the current position in a paginated listing.
type Pagination struct {
	Page  int
	Pages int
}

// HasPrev reports whether an earlier page exists.
func (pg Pagination) HasPrev() bool { return pg.Page > 1 }

// HasNext reports whether a later page exists.
func (pg Pagination) HasNext() bool { return pg.Page < pg.Pages }

// PostFormData pre-fills the create/edit post form, preserving entered
// values across validation failures.
type PostFormData struct {
	Title   string
	Message string
}

// CommentFormData pre-fills the comment form.
type CommentFormData struct {
	Message string
}
