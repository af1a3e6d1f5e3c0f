package bulletin

import "time"

// Permission is one entry in the closed set of capabilities a user account
// can hold. Ownership checks are separate: holding ManagePost does not allow
// editing someone else's post.
type Permission string

const (
	// PermCreatePost allows creating new posts.
	PermCreatePost Permission = "create_post"
	// PermManagePost allows editing and deleting the user's own posts.
	PermManagePost Permission = "manage_post"
	// PermAddComment allows commenting on posts.
	PermAddComment Permission = "add_comment"
	// PermDeleteComment allows deleting comments the user is a principal of.
	PermDeleteComment Permission = "delete_comment"
)

// AllPermissions lists every valid permission, in grant order.
var AllPermissions = []Permission{PermCreatePost, PermManagePost, PermAddComment, PermDeleteComment}

// User is an account that can author posts and comments.
type User struct {
	ID          int64
	Username    string
	Active      bool
	CreatedAt   time.Time
	Permissions []Permission
}

// Can reports whether the user holds the given permission.
func (u *User) Can(p Permission) bool {
	if u == nil {
		return false
	}
	for _, have := range u.Permissions {
		if have == p {
			return true
		}
	}
	return false
}

// Post is a top-level authored content item. Source holds the markup exactly
// as the author typed it and is what the edit form offers back; Body holds
// the HTML rendered from it at save time. PubDate doubles as a last-modified
// timestamp: editing a post refreshes it.
type Post struct {
	ID         int64
	Title      string
	Source     string
	Body       string
	PubDate    time.Time
	AuthorID   int64
	AuthorName string
}

// Comment is a reply to exactly one post. Comments are immutable after
// creation; they can only be deleted, by their author or the post's author.
type Comment struct {
	ID         int64
	PostID     int64
	AuthorID   int64
	AuthorName string
	Body       string
	PubDate    time.Time
}
