package views

import (
	"fmt"
	"strings"

	"github.com/a-h/templ"
)

// Index is the paginated front page, newest posts first.
func Index(p Page, posts []Post, pg Pagination) templ.Component {
	return layout(p, "Latest posts", func(b *strings.Builder) {
		b.WriteString("<h1>Latest posts</h1>\n")
		if len(posts) == 0 {
			b.WriteString("<p>Nothing has been posted yet.</p>\n")
			return
		}
		for _, post := range posts {
			b.WriteString("<article class=\"post-summary\">\n")
			fmt.Fprintf(b, "<h2><a href=\"/view/%d/\">%s</a></h2>\n", post.ID, esc(post.Title))
			fmt.Fprintf(b, "<p class=\"byline\">by <a href=\"/user/%d/\">%s</a> on %s</p>\n",
				post.AuthorID, esc(post.AuthorName), esc(formatDate(post.PubDate)))
			b.WriteString("</article>\n")
		}
		pageLinks(b, "/", pg)
	})
}

// PostPage is a full post with its paginated comments, oldest comment first.
func PostPage(p Page, post Post, comments []Comment, commentCount int, pg Pagination) templ.Component {
	return layout(p, post.Title, func(b *strings.Builder) {
		b.WriteString("<article class=\"post\">\n")
		fmt.Fprintf(b, "<h1>%s</h1>\n", esc(post.Title))
		fmt.Fprintf(b, "<p class=\"byline\">by <a href=\"/user/%d/\">%s</a> on %s</p>\n",
			post.AuthorID, esc(post.AuthorName), esc(formatDate(post.PubDate)))
		// BodyHTML was rendered from the author's markup at save time.
		b.WriteString("<div class=\"post-body\">\n")
		b.WriteString(post.BodyHTML)
		b.WriteString("\n</div>\n")
		if p.SignedIn() && p.User.ID == post.AuthorID {
			fmt.Fprintf(b, "<p><a href=\"/edit/%d/\">Edit or delete this post</a></p>\n", post.ID)
		}
		b.WriteString("</article>\n")

		fmt.Fprintf(b, "<h2>Comments (%d)</h2>\n", commentCount)
		fmt.Fprintf(b, "<p><a href=\"/comment/%d/\">Add a comment</a></p>\n", post.ID)
		for _, cm := range comments {
			b.WriteString("<div class=\"comment\">\n")
			fmt.Fprintf(b, "<p class=\"byline\"><a href=\"/user/%d/\">%s</a> on %s</p>\n",
				cm.AuthorID, esc(cm.AuthorName), esc(formatDate(cm.PubDate)))
			fmt.Fprintf(b, "<p>%s</p>\n", esc(cm.Body))
			if p.SignedIn() && (p.User.ID == cm.AuthorID || p.User.ID == post.AuthorID) {
				fmt.Fprintf(b, "<form class=\"inline\" method=\"post\" action=\"/comment/delete/%d/%d/\">", cm.ID, post.ID)
				writeCSRF(b, p.CSRF)
				b.WriteString("<button type=\"submit\">Delete</button></form>\n")
			}
			b.WriteString("</div>\n")
		}
		pageLinks(b, fmt.Sprintf("/view/%d/", post.ID), pg)
	})
}

// UserProfile shows a user's five most recent posts and activity totals.
// The id and username routes both land here with the same shape.
func UserProfile(p Page, profile Profile, posts []Post) templ.Component {
	return layout(p, profile.Username, func(b *strings.Builder) {
		fmt.Fprintf(b, "<h1>%s</h1>\n", esc(profile.Username))
		fmt.Fprintf(b, "<p>Joined %s.</p>\n", esc(formatDate(profile.Joined)))
		fmt.Fprintf(b, "<p>%d posts, %d comments.</p>\n", profile.PostCount, profile.CommentCount)
		b.WriteString("<h2>Recent posts</h2>\n")
		if len(posts) == 0 {
			b.WriteString("<p>No posts yet.</p>\n")
			return
		}
		b.WriteString("<ul>\n")
		for _, post := range posts {
			fmt.Fprintf(b, "<li><a href=\"/view/%d/\">%s</a> — %s</li>\n",
				post.ID, esc(post.Title), esc(formatDate(post.PubDate)))
		}
		b.WriteString("</ul>\n")
	})
}

// About is the static informational page.
func About(p Page) templ.Component {
	return layout(p, "About", func(b *strings.Builder) {
		b.WriteString("<h1>About</h1>\n")
		fmt.Fprintf(b, "<p>%s is a small forum: sign in, write posts, and comment on what others have written.</p>\n", esc(p.SiteName))
		b.WriteString("<p>Post bodies support a lightweight markup syntax for bold, italics, links, lists and code.</p>\n")
	})
}

// TOS is the terms of service and privacy page.
func TOS(p Page) templ.Component {
	return layout(p, "Terms of service", func(b *strings.Builder) {
		b.WriteString("<h1>Terms of service</h1>\n")
		b.WriteString("<p>Be civil. You are responsible for what you post. Accounts that abuse the service may be deactivated.</p>\n")
		b.WriteString("<h2>Privacy</h2>\n")
		b.WriteString("<p>A session cookie keeps you signed in and carries per-session counters. No other tracking is performed.</p>\n")
	})
}
