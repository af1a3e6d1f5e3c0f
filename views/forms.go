package views

import (
	"fmt"
	"strings"

	"github.com/a-h/templ"
)

// CreatePostForm is the new-post form. On validation failure the handler
// re-renders it with the entered values intact.
func CreatePostForm(p Page, form PostFormData) templ.Component {
	return layout(p, "New post", func(b *strings.Builder) {
		b.WriteString("<h1>New post</h1>\n")
		b.WriteString("<form method=\"post\" action=\"/create/\">\n")
		writeCSRF(b, p.CSRF)
		writePostFields(b, form)
		b.WriteString("<button type=\"submit\">Save post</button>\n")
		b.WriteString("</form>\n")
	})
}

// EditPostForm is the edit form, pre-filled with the post's current title and
// the markup the author typed, never the rendered HTML. Update and delete
// share the form, discriminated by the submit button value.
func EditPostForm(p Page, postID int64, form PostFormData) templ.Component {
	return layout(p, "Edit post", func(b *strings.Builder) {
		b.WriteString("<h1>Edit post</h1>\n")
		fmt.Fprintf(b, "<form method=\"post\" action=\"/edit/%d/\">\n", postID)
		writeCSRF(b, p.CSRF)
		writePostFields(b, form)
		b.WriteString("<button type=\"submit\" name=\"submit\" value=\"save\">Save changes</button>\n")
		b.WriteString("<button type=\"submit\" name=\"submit\" value=\"delete\" class=\"danger\">Delete this post!</button>\n")
		b.WriteString("</form>\n")
	})
}

func writePostFields(b *strings.Builder, form PostFormData) {
	b.WriteString("<label for=\"title\">Title (100 characters maximum)</label>\n")
	fmt.Fprintf(b, "<input type=\"text\" id=\"title\" name=\"title\" maxlength=\"100\" required value=\"%s\">\n", esc(form.Title))
	b.WriteString("<label for=\"message\">Enter your message here (25,000 characters maximum)</label>\n")
	fmt.Fprintf(b, "<textarea id=\"message\" name=\"message\" maxlength=\"25000\" required>%s</textarea>\n", esc(form.Message))
}

// AddCommentForm is the comment form for one post.
func AddCommentForm(p Page, post Post, form CommentFormData) templ.Component {
	return layout(p, "Add a comment", func(b *strings.Builder) {
		fmt.Fprintf(b, "<h1>Comment on &ldquo;%s&rdquo;</h1>\n", esc(post.Title))
		fmt.Fprintf(b, "<form method=\"post\" action=\"/comment/%d/\">\n", post.ID)
		writeCSRF(b, p.CSRF)
		b.WriteString("<label for=\"message\">Enter your comment here (1,000 characters maximum)</label>\n")
		fmt.Fprintf(b, "<textarea id=\"message\" name=\"message\" maxlength=\"1000\" required>%s</textarea>\n", esc(form.Message))
		b.WriteString("<button type=\"submit\">Save comment</button>\n")
		b.WriteString("</form>\n")
	})
}

// LoginForm is the sign-in form. Failed attempts redirect back here, so
// entered values are not preserved.
func LoginForm(p Page) templ.Component {
	return layout(p, "Sign in", func(b *strings.Builder) {
		b.WriteString("<h1>Sign in</h1>\n")
		b.WriteString("<form method=\"post\" action=\"/login/\">\n")
		writeCSRF(b, p.CSRF)
		b.WriteString("<label for=\"username\">Username</label>\n")
		b.WriteString("<input type=\"text\" id=\"username\" name=\"username\" maxlength=\"150\" required>\n")
		b.WriteString("<label for=\"password\">Password</label>\n")
		b.WriteString("<input type=\"password\" id=\"password\" name=\"password\" maxlength=\"255\" required>\n")
		b.WriteString("<button type=\"submit\">Sign in</button>\n")
		b.WriteString("</form>\n")
	})
}

// ResetPasswordForm is the credential-change form for signed-in users.
func ResetPasswordForm(p Page) templ.Component {
	return layout(p, "Change password", func(b *strings.Builder) {
		b.WriteString("<h1>Change password</h1>\n")
		b.WriteString("<form method=\"post\" action=\"/reset_password/\">\n")
		writeCSRF(b, p.CSRF)
		b.WriteString("<label for=\"password1\">Enter your new password here (255 characters maximum)</label>\n")
		b.WriteString("<input type=\"password\" id=\"password1\" name=\"password1\" maxlength=\"255\" required>\n")
		b.WriteString("<label for=\"password2\">Password (confirm)</label>\n")
		b.WriteString("<input type=\"password\" id=\"password2\" name=\"password2\" maxlength=\"255\" required>\n")
		b.WriteString("<button type=\"submit\">Change password</button>\n")
		b.WriteString("</form>\n")
	})
}
