package bulletin

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/st0h/bulletin/views"
)

// handleCommentForm shows the comment form for a post. The parent post must
// exist before anything else is checked.
func (a *App) handleCommentForm(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	post, err := a.Store.GetPost(id)
	if err != nil {
		return notFoundOr(err)
	}

	user := a.sessionUser(c)
	if user == nil {
		flashError(c, "You must be signed in to post comments!")
		return redirect(c, "/login/")
	}
	if !user.Can(PermAddComment) {
		flashError(c, "You do not have permission to post comments!")
		return redirect(c, "/")
	}
	if err := armProbe(c); err != nil {
		return err
	}
	return Render(c, views.AddCommentForm(a.page(c), viewPost(post), views.CommentFormData{}))
}

// handleComment processes a comment submission, with the same ordered-check
// discipline as post creation and its own session budget.
func (a *App) handleComment(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	post, err := a.Store.GetPost(id)
	if err != nil {
		return notFoundOr(err)
	}

	var form commentForm
	if err := c.Bind(&form); err != nil {
		return err
	}
	entered := views.CommentFormData{Message: form.Message}

	user := a.sessionUser(c)
	if user == nil {
		flashError(c, "You must be signed in to post comments!")
		return redirect(c, "/login/")
	}
	if !user.Can(PermAddComment) {
		flashError(c, "You do not have permission to post comments!")
		return redirect(c, "/")
	}
	if !consumeProbe(c) {
		flashError(c, "You must have cookies enabled to post comments. Please check your browser settings and try again!")
		_ = armProbe(c)
		return Render(c, views.AddCommentForm(a.page(c), viewPost(post), entered))
	}
	if sessionCounter(c, keyNumComments) >= maxCommentsPerSession {
		flashError(c, fmt.Sprintf("You have commented too many times (%d) during this session! Please try again later.", maxCommentsPerSession))
		_ = armProbe(c)
		return Render(c, views.AddCommentForm(a.page(c), viewPost(post), entered))
	}
	if !form.valid() {
		flashError(c, "There was a problem submitting your comment. Please check your input and try again!")
		_ = armProbe(c)
		return Render(c, views.AddCommentForm(a.page(c), viewPost(post), entered))
	}

	if _, err := a.Store.CreateComment(id, user.ID, form.Message); err != nil {
		return err
	}
	// The comment exists at this point; a failed counter write only loses
	// abuse dampening and must not turn the request into an error.
	if err := bumpCounter(c, keyNumComments); err != nil {
		c.Logger().Errorf("comment counter not updated: %v", err)
	}
	a.stats.Delete(statsKey(user.ID))

	flashSuccess(c, "Your comment has been saved successfully!")
	return redirect(c, fmt.Sprintf("/view/%d/", id))
}

// handleDeleteComment removes a comment. Two principals may delete it: the
// comment's author and the parent post's author.
func (a *App) handleDeleteComment(c echo.Context) error {
	commentID, err := pathID(c, "comment_id")
	if err != nil {
		return err
	}
	postID, err := pathID(c, "post_id")
	if err != nil {
		return err
	}
	comment, err := a.Store.GetComment(commentID)
	if err != nil {
		return notFoundOr(err)
	}
	post, err := a.Store.GetPost(postID)
	if err != nil {
		return notFoundOr(err)
	}

	user := a.sessionUser(c)
	if user == nil {
		flashError(c, "You must be signed in to delete comments!")
		return redirect(c, "/login/")
	}
	if !user.Can(PermDeleteComment) {
		flashError(c, "You do not have permission to delete comments!")
		return redirect(c, fmt.Sprintf("/view/%d/", postID))
	}
	if user.ID != comment.AuthorID && user.ID != post.AuthorID {
		flashError(c, "You do not have permission to delete this comment!")
		return redirect(c, fmt.Sprintf("/view/%d/", postID))
	}

	if err := a.Store.DeleteComment(commentID); err != nil {
		return err
	}
	a.stats.Delete(statsKey(comment.AuthorID))

	flashSuccess(c, "Comment deleted!")
	return redirect(c, fmt.Sprintf("/view/%d/", postID))
}
