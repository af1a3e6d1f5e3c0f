package bulletin

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/st0h/bulletin/markdown"
	"github.com/st0h/bulletin/views"
)

// handleCreateForm shows the new-post form. The anti-automation probe is
// armed here so the submission can prove the browser kept the cookie.
func (a *App) handleCreateForm(c echo.Context) error {
	user := a.sessionUser(c)
	if user == nil {
		flashError(c, "You must be signed in to create posts!")
		return redirect(c, "/login/")
	}
	if !user.Can(PermCreatePost) {
		flashError(c, "You do not have permission to post messages!")
		return redirect(c, "/")
	}
	if err := armProbe(c); err != nil {
		return err
	}
	return Render(c, views.CreatePostForm(a.page(c), views.PostFormData{}))
}

// handleCreate processes a new-post submission. The checks run in strict
// order and the first failure wins: authentication, permission, cookie
// probe, session rate limit, validation.
func (a *App) handleCreate(c echo.Context) error {
	var form postForm
	if err := c.Bind(&form); err != nil {
		return err
	}
	entered := views.PostFormData{Title: form.Title, Message: form.Message}

	user := a.sessionUser(c)
	if user == nil {
		flashError(c, "You must be signed in to create posts!")
		return redirect(c, "/login/")
	}
	if !user.Can(PermCreatePost) {
		flashError(c, "You do not have permission to post messages!")
		return redirect(c, "/")
	}
	if !consumeProbe(c) {
		flashError(c, "You must have cookies enabled to post. Please check your browser settings and try again!")
		_ = armProbe(c)
		return Render(c, views.CreatePostForm(a.page(c), entered))
	}
	if sessionCounter(c, keyNumPosts) >= maxPostsPerSession {
		flashError(c, fmt.Sprintf("You have posted too many times (%d) during this session! Please try again later.", maxPostsPerSession))
		_ = armProbe(c)
		return Render(c, views.CreatePostForm(a.page(c), entered))
	}
	if !form.valid() {
		flashError(c, "There was a problem saving your post. Please check your input and try again!")
		_ = armProbe(c)
		return Render(c, views.CreatePostForm(a.page(c), entered))
	}

	body := markdown.Render(form.Message)
	if _, err := a.Store.CreatePost(user.ID, form.Title, form.Message, body); err != nil {
		return err
	}
	// The post exists at this point; a failed counter write only loses
	// abuse dampening and must not turn the request into an error.
	if err := bumpCounter(c, keyNumPosts); err != nil {
		c.Logger().Errorf("post counter not updated: %v", err)
	}
	a.invalidatePostCaches(user.ID)

	flashSuccess(c, "Your post was saved successfully!")
	return redirect(c, "/")
}

// handleEditForm shows the edit form for a post, pre-filled with the post's
// current title and the markup the author originally typed, so saving
// without changes is lossless. Edits are strictly self-service: holding
// the manage permission is not enough, the post must be the user's own.
func (a *App) handleEditForm(c echo.Context) error {
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
		flashError(c, "You must be signed in to edit posts!")
		return redirect(c, "/login/")
	}
	if !user.Can(PermManagePost) {
		flashError(c, "You do not have permission to edit posts!")
		return redirect(c, fmt.Sprintf("/view/%d/", id))
	}
	if user.ID != post.AuthorID {
		flashError(c, "You can only change your own posts!")
		return redirect(c, fmt.Sprintf("/view/%d/", id))
	}
	if err := armProbe(c); err != nil {
		return err
	}
	return Render(c, views.EditPostForm(a.page(c), id, views.PostFormData{Title: post.Title, Message: post.Source}))
}

// handleEdit processes an edit-or-delete submission; the submit button value
// discriminates the two actions. Both run the same authentication,
// permission and ownership checks.
func (a *App) handleEdit(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	post, err := a.Store.GetPost(id)
	if err != nil {
		return notFoundOr(err)
	}

	if c.FormValue("submit") == "delete" {
		return a.deletePost(c, post)
	}

	var form postForm
	if err := c.Bind(&form); err != nil {
		return err
	}
	entered := views.PostFormData{Title: form.Title, Message: form.Message}

	user := a.sessionUser(c)
	if user == nil {
		flashError(c, "You must be signed in to edit posts!")
		return redirect(c, "/login/")
	}
	if !user.Can(PermManagePost) {
		flashError(c, "You do not have permission to edit posts!")
		return redirect(c, fmt.Sprintf("/view/%d/", id))
	}
	if user.ID != post.AuthorID {
		flashError(c, "You can only edit your own posts!")
		return redirect(c, fmt.Sprintf("/view/%d/", id))
	}
	if !consumeProbe(c) {
		flashError(c, "You must have cookies enabled to post. Please check your browser settings and try again!")
		_ = armProbe(c)
		return Render(c, views.EditPostForm(a.page(c), id, entered))
	}
	if !form.valid() {
		flashError(c, "There was a problem modifying this post. Please check your input and try again!")
		_ = armProbe(c)
		return Render(c, views.EditPostForm(a.page(c), id, entered))
	}

	// Editing refreshes pub_date but does not count against the session's
	// post budget; only new posts do.
	body := markdown.Render(form.Message)
	if err := a.Store.UpdatePost(id, form.Title, form.Message, body); err != nil {
		return err
	}
	a.invalidatePostCaches(user.ID)

	flashSuccess(c, "Your changes have been saved successfully!")
	return redirect(c, fmt.Sprintf("/view/%d/", id))
}

func (a *App) deletePost(c echo.Context, post Post) error {
	user := a.sessionUser(c)
	if user == nil {
		flashError(c, "You must be signed in to delete posts!")
		return redirect(c, "/login/")
	}
	if !user.Can(PermManagePost) {
		flashError(c, "You do not have permission to delete posts!")
		return redirect(c, fmt.Sprintf("/view/%d/", post.ID))
	}
	if user.ID != post.AuthorID {
		flashError(c, "You can only delete your own posts!")
		return redirect(c, fmt.Sprintf("/view/%d/", post.ID))
	}

	// The foreign key cascade removes the post's comments with it.
	if err := a.Store.DeletePost(post.ID); err != nil {
		return err
	}
	a.invalidatePostCaches(user.ID)

	flashSuccess(c, "Post deleted: "+post.Title)
	return redirect(c, "/")
}
