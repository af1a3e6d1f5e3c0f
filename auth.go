package bulletin

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/st0h/bulletin/views"
)

// handleLoginForm shows the sign-in form and arms the anti-automation probe.
// Already-authenticated users are bounced to the front page.
func (a *App) handleLoginForm(c echo.Context) error {
	if a.sessionUser(c) != nil {
		flashError(c, "You are already signed in!")
		return redirect(c, "/")
	}
	if err := armProbe(c); err != nil {
		return err
	}
	return Render(c, views.LoginForm(a.page(c)))
}

// handleLogin processes a sign-in attempt. Failures redirect back to the
// form rather than re-rendering it, so entered values are not preserved;
// this is the one form that behaves that way. The per-session attempt
// counter blocks the fourth consecutive failure before any credential
// verification happens; the per-IP limiter sits in front of everything.
func (a *App) handleLogin(c echo.Context) error {
	if a.sessionUser(c) != nil {
		flashError(c, "You are already signed in!")
		return redirect(c, "/")
	}
	if !a.loginLimiter.Check(c.RealIP()) {
		return c.String(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	if !consumeProbe(c) {
		flashError(c, "You must have cookies enabled to proceed. Please check your browser settings and try again!")
		_ = armProbe(c)
		return redirect(c, "/login/")
	}
	if sessionCounter(c, keyLoginAttempts) >= maxLoginAttempts {
		flashError(c, fmt.Sprintf("You have attempted to sign in too many times (%d)! Please try again later.", maxLoginAttempts))
		_ = armProbe(c)
		return redirect(c, "/login/")
	}

	var form loginForm
	if err := c.Bind(&form); err != nil {
		return err
	}
	if !form.valid() {
		flashError(c, "There was a problem signing you in. Please check your input and try again!")
		_ = armProbe(c)
		return redirect(c, "/login/")
	}

	user, err := a.Store.Authenticate(form.Username, form.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			flashError(c, "Username or password incorrect!")
			_ = armProbe(c)
			a.loginLimiter.Record(c.RealIP())
			if err := bumpCounter(c, keyLoginAttempts); err != nil {
				return err
			}
			return redirect(c, "/login/")
		}
		return err
	}

	if err := signIn(c, user); err != nil {
		return err
	}
	flashSuccess(c, "You have signed in successfully!")
	return redirect(c, "/")
}

// handleLogout ends the authenticated session.
func (a *App) handleLogout(c echo.Context) error {
	if a.sessionUser(c) == nil {
		flashError(c, "You are not signed in!")
		return redirect(c, "/login/")
	}
	if err := signOut(c); err != nil {
		return err
	}
	flashSuccess(c, "You have signed out successfully!")
	return redirect(c, "/")
}

// handleResetPasswordForm shows the credential-change form to signed-in users.
func (a *App) handleResetPasswordForm(c echo.Context) error {
	if a.sessionUser(c) == nil {
		flashError(c, "You must be signed in to change your password!")
		return redirect(c, "/login/")
	}
	return Render(c, views.ResetPasswordForm(a.page(c)))
}

// handleResetPassword replaces the user's credential. The two fields must
// match and be at least eight characters, each failure with its own message.
// On success the current session is terminated so the user must sign in
// again with the new password.
func (a *App) handleResetPassword(c echo.Context) error {
	user := a.sessionUser(c)
	if user == nil {
		flashError(c, "You must be signed in to change your password!")
		return redirect(c, "/login/")
	}

	var form resetPasswordForm
	if err := c.Bind(&form); err != nil {
		return err
	}
	if !form.valid() {
		flashError(c, "There was a problem modifying your password. Please check your input and try again!")
		return redirect(c, "/reset_password/")
	}
	if form.Password1 != form.Password2 {
		flashError(c, "The password values entered do not match. Please try again!")
		return redirect(c, "/reset_password/")
	}
	if len(form.Password1) < 8 {
		flashError(c, "Passwords must be a minimum of 8 characters!")
		return redirect(c, "/reset_password/")
	}

	if err := a.Store.SetPassword(user.ID, form.Password1); err != nil {
		return err
	}
	if err := signOut(c); err != nil {
		return err
	}
	flashSuccess(c, "You have successfully changed your password. Please sign in again using the new password you have chosen!")
	return redirect(c, "/login/")
}
