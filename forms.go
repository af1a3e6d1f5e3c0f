package bulletin

import "github.com/go-playground/validator/v10"

// One form struct per input shape. Length caps mirror the database model;
// validation failures re-display the form with the entered values preserved
// (login is the exception, it redirects).
var validate = validator.New()

type postForm struct {
	Title   string `form:"title" validate:"required,max=100"`
	Message string `form:"message" validate:"required,max=25000"`
}

type commentForm struct {
	Message string `form:"message" validate:"required,max=1000"`
}

type loginForm struct {
	Username string `form:"username" validate:"required,max=150"`
	Password string `form:"password" validate:"required,max=255"`
}

type resetPasswordForm struct {
	Password1 string `form:"password1" validate:"required,max=255"`
	Password2 string `form:"password2" validate:"required,max=255"`
}

func (f *postForm) valid() bool {
	return validate.Struct(f) == nil
}

func (f *commentForm) valid() bool {
	return validate.Struct(f) == nil
}

func (f *loginForm) valid() bool {
	return validate.Struct(f) == nil
}

func (f *resetPasswordForm) valid() bool {
	return validate.Struct(f) == nil
}
