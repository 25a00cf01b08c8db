package views

import (
	"context"
	"strings"

	"scribe/models"
)

type LoginForm struct {
	api     API
	session *SessionObserver
}

func NewLoginForm(api API, session *SessionObserver) *LoginForm {
	return &LoginForm{api: api, session: session}
}

// Submit signs in. Provider errors come back unwrapped so their message can
// be shown as is.
func (f *LoginForm) Submit(ctx context.Context, email, password string) error {
	s, err := f.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	f.session.Set(s)
	return nil
}

func (f *LoginForm) ResetPassword(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return models.NewValidationError("Enter your email to reset the password")
	}
	return f.api.RequestPasswordReset(ctx, email)
}

// Logout clears the local session even when the server call fails.
func (f *LoginForm) Logout(ctx context.Context) error {
	err := f.api.Logout(ctx)
	f.session.Set(nil)
	return err
}

type RegisterForm struct {
	api     API
	session *SessionObserver
}

func NewRegisterForm(api API, session *SessionObserver) *RegisterForm {
	return &RegisterForm{api: api, session: session}
}

func (f *RegisterForm) Submit(ctx context.Context, email, password string) error {
	s, err := f.api.Register(ctx, email, password)
	if err != nil {
		return err
	}
	f.session.Set(s)
	return nil
}
