package main

import (
	"scribe/views"

	"github.com/spf13/cobra"
)

func (a *app) registerCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			form := views.NewRegisterForm(a.api, a.session)
			if err := form.Submit(cmd.Context(), email, password); err != nil {
				return err
			}
			success(cmd, "Registered and signed in as %s", a.session.Current().Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (min 6 characters)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (a *app) loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			form := views.NewLoginForm(a.api, a.session)
			if err := form.Submit(cmd.Context(), email, password); err != nil {
				return err
			}
			success(cmd, "Signed in as %s", a.session.Current().Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the saved token and forget it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			if err := views.NewLoginForm(a.api, a.session).Logout(cmd.Context()); err != nil {
				return err
			}
			success(cmd, "Signed out")
			return nil
		},
	}
}

func (a *app) resetPasswordCmd() *cobra.Command {
	var email, token, password string
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Mail a reset link, or set a new password with --token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if token != "" {
				if err := requireFlag("password", password); err != nil {
					return err
				}
				if err := a.api.ConfirmPasswordReset(cmd.Context(), token, password); err != nil {
					return err
				}
				success(cmd, "Password updated, you can log in now")
				return nil
			}

			if err := views.NewLoginForm(a.api, a.session).ResetPassword(cmd.Context(), email); err != nil {
				return err
			}
			success(cmd, "If %s has an account, a reset link is on its way", email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email to send the link to")
	cmd.Flags().StringVar(&token, "token", "", "token from the reset email")
	cmd.Flags().StringVar(&password, "password", "", "new password, used with --token")
	return cmd
}
