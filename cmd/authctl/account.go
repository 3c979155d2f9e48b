package main

import (
	"github.com/spf13/cobra"

	"github.com/baechuer/marketplace-auth/internal/client/session"
)

func newRegisterCmd(opts *rootOptions) *cobra.Command {
	in := session.RegisterInput{}

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a buyer or seller account",
		Long:  `Create an account. A verification link is emailed; log in after verifying.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, _, err := opts.client(cmd)
			if err != nil {
				return err
			}
			if in.Password, err = passwordOrPrompt(cmd, in.Password, "Password"); err != nil {
				return err
			}
			msg, err := c.Register(cmd.Context(), in)
			if err != nil {
				return err
			}
			cmd.Println(msg)
			return nil
		},
	}

	cmd.Flags().StringVar(&in.Name, "name", "", "display name")
	cmd.Flags().StringVar(&in.Email, "email", "", "email address")
	cmd.Flags().StringVar(&in.Password, "password", "", "password, 6-72 characters (prompted when omitted)")
	cmd.Flags().StringVar(&in.Role, "role", "buyer", "buyer or seller")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newVerifyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <token>",
		Short: "Verify an email address with the token from the verification link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := opts.client(cmd)
			if err != nil {
				return err
			}
			if err := c.VerifyEmail(cmd.Context(), args[0]); err != nil {
				return err
			}
			cmd.Println("email verified, you can now log in")
			return nil
		},
	}
}

func newResendCmd(opts *rootOptions) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "resend-verification",
		Short: "Send a new verification link",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, _, err := opts.client(cmd)
			if err != nil {
				return err
			}
			if err := c.ResendVerification(cmd.Context(), email); err != nil {
				return err
			}
			cmd.Println("if the account exists and is not verified, a new link was sent")
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newForgotPasswordCmd(opts *rootOptions) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "forgot-password",
		Short: "Email a password reset link",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, _, err := opts.client(cmd)
			if err != nil {
				return err
			}
			if err := c.ForgotPassword(cmd.Context(), email); err != nil {
				return err
			}
			cmd.Println("password reset email sent")
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newResetPasswordCmd(opts *rootOptions) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "reset-password <token>",
		Short: "Set a new password with the token from the reset link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := opts.client(cmd)
			if err != nil {
				return err
			}
			pw, err := passwordOrPrompt(cmd, password, "New password")
			if err != nil {
				return err
			}
			if err := c.ResetPassword(cmd.Context(), args[0], pw); err != nil {
				return err
			}
			cmd.Println("password reset, please log in with your new password")
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "new password (prompted when omitted)")
	return cmd
}
