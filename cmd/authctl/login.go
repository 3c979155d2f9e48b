package main

import (
	"github.com/spf13/cobra"
)

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, _, err := opts.client(cmd)
			if err != nil {
				return err
			}
			pw, err := passwordOrPrompt(cmd, password, "Password")
			if err != nil {
				return err
			}
			u, err := c.Login(cmd.Context(), email, pw)
			if err != nil {
				return err
			}
			cmd.Printf("logged in as %s (%s)\n", u.Email, u.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", envOr("AUTHCTL_PASSWORD", ""), "password (or AUTHCTL_PASSWORD; prompted when both are empty)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session on the server and forget it locally",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, _, err := opts.client(cmd)
			if err != nil {
				return err
			}
			if err := c.Logout(cmd.Context()); err != nil {
				return err
			}
			cmd.Println("logged out")
			return nil
		},
	}
}

func newMeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the logged-in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, _, err := opts.client(cmd)
			if err != nil {
				return err
			}
			u, ok, err := c.Restore(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				cmd.Println("not logged in")
				return nil
			}
			return printJSON(cmd, u)
		},
	}
}
