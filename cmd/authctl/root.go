package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/baechuer/marketplace-auth/internal/client/session"
)

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	server      string
	sessionFile string
}

// NewRootCmd creates the root command for the authctl CLI.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "authctl",
		Short:         "authctl - marketplace auth client",
		Long:          `authctl registers accounts, logs in and calls the marketplace auth service, renewing the access token transparently.`,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVar(&opts.server, "server", envOr("AUTHCTL_SERVER", "http://localhost:5000"), "auth service base URL")
	cmd.PersistentFlags().StringVar(&opts.sessionFile, "session-file", os.Getenv("AUTHCTL_SESSION_FILE"), "session file (default: user config dir)")

	cmd.AddCommand(
		newRegisterCmd(opts),
		newVerifyCmd(opts),
		newResendCmd(opts),
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newMeCmd(opts),
		newForgotPasswordCmd(opts),
		newResetPasswordCmd(opts),
		newDevTokenCmd(),
	)

	return cmd
}

func (o *rootOptions) client(cmd *cobra.Command) (*session.Client, session.TokenStore, error) {
	path := o.sessionFile
	if path == "" {
		p, err := session.DefaultTokenPath()
		if err != nil {
			return nil, nil, fmt.Errorf("resolve session file: %w", err)
		}
		path = p
	}

	store := session.NewFileTokenStore(path)
	c := session.NewClient(o.server, store, session.WithSessionCleared(func() {
		fmt.Fprintln(cmd.ErrOrStderr(), "session expired, please log in again")
	}))
	return c, store, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
