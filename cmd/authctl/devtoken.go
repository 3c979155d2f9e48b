package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/baechuer/marketplace-auth/internal/infrastructure/security"
)

// devTokenOptions mint tokens locally for load tests and manual API calls.
type devTokenOptions struct {
	secret  string
	issuer  string
	userID  string
	count   int
	ttl     time.Duration
	refresh bool
}

func newDevTokenCmd() *cobra.Command {
	o := &devTokenOptions{}

	cmd := &cobra.Command{
		Use:   "dev-token",
		Short: "Mint access tokens locally from JWT_SECRET",
		Long: `Mint signed tokens without talking to the server. The user id must
exist in the target datastore for the token to authenticate.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if o.secret == "" {
				return errors.New("missing --secret (or JWT_SECRET)")
			}
			if o.count < 1 {
				return errors.New("--count must be at least 1")
			}

			codec := security.NewTokenCodec(security.CodecConfig{
				AccessSecret: o.secret,
				Issuer:       o.issuer,
				AccessTTL:    o.ttl,
				RefreshTTL:   o.ttl,
			})

			for i := 0; i < o.count; i++ {
				uid := o.userID
				if uid == "" {
					uid = uuid.NewString()
				}

				issue := codec.IssueAccessToken
				if o.refresh {
					issue = codec.IssueRefreshToken
				}
				tok, err := issue(uid)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), tok)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&o.secret, "secret", os.Getenv("JWT_SECRET"), "signing secret")
	cmd.Flags().StringVar(&o.issuer, "issuer", envOr("JWT_ISSUER", "marketplace-auth"), "issuer claim")
	cmd.Flags().StringVar(&o.userID, "user-id", "", "subject; random per token when empty")
	cmd.Flags().IntVar(&o.count, "count", 1, "number of tokens")
	cmd.Flags().DurationVar(&o.ttl, "ttl", time.Hour, "token lifetime")
	cmd.Flags().BoolVar(&o.refresh, "refresh", false, "mint refresh tokens instead of access tokens")

	return cmd
}
