package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rafiki-assist/rafiki/pkg/config"
	"github.com/rafiki-assist/rafiki/pkg/jwt"
	"github.com/rafiki-assist/rafiki/svc/auth"
)

// newTokenCmd issues identity tokens accepted when IDENTITY_PROVIDER=jwt.
func newTokenCmd() *cobra.Command {
	var (
		user auth.User
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token USER_ID",
		Short: "Issue a development identity token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg jwt.Config
			if err := config.Load(&cfg); err != nil {
				return err
			}
			tokens, err := jwt.NewFromConfig(cfg)
			if err != nil {
				return err
			}
			user.ID = args[0]
			user.Provider = auth.ProviderJWT
			tok, err := auth.NewJWTVerifier(tokens).Issue(&user, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&user.Email, "email", "", "email claim")
	cmd.Flags().BoolVar(&user.EmailVerified, "email-verified", true, "email_verified claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
