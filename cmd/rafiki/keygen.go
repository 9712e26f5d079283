package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rafiki-assist/rafiki/pkg/totp"
)

func newKeygenCmd() *cobra.Command {
	var withJWT bool
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Print fresh keys in .env form",
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := totp.GenerateEncodedEncryptionKey()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "TOTP_ENCRYPTION_KEY=%s\n", key)
			if !withJWT {
				return nil
			}
			b := make([]byte, 32)
			if _, err := rand.Read(b); err != nil {
				return err
			}
			fmt.Fprintf(out, "JWT_SIGNING_KEY=%s\n", base64.RawURLEncoding.EncodeToString(b))
			return nil
		},
	}
	cmd.Flags().BoolVar(&withJWT, "jwt", false, "also print a JWT signing key")
	return cmd
}
