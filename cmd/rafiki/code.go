package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rafiki-assist/rafiki/pkg/totp"
)

func newCodeCmd() *cobra.Command {
	var p totp.Params
	var alg string
	cmd := &cobra.Command{
		Use:   "code SECRET",
		Short: "Print the current one-time code for a Base32 secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p.Secret = args[0]
			p.Algorithm = totp.Algorithm(alg)
			now := time.Now()
			code, err := totp.GenerateCode(p, now)
			if err != nil {
				return err
			}
			p = p.WithDefaults()
			period := int64(p.Period)
			left := period - now.Unix()%period
			fmt.Fprintf(cmd.OutOrStdout(), "%s (valid %ds)\n", code, left)
			return nil
		},
	}
	cmd.Flags().StringVar(&alg, "algorithm", string(totp.DefaultAlgorithm), "HMAC algorithm: SHA1, SHA256 or SHA512")
	cmd.Flags().IntVar(&p.Digits, "digits", totp.DefaultDigits, "code length")
	cmd.Flags().IntVar(&p.Period, "period", totp.DefaultPeriod, "step length in seconds")
	return cmd
}
