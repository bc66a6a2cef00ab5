package main

import (
	"fmt"
	"os"

	"github.com/jrsteele09/go-sso-server/internal/config"
	"github.com/jrsteele09/go-sso-server/token/keys"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newKeygenCommand(getConfig func() config.Config) *cobra.Command {
	var (
		kid       string
		bits      int
		out       string
		publicOut string
	)

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an RSA signing key as a PKCS#8 PEM",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig()
			if kid == "" {
				kid = cfg.GetKeyID()
			}
			if bits == 0 {
				bits = cfg.GetKeyBits()
			}

			kp, err := keys.GenerateRSAKeyPair(kid, bits)
			if err != nil {
				return err
			}
			pemData, err := kp.ExportPrivateKeyPEM()
			if err != nil {
				return err
			}

			if publicOut != "" {
				pubData, err := kp.ExportPublicKeyPEM()
				if err != nil {
					return err
				}
				if err := os.WriteFile(publicOut, pubData, 0o644); err != nil {
					return fmt.Errorf("[keygen] write %s: %w", publicOut, err)
				}
				log.Info().Str("kid", kid).Str("path", publicOut).Msg("public key written")
			}

			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(pemData)
				return err
			}
			if err := os.WriteFile(out, pemData, 0o600); err != nil {
				return fmt.Errorf("[keygen] write %s: %w", out, err)
			}
			log.Info().Str("kid", kid).Int("bits", bits).Str("path", out).Msg("signing key written")
			return nil
		},
	}
	cmd.Flags().StringVar(&kid, "kid", "", "key id (default JWT_KID)")
	cmd.Flags().IntVar(&bits, "bits", 0, "RSA modulus size (default JWT_KEY_BITS)")
	cmd.Flags().StringVar(&out, "out", "", "output file, stdout when empty")
	cmd.Flags().StringVar(&publicOut, "public-out", "", "also write the PKIX public key PEM to this file")
	return cmd
}
