package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	jwtx "github.com/dropDatabas3/authcore/internal/jwt"
)

func newKeygenCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Genera un par RSA para firmar tokens y lo escribe en PEM",
		RunE: func(cmd *cobra.Command, args []string) error {
			ks, err := jwtx.NewDevRSA()
			if err != nil {
				return err
			}
			pem, err := ks.EncodePrivatePEM()
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				_, err = os.Stdout.Write(pem)
				return err
			}
			// 0600: la clave privada no se comparte ni por accidente
			if err := os.WriteFile(out, pem, 0o600); err != nil {
				return err
			}
			fmt.Printf("clave escrita en %s (kid=%s)\n", out, ks.KID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "archivo destino ('-' = stdout)")
	return cmd
}

func newSecretboxCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gen-secretbox",
		Short: "Genera un valor para SECRETBOX_MASTER_KEY",
		RunE: func(cmd *cobra.Command, args []string) error {
			var key [32]byte
			if _, err := rand.Read(key[:]); err != nil {
				return err
			}
			fmt.Println(base64.StdEncoding.EncodeToString(key[:]))
			return nil
		},
	}
}
