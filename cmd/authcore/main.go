package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	var (
		envFile    string
		configPath string
	)

	root := &cobra.Command{
		Use:   "authcore",
		Short: "Backend de autenticación multi-tenant",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if envFile != "" {
				// .env es opcional: en prod las vars vienen del entorno real.
				_ = godotenv.Load(envFile)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "ruta a .env (opcional)")
	root.PersistentFlags().StringVar(&configPath, "config", "configs/config.yaml", "ruta a config.yaml")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newMigrateCmd(&configPath))
	root.AddCommand(newKeygenCmd())
	root.AddCommand(newSecretboxCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
