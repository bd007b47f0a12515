package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/authcore/internal/config"
	migrations "github.com/dropDatabas3/authcore/migrations/postgres"
)

func newMigrateCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate [up|down]",
		Short: "Aplica las migraciones embebidas contra postgres",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			action := "up"
			if len(args) == 1 {
				action = strings.ToLower(args[0])
			}
			suffix := "_up.sql"
			switch action {
			case "up":
			case "down":
				suffix = "_down.sql"
			default:
				return fmt.Errorf("acción desconocida %q: up | down", action)
			}

			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if cfg.Storage.Driver != "postgres" {
				return fmt.Errorf("migrate requiere storage.driver=postgres (actual: %s)", cfg.Storage.Driver)
			}

			ctx := cmd.Context()
			pool, err := pgxpool.New(ctx, cfg.Storage.DSN)
			if err != nil {
				return fmt.Errorf("pgxpool: %w", err)
			}
			defer pool.Close()

			entries, err := migrations.FS.ReadDir(".")
			if err != nil {
				return err
			}
			var files []string
			for _, e := range entries {
				if strings.HasSuffix(e.Name(), suffix) {
					files = append(files, e.Name())
				}
			}
			sort.Strings(files)
			if action == "down" {
				// los down corren de la más nueva a la más vieja
				for i, j := 0, len(files)-1; i < j; i, j = i+1, j-1 {
					files[i], files[j] = files[j], files[i]
				}
			}

			for _, f := range files {
				sql, err := migrations.FS.ReadFile(f)
				if err != nil {
					return err
				}
				start := time.Now()
				if _, err := pool.Exec(ctx, string(sql)); err != nil {
					return fmt.Errorf("exec %s: %w", f, err)
				}
				fmt.Printf("OK %s (%s)\n", f, time.Since(start).Truncate(time.Millisecond))
			}
			return nil
		},
	}
	return cmd
}
