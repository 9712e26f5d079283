package main

import (
	"github.com/spf13/cobra"

	"github.com/rafiki-assist/rafiki/migrations"
	"github.com/rafiki-assist/rafiki/pkg/config"
	"github.com/rafiki-assist/rafiki/pkg/logger"
	"github.com/rafiki-assist/rafiki/pkg/pg"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply PostgreSQL migrations for the two-factor table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				logCfg logger.Config
				pgCfg  pg.Config
			)
			if err := config.Load(&logCfg); err != nil {
				return err
			}
			if err := config.Load(&pgCfg); err != nil {
				return err
			}
			log, err := newLogger(logCfg)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			pool, err := pg.Connect(ctx, pgCfg)
			if err != nil {
				return err
			}
			defer pool.Close()
			return pg.Migrate(ctx, pool, migrations.FS, migrations.Dir, pgCfg, log)
		},
	}
}
