package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"libkiosk/internal/infrastructure/migration"
)

var migrateDown bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back the ledger schema",
	RunE: func(_ *cobra.Command, _ []string) error {
		m := migration.NewMigration(cfg.DB, migration.DefaultEngine)
		if migrateDown {
			if err := m.Down(); err != nil {
				return err
			}
			log.Info("migrations rolled back", "driver", cfg.DB.Driver)
			return nil
		}

		if err := m.Up(); err != nil {
			return err
		}
		fmt.Printf("schema is up to date (%s)\n", migration.DatabaseURL(cfg.DB))
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateDown, "down", false, "roll back every migration")
}
