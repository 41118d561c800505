package cmd

import (
	"log/slog"

	"github.com/Builder-Lawyers/store-builder/internal/infra/db"
	dbs "github.com/Builder-Lawyers/store-builder/pkg/db"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		pool, err := dbs.NewPool(cmd.Context(), dbs.NewConfig())
		if err != nil {
			return err
		}
		defer pool.Close()

		if err = db.Migrate(cmd.Context(), pool); err != nil {
			return err
		}
		slog.Info("schema applied")
		return nil
	},
}
