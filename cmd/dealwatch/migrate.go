package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/yungbote/dealwatch-backend/internal/app"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the deal tables and indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.Migrate(); err != nil {
				return err
			}
			a.Log.Info("Migration complete")
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
