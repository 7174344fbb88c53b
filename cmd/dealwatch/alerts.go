package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/dealwatch-backend/internal/alerts"
	"github.com/yungbote/dealwatch-backend/internal/app"
	"github.com/yungbote/dealwatch-backend/internal/domain/deals"
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Inspect tracked-investor alerts",
}

var alertsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print alerts published on the redis channel until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if a.Cfg.Alerts.RedisAddr == "" {
				return fmt.Errorf("set ALERTS_REDIS_ADDR or REDIS_ADDR to tail alerts")
			}
			sink, err := alerts.NewRedisSink(ctx, a.Log, a.Cfg.Alerts.RedisAddr, a.Cfg.Alerts.Channel)
			if err != nil {
				return err
			}
			defer sink.Close()

			out := json.NewEncoder(cmd.OutOrStdout())
			if err := sink.Subscribe(ctx, func(al deals.Alert) { _ = out.Encode(al) }); err != nil {
				return err
			}
			<-ctx.Done()
			return nil
		})
	},
}

func init() {
	alertsCmd.AddCommand(alertsTailCmd)
	rootCmd.AddCommand(alertsCmd)
}
