package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yungbote/dealwatch-backend/internal/app"
	"github.com/yungbote/dealwatch-backend/internal/ingest"
)

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Resolve candidates from Kafka until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if topic, _ := cmd.Flags().GetString("topic"); topic != "" {
				a.Cfg.Kafka.Topic = topic
			}
			src, err := ingest.NewKafkaSource(a.Cfg.Kafka, a.Log)
			if err != nil {
				return err
			}
			defer src.Close()

			if addr := strings.TrimSpace(a.Cfg.MetricsAddr); addr != "" {
				srv := &http.Server{Addr: addr, Handler: a.Metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
				go func() {
					a.Log.Info("Serving metrics", "addr", addr)
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						a.Log.Warn("metrics server stopped", "error", err)
					}
				}()
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
			}

			w, err := a.NewWorker(ctx, nil)
			if err != nil {
				return err
			}
			err = w.Run(ctx, src)
			if ctx.Err() != nil {
				a.Log.Info("Consumer shut down")
				return nil
			}
			return err
		})
	},
}

func init() {
	consumeCmd.Flags().String("topic", "", "Override KAFKA_TOPIC")
	rootCmd.AddCommand(consumeCmd)
}
