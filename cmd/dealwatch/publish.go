package main

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/yungbote/dealwatch-backend/internal/app"
	"github.com/yungbote/dealwatch-backend/internal/ingest"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish JSONL candidates onto the Kafka topic",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			var in io.Reader = os.Stdin
			name := "stdin"
			if path != "" && path != "-" {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				defer f.Close()
				in, name = f, path
			}

			pub, err := ingest.NewKafkaPublisher(a.Cfg.Kafka, a.Log)
			if err != nil {
				return err
			}
			defer pub.Close()

			src := ingest.NewLineSource(name, in)
			sent := 0
			for {
				rec, err := src.Next(ctx)
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return err
				}
				if err := pub.Publish(ctx, rec.Origin, rec.Value); err != nil {
					return err
				}
				sent++
			}
			a.Log.Info("Published candidates", "source", name, "topic", a.Cfg.Kafka.Topic, "count", sent)
			return nil
		})
	},
}

func init() {
	publishCmd.Flags().StringP("file", "f", "", "JSONL file of candidates (default stdin)")
	rootCmd.AddCommand(publishCmd)
}
