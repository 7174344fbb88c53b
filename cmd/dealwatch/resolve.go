package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/yungbote/dealwatch-backend/internal/app"
	"github.com/yungbote/dealwatch-backend/internal/ingest"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve candidate records from a JSONL file (or stdin)",
	Long: `Reads one JSON candidate per line and resolves each against stored deals.
Prints one JSON line per record describing whether it created a new deal or
linked to an existing one.`,
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

			out := json.NewEncoder(cmd.OutOrStdout())
			var mu sync.Mutex
			counts := map[string]int{}
			w, err := a.NewWorker(ctx, func(r ingest.Result) {
				mu.Lock()
				defer mu.Unlock()
				counts[r.Status]++
				_ = out.Encode(resultLine(r))
			})
			if err != nil {
				return err
			}
			if err := w.Run(ctx, ingest.NewLineSource(name, in)); err != nil {
				return err
			}
			a.Log.Info("Resolve finished", "source", name, "counts", counts)
			return nil
		})
	},
}

type resolveLine struct {
	Origin        string `json:"origin"`
	Status        string `json:"status"`
	DealID        string `json:"deal_id,omitempty"`
	Created       bool   `json:"created"`
	Tier          string `json:"tier,omitempty"`
	RoundMismatch bool   `json:"round_mismatch,omitempty"`
	Alert         bool   `json:"alert,omitempty"`
	Error         string `json:"error,omitempty"`
}

func resultLine(r ingest.Result) resolveLine {
	l := resolveLine{Origin: r.Record.Origin, Status: r.Status}
	if r.Status == ingest.StatusResolved {
		l.DealID = r.Resolution.DealID.String()
		l.Created = r.Resolution.Created
		l.Tier = r.Resolution.Tier
		l.RoundMismatch = r.Resolution.RoundMismatch
		l.Alert = r.Resolution.Alert != nil
	}
	if r.Err != nil {
		l.Error = fmt.Sprint(r.Err)
	}
	return l
}

func init() {
	resolveCmd.Flags().StringP("file", "f", "", "JSONL file of candidates (default stdin)")
	rootCmd.AddCommand(resolveCmd)
}
