package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/dealwatch-backend/internal/app"
	domainagg "github.com/yungbote/dealwatch-backend/internal/domain/aggregates"
	"github.com/yungbote/dealwatch-backend/internal/domain/deals"
)

var aliasCmd = &cobra.Command{
	Use:   "alias",
	Short: "Manage company aliases",
}

var aliasAddCmd = &cobra.Command{
	Use:   "add <company> <alias>",
	Short: "Register an alternate name for a company",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, _ := cmd.Flags().GetString("kind")
		effective, _ := cmd.Flags().GetString("effective")

		in := domainagg.RegisterAliasInput{
			CompanyName: args[0],
			Alias:       args[1],
			Kind:        deals.AliasKind(kind),
		}
		if effective != "" {
			t, ok := deals.ParseDate(effective)
			if !ok {
				return fmt.Errorf("bad --effective date %q", effective)
			}
			in.EffectiveDate = &t
		}

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			res, err := a.Deals.RegisterAlias(ctx, in)
			if err != nil {
				return err
			}
			state := "already registered"
			if res.Created {
				state = "registered"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "alias %q %s for company %s\n", args[1], state, res.CompanyID)
			return nil
		})
	},
}

func init() {
	aliasAddCmd.Flags().String("kind", string(deals.AliasRebrand), "rebrand, dba, acquired or typo")
	aliasAddCmd.Flags().String("effective", "", "Date the alias took effect (YYYY-MM-DD)")
	aliasCmd.AddCommand(aliasAddCmd)
	rootCmd.AddCommand(aliasCmd)
}
