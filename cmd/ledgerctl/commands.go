package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"despesas_bot/internal/bot"
	"despesas_bot/internal/ledger/command"

	"github.com/jinzhu/now"
	"github.com/spf13/cobra"
)

const commandTimeout = 30 * time.Second

var periods = []string{"all", "week", "month", "year"}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Inspect the WhatsApp expense ledger",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(newBalanceCmd(c), newReportCmd(c), newClassifyCmd())
	return root
}

func newBalanceCmd(c *cli) *cobra.Command {
	var period string

	cmd := &cobra.Command{
		Use:   "balance <user>",
		Short: "Total spent by a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			since, err := periodStart(period, c.now())
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			ledger, closeLedger, err := c.openLedger(ctx)
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}
			defer closeLedger()

			total, err := ledger.BalanceSince(ctx, args[0], since)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), bot.FormatBalance(total))
			return nil
		},
	}

	cmd.Flags().StringVar(&period, "period", "all", "period filter: "+strings.Join(periods, "|"))
	return cmd
}

func newReportCmd(c *cli) *cobra.Command {
	var period string

	cmd := &cobra.Command{
		Use:   "report <user>",
		Short: "Totals per category for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			since, err := periodStart(period, c.now())
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			ledger, closeLedger, err := c.openLedger(ctx)
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}
			defer closeLedger()

			totals, err := ledger.ReportSince(ctx, args[0], since)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), bot.FormatReport(totals))
			return nil
		},
	}

	cmd.Flags().StringVar(&period, "period", "all", "period filter: "+strings.Join(periods, "|"))
	return cmd
}

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <text>",
		Short: "Show how a message would be classified",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdResult := command.Classify(strings.Join(args, " "))

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "kind: %s\n", cmdResult.Kind)
			if cmdResult.Kind == command.KindRegisterExpense {
				exp := cmdResult.Expense
				fmt.Fprintf(out, "category: %s\namount: %s\ninstallments: %d\n",
					exp.Category, exp.Amount.StringFixed(2), exp.Installments)
			}
			return nil
		},
	}
}

// periodStart 返回周期起点，"all" 返回零值表示不过滤
func periodStart(period string, at time.Time) (time.Time, error) {
	n := now.With(at)
	switch strings.ToLower(strings.TrimSpace(period)) {
	case "", "all":
		return time.Time{}, nil
	case "week":
		return n.BeginningOfWeek(), nil
	case "month":
		return n.BeginningOfMonth(), nil
	case "year":
		return n.BeginningOfYear(), nil
	default:
		return time.Time{}, fmt.Errorf("unknown period %q (want %s)", period, strings.Join(periods, ", "))
	}
}
