// Command exchange is the single-shot console variant of the relay's rate
// query: it runs one exchange command against the PrivatBank API and prints
// the rendered report, sharing the aggregation core with the chat server.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/VadimBatsko/kurschat/internal/auditlog"
	"github.com/VadimBatsko/kurschat/internal/exchange"
	"github.com/VadimBatsko/kurschat/internal/privatbank"
	"github.com/VadimBatsko/kurschat/internal/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "exchange [days] [currency]",
		Short:        "Print PrivatBank exchange rates for today or the trailing days",
		Long:         "Prints the current PrivatBank rate snapshot, or one report per trailing day when a day count is given. An optional currency code narrows historical reports to that currency.",
		Args:         cobra.MaximumNArgs(2),
		SilenceUsage: true,
		RunE:         runExchange,
	}
}

func runExchange(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	cfg, err := server.LoadConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	query, err := exchange.ParseQuery(args)
	if err != nil {
		if errors.Is(err, exchange.ErrBadDayCount) {
			fmt.Fprintln(cmd.OutOrStdout(), exchange.MsgBadDayCount)
			return nil
		}
		return err
	}

	rates := privatbank.NewClient(privatbank.WithBaseURL(cfg.PrivatBankBaseURL))
	exchanger := exchange.NewService(rates,
		exchange.WithAuditLogger(auditlog.New(cfg.AuditLogPath)),
		exchange.WithMaxDays(cfg.ExchangeMaxDays),
		exchange.WithRequestTimeout(cfg.ExchangeRequestTimeout),
	)

	report, err := exchanger.Exchange(cmd.Context(), query)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), report)
	return nil
}
