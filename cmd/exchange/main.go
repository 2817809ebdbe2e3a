package main

import (
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/KondratovaLudmila/exchange-chat/internal/infrastructure/metrics"
	"github.com/KondratovaLudmila/exchange-chat/internal/infrastructure/privatbank"
	"github.com/KondratovaLudmila/exchange-chat/internal/services"
	"github.com/KondratovaLudmila/exchange-chat/pkg/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "exchange [days] [currencies]",
		Short:        "Fetch PrivatBank exchange rates for the last days",
		Long:         "Fetches historical exchange rates, one request per calendar day, most recent first. Currencies is a comma-separated list; EUR and USD are always included.",
		Args:         cobra.MaximumNArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens := append([]string{"exchange"}, args...)
			query, err := services.ParseCommand(tokens)
			if err != nil {
				cmd.Println(err.Error())
				return nil
			}

			client := privatbank.NewClient(
				privatbank.DefaultBaseURL,
				30*time.Second,
				nil,
				metrics.New(prometheus.NewRegistry()),
				logger.Nop(),
			)

			results := client.Fetch(cmd.Context(), query)
			cmd.Print(services.RenderText(results))
			return nil
		},
	}
}
