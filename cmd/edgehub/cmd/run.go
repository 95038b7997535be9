package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Запустить узел",
	Long: `Запускает автоматическую синхронизацию, локальный API и рассылку событий.
Работает до SIGINT или SIGTERM.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log.Info("Узел запущен", "node_id", cfg.NodeID, "cloud", cfg.CloudEndpoint)
		if err := app.Run(ctx); err != nil {
			return err
		}
		log.Info("Узел остановлен")
		return nil
	},
}
