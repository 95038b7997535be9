package cmd

import (
	"errors"
	"fmt"
	"time"

	domainsync "agroedge/internal/domain/sync"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Выполнить один цикл синхронизации",
	Long: `Выгружает несинхронизированные записи и загружает конфигурацию и
обновления из облака. Не запускайте одновременно с работающим узлом.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		start := time.Now()
		st, err := app.SyncOnce(cmd.Context())
		switch {
		case errors.Is(err, domainsync.ErrOffline):
			return fmt.Errorf("облако недоступно: %s", cfg.CloudEndpoint)
		case err != nil:
			return fmt.Errorf("ошибка синхронизации: %w", err)
		}

		if jsonOutput {
			return printJSON(st)
		}

		fmt.Println("✅ Синхронизация завершена")
		fmt.Printf("Время выполнения: %v\n", time.Since(start).Round(time.Millisecond))
		printStatus(st)
		return nil
	},
}
