package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	domainsync "agroedge/internal/domain/sync"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Показать статус синхронизации",
	RunE: func(_ *cobra.Command, _ []string) error {
		st := app.Status()
		if jsonOutput {
			return printJSON(st)
		}

		fmt.Println("=== Статус синхронизации ===")
		fmt.Printf("Узел: %s\n", cfg.NodeID)
		fmt.Printf("Облако: %s\n", cfg.CloudEndpoint)
		printStatus(st)
		return nil
	},
}

func printStatus(st domainsync.Status) {
	if st.LastSync != nil {
		fmt.Printf("Последняя синхронизация: %s\n", st.LastSync.Local().Format("2006-01-02 15:04:05"))
	} else {
		fmt.Println("Последняя синхронизация: никогда")
	}
	fmt.Printf("Ожидают выгрузки: %d\n", st.PendingItems)
	fmt.Printf("Ошибок в последнем цикле: %d\n", st.FailedItems)
	fmt.Printf("Всего выгружено: %d\n", st.TotalSynced)
	if st.LastError != nil {
		fmt.Printf("⚠️  Последняя ошибка: %s\n", *st.LastError)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
