package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	tokenUser  string
	tokenFarms []string
	tokenPerms []string
	tokenTTL   time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Выпустить токен клиента панели мониторинга",
	Long: `Выпускает JWT для подключения к /ws и локальному API.

Пример:
  edgehub token --user agronomist --farm farm_1 --farm farm_2
  edgehub token --user operator --perm admin --perm device-control`,
	RunE: func(_ *cobra.Command, _ []string) error {
		if tokenUser == "" {
			return fmt.Errorf("укажите --user")
		}
		token, err := app.IssueToken(tokenUser, tokenFarms, tokenPerms, tokenTTL)
		if err != nil {
			return fmt.Errorf("ошибка выпуска токена: %w", err)
		}
		fmt.Println(token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "идентификатор пользователя")
	tokenCmd.Flags().StringSliceVar(&tokenFarms, "farm", nil, "доступная ферма (можно повторять)")
	tokenCmd.Flags().StringSliceVar(&tokenPerms, "perm", nil, "разрешение: admin, device-control")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "срок действия токена")
}
