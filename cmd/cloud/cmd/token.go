package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	tokenUser string
	tokenTTL  time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Выпустить административный токен",
	Long:  `Токен дает доступ к /admin/configurations и /admin/updates.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		token, err := app.IssueAdminToken(tokenUser, tokenTTL)
		if err != nil {
			return fmt.Errorf("ошибка выпуска токена: %w", err)
		}
		fmt.Println(token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "admin", "идентификатор администратора")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "срок действия токена")
}
