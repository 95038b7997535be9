package cmd

import (
	"errors"
	"fmt"

	"agroedge/internal/domain/node"

	"github.com/spf13/cobra"
)

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Управление edge-узлами",
}

var nodeRegisterCmd = &cobra.Command{
	Use:   "register <node-id>",
	Short: "Зарегистрировать узел и выдать ему ключ",
	Long: `Создает узел и печатает его API-ключ. Ключ показывается один раз:
в базе хранится только bcrypt-хэш. Передайте ключ узлу через API_KEY.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := app.RegisterNode(cmd.Context(), args[0])
		switch {
		case errors.Is(err, node.ErrExists):
			return fmt.Errorf("узел %q уже зарегистрирован", args[0])
		case err != nil:
			return fmt.Errorf("ошибка регистрации узла: %w", err)
		}

		fmt.Printf("✅ Узел %s зарегистрирован\n", args[0])
		fmt.Printf("API_KEY=%s\n", key)
		return nil
	},
}
