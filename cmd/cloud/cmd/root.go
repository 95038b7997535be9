package cmd

import (
	"fmt"
	"os"

	"agroedge/internal/app/server"
	"agroedge/internal/app/server/config"
	"agroedge/internal/utils/logger"

	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"
)

var (
	cfg *config.Config
	log *slog.Logger
	app *server.App
)

var rootCmd = &cobra.Command{
	Use:   "cloud",
	Short: "AgroEdge Cloud - облачный сервис синхронизации узлов",
	Long: `Принимает пакеты записей от edge-узлов, хранит их в PostgreSQL и
раздает узлам конфигурацию и обновления.`,
	PersistentPreRunE:  setupApp,
	PersistentPostRunE: closeApp,
	SilenceUsage:       true,
	SilenceErrors:      true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)
		os.Exit(1)
	}
}

func setupApp(cmd *cobra.Command, _ []string) error {
	cfg = config.MustLoad()
	log = logger.New(cfg.Env)

	var err error
	app, err = server.New(cmd.Context(), cfg, log)
	if err != nil {
		return fmt.Errorf("ошибка инициализации сервиса: %w", err)
	}
	return nil
}

func closeApp(_ *cobra.Command, _ []string) error {
	if app == nil {
		return nil
	}
	return app.Close()
}

func init() {
	rootCmd.AddCommand(serveCmd, nodeCmd, tokenCmd)
	nodeCmd.AddCommand(nodeRegisterCmd)
}
