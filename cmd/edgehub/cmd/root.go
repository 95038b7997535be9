package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"agroedge/internal/app/edge"
	"agroedge/internal/config"
	"agroedge/internal/utils/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/exp/slog"
)

var (
	cfgFile    string
	cfg        *config.Config
	log        *slog.Logger
	app        *edge.App
	jsonOutput bool
	cloudURL   string
)

var rootCmd = &cobra.Command{
	Use:   "edgehub",
	Short: "AgroEdge Hub - узел сбора данных фермы",
	Long: `AgroEdge Hub хранит показания датчиков, тревоги и метаданные ферм локально,
продолжает работу без связи с облаком и периодически синхронизируется с ним.

Клиенты панели мониторинга получают события в реальном времени через /ws.`,
	Version:            edge.Version,
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
	var err error
	cfg, err = loadConfig()
	if err != nil {
		return fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}

	log = logger.New(cfg.Env)

	app, err = edge.New(cmd.Context(), cfg, log)
	if err != nil {
		return fmt.Errorf("ошибка инициализации узла: %w", err)
	}
	return nil
}

func closeApp(_ *cobra.Command, _ []string) error {
	if app == nil {
		return nil
	}
	return app.Close()
}

func loadConfig() (*config.Config, error) {
	v := viper.GetViper()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".agroedge"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("edgehub")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	config.LoadEnvFile()
	if cloudURL != "" {
		v.Set("cloud_endpoint", cloudURL)
	}
	return config.Load(v)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "конфигурационный файл")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "вывод в формате JSON")
	rootCmd.PersistentFlags().StringVar(&cloudURL, "cloud", "", "URL облачного сервиса")

	rootCmd.AddCommand(runCmd, syncCmd, statusCmd, tokenCmd)
}
