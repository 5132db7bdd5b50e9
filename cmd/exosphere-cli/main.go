// exosphere-cli — административная утилита: реестр планировщиков
// и каталог jobs.
//
// Использование:
//
//	exosphere-cli [--backend postgres|mongo|redis] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	instances  Просмотр реестра планировщиков
//	jobs       Управление каталогом jobs
//
// Подключение настраивается теми же переменными окружения,
// что и у exosphere-scheduler (DB_URL, MONGO_URL, REDIS_URL, ...).
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/exosphere/internal/cli"
	"github.com/shaiso/exosphere/internal/config"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var backend string
	var jsonOutput bool
	var verbose bool

	rootCmd := &cobra.Command{
		Use:           "exosphere-cli",
		Short:         "exosphere CLI — scheduler registry and job catalog tool",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "Registry store backend (overrides STORE_BACKEND)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log store and readiness diagnostics to stderr")

	clientFn := func(cmd *cobra.Command) (*cli.Client, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		if backend != "" {
			cfg.StoreBackend = config.StoreBackend(backend)
		}

		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

		return cli.Dial(cmd.Context(), cfg, logger)
	}
	outputFn := func(*cobra.Command) *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewInstancesCmd(clientFn, outputFn),
		cli.NewJobsCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
