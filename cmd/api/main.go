package main

import (
	"context"
	"fmt"
	"os"

	"todoTracker/internal/app"
	"todoTracker/internal/config"
	"todoTracker/internal/repository/postgres"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "todo-api",
	Short: "Многопользовательский трекер задач",
	// без подкоманды запускаем сервер
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Запустить HTTP API",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Миграции схемы postgres",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Применить все миграции",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := postgres.MigrateUp(cfg.Database.URL); err != nil {
			return err
		}
		fmt.Println("миграции применены")
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Откатить миграции",
	RunE: func(cmd *cobra.Command, args []string) error {
		steps, err := cmd.Flags().GetInt("steps")
		if err != nil {
			return err
		}
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := postgres.MigrateDown(cfg.Database.URL, steps); err != nil {
			return err
		}
		fmt.Printf("откачено миграций: %d\n", steps)
		return nil
	},
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx := context.Background()
	application := app.New(cfg)
	if err := application.Init(ctx); err != nil {
		return err
	}
	if err := application.Start(ctx); err != nil {
		_ = application.Stop(ctx)
		return err
	}

	wait := gfshutdown.GracefulShutdown(
		ctx,
		cfg.Server.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"app": func(ctx context.Context) error {
				return application.Stop(ctx)
			},
		},
	)
	os.Exit(<-wait)
	return nil
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "путь к config.yml")
	migrateDownCmd.Flags().Int("steps", 1, "сколько миграций откатить")

	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
	rootCmd.AddCommand(serveCmd, migrateCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ошибка:", err)
		os.Exit(1)
	}
}
