package main

import (
	"context"
	"eofficeTracker/internal/app"
	"eofficeTracker/internal/config"
	"eofficeTracker/internal/logger"
	"eofficeTracker/internal/middleware"
	"eofficeTracker/internal/repository/postgres"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "eoffice",
		Short:         "eOffice - учёт задач документооборота",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yml", "путь к config.yml")

	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(migrateCmd(&configPath))
	rootCmd.AddCommand(tokenCmd(&configPath))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Запустить HTTP сервер и фоновые задачи",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(cfg).Init(ctx)
			if err != nil {
				return err
			}
			return a.Run(ctx)
		},
	}
}

func migrateCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Миграции схемы PostgreSQL",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Применить все миграции",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn, err := databaseURL(*configPath)
			if err != nil {
				return err
			}
			defer logger.Sync()
			return postgres.MigrateUp(dsn)
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Откатить миграции",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps <= 0 {
				return errors.New("--steps должен быть положительным")
			}
			dsn, err := databaseURL(*configPath)
			if err != nil {
				return err
			}
			defer logger.Sync()
			return postgres.MigrateDown(dsn, steps)
		},
	}
	down.Flags().IntVarP(&steps, "steps", "n", 1, "сколько миграций откатить")

	cmd.AddCommand(up, down)
	return cmd
}

func tokenCmd(configPath *string) *cobra.Command {
	var (
		actorID string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Выпустить токен доступа для пользователя",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			id, err := uuid.Parse(actorID)
			if err != nil {
				return fmt.Errorf("некорректный --actor: %w", err)
			}
			if ttl <= 0 {
				ttl = cfg.Auth.TokenTTL
			}

			token, err := middleware.IssueToken(cfg.Auth.JWTSecret, id, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&actorID, "actor", "", "id пользователя")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "срок действия (по умолчанию auth.token_ttl)")
	_ = cmd.MarkFlagRequired("actor")
	return cmd
}

func databaseURL(configPath string) (string, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return "", err
	}
	if cfg.Database.URL == "" {
		return "", errors.New("database.url не задан")
	}
	if err := logger.Init(cfg.Logging.Development); err != nil {
		return "", err
	}
	return cfg.Database.URL, nil
}
