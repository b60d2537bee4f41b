package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/tablesync/tablesync/internal/server"
	"github.com/tablesync/tablesync/pkg/auth"
	"github.com/tablesync/tablesync/pkg/config"
	"github.com/tablesync/tablesync/pkg/logging"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var configPath string
	var mintUser string
	var ttl time.Duration

	flagSet := pflag.NewFlagSet("tablesync", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to a YAML config file (default: ./tablesync.yaml)")
	flagSet.String("address", "", "listen address, e.g. :8080")
	flagSet.String("log-level", "", "debug, info, warn or error")
	flagSet.String("seed", "", "YAML fixture file loaded into the in-memory store")
	flagSet.StringVar(&mintUser, "mint-token", "", "print a signed session token for this user id and exit")
	flagSet.DurationVar(&ttl, "ttl", 24*time.Hour, "lifetime of a minted token")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	bootLogger := logging.New(logging.LevelInfo)
	cfg, err := config.Load(bootLogger, configPath, flagSet)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if mintUser != "" {
		return mintToken(cfg, mintUser, ttl)
	}

	logger := logging.NewWithFormat(os.Stdout, logging.ParseLevel(cfg.Log.Level), cfg.Log.Format)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := server.NewApp(ctx, logger, cfg)
	if err != nil {
		return err
	}
	if err := app.Run(); err != nil {
		return err
	}
	logger.Info("Application shut down successfully.")
	return nil
}

func mintToken(cfg *config.Config, userID string, ttl time.Duration) error {
	sessions, err := auth.NewJWTSessions(cfg.Auth.JWTSecret)
	if err != nil {
		return err
	}
	token, err := sessions.Issue(userID, ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
