package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/sync/errgroup"

	"modguard/admin"
	"modguard/config"
	"modguard/discord"
	"modguard/policy"
	"modguard/store"
)

var version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "Show version and exit")
	configPath := flag.String("config", "./config.toml", "Path to the configuration file.")
	useDefaults := flag.Bool("use-defaults", false, "Run with internal defaults if the config file is missing.")
	validateConfig := flag.Bool("validate", false, "Validate the configuration file and exit.")
	dryRun := flag.Bool("dry-run", false, "Log what would be enforced without taking any action.")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}
	if *validateConfig {
		if err := validateConfiguration(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Configuration is INVALID: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Configuration is VALID.")
		return
	}
	if err := runApp(*configPath, *useDefaults, *dryRun); err != nil {
		fmt.Fprintf(os.Stderr, "Application run failed: %v\n", err)
		os.Exit(1)
	}
}

func runApp(configPath string, useDefaults bool, dryRun bool) error {
	cfg, defaultsUsed, err := config.Load(configPath, useDefaults)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.Level.ToSlogLevel()}))
	slog.SetDefault(logger)
	if dryRun {
		slog.Warn("Bot is running in DRY-RUN mode, no enforcement actions will be taken.")
	}
	slog.Info("Moderation engine starting up",
		"version", version, "config_path", configPath, "using_defaults", defaultsUsed)

	if cfg.Discord.Token == "" {
		return fmt.Errorf("no bot token: set discord.token in the config or the %s environment variable", config.TokenEnvVar)
	}

	db, err := store.NewBadgerStore(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("Failed to close database", "error", err)
		}
	}()

	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return fmt.Errorf("failed to create gateway session: %w", err)
	}

	client := discord.NewClient(session)
	enforcer := policy.NewEnforcer(client, &cfg.Moderation, dryRun)
	evaluator, err := policy.NewEvaluator(db, enforcer, cfg.Moderation.MatcherCacheSize)
	if err != nil {
		return fmt.Errorf("failed to create evaluator: %w", err)
	}
	adminHandler := admin.NewHandler(db, &cfg.Moderation)
	bot := discord.NewBot(session, evaluator, adminHandler, cfg.Discord.GuildID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		config.StartWatcher(ctx, configPath, []config.Updatable{enforcer, adminHandler}, 0)
		return nil
	})
	g.Go(func() error {
		return bot.Run(ctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("Shutdown complete.")
	return nil
}

func validateConfiguration(configPath string) error {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
	fmt.Printf("Validating configuration file: %s\n", configPath)
	_, _, err := config.Load(configPath, false)
	return err
}
