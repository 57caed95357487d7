package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/droverdev/drover/internal/api"
	"github.com/droverdev/drover/internal/config"
	"github.com/droverdev/drover/internal/db"
	"github.com/droverdev/drover/internal/dispatch"
	"github.com/droverdev/drover/internal/notify"
	"github.com/droverdev/drover/internal/release"
	"github.com/droverdev/drover/internal/tasks"
	"github.com/droverdev/drover/internal/transport"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Drover API server",
		Long:  "Connects to the database and the message bus, then serves the HTTP API until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "drover.yaml", "path to Drover config file")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}

	bus, err := transport.Connect(cfg.Bus.URL, cfg.Bus.ServerUser, cfg.Bus.ServerPass)
	if err != nil {
		return err
	}
	defer bus.Close()

	var adapters []notify.Adapter
	if s := notify.NewSlack(cfg.Notify.SlackBotToken, cfg.Notify.SlackChannel); s != nil {
		adapters = append(adapters, s)
	}
	d, err := notify.NewDiscord(cfg.Notify.DiscordToken, cfg.Notify.DiscordChannel)
	if err != nil {
		return err
	}
	if d != nil {
		adapters = append(adapters, d)
	}
	notifier := notify.New(adapters...)

	var reconciler dispatch.Reconciler
	if cfg.Bus.ConfPath != "" {
		reconciler = &transport.Reconciler{DB: gormDB, Cfg: cfg.Bus}
	}

	dispatcher := &dispatch.Dispatcher{
		DB:         gormDB,
		Bus:        bus,
		Releases:   release.New(cfg.Agent),
		Notifier:   notifier,
		Reconciler: reconciler,
	}
	// A nil *Mailer stored in the interface field would defeat the
	// nil check in dispatch, so only assign a configured one.
	if m := notify.NewMailer(cfg.Mail); m != nil {
		dispatcher.Mailer = m
	}

	sched, err := tasks.New(gormDB, dispatcher, cfg)
	if err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := api.New(gormDB, dispatcher, cfg.Listen)
	log.Printf("drover: serving on %s", cfg.Listen)
	notifier.Announce(ctx, "Drover started", fmt.Sprintf("API listening on %s", cfg.Listen))
	return srv.Start(ctx)
}
