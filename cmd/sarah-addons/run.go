package main

import (
	"context"
	"fmt"
	"github.com/oklahomer/go-kasumi/logger"
	_ "github.com/oklahomer/go-sarah-addons/plugins/fox"
	"github.com/oklahomer/go-sarah-addons/plugins/shame"
	"github.com/oklahomer/go-sarah/v4"
	"github.com/oklahomer/go-sarah/v4/slack"
	"github.com/oklahomer/go-sarah/v4/watchers"
	"github.com/spf13/cobra"
	"os"
	"os/signal"
	"syscall"
)

func newRunCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the Slack bot with the bundled plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := opts.config()
			if err != nil {
				return err
			}
			return run(cmd.Context(), config)
		},
	}
}

func run(parent context.Context, config *appConfig) error {
	if config.Slack.Token == "" {
		return fmt.Errorf("slack token is not given: set slack.token or SLACK_TOKEN")
	}

	// Setup storage that can be shared among different Bot implementation.
	storage := sarah.NewUserContextStorage(config.CacheConfig)

	adapter, err := slack.NewAdapter(config.Slack, slack.WithRTMPayloadHandler(slack.DefaultRTMPayloadHandler))
	if err != nil {
		return fmt.Errorf("failed to setup slack adapter: %w", err)
	}
	sarah.RegisterBot(sarah.NewBot(adapter, sarah.BotWithStorage(storage)))

	// This Command is not subject to config file supervision.
	sarah.RegisterCommand(slack.SLACK, shame.Command)

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	// fox.yaml under this directory is read on boot and on every change.
	if config.PluginConfigDir != "" {
		configWatcher, err := watchers.NewFileWatcher(ctx, config.PluginConfigDir)
		if err != nil {
			return fmt.Errorf("failed to watch %s: %w", config.PluginConfigDir, err)
		}
		sarah.RegisterConfigWatcher(configWatcher)
	}

	if err := sarah.Run(ctx, config.Runner); err != nil {
		return fmt.Errorf("failed to run: %w", err)
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	signal.Notify(c, syscall.SIGTERM)

	select {
	case <-c:
		logger.Info("Stopping due to signal reception.")

	case <-ctx.Done():
		logger.Info("Stopping due to context cancellation.")

	}

	return nil
}
