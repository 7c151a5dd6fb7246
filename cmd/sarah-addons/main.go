/*
Package main provides sarah-addons, a command that runs a Slack bot with the bundled plugins
and inspects documents stored by the configured provider.

	sarah-addons run --config=/path/to/app.yml
	sarah-addons doc get guilds 1234 --config=/path/to/app.yml
*/
package main

import (
	"github.com/spf13/cobra"
	"os"
)

type rootOptions struct {
	configPath string
	envFiles   []string
}

func (o *rootOptions) config() (*appConfig, error) {
	loadEnv(o.envFiles...)

	config, err := readConfig(o.configPath)
	if err != nil {
		return nil, err
	}

	applyEnv(config, os.Getenv)
	return config, nil
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "sarah-addons",
		Short:         "Run go-sarah with document storage providers and extra plugins",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to application configuration file")
	cmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", []string{".env"}, "dotenv files to load before reading configuration")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newDocCommand(opts))

	return cmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
