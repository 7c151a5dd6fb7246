package main

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/oklahomer/go-kasumi/logger"
	"github.com/oklahomer/go-sarah-addons"
	"github.com/spf13/cobra"
	"io"
)

func newDocCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doc",
		Short: "Inspect documents stored by the configured provider",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "keys <table>",
		Short: "List document ids in the table",
		Args:  cobra.ExactArgs(1),
		RunE: withProvider(opts, func(ctx context.Context, provider addons.Provider, out io.Writer, args []string) error {
			keys, err := provider.GetKeys(ctx, args[0])
			if err != nil {
				return err
			}
			for _, key := range keys {
				fmt.Fprintln(out, key)
			}
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <table> <id>",
		Short: "Print the document as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: withProvider(opts, func(ctx context.Context, provider addons.Provider, out io.Writer, args []string) error {
			doc, err := provider.Get(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(out, doc)
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <table> <id>",
		Short: "Delete the document",
		Args:  cobra.ExactArgs(2),
		RunE: withProvider(opts, func(ctx context.Context, provider addons.Provider, _ io.Writer, args []string) error {
			return provider.Delete(ctx, args[0], args[1])
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "schedules <table> <id>",
		Short: "Print the scheduled tasks stored in the document",
		Args:  cobra.ExactArgs(2),
		RunE: withProvider(opts, func(ctx context.Context, provider addons.Provider, out io.Writer, args []string) error {
			tasks, err := addons.LoadSchedules(ctx, provider, args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(out, tasks)
		}),
	})

	return cmd
}

type providerFunc func(context.Context, addons.Provider, io.Writer, []string) error

func withProvider(opts *rootOptions, fnc providerFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		config, err := opts.config()
		if err != nil {
			return err
		}

		provider, err := openProvider(cmd.Context(), config.Provider)
		if err != nil {
			return err
		}
		defer func() {
			if err := provider.Close(); err != nil {
				logger.Warnf("Failed to close provider: %s", err.Error())
			}
		}()

		return fnc(cmd.Context(), provider, cmd.OutOrStdout(), args)
	}
}

func printJSON(out io.Writer, value interface{}) error {
	b, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(b))
	return err
}
