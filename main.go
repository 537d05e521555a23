// Package main is the Trench War server entrypoint.
package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"trench_war_server/config"
	"trench_war_server/logging"
)

var (
	logger logrus.FieldLogger = logrus.StandardLogger()

	settings config.Settings

	rootCmd = &cobra.Command{
		Use:           "trenchwar",
		Short:         "Authoritative server for two-player Trench War matches.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			logging.SetLogger(settings.LogLevel)
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Starts the game server.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), settings)
		},
	}

	schemaCmd = &cobra.Command{
		Use:   "schema",
		Short: "Prints the JSON Schema of the wire protocol.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeSchema(cmd.OutOrStdout())
		},
	}

	profileCmd = &cobra.Command{
		Use:   "profile <token>",
		Short: "Prints the career profile of a client token.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printProfile(cmd.Context(), cmd.OutOrStdout(), settings.DBPath, args[0])
		},
	}
)

func init() {
	if err := config.LoadEnv(); err != nil {
		logger.Fatalln(err)
	}
	settings = config.FromEnv()

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&settings.LogLevel, "log-level", settings.LogLevel, "log level (trace, debug, info, warn, error)")
	flags.StringVar(&settings.DBPath, "db", settings.DBPath, "SQLite profile database; empty disables profiles")

	serveCmd.Flags().IntVarP(&settings.Port, "port", "p", settings.Port, "listening port")
	serveCmd.Flags().StringVar(&settings.StaticDir, "static", settings.StaticDir, "directory holding the web client")
	serveCmd.Flags().StringVar(&settings.ConfigPath, "config", settings.ConfigPath, "JSON tunables file")

	rootCmd.AddCommand(
		serveCmd,
		schemaCmd,
		profileCmd,
	)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logger.Fatal(errors.Wrap(err, "execute root command failed"))
	}
}
