// Package cli implements the bakebot command line.
package cli

import (
	"io"

	"github.com/soyeahso/bakebot/internal/config"
	"github.com/soyeahso/bakebot/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string

	// loaded at init time
	paths     config.Paths
	log       *logging.Logger
	logCloser io.Closer
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bakebot",
		Short: "bakebot: a recipe chef you can chat with",
		Long: "bakebot drives chat sessions against a recipe backend. Chat from the terminal, " +
			"serve browser pages through the gateway, or bridge the chef into IRC.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			paths, err = config.ResolvePaths()
			if err != nil {
				return err
			}
			if cfgFile != "" {
				paths.Config = cfgFile
			}

			opts := logging.Options{Level: "warn", Style: "pretty"}
			if cfg, err := config.Load(paths.Config); err == nil {
				opts.Level = cfg.Logging.Level
				opts.Style = cfg.Logging.ConsoleStyle
				opts.File = cfg.Logging.File
			}
			if logLevel != "" {
				opts.Level = logLevel
			}
			log, logCloser, err = logging.Open(opts)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if logCloser != nil {
				return logCloser.Close()
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.bakebot/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newGatewayCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newChatCmd())
	cmd.AddCommand(newMessageCmd())
	cmd.AddCommand(newRecipeCmd())
	cmd.AddCommand(newSessionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}
