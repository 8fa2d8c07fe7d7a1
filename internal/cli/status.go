package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/soyeahso/bakebot/internal/config"
	"github.com/soyeahso/bakebot/internal/domain"
	"github.com/soyeahso/bakebot/internal/version"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show bakebot status and a configuration summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "bakebot %s (commit %s)\n\n", version.Version, version.Commit)

			fmt.Fprintf(out, "Config:  %s\n", paths.Config)
			fmt.Fprintf(out, "Data:    %s\n", paths.Data)
			fmt.Fprintf(out, "Logs:    %s\n", paths.Logs)
			fmt.Fprintln(out)

			if _, err := os.Stat(paths.Config); os.IsNotExist(err) {
				fmt.Fprintln(out, "Config:  not found (using defaults)")
			}
			cfg, err := config.Load(paths.Config)
			if err != nil {
				fmt.Fprintf(out, "Config:  error loading: %v\n", err)
				return nil
			}

			fmt.Fprintf(out, "Backend: %s (timeout %s)\n", cfg.Backend.BaseURL, cfg.Backend.Timeout())
			fmt.Fprintf(out, "Widget:  bot=%s style=%q save-trigger=%q\n",
				cfg.Widget.BotName, domain.ParseChefStyle(cfg.Widget.ChefStyle).Label(), cfg.Widget.SaveTrigger)
			fmt.Fprintf(out, "Gateway: port=%d bind=%s auth=%s\n", cfg.Gateway.Port, cfg.Gateway.Bind, cfg.Gateway.Auth.Mode)

			if cfg.Store.Driver == "memory" {
				fmt.Fprintln(out, "Store:   memory")
			} else {
				fmt.Fprintf(out, "Store:   %s %s\n", cfg.Store.Driver, paths.DatabasePath(cfg.Store))
			}

			if irc := cfg.Channels.IRC; irc != nil {
				fmt.Fprintf(out, "IRC:     server=%s nick=%s channels=%s tls=%v scope=%s\n",
					irc.Server, irc.Nick, strings.Join(irc.Channels, ","), irc.UseTLS, irc.Scope)
			} else {
				fmt.Fprintln(out, "IRC:     (not configured)")
			}

			if issues := config.Validate(&cfg); len(issues) > 0 {
				fmt.Fprintf(out, "\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Fprintf(out, "  - %s: %s\n", issue.Path, issue.Message)
				}
			}
			return nil
		},
	}
}
