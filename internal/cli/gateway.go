package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/soyeahso/bakebot/internal/channel"
	"github.com/soyeahso/bakebot/internal/channel/irc"
	"github.com/soyeahso/bakebot/internal/config"
	"github.com/soyeahso/bakebot/internal/gateway"
	"github.com/soyeahso/bakebot/internal/plugin"
	"github.com/soyeahso/bakebot/internal/routing"
	"github.com/soyeahso/bakebot/internal/widget"
	"github.com/spf13/cobra"
	"github.com/tillberg/autorestart"
)

func newGatewayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gateway",
		Short: "Manage the bakebot gateway server",
	}

	cmd.AddCommand(newGatewayRunCmd())
	return cmd
}

func newGatewayRunCmd() *cobra.Command {
	var (
		port  int
		bind  string
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Serve chat pages over WebSocket and start chat bridges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if watch {
				go autorestart.RestartOnChange()
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if port != 0 {
				a.cfg.Gateway.Port = port
			}
			if bind != "" {
				a.cfg.Gateway.Bind = bind
			}

			// served read-only through config.get
			raw, err := config.LoadRaw(paths.Config)
			if err != nil {
				log.Warn().Err(err).Msg("could not load raw config")
				raw = make(map[string]any)
			}

			ctx, stop := signalContext()
			defer stop()

			plugins := plugin.NewRegistry(a.hooks, log)
			if err := plugins.Register(plugin.NewTurnStats()); err != nil {
				return err
			}
			if err := plugins.InitAll(ctx); err != nil {
				return err
			}
			defer plugins.CloseAll()

			channels := channel.NewRegistry(log)
			if cfg := a.cfg.Channels.IRC; cfg != nil {
				channels.Register(irc.New(*cfg, log))
			}

			if channels.Count() > 0 {
				scope, style := "", ""
				if cfg := a.cfg.Channels.IRC; cfg != nil {
					scope, style = cfg.Scope, cfg.ChefStyle
				}
				router := routing.NewRouter(channels, widget.NewFactory(a.cfg, a.db, a.hooks, log), scope, style, log)
				router.Wire(ctx)
				channels.StartAll(ctx)
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					channels.StopAll(shutdownCtx)
					router.Close(shutdownCtx)
				}()
				log.Info().Int("channels", channels.Count()).Str("scope", scope).Msg("chat bridges active")
			}

			srv := gateway.New(a.cfg, log,
				gateway.WithStore(a.db),
				gateway.WithConfigRaw(raw),
				gateway.WithChannels(channels),
				gateway.WithHooks(a.hooks),
				gateway.WithPlugins(plugins),
			)
			if err := srv.Start(ctx); err != nil {
				return fmt.Errorf("gateway: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override gateway port")
	cmd.Flags().StringVar(&bind, "bind", "", "override bind mode (auto, lan, loopback, custom)")
	cmd.Flags().BoolVar(&watch, "watch", false, "restart when the binary changes on disk")
	return cmd
}
