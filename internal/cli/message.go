package cli

import (
	"context"
	"strings"

	"github.com/soyeahso/bakebot/internal/domain"
	"github.com/spf13/cobra"
)

func newMessageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "message",
		Short: "Send one-off messages",
	}

	cmd.AddCommand(newMessageSendCmd())
	return cmd
}

func newMessageSendCmd() *cobra.Command {
	var (
		page  string
		mode  string
		style string
	)

	cmd := &cobra.Command{
		Use:   "send [message]",
		Short: "Send one turn to the chef and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := domain.ParseMode(mode)
			if err != nil {
				return err
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signalContext()
			defer stop()

			w, err := a.openPage(ctx, page, false, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer w.Close(context.WithoutCancel(ctx))
			if style != "" {
				w.SetChefStyle(style)
			}

			_, err = w.Ask(ctx, m, strings.Join(args, " "))
			return err
		},
	}

	cmd.Flags().StringVar(&page, "page", defaultPage, "page key the turn belongs to")
	cmd.Flags().StringVar(&mode, "mode", "chat", "mode (chat, ask, modify, pairings)")
	cmd.Flags().StringVar(&style, "style", "", "chef style")
	return cmd
}
