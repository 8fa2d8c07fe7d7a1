package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/soyeahso/bakebot/internal/render"
	"github.com/soyeahso/bakebot/internal/store"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect and clear page sessions",
	}

	cmd.AddCommand(newSessionListCmd())
	cmd.AddCommand(newSessionShowCmd())
	cmd.AddCommand(newSessionClearCmd())
	return cmd
}

func newSessionListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved sessions, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			records, err := store.NewSessionStore(a.db).List(limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "no sessions")
				return nil
			}
			for _, rec := range records {
				fmt.Fprintf(out, "%-30s session=%s thread=%s updated=%s\n",
					rec.Page, orNone(rec.Session.SessionID), orNone(rec.Session.ThreadID),
					rec.UpdatedAt.Local().Format("2006-01-02 15:04"))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum sessions to list")
	return cmd
}

func newSessionShowCmd() *cobra.Command {
	var (
		page   string
		limit  int
		remote bool
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a page's session and transcript",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			sess, ok, err := store.NewSessionStore(a.db).LoadSession(page)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintf(out, "page %s has no session yet\n", page)
			} else {
				fmt.Fprintf(out, "page:    %s\nsession: %s\nthread:  %s\n", page, orNone(sess.SessionID), orNone(sess.ThreadID))
			}

			entries, err := a.db.TranscriptEntries(page, limit)
			if err != nil {
				return err
			}
			if len(entries) > 0 {
				fmt.Fprintln(out)
			}
			for _, e := range entries {
				fmt.Fprintln(out, formatEntry(e, a.cfg.Widget.BotName))
			}

			if !remote {
				return nil
			}
			ctx, stop := signalContext()
			defer stop()
			w, err := a.openPage(ctx, page, false, out, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer w.Close(context.WithoutCancel(ctx))

			status, err := w.Status(ctx)
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(status)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\nbackend:\n%s", indent(string(data)))
			return nil
		},
	}

	cmd.Flags().StringVar(&page, "page", defaultPage, "page key to show")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum transcript entries (0 for all)")
	cmd.Flags().BoolVar(&remote, "remote", false, "also ask the backend for its view")
	return cmd
}

func newSessionClearCmd() *cobra.Command {
	var page string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear a page's conversation here and on the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
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
			return w.ClearHistory(ctx)
		},
	}

	cmd.Flags().StringVar(&page, "page", defaultPage, "page key to clear")
	return cmd
}

func formatEntry(e store.TranscriptEntry, botName string) string {
	switch e.Kind {
	case store.EntryMessage:
		who := string(e.Sender)
		if e.Sender == render.SenderBot {
			who = botName
		}
		return fmt.Sprintf("%s: %s", who, strings.TrimSpace(e.Content))
	case store.EntryRecipe:
		return "[recipe]\n" + indent(render.TextFromHTML(e.Content))
	default:
		return "[" + e.Kind + "]\n" + indent(render.TextFromHTML(e.Content))
	}
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n") + "\n"
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
