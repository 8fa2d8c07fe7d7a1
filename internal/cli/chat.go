package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/soyeahso/bakebot/internal/domain"
	"github.com/soyeahso/bakebot/internal/render"
	"github.com/soyeahso/bakebot/internal/widget"
	"github.com/spf13/cobra"
)

const chatHelp = `Type a message and press enter. Commands:
  /mode <ask|modify|pairings|chat>  switch what messages do
  /style <chef style>               pick a persona
  /create [servings] <dish>         have the chef write a new recipe
  /recipe                           show the current recipe
  /submit                           send the current recipe to the chef
  /save                             save the current recipe
  /clear                            clear the conversation
  /quit                             leave`

func newChatCmd() *cobra.Command {
	var (
		page  string
		mode  string
		style string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the chef in the terminal",
		Args:  cobra.NoArgs,
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

			w, err := a.openPage(ctx, page, true, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer w.Close(context.WithoutCancel(ctx))
			if style != "" {
				w.SetChefStyle(style)
			}

			return runChat(ctx, w, m, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&page, "page", defaultPage, "page key to continue")
	cmd.Flags().StringVar(&mode, "mode", "chat", "initial mode (chat, ask, modify, pairings)")
	cmd.Flags().StringVar(&style, "style", "", "chef style (e.g. \"Snarky Fun Chef\")")
	return cmd
}

// runChat reads lines from in until EOF, /quit or ctx ends. Failed turns are
// already reported by the page, so they do not end the loop.
func runChat(ctx context.Context, w *widget.Widget, mode domain.Mode, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, chatHelp)
	prompt := func() { fmt.Fprintf(out, "[%s] > ", mode) }

	scanner := bufio.NewScanner(in)
	prompt()
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())

		cmd, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)
		switch cmd {
		case "/quit", "/exit":
			return nil
		case "/help":
			fmt.Fprintln(out, chatHelp)
		case "/mode":
			m, err := domain.ParseMode(arg)
			if err != nil || m == domain.ModeUploadRecipe {
				fmt.Fprintf(out, "unknown mode %q\n", arg)
				break
			}
			mode = m
		case "/style":
			if arg != "" {
				w.SetChefStyle(arg)
			}
			fmt.Fprintf(out, "chef style: %s\n", w.ChefStyle().Label())
		case "/recipe":
			r, ok := w.Recipe()
			if !ok {
				fmt.Fprintln(out, "no recipe yet")
				break
			}
			fmt.Fprintln(out, render.TextFromHTML(render.MarkdownHTML(r.Markdown())))
		case "/create":
			servings, dish := 0, arg
			if first, rest, ok := strings.Cut(arg, " "); ok {
				if n, err := strconv.Atoi(first); err == nil && n > 0 {
					servings, dish = n, strings.TrimSpace(rest)
				}
			}
			w.CreateRecipe(ctx, dish, servings)
		case "/submit":
			w.SubmitRecipe(ctx, nil)
		case "/save":
			w.SaveRecipe(ctx)
		case "/clear":
			w.ClearHistory(ctx)
		default:
			w.Ask(ctx, mode, line)
		}
		prompt()
	}
	fmt.Fprintln(out)
	return scanner.Err()
}
