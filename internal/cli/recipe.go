package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/soyeahso/bakebot/internal/domain"
	"github.com/soyeahso/bakebot/internal/render"
	"github.com/soyeahso/bakebot/internal/store"
	"github.com/soyeahso/bakebot/internal/transport"
	"github.com/spf13/cobra"
)

func newRecipeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recipe",
		Short: "Upload, submit and keep recipes",
	}

	cmd.AddCommand(newRecipeCreateCmd())
	cmd.AddCommand(newRecipeUploadCmd())
	cmd.AddCommand(newRecipeSubmitCmd())
	cmd.AddCommand(newRecipeSaveCmd())
	cmd.AddCommand(newRecipeListCmd())
	cmd.AddCommand(newRecipeSearchCmd())
	cmd.AddCommand(newRecipeShowCmd())
	cmd.AddCommand(newRecipeDeleteCmd())
	return cmd
}

func newRecipeCreateCmd() *cobra.Command {
	var (
		page     string
		servings int
		style    string
	)

	cmd := &cobra.Command{
		Use:   "create <dish>",
		Short: "Have the chef write a new recipe",
		Example: `  bakebot recipe create "vegan lasagna" --servings 6
  bakebot recipe create sourdough focaccia --style "Classic Pro Chef"`,
		Args: cobra.MinimumNArgs(1),
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

			if style != "" {
				w.SetChefStyle(style)
			}
			_, err = w.CreateRecipe(ctx, strings.Join(args, " "), servings)
			return err
		},
	}

	cmd.Flags().StringVar(&page, "page", defaultPage, "page key the recipe belongs to")
	cmd.Flags().IntVar(&servings, "servings", 0, "serving size (0 lets the chef choose)")
	cmd.Flags().StringVar(&style, "style", "", "chef style (e.g. \"Sweet Home Chef\")")
	return cmd
}

func newRecipeUploadCmd() *cobra.Command {
	var (
		page  string
		files []string
	)

	cmd := &cobra.Command{
		Use:   "upload [recipe text | -]",
		Short: "Have the backend structure a recipe from text or files",
		Long: "Upload free-form recipe text (\"-\" reads stdin) or, with --file, recipe " +
			"documents or photos. The structured recipe becomes the page's recipe.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(files) == 0 && len(args) == 0 {
				return errors.New("give recipe text, \"-\" for stdin, or --file")
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

			if len(files) > 0 {
				uploads := make([]transport.UploadFile, 0, len(files))
				for _, path := range files {
					f, err := os.Open(path)
					if err != nil {
						return err
					}
					defer f.Close()
					uploads = append(uploads, transport.UploadFile{Name: filepath.Base(path), Reader: f})
				}
				_, err = w.UploadFiles(ctx, uploads)
				return err
			}

			text := strings.Join(args, " ")
			if text == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				text = string(data)
			}
			_, err = w.UploadText(ctx, text)
			return err
		},
	}

	cmd.Flags().StringVar(&page, "page", defaultPage, "page key the recipe belongs to")
	cmd.Flags().StringArrayVar(&files, "file", nil, "recipe file to upload (repeatable)")
	return cmd
}

func newRecipeSubmitCmd() *cobra.Command {
	var (
		page string
		file string
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Send the page's recipe, or a recipe JSON file, to the chef",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var recipe *domain.Recipe
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				r, ok := domain.ParseRecipe(string(data))
				if !ok {
					return fmt.Errorf("%s does not hold a recipe", file)
				}
				recipe = &r
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

			_, err = w.SubmitRecipe(ctx, recipe)
			return err
		},
	}

	cmd.Flags().StringVar(&page, "page", defaultPage, "page key to submit from")
	cmd.Flags().StringVar(&file, "file", "", "recipe JSON file to submit instead")
	return cmd
}

func newRecipeSaveCmd() *cobra.Command {
	var page string

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save the page's recipe",
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

			id, err := w.SaveRecipe(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved as #%d\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&page, "page", defaultPage, "page key to save from")
	return cmd
}

func newRecipeListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved recipes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			saved, err := store.NewRecipeStore(a.db).List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			printSaved(cmd.OutOrStdout(), saved)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum recipes to list")
	return cmd
}

func newRecipeSearchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search saved recipes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			saved, err := store.NewRecipeStore(a.db).Search(cmd.Context(), strings.Join(args, " "), limit)
			if err != nil {
				return err
			}
			printSaved(cmd.OutOrStdout(), saved)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum results")
	return cmd
}

func newRecipeShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a saved recipe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid recipe id %q", args[0])
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			saved, err := store.NewRecipeStore(a.db).Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.TextFromHTML(render.MarkdownHTML(saved.Recipe.Markdown())))
			return nil
		},
	}
}

func newRecipeDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved recipe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid recipe id %q", args[0])
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := store.NewRecipeStore(a.db).Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted #%d\n", id)
			return nil
		},
	}
}

func printSaved(w io.Writer, saved []store.SavedRecipe) {
	if len(saved) == 0 {
		fmt.Fprintln(w, "no saved recipes")
		return
	}
	for _, s := range saved {
		fmt.Fprintf(w, "#%-4d %-30s %s\n", s.ID, s.Recipe.Name, s.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
}
