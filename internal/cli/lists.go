package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/example/spellsync/internal/wordlist"
)

func newImportCmd(opts *rootOptions) *cobra.Command {
	cfg := wordlist.DefaultImportConfig()
	noHeader := false

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a word list from a .txt, .csv or .xlsx file",
		Long: `Imports a user word list. Text files use the bundled list format; CSV and
Excel files read words and definitions from the given columns.

Example:
  spellsync import animals.xlsx --language en --name "Animals" --word-col A --def-col B`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.FilePath = args[0]
			cfg.SkipHeader = !noHeader
			return runImport(cmd, opts.app, cfg)
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.ListID, "id", "", "list ID (defaults to the file name)")
	f.StringVar(&cfg.Name, "name", "", "display name")
	f.StringVarP(&cfg.Language, "language", "l", "", "language code of the words")
	f.StringVar(&cfg.WordColumn, "word-col", cfg.WordColumn, "column holding the words")
	f.StringVar(&cfg.DefinitionColumn, "def-col", cfg.DefinitionColumn, "column holding the definitions")
	f.StringVar(&cfg.SheetName, "sheet", "", "Excel sheet (defaults to the first one)")
	f.BoolVar(&noHeader, "no-header", false, "the first row holds data, not column titles")
	return cmd
}

func runImport(cmd *cobra.Command, app *App, cfg wordlist.ImportConfig) error {
	list, result, err := app.Catalog.Import(cmd.Context(), cfg, app.Config.UserID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Imported %q (%s, %s): %d words, %d skipped\n",
		list.Name, list.ID, list.Language, result.Imported, result.Skipped)
	for _, e := range result.Errors {
		fmt.Fprintf(out, "  %s\n", e)
	}
	return nil
}

func newListsCmd(opts *rootOptions) *cobra.Command {
	var language string
	cmd := &cobra.Command{
		Use:   "lists",
		Short: "Show the available word lists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLists(cmd, opts.app, language)
		},
	}
	cmd.Flags().StringVarP(&language, "language", "l", "", "only lists of this language")
	return cmd
}

func runLists(cmd *cobra.Command, app *App, language string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	lists, err := app.Catalog.Lists(ctx, language)
	if err != nil {
		return err
	}
	if len(lists) == 0 {
		fmt.Fprintln(out, "No word lists found")
		return nil
	}
	settings, err := app.Practice.Settings(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tLANGUAGE\tNAME\tWORDS\tLEVELS\tSOURCE")
	for _, header := range lists {
		list, err := app.Catalog.Get(ctx, header.ID)
		if err != nil {
			return err
		}
		mark := ""
		if list.ID == settings.SelectedListID {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n", mark, list.ID, list.Language, list.Name,
			len(list.Words), wordlist.LevelCount(list, settings.WordsPerLevel), list.Source)
	}
	return tw.Flush()
}

func newLevelsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "levels [list]",
		Short: "Show level progress of a list (the selected one by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			listID := ""
			if len(args) == 1 {
				listID = args[0]
			}
			return runLevels(cmd, opts.app, listID)
		},
	}
}

func runLevels(cmd *cobra.Command, app *App, listID string) error {
	levels, err := app.Practice.Overview(cmd.Context(), listID)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LEVEL\tWORDS\tSTATUS\tBEST")
	for _, l := range levels {
		best := "-"
		if l.Played {
			best = fmt.Sprintf("%d%%", l.BestScore)
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", l.Level, l.Words, l.Status, best)
	}
	return tw.Flush()
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var recent, clearHistory bool
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search words and definitions in the word lists",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case clearHistory:
				if err := opts.app.Practice.ClearSearchHistory(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Search history cleared")
				return nil
			case recent || len(args) == 0:
				return runRecentSearches(cmd, opts.app)
			}
			return runSearch(cmd, opts.app, strings.Join(args, " "))
		},
	}
	cmd.Flags().BoolVar(&recent, "recent", false, "show recent queries")
	cmd.Flags().BoolVar(&clearHistory, "clear", false, "forget recent queries")
	return cmd
}

func runSearch(cmd *cobra.Command, app *App, query string) error {
	matches, err := app.Practice.Search(cmd.Context(), query)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(matches) == 0 {
		fmt.Fprintf(out, "No matches for %q\n", query)
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, m := range matches {
		fmt.Fprintf(tw, "%s\t%s\t%s\t(%s)\n", m.Word.Text, m.Word.Definition, m.ListName, m.Language)
	}
	return tw.Flush()
}

func runRecentSearches(cmd *cobra.Command, app *App) error {
	entries, err := app.Practice.RecentSearches(cmd.Context(), 10)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No recent searches")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintln(out, e.Query)
	}
	return nil
}

func newSelectCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "select <list>",
		Short: "Select the list to practice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := opts.app
			settings, err := app.Practice.SelectList(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			app.TrySync(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "Selected %s (%s)\n", settings.SelectedListID, settings.SelectedLanguage)
			return nil
		},
	}
}
