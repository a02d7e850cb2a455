package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/example/spellsync/internal/practice"
	"github.com/example/spellsync/pkg/models"
)

const (
	hintCommand = "?"
	quitCommand = ":q"
)

func newPracticeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "practice [list] <level|review>",
		Short: "Spell the words of a level, or the words due for review",
		Long: `Starts an interactive session. Each prompt shows the definition of a word;
type its spelling and press enter. Type ? for a hint (the word then no longer
counts as right on the first try) or :q to stop early. Words left unanswered
count as misspelled.

Without a list argument the selected list is used.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			listID, target := "", args[0]
			if len(args) == 2 {
				listID, target = args[0], args[1]
			}
			return runPractice(cmd, opts.app, listID, target)
		},
	}
}

func startSession(cmd *cobra.Command, app *App, listID, target string) (*practice.Session, error) {
	if strings.EqualFold(target, "review") {
		return app.Practice.StartReview(cmd.Context(), listID)
	}
	level, err := strconv.Atoi(target)
	if err != nil {
		return nil, fmt.Errorf("expected a level number or \"review\", got %q", target)
	}
	return app.Practice.StartLevel(cmd.Context(), listID, level)
}

func runPractice(cmd *cobra.Command, app *App, listID, target string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	session, err := startSession(cmd, app, listID, target)
	if errors.Is(err, practice.ErrNothingDue) {
		fmt.Fprintln(out, "Nothing to review right now")
		return nil
	}
	if err != nil {
		return err
	}

	title := fmt.Sprintf("Level %d", session.Level)
	if session.Level == practice.ReviewLevel {
		title = "Review"
	}
	fmt.Fprintf(out, "%s of %s: %d words. Type %s for a hint, %s to stop.\n",
		title, session.ListID, len(session.Words()), hintCommand, quitCommand)

	drill(session, cmd.InOrStdin(), out)

	completion, err := app.Practice.CompleteSession(ctx, session)
	if err != nil {
		return err
	}
	app.TrySync(ctx)

	printCompletion(out, completion)
	return nil
}

// drill runs the prompt loop until the session is done, the input ends or
// the user quits
func drill(session *practice.Session, in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	for !session.Done() {
		word, _ := session.Current()
		fmt.Fprintf(out, "\n[%d left] %s\n> ", session.Remaining(), clue(word))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return
		}

		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case quitCommand:
			return
		case hintCommand:
			fmt.Fprintf(out, "Hint: %s\n", session.Hint())
			continue
		}

		answer, err := session.Submit(input)
		if err != nil {
			return
		}
		if answer.Correct {
			fmt.Fprintln(out, "Correct!")
		} else {
			fmt.Fprintf(out, "Not quite, it is spelled %q. It will come back.\n", answer.Word.Text)
		}
	}
}

func clue(word models.Word) string {
	if word.Definition != "" {
		return word.Definition
	}
	return fmt.Sprintf("(%d letters)", utf8.RuneCountInString(word.Text))
}

func printCompletion(out io.Writer, c *practice.Completion) {
	r := c.Result
	fmt.Fprintf(out, "\nScore: %d%% (%d of %d right on the first try)\n", r.Score, r.Correct, r.TotalWords)
	if len(r.Misspelled) > 0 {
		fmt.Fprintf(out, "Misspelled: %s\n", strings.Join(r.Misspelled, ", "))
	}
	if c.LevelCompleted {
		fmt.Fprintf(out, "Level %d completed!\n", r.Level)
	}
	if len(c.NewlyMastered) > 0 {
		fmt.Fprintf(out, "Mastered: %s\n", strings.Join(c.NewlyMastered, ", "))
	}
	if c.Statistics != nil {
		fmt.Fprintf(out, "Streak: %d day(s)\n", c.Statistics.CurrentStreak)
	}
}

func newStatsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show practice statistics and streaks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, opts.app)
		},
	}
}

func runStats(cmd *cobra.Command, app *App) error {
	ctx := cmd.Context()
	stats, err := app.Practice.Statistics(ctx)
	if err != nil {
		return err
	}
	pending, err := app.Queue.Len(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Sessions:\t%d\n", stats.TotalSessions)
	fmt.Fprintf(tw, "Words practiced:\t%d\n", stats.TotalWords)
	fmt.Fprintf(tw, "Accuracy:\t%.1f%%\n", stats.Accuracy())
	fmt.Fprintf(tw, "Current streak:\t%d\n", stats.CurrentStreak)
	fmt.Fprintf(tw, "Longest streak:\t%d\n", stats.LongestStreak)
	if stats.LastPracticeDate != "" {
		fmt.Fprintf(tw, "Last practice:\t%s\n", stats.LastPracticeDate)
	}

	settings, err := app.Practice.Settings(ctx)
	if err != nil {
		return err
	}
	if settings.SelectedListID != "" {
		list, err := app.Catalog.Get(ctx, settings.SelectedListID)
		if err == nil {
			due, err := app.Practice.DueCount(ctx, list)
			if err != nil {
				return err
			}
			fmt.Fprintf(tw, "Due for review:\t%d (%s)\n", due, list.ID)
		}
	}
	fmt.Fprintf(tw, "Unsynced changes:\t%d\n", pending)
	return tw.Flush()
}

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show finished sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, opts.app, limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "how many sessions to show")
	return cmd
}

func runHistory(cmd *cobra.Command, app *App, limit int) error {
	results, err := app.Practice.History(cmd.Context(), limit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(out, "No sessions yet")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tLIST\tLEVEL\tSCORE\tWORDS")
	for _, r := range results {
		level := strconv.Itoa(r.Level)
		if r.Level == practice.ReviewLevel {
			level = "review"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d%%\t%d\n",
			r.CompletedAt.Local().Format("2006-01-02 15:04"), r.ListID, level, r.Score, r.TotalWords)
	}
	return tw.Flush()
}
