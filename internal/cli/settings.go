package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/example/spellsync/pkg/models"
)

var settingNames = []string{"words-per-level", "pass-score", "sound", "reminder", "reminder-hour", "chat-id"}

type settingsFlags struct {
	wordsPerLevel int
	passScore     int
	sound         bool
	reminder      bool
	reminderHour  int
	chatID        int64
}

func newSettingsCmd(opts *rootOptions) *cobra.Command {
	var f settingsFlags
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change practice settings",
		Long: `Without flags, prints the current settings. Any flag given is changed and
the new settings are queued for sync.

Example:
  spellsync settings --reminder --reminder-hour 19 --chat-id 123456`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSettings(cmd, opts.app, f)
		},
	}

	fl := cmd.Flags()
	fl.IntVar(&f.wordsPerLevel, "words-per-level", 0, "words in each level")
	fl.IntVar(&f.passScore, "pass-score", 0, "score in percent that completes a level")
	fl.BoolVar(&f.sound, "sound", false, "play sounds")
	fl.BoolVar(&f.reminder, "reminder", false, "send a daily streak reminder")
	fl.IntVar(&f.reminderHour, "reminder-hour", 0, "hour of the day (0-23) for reminders")
	fl.Int64Var(&f.chatID, "chat-id", 0, "Telegram chat that receives reminders")
	return cmd
}

func runSettings(cmd *cobra.Command, app *App, f settingsFlags) error {
	ctx := cmd.Context()
	fl := cmd.Flags()

	var settings *models.Settings
	var err error
	if !anyChanged(cmd, settingNames...) {
		settings, err = app.Practice.Settings(ctx)
	} else {
		settings, err = app.Practice.UpdateSettings(ctx, func(s *models.Settings) {
			if fl.Changed("words-per-level") {
				s.WordsPerLevel = f.wordsPerLevel
			}
			if fl.Changed("pass-score") {
				s.PassScore = f.passScore
			}
			if fl.Changed("sound") {
				s.SoundEnabled = f.sound
			}
			if fl.Changed("reminder") {
				s.ReminderEnabled = f.reminder
			}
			if fl.Changed("reminder-hour") {
				s.ReminderHour = f.reminderHour
			}
			if fl.Changed("chat-id") {
				s.TelegramChatID = f.chatID
			}
		})
		if err == nil {
			app.TrySync(ctx)
		}
	}
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Language:\t%s\n", orDash(settings.SelectedLanguage))
	fmt.Fprintf(tw, "List:\t%s\n", orDash(settings.SelectedListID))
	fmt.Fprintf(tw, "Words per level:\t%d\n", settings.WordsPerLevel)
	fmt.Fprintf(tw, "Pass score:\t%d%%\n", settings.PassScore)
	fmt.Fprintf(tw, "Sound:\t%t\n", settings.SoundEnabled)
	fmt.Fprintf(tw, "Reminder:\t%t at %02d:00\n", settings.ReminderEnabled, settings.ReminderHour)
	if settings.TelegramChatID != 0 {
		fmt.Fprintf(tw, "Telegram chat:\t%d\n", settings.TelegramChatID)
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func anyChanged(cmd *cobra.Command, names ...string) bool {
	for _, name := range names {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}
