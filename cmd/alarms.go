package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"reminder-cli/internal/alarmlist"
	"reminder-cli/internal/composer"
	"reminder-cli/internal/schedule"
)

// Variables to hold flag values
var (
	alarmID    string
	alarmIndex int
	alarmTitle string
	alarmDates []string
	alarmCrons []string
)

// Parent Command
var alarmsCmd = &cobra.Command{
	Use:   "alarms",
	Short: "Manage alarms",
	Long:  `List, create and delete reminder alarms.`,
}

// List Command
var alarmsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List alarms",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		api, _ := getAlarmClient(ctx)
		loc, _ := userLocation()

		view := alarmlist.New(ctx, api, nil, loc, appLog)
		defer view.Close()

		if err := view.Load(ctx); err != nil {
			fail("fetching alarms", err)
		}

		// --- JSON OUTPUT ---
		if jsonOutput {
			printJSON(view.Alarms())
			return
		}
		// -------------------

		if err := view.Render(os.Stdout); err != nil {
			fail("printing alarms", err)
		}
	},
}

// Create Command
var alarmsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an alarm",
	Long: `Creates an alarm with any number of one-time dates and recurring
schedules. Dates are local to the configured timezone. Recurring
schedules use six or seven fields: second minute hour day-of-month
month day-of-week [year], with day-of-week 1-7 starting on Sunday.`,
	Example: `  reminder-cli alarms create --title "Take pills" --at "2024-05-01 08:00"
  reminder-cli alarms create --title "Standup" --cron "0 0 9 ? * MON-FRI *"`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		api, _ := getAlarmClient(ctx)
		loc, tz := userLocation()
		notifier := newNotifier()

		created := alarmlist.New(ctx, api, notifier, loc, appLog)
		defer created.Close()

		c := composer.New(api, created, composer.Options{
			Location: loc,
			Timezone: tz,
			Notifier: notifier,
			Logger:   appLog,
		})
		c.SetTitle(alarmTitle)

		for _, at := range alarmDates {
			date, clock := splitDateTime(at)
			id := c.AddOneTimeTrigger()
			c.UpdateOneTimeTriggerByID(id, composer.FieldDate, date)
			c.UpdateOneTimeTriggerByID(id, composer.FieldTime, clock)
		}
		for _, expr := range alarmCrons {
			if err := schedule.ValidateRecurringSchedule(expr); err != nil {
				fail("creating alarm", err)
			}
			id := c.AddRecurringTrigger()
			c.UpdateRecurringTriggerByID(id, expr, schedule.DescribeRecurringSchedule(expr))
		}

		alarm, err := c.Submit(ctx)
		if err != nil {
			// Already reported by the notifier.
			os.Exit(1)
		}

		if jsonOutput {
			printJSON(alarm)
			return
		}
		created.Render(os.Stdout)
	},
}

// Delete Command
var alarmsDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete an alarm",
	Long:  `Deletes an alarm by its position in 'alarms list' (--index) or by its id (--id).`,
	Run: func(cmd *cobra.Command, args []string) {
		if alarmID == "" && alarmIndex < 0 {
			fmt.Println("Error: provide --index or --id.")
			os.Exit(1)
		}

		ctx := context.Background()
		api, _ := getAlarmClient(ctx)
		loc, _ := userLocation()
		notifier := newNotifier()

		view := alarmlist.New(ctx, api, notifier, loc, appLog)
		defer view.Close()

		if err := view.Load(ctx); err != nil {
			os.Exit(1)
		}

		index := alarmIndex
		if alarmID != "" {
			index = -1
			for i, a := range view.Alarms() {
				if a.ID == alarmID {
					index = i
					break
				}
			}
			if index < 0 {
				fmt.Printf("Error: no alarm with id %s.\n", alarmID)
				os.Exit(1)
			}
		}

		if err := view.Delete(ctx, index); err != nil {
			os.Exit(1)
		}
	},
}

// splitDateTime accepts "2024-05-01 08:00" or "2024-05-01T08:00".
func splitDateTime(s string) (string, string) {
	s = strings.TrimSpace(s)
	if date, clock, ok := strings.Cut(s, "T"); ok {
		return date, clock
	}
	date, clock, _ := strings.Cut(s, " ")
	return strings.TrimSpace(date), strings.TrimSpace(clock)
}

func init() {
	// Register Parent
	rootCmd.AddCommand(alarmsCmd)

	// Register List
	alarmsCmd.AddCommand(alarmsListCmd)

	// Register Create
	alarmsCmd.AddCommand(alarmsCreateCmd)
	alarmsCreateCmd.Flags().StringVar(&alarmTitle, "title", "", "Alarm title (the text message content)")
	alarmsCreateCmd.Flags().StringArrayVar(&alarmDates, "at", nil, "One-time trigger as \"YYYY-MM-DD HH:MM\" (repeatable)")
	alarmsCreateCmd.Flags().StringArrayVar(&alarmCrons, "cron", nil, "Recurring trigger expression (repeatable)")

	// Register Delete
	alarmsCmd.AddCommand(alarmsDeleteCmd)
	alarmsDeleteCmd.Flags().IntVar(&alarmIndex, "index", -1, "Position of the alarm as shown by 'alarms list'")
	alarmsDeleteCmd.Flags().StringVar(&alarmID, "id", "", "Alarm ID to delete")
}
