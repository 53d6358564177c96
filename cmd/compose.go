package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"reminder-cli/internal/alarmlist"
	"reminder-cli/internal/composer"
	"reminder-cli/internal/notify"
	"reminder-cli/internal/schedule"
)

const composeHelp = `Commands:
  title <text>                 set the alarm title
  once                         add a one-time trigger
  date <n> <YYYY-MM-DD>        set the date of one-time trigger n
  time <n> <HH:MM>             set the time of one-time trigger n
  rm-once <n>                  remove one-time trigger n
  cron                         add a recurring trigger (every day at midnight)
  cron <n> <expression>        replace recurring trigger n
  rm-cron <n>                  remove recurring trigger n
  show                         show the draft
  submit                       create the alarm (runs in the background)
  list                         show your alarms
  delete <n>                   delete alarm n from the list
  help                         show this help
  quit                         leave`

var composeCmd = &cobra.Command{
	Use:   "compose",
	Short: "Compose alarms interactively",
	Long: `Opens an interactive session with your alarm list and a draft for a
new alarm. Type 'help' for the commands.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		api, _ := getAlarmClient(ctx)
		loc, tz := userLocation()
		notifier := newNotifier()

		view := alarmlist.New(ctx, api, notifier, loc, appLog)
		defer view.Close()
		if err := view.Load(ctx); err == nil {
			view.Render(os.Stdout)
		}

		c := composer.New(api, view, composer.Options{
			Location: loc,
			Timezone: tz,
			Notifier: notifier,
			Logger:   appLog,
		})

		s := &composeSession{ctx: ctx, c: c, view: view, notifier: notifier, out: os.Stdout}
		fmt.Fprintf(os.Stdout, "Composing in %s. Type 'help' for commands.\n", tz)
		s.run(os.Stdin)
		s.wait()
	},
}

type composeSession struct {
	ctx      context.Context
	c        *composer.Composer
	view     *alarmlist.View
	notifier *notify.Notifier
	out      io.Writer
	inflight sync.WaitGroup
}

func (s *composeSession) run(in io.Reader) {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !s.handle(line) {
			return
		}
	}
}

// wait lets submits that are still in flight finish.
func (s *composeSession) wait() {
	s.inflight.Wait()
}

func (s *composeSession) handle(line string) bool {
	verb, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch verb {
	case "quit", "exit":
		return false
	case "help":
		fmt.Fprintln(s.out, composeHelp)
	case "title":
		s.c.SetTitle(rest)
	case "once":
		s.c.AddOneTimeTrigger()
		s.show()
	case "date", "time":
		n, value, ok := s.indexArg(rest)
		if !ok {
			return true
		}
		s.c.UpdateOneTimeTrigger(n, composer.Field(verb), value)
	case "rm-once":
		if n, _, ok := s.indexArg(rest); ok {
			s.c.RemoveOneTimeTrigger(n)
			s.show()
		}
	case "cron":
		if rest == "" {
			s.c.AddRecurringTrigger()
			s.show()
			return true
		}
		n, expr, ok := s.indexArg(rest)
		if !ok {
			return true
		}
		if err := schedule.ValidateRecurringSchedule(expr); err != nil {
			s.notifier.Error(err)
			return true
		}
		s.c.UpdateRecurringTrigger(n, expr, schedule.DescribeRecurringSchedule(expr))
		s.show()
	case "rm-cron":
		if n, _, ok := s.indexArg(rest); ok {
			s.c.RemoveRecurringTrigger(n)
			s.show()
		}
	case "show":
		s.show()
	case "submit":
		s.inflight.Add(1)
		go func() {
			defer s.inflight.Done()
			// Outcome is reported by the notifier.
			_, _ = s.c.Submit(s.ctx)
		}()
	case "list":
		s.view.Render(s.out)
	case "delete":
		if n, _, ok := s.indexArg(rest); ok {
			if err := s.view.Delete(s.ctx, n); err == nil {
				s.view.Render(s.out)
			}
		}
	default:
		fmt.Fprintf(s.out, "Unknown command %q. Type 'help' for commands.\n", verb)
	}
	return true
}

// indexArg splits "<n> rest" and reports a bad number to the user.
func (s *composeSession) indexArg(arg string) (int, string, bool) {
	first, rest, _ := strings.Cut(arg, " ")
	n, err := strconv.Atoi(first)
	if err != nil {
		s.notifier.Info("Expected a position number, got %q.", first)
		return 0, "", false
	}
	return n, strings.TrimSpace(rest), true
}

func (s *composeSession) show() {
	d := s.c.Draft()

	w := tabwriter.NewWriter(s.out, 0, 0, 3, ' ', 0)
	fmt.Fprintf(w, "Title:\t%s\n", orDash(d.Title))
	for i, e := range d.OneTime {
		fmt.Fprintf(w, "once %d:\t%s %s\n", i, orDash(e.Date), orDash(e.Time))
	}
	for i, e := range d.Recurring {
		fmt.Fprintf(w, "cron %d:\t%s\t%s\n", i, e.Expression, e.Description)
	}
	w.Flush()

	if notice, ok := s.notifier.Current(); ok && notice.Level == notify.LevelError {
		fmt.Fprintf(s.out, "Last error: %s\n", notice.Text)
	}
}

func init() {
	rootCmd.AddCommand(composeCmd)
}
