// Package main provides the CLI entrypoint for openpomo.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/yabswannalearn/OpenPomo/internal/api"
	"github.com/yabswannalearn/OpenPomo/internal/apiclient"
	"github.com/yabswannalearn/OpenPomo/internal/config"
	"github.com/yabswannalearn/OpenPomo/internal/model"
	"github.com/yabswannalearn/OpenPomo/internal/notify"
	"github.com/yabswannalearn/OpenPomo/internal/sessionlog"
	"github.com/yabswannalearn/OpenPomo/internal/snapshot"
	"github.com/yabswannalearn/OpenPomo/internal/stats"
	"github.com/yabswannalearn/OpenPomo/internal/statsui"
	"github.com/yabswannalearn/OpenPomo/internal/store"
	"github.com/yabswannalearn/OpenPomo/internal/ticker"
	"github.com/yabswannalearn/OpenPomo/internal/timer"
	"github.com/yabswannalearn/OpenPomo/internal/tui"
)

const (
	defaultFocusSeconds      = 1500
	defaultShortBreakSeconds = 300
	defaultLongBreakSeconds  = 900
	defaultAutoStartDelayMs  = 500
	defaultServeAddr         = ":7730"
)

var (
	timerTask           string
	timerFocus          int
	timerShortBreak     int
	timerLongBreak      int
	timerAutoStart      bool
	timerAutoStartDelay int
	timerFallbackTicker bool
	timerAlarm          bool
	timerFocusSound     string
	timerBreakSound     string
	timerSyncURL        string
	timerSyncToken      string

	statsMode  string
	statsSince string
	statsLast  int
	statsPlain bool

	tasksAll bool

	serveAddr  string
	serveToken string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "openpomo",
		Short:         "TUI pomodoro timer",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runTimerCmd,
	}

	rootCmd.Flags().StringVar(&timerTask, "task", "", "task to attach focus sessions to")
	rootCmd.Flags().IntVar(&timerFocus, "focus", defaultFocusSeconds, "focus length in seconds")
	rootCmd.Flags().IntVar(&timerShortBreak, "short-break", defaultShortBreakSeconds, "short break length in seconds")
	rootCmd.Flags().IntVar(&timerLongBreak, "long-break", defaultLongBreakSeconds, "long break length in seconds")
	rootCmd.Flags().BoolVar(&timerAutoStart, "auto-start", true, "start the next phase automatically")
	rootCmd.Flags().IntVar(&timerAutoStartDelay, "auto-start-delay-ms", defaultAutoStartDelayMs, "pause before the next phase auto-starts")
	rootCmd.Flags().BoolVar(&timerFallbackTicker, "fallback-ticker", false, "use the in-process fallback ticker")
	rootCmd.Flags().BoolVar(&timerAlarm, "alarm", true, "notify when a phase completes")
	rootCmd.Flags().StringVar(&timerFocusSound, "focus-sound", "", "sound file for focus completions")
	rootCmd.Flags().StringVar(&timerBreakSound, "break-sound", "", "sound file for break completions")
	rootCmd.Flags().StringVar(&timerSyncURL, "sync-url", "", "remote server to push sessions to")
	rootCmd.Flags().StringVar(&timerSyncToken, "sync-token", "", "bearer token for the remote server")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newTasksCmd())
	rootCmd.AddCommand(newServeCmd())

	return rootCmd
}

func runTimerCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyIntConfig(cmd, "focus", &timerFocus, fileCfg.Timer.FocusSeconds)
	applyIntConfig(cmd, "short-break", &timerShortBreak, fileCfg.Timer.ShortBreakSeconds)
	applyIntConfig(cmd, "long-break", &timerLongBreak, fileCfg.Timer.LongBreakSeconds)
	applyBoolConfig(cmd, "auto-start", &timerAutoStart, fileCfg.Timer.AutoStart)
	applyIntConfig(cmd, "auto-start-delay-ms", &timerAutoStartDelay, fileCfg.Timer.AutoStartDelayMs)
	applyBoolConfig(cmd, "fallback-ticker", &timerFallbackTicker, fileCfg.Timer.FallbackTicker)
	applyBoolConfig(cmd, "alarm", &timerAlarm, fileCfg.Alarm.Enabled)
	applyStringConfig(cmd, "focus-sound", &timerFocusSound, fileCfg.Alarm.FocusSound)
	applyStringConfig(cmd, "break-sound", &timerBreakSound, fileCfg.Alarm.BreakSound)
	applyStringConfig(cmd, "sync-url", &timerSyncURL, fileCfg.Server.SyncURL)
	applyStringConfig(cmd, "sync-token", &timerSyncToken, fileCfg.Server.Token)

	durations := model.Durations{
		Focus:      timerFocus,
		ShortBreak: timerShortBreak,
		LongBreak:  timerLongBreak,
	}
	if err := validateDurations(durations); err != nil {
		return err
	}
	if timerAutoStartDelay < 0 {
		return fmt.Errorf("--auto-start-delay-ms must be >= 0")
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	taskID := ""
	taskName := ""
	if strings.TrimSpace(timerTask) != "" {
		task, err := st.ResolveTask(context.Background(), timerTask)
		if err != nil {
			return fmt.Errorf("failed to resolve task: %w", err)
		}
		taskID = task.ID
		taskName = task.Name
	}

	notifiers := []timer.Notifier{
		notify.NewAlarm(timerAlarm, timerFocusSound, timerBreakSound),
		sessionlog.NewRecorder(st, taskID),
	}
	if client := apiclient.New(timerSyncURL, timerSyncToken, taskID); client != nil {
		notifiers = append(notifiers, client)
	}

	snapStore := snapshot.NewStore(config.DefaultSnapshotPath())
	drv := ticker.New(timerFallbackTicker)
	defer drv.Close()

	engine := timer.New(timer.Options{
		Durations:      durations,
		AutoStart:      timerAutoStart,
		AutoStartDelay: time.Duration(timerAutoStartDelay) * time.Millisecond,
		Driver:         drv,
		Notifiers:      notifiers,
		Persist: func(state timer.State) {
			if err := snapStore.Save(state); err != nil {
				logErrf("failed to save timer state: %v\n", err)
			}
		},
	})
	engine.Restore(snapStore.Load(durations))
	engine.OnConfigChange(durations)

	model := tui.NewModel(engine, drv, taskName)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithReportFocus())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show stats",
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsMode, "mode", "", "mode filter (focus, short_break, long_break)")
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N sessions")
	cmd.Flags().BoolVar(&statsPlain, "plain", false, "print to stdout instead of the TUI")
	return cmd
}

func runStatsCmd(_ *cobra.Command, _ []string) error {
	var mode model.Mode
	if statsMode != "" {
		mode = model.Mode(statsMode)
		if !mode.Valid() {
			return fmt.Errorf("invalid --mode value: %q", statsMode)
		}
	}
	var sinceTime *time.Time
	if statsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", statsSince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}

	cfg := model.StatsConfig{
		Mode:  mode,
		Since: sinceTime,
		Last:  statsLast,
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	if statsPlain {
		report, err := stats.BuildReport(context.Background(), st, cfg, time.Now())
		if err != nil {
			return fmt.Errorf("failed to build report: %w", err)
		}
		if err := stats.RenderReport(os.Stdout, report); err != nil {
			return fmt.Errorf("failed to render report: %w", err)
		}
		return nil
	}

	model := statsui.NewModel(st, cfg)
	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func newTasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Manage tasks",
		RunE:  runTasksListCmd,
	}
	cmd.Flags().BoolVar(&tasksAll, "all", false, "include finished tasks")

	addCmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runTasksAddCmd,
	}
	doneCmd := &cobra.Command{
		Use:   "done <id>",
		Short: "Mark a task as finished",
		Args:  cobra.ExactArgs(1),
		RunE:  runTasksDoneCmd,
	}
	cmd.AddCommand(addCmd)
	cmd.AddCommand(doneCmd)
	return cmd
}

func runTasksListCmd(cmd *cobra.Command, _ []string) error {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	tasks, err := st.ListTasks(context.Background(), tasksAll)
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}
	if len(tasks) == 0 {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), "No tasks found."); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	for _, task := range tasks {
		marker := " "
		if task.Done {
			marker = "x"
		}
		line := fmt.Sprintf("[%s] %s  %s", marker, task.ID, task.Name)
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func runTasksAddCmd(cmd *cobra.Command, args []string) error {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	task, err := st.CreateTask(context.Background(), strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), task.ID); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func runTasksDoneCmd(_ *cobra.Command, args []string) error {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	updated, err := st.CompleteTask(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if !updated {
		return fmt.Errorf("task %q not found", args[0])
	}
	return nil
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the session history over HTTP",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
	cmd.Flags().StringVar(&serveAddr, "addr", defaultServeAddr, "listen address")
	cmd.Flags().StringVar(&serveToken, "token", "", "bearer token (empty disables auth)")
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "addr", &serveAddr, fileCfg.Server.Addr)
	applyStringConfig(cmd, "token", &serveToken, fileCfg.Server.Token)

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	logErrf("listening on %s\n", serveAddr)
	server := &http.Server{
		Addr:              serveAddr,
		Handler:           api.NewServer(st, serveToken).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# openpomo configuration
# Uncomment a value to enable it. CLI flags override config values.

[timer]
# focus = %d               # Focus length in seconds
# short-break = %d          # Short break length in seconds
# long-break = %d           # Long break length in seconds
# auto-start = true           # Start the next phase automatically
# auto-start-delay-ms = %d   # Pause before the next phase auto-starts
# fallback-ticker = false     # Use the in-process fallback ticker

[alarm]
# enabled = true              # Notify when a phase completes
# focus-sound = ""            # Sound file for focus completions
# break-sound = ""            # Sound file for break completions

[server]
# addr = %q              # Listen address for 'openpomo serve'
# token = ""                  # Bearer token (empty disables auth)
# sync-url = ""               # Remote server to push sessions to
`,
		defaultFocusSeconds,
		defaultShortBreakSeconds,
		defaultLongBreakSeconds,
		defaultAutoStartDelayMs,
		defaultServeAddr,
	)
}

func validateDurations(durations model.Durations) error {
	for _, mode := range []model.Mode{model.ModeFocus, model.ModeShortBreak, model.ModeLongBreak} {
		seconds := durations.For(mode)
		if seconds <= 0 {
			return fmt.Errorf("%s length must be > 0", mode.Label())
		}
		if seconds > model.MaxDurationSeconds {
			return fmt.Errorf("%s length must be <= %d seconds", mode.Label(), model.MaxDurationSeconds)
		}
	}
	return nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
