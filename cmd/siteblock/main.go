// Package main is the CLI entry point for siteblock.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eliteGoblin/focusd/site_block/internal/config"
	"github.com/eliteGoblin/focusd/site_block/internal/daemon"
	"github.com/eliteGoblin/focusd/site_block/internal/domain"
	"github.com/eliteGoblin/focusd/site_block/internal/infra"
	"github.com/eliteGoblin/focusd/site_block/internal/usecase"
)

var (
	// Version info (set via ldflags)
	Version   = "1.0.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

const elevationPrompt = "Focus needs permission to update your hosts file"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "siteblock",
	Short: "Website blocker - keeps distracting sites out of reach",
	Long: `siteblock blocks distracting websites by rewriting the system hosts
file. Blocking is toggled manually or driven by weekly schedules; turning
it off goes through a cool-down timer, so the block outlasts the impulse
that asked for it.

Run 'siteblock start' to launch the background daemon.`,
	Version: Version,
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the blocking daemon in the foreground",
	Long: `Starts the daemon: restores a persisted block, reconciles schedules
every tick, and serves CLI commands over a local control socket.

With --install the daemon is also registered as a LaunchAgent so it
starts on login.`,
	RunE: runStart,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show blocking and daemon status",
	RunE:  runStatus,
}

var toggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Turn blocking on, or start the cool-down to turn it off",
	Long: `With blocking off, applies the block immediately. With blocking on,
arms the cool-down timer; the block lifts when the timer expires. Running
toggle again while the timer counts down reports the remaining time and
does not reset it.`,
	RunE: runToggle,
}

var cancelTimerCmd = &cobra.Command{
	Use:   "cancel-timer",
	Short: "Cancel a pending deactivation, keeping the block on",
	RunE:  runCancelTimer,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show session statistics",
	RunE:  runStats,
}

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Record focused minutes into today's activity",
	RunE:  runActivity,
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List completed blocking sessions from the journal",
	RunE:  runSessions,
}

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List blocked sites",
	RunE:  runSitesList,
}

var sitesAddCmd = &cobra.Command{
	Use:   "add [domain]",
	Short: "Add a domain to the block list",
	Long: `Adds a domain to the block list. While blocking is active the hosts
file is rewritten immediately. Use --common to add the built-in list of
well-known distracting sites instead of a single domain.`,
	RunE: runSitesAdd,
}

var sitesRemoveCmd = &cobra.Command{
	Use:   "rm <domain>",
	Short: "Remove a domain from the block list",
	Args:  cobra.ExactArgs(1),
	RunE:  runSitesRemove,
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "List weekly blocking schedules",
	RunE:  runScheduleList,
}

var scheduleSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Create or update a schedule",
	Long: `Creates a schedule, or updates one when --id is given. Windows are
half-open: blocking holds from --start up to but not including --end, on
the days given as comma-separated weekday numbers (0 = Sunday).

Example: siteblock schedule save --name Work --start 09:00 --end 17:30 --days 1,2,3,4,5 --enabled`,
	RunE: runScheduleSave,
}

var scheduleDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a schedule",
	Args:  cobra.ExactArgs(1),
	RunE:  runScheduleDelete,
}

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export schedules, sites and stats as JSON",
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a previously exported snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear all data and lift the block",
	RunE:  runReset,
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the login item installed by start --install",
	RunE:  runUninstall,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run:   runVersion,
}

var (
	installAgent    bool
	jsonOutput      bool
	activityMinutes int
	addCommon       bool
	schedID         string
	schedName       string
	schedStart      string
	schedEnd        string
	schedDays       string
	schedEnabled    bool
	resetForce      bool
)

func init() {
	startCmd.Flags().BoolVar(&installAgent, "install", false, "Install as LaunchAgent (auto-start on login)")
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")
	activityCmd.Flags().IntVar(&activityMinutes, "minutes", 0, "Minutes to record")
	sitesAddCmd.Flags().BoolVar(&addCommon, "common", false, "Add the built-in list of common distracting sites")
	scheduleSaveCmd.Flags().StringVar(&schedID, "id", "", "Schedule ID to update (omit to create)")
	scheduleSaveCmd.Flags().StringVar(&schedName, "name", "", "Schedule name")
	scheduleSaveCmd.Flags().StringVar(&schedStart, "start", "", "Window start, HH:MM")
	scheduleSaveCmd.Flags().StringVar(&schedEnd, "end", "", "Window end, HH:MM")
	scheduleSaveCmd.Flags().StringVar(&schedDays, "days", "", "Comma-separated weekdays, 0=Sunday")
	scheduleSaveCmd.Flags().BoolVar(&schedEnabled, "enabled", true, "Whether the schedule is active")
	resetCmd.Flags().BoolVar(&resetForce, "force", false, "Skip confirmation")

	sitesCmd.AddCommand(sitesAddCmd)
	sitesCmd.AddCommand(sitesRemoveCmd)
	scheduleCmd.AddCommand(scheduleSaveCmd)
	scheduleCmd.AddCommand(scheduleDeleteCmd)

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(toggleCmd)
	rootCmd.AddCommand(cancelTimerCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(activityCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(sitesCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(versionCmd)
}

// client returns a control client when the daemon is alive, nil when
// the CLI should fall back to operating on local state directly.
func client(cfg *config.AppConfig) *daemon.Client {
	pm := infra.NewProcessManager()
	registry := infra.NewFileRegistry(cfg.DataDir, pm)
	alive, err := registry.IsDaemonAlive()
	if err != nil || !alive {
		return nil
	}
	return daemon.NewClient(filepath.Join(cfg.DataDir, daemon.SocketName))
}

// buildController assembles the full local stack for commands that run
// without a daemon.
func buildController(cfg *config.AppConfig, logger *zap.Logger) (*usecase.Controller, func(), error) {
	store, err := infra.NewFileStore(cfg.DataDir, logger)
	if err != nil {
		return nil, nil, err
	}

	journal, err := infra.OpenJournal(cfg.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open session journal: %w", err)
	}

	elevator := infra.NewAdminElevator(elevationPrompt, logger)
	mutator := infra.NewHostsMutator(
		cfg.HostsPath,
		filepath.Join(cfg.DataDir, "hosts.backup"),
		os.TempDir(),
		elevator,
		logger,
	)

	controller := usecase.NewController(
		mutator, store, store, journal, infra.NewLogNotifier(logger), logger,
		usecase.WithCooldown(cfg.Cooldown()),
	)
	cleanup := func() {
		controller.Close()
		journal.Close()
	}
	return controller, cleanup, nil
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := createLogger(cfg)
	defer func() { _ = logger.Sync() }()

	if installAgent {
		execPath, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to get executable path: %w", err)
		}
		agent := infra.NewAutostartManager(cfg.DataDir)
		if err := agent.Install(execPath); err != nil {
			fmt.Printf("Warning: could not install LaunchAgent: %v\n", err)
			fmt.Println("         (siteblock will run, but won't auto-start on login)")
		} else {
			fmt.Println("Installed LaunchAgent for auto-start on login")
		}
	}

	controller, cleanup, err := buildController(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received shutdown signal")
		cancel()
	}()

	if err := controller.Bootstrap(ctx); err != nil {
		// A failed reapply is not fatal: the next tick retries.
		logger.Warn("failed to restore previous block", zap.Error(err))
	}

	srv := daemon.NewControlServer(
		controller, filepath.Join(cfg.DataDir, daemon.SocketName), logger)
	go func() {
		if err := srv.Serve(ctx); err != nil {
			logger.Error("control server failed", zap.Error(err))
			cancel()
		}
	}()

	pm := infra.NewProcessManager()
	registry := infra.NewFileRegistry(cfg.DataDir, pm)
	d := daemon.New(
		daemon.Config{
			TickInterval:      cfg.TickInterval(),
			HeartbeatInterval: 30 * time.Second,
		},
		controller,
		registry,
		domain.DaemonInfo{
			PID:        pm.GetCurrentPID(),
			StartedAt:  time.Now(),
			AppVersion: Version,
		},
		logger,
	)

	fmt.Printf("siteblock daemon running (pid %d, data dir %s)\n",
		pm.GetCurrentPID(), cfg.DataDir)

	err = d.Run(ctx)
	if err == context.Canceled {
		return nil
	}
	return err
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fmt.Println("\n=== siteblock Status ===")

	pm := infra.NewProcessManager()
	registry := infra.NewFileRegistry(cfg.DataDir, pm)
	state, _ := registry.Current()
	alive, _ := registry.IsDaemonAlive()

	if alive {
		fmt.Printf("Daemon: RUNNING (pid %d)\n", state.PID)
		if state.LastHeartbeat > 0 {
			lastBeat := time.Unix(state.LastHeartbeat, 0)
			fmt.Printf("Last heartbeat: %s ago\n", time.Since(lastBeat).Round(time.Second))
		}
	} else {
		fmt.Println("Daemon: NOT RUNNING")
		fmt.Println("Run 'siteblock start' to enable schedules and the cool-down timer.")
	}

	if c := client(cfg); c != nil {
		data, err := c.Call(daemon.OpStatus, nil)
		if err != nil {
			return err
		}
		var st usecase.Status
		if err := json.Unmarshal(data, &st); err != nil {
			return err
		}
		printBlockingStatus(st.Active, st.LastSessionStart, st.ScheduleCount, st.SiteCount)
		if st.DeactivationPending {
			fmt.Printf("Deactivation: in %s\n", st.DeactivationIn.Round(time.Second))
		}
	} else {
		logger := zap.NewNop()
		store, err := infra.NewFileStore(cfg.DataDir, logger)
		if err != nil {
			return err
		}
		c := store.LoadConfig()
		printBlockingStatus(c.BlockingActive, time.Time{}, len(c.Schedules), len(c.BlockedSites))
	}

	fmt.Println("========================")
	return nil
}

func printBlockingStatus(active bool, sessionStart time.Time, schedules, sites int) {
	if active {
		fmt.Println("Blocking: ON")
		if !sessionStart.IsZero() {
			fmt.Printf("Session running for: %s\n",
				time.Since(sessionStart).Round(time.Minute))
		}
	} else {
		fmt.Println("Blocking: OFF")
	}
	fmt.Printf("Blocked sites: %d\n", sites)
	fmt.Printf("Schedules: %d\n", schedules)
}

func runToggle(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if c := client(cfg); c != nil {
		data, err := c.Call(daemon.OpToggle, nil)
		if err != nil {
			return err
		}
		var result daemon.ToggleResult
		if err := json.Unmarshal(data, &result); err != nil {
			return err
		}
		printToggleResult(result.Active, result.DeactivationIn, result.AlreadyArmed)
		return nil
	}

	logger := createLogger(cfg)
	defer func() { _ = logger.Sync() }()
	controller, cleanup, err := buildController(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	// Without a daemon there is nothing to fire the cool-down timer, so
	// an active block is lifted immediately.
	if controller.Status().Active {
		if err := controller.Deactivate(context.Background()); err != nil {
			return err
		}
		fmt.Println("Blocking deactivated.")
		fmt.Println("(no daemon running: deactivation was immediate, no cool-down)")
		return nil
	}
	if err := controller.Activate(context.Background()); err != nil {
		return err
	}
	printToggleResult(true, 0, false)
	return nil
}

func printToggleResult(active bool, deactivationIn time.Duration, alreadyArmed bool) {
	switch {
	case alreadyArmed:
		fmt.Printf("Deactivation already scheduled: %s remaining.\n",
			deactivationIn.Round(time.Second))
		fmt.Println("The timer is not reset by asking again.")
	case deactivationIn > 0:
		fmt.Printf("Blocking stays ON for another %s, then lifts.\n",
			deactivationIn.Round(time.Second))
		fmt.Println("Run 'siteblock cancel-timer' to keep blocking.")
	case active:
		fmt.Println("Blocking activated. Stay focused.")
	default:
		fmt.Println("Blocking deactivated.")
	}
}

func runCancelTimer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	c := client(cfg)
	if c == nil {
		return fmt.Errorf("daemon not running: no timer to cancel")
	}
	if _, err := c.Call(daemon.OpCancelTimer, nil); err != nil {
		return err
	}
	fmt.Println("Deactivation canceled. Blocking stays on.")
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var stats domain.Stats
	if c := client(cfg); c != nil {
		data, err := c.Call(daemon.OpStats, nil)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(data, &stats); err != nil {
			return err
		}
	} else {
		store, err := infra.NewFileStore(cfg.DataDir, zap.NewNop())
		if err != nil {
			return err
		}
		stats = *store.LoadStats()
	}

	fmt.Println("\n=== Blocking Stats ===")
	fmt.Printf("Sessions completed: %d\n", stats.SessionsBlocked)
	fmt.Printf("Total time saved:   %dh %dm\n",
		stats.TotalTimeSaved/60, stats.TotalTimeSaved%60)
	if stats.LastSession > 0 {
		fmt.Printf("Last session:       %s\n",
			time.UnixMilli(stats.LastSession).Format("2006-01-02 15:04"))
	}

	if len(stats.Activity) > 0 {
		fmt.Println("\nRecent activity:")
		days := make([]string, 0, len(stats.Activity))
		for day := range stats.Activity {
			days = append(days, day)
		}
		sort.Strings(days)
		if len(days) > 7 {
			days = days[len(days)-7:]
		}
		for _, day := range days {
			fmt.Printf("  %s  %3d min\n", day, stats.Activity[day])
		}
	}
	fmt.Println("======================")
	return nil
}

func runActivity(cmd *cobra.Command, args []string) error {
	if activityMinutes <= 0 {
		return fmt.Errorf("--minutes must be positive")
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if c := client(cfg); c != nil {
		if _, err := c.Call(daemon.OpRecordActivity,
			map[string]int{"minutes": activityMinutes}); err != nil {
			return err
		}
	} else {
		controller, cleanup, err := buildController(cfg, zap.NewNop())
		if err != nil {
			return err
		}
		defer cleanup()
		if err := controller.RecordActivity(activityMinutes); err != nil {
			return err
		}
	}
	fmt.Printf("Recorded %d focused minutes for today.\n", activityMinutes)
	return nil
}

func runSessions(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	journal, err := infra.OpenJournal(cfg.DataDir)
	if err != nil {
		return err
	}
	defer journal.Close()

	records, err := journal.All()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No completed sessions yet.")
		return nil
	}

	fmt.Println("\n=== Blocking Sessions ===")
	for _, rec := range records {
		fmt.Printf("%s  ->  %s  (%d min)\n",
			rec.StartedAt.Format("2006-01-02 15:04"),
			rec.EndedAt.Format("15:04"),
			rec.Minutes)
	}
	fmt.Printf("\nTotal: %d sessions\n", len(records))
	fmt.Println("=========================")
	return nil
}

func runSitesList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var sites []string
	if c := client(cfg); c != nil {
		data, err := c.Call(daemon.OpSites, nil)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(data, &sites); err != nil {
			return err
		}
	} else {
		store, err := infra.NewFileStore(cfg.DataDir, zap.NewNop())
		if err != nil {
			return err
		}
		sites = store.LoadConfig().BlockedSites
	}

	fmt.Printf("\n=== Blocked Sites (%d) ===\n", len(sites))
	for _, site := range sites {
		fmt.Printf("  %s\n", site)
	}
	fmt.Println("==========================")
	return nil
}

func runSitesAdd(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var toAdd []string
	switch {
	case addCommon:
		toAdd = domain.DefaultBlockedSites()
	case len(args) == 1:
		toAdd = []string{args[0]}
	default:
		return fmt.Errorf("provide a domain or --common")
	}

	add := func(site string) error {
		if c := client(cfg); c != nil {
			_, err := c.Call(daemon.OpAddSite, map[string]string{"site": site})
			return err
		}
		controller, cleanup, err := buildController(cfg, zap.NewNop())
		if err != nil {
			return err
		}
		defer cleanup()
		return controller.AddSite(context.Background(), site)
	}

	added := 0
	for _, site := range toAdd {
		err := add(site)
		switch {
		case err == nil:
			added++
		case strings.Contains(err.Error(), "already"):
			// Quick-add skips duplicates silently.
			if !addCommon {
				return fmt.Errorf("%s is already blocked", site)
			}
		default:
			return err
		}
	}
	fmt.Printf("Added %d site(s) to the block list.\n", added)
	return nil
}

func runSitesRemove(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	site := args[0]

	if c := client(cfg); c != nil {
		if _, err := c.Call(daemon.OpRemoveSite, map[string]string{"site": site}); err != nil {
			return err
		}
	} else {
		controller, cleanup, err := buildController(cfg, zap.NewNop())
		if err != nil {
			return err
		}
		defer cleanup()
		if err := controller.RemoveSite(context.Background(), site); err != nil {
			return err
		}
	}
	fmt.Printf("Removed %s from the block list.\n", site)
	return nil
}

func runScheduleList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var schedules []domain.Schedule
	if c := client(cfg); c != nil {
		data, err := c.Call(daemon.OpSchedules, nil)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(data, &schedules); err != nil {
			return err
		}
	} else {
		store, err := infra.NewFileStore(cfg.DataDir, zap.NewNop())
		if err != nil {
			return err
		}
		schedules = store.LoadConfig().Schedules
	}

	if len(schedules) == 0 {
		fmt.Println("No schedules configured.")
		return nil
	}

	fmt.Println("\n=== Schedules ===")
	for _, s := range schedules {
		state := "enabled"
		if !s.Enabled {
			state = "disabled"
		}
		fmt.Printf("[%s] %s  %02d:%02d-%02d:%02d  days %s  (%s)\n",
			s.ID, s.Name,
			s.StartHour, s.StartMinute, s.EndHour, s.EndMinute,
			formatDays(s.Days), state)
	}
	fmt.Println("=================")
	return nil
}

func runScheduleSave(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	startH, startM, err := parseClockTime(schedStart)
	if err != nil {
		return fmt.Errorf("bad --start: %w", err)
	}
	endH, endM, err := parseClockTime(schedEnd)
	if err != nil {
		return fmt.Errorf("bad --end: %w", err)
	}
	days, err := parseDays(schedDays)
	if err != nil {
		return fmt.Errorf("bad --days: %w", err)
	}

	sched := domain.Schedule{
		ID:          schedID,
		Name:        schedName,
		StartHour:   startH,
		StartMinute: startM,
		EndHour:     endH,
		EndMinute:   endM,
		Days:        days,
		Enabled:     schedEnabled,
	}

	var saved domain.Schedule
	if c := client(cfg); c != nil {
		data, err := c.Call(daemon.OpSaveSchedule, sched)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(data, &saved); err != nil {
			return err
		}
	} else {
		controller, cleanup, err := buildController(cfg, zap.NewNop())
		if err != nil {
			return err
		}
		defer cleanup()
		saved, err = controller.SaveSchedule(context.Background(), sched)
		if err != nil {
			return err
		}
	}
	fmt.Printf("Schedule saved with id %s.\n", saved.ID)
	return nil
}

func runScheduleDelete(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	id := args[0]

	if c := client(cfg); c != nil {
		if _, err := c.Call(daemon.OpDeleteSchedule, map[string]string{"id": id}); err != nil {
			return err
		}
	} else {
		controller, cleanup, err := buildController(cfg, zap.NewNop())
		if err != nil {
			return err
		}
		defer cleanup()
		if err := controller.DeleteSchedule(context.Background(), id); err != nil {
			return err
		}
	}
	fmt.Printf("Schedule %s deleted.\n", id)
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var data []byte
	if c := client(cfg); c != nil {
		data, err = c.Call(daemon.OpExport, nil)
		if err != nil {
			return err
		}
	} else {
		controller, cleanup, err := buildController(cfg, zap.NewNop())
		if err != nil {
			return err
		}
		defer cleanup()
		data, err = controller.ExportData()
		if err != nil {
			return err
		}
	}

	if len(args) == 1 {
		if err := os.WriteFile(args[0], data, 0o644); err != nil {
			return err
		}
		fmt.Printf("Exported to %s\n", args[0])
		return nil
	}
	fmt.Println(string(data))
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	if c := client(cfg); c != nil {
		var raw json.RawMessage = data
		if _, err := c.Call(daemon.OpImport, raw); err != nil {
			return err
		}
	} else {
		controller, cleanup, err := buildController(cfg, zap.NewNop())
		if err != nil {
			return err
		}
		defer cleanup()
		if err := controller.ImportData(context.Background(), data); err != nil {
			return err
		}
	}
	fmt.Println("Import complete.")
	return nil
}

func runReset(cmd *cobra.Command, args []string) error {
	if !resetForce {
		return fmt.Errorf("this clears schedules, sites, stats and the session journal; re-run with --force")
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if c := client(cfg); c != nil {
		if _, err := c.Call(daemon.OpClear, nil); err != nil {
			return err
		}
	} else {
		logger := createLogger(cfg)
		defer func() { _ = logger.Sync() }()
		controller, cleanup, err := buildController(cfg, logger)
		if err != nil {
			return err
		}
		defer cleanup()
		if err := controller.ClearAppData(context.Background()); err != nil {
			return err
		}
	}
	fmt.Println("All data cleared. Blocking is off and the block list is back to defaults.")
	return nil
}

func runUninstall(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	agent := infra.NewAutostartManager(cfg.DataDir)
	if !agent.IsInstalled() {
		fmt.Println("No LaunchAgent installed.")
		return nil
	}
	if err := agent.Uninstall(); err != nil {
		return err
	}
	fmt.Println("LaunchAgent removed. The daemon will not auto-start anymore.")
	return nil
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("siteblock %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}

// parseClockTime parses "HH:MM" into hour and minute.
func parseClockTime(s string) (int, int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("bad hour %q", parts[0])
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("bad minute %q", parts[1])
	}
	return hour, minute, nil
}

// parseDays parses "1,2,3" into weekday numbers.
func parseDays(s string) ([]int, error) {
	if s == "" {
		return nil, fmt.Errorf("at least one day required")
	}
	var days []int
	for _, part := range strings.Split(s, ",") {
		day, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("bad day %q", part)
		}
		days = append(days, day)
	}
	return days, nil
}

func formatDays(days []int) string {
	names := []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
	var parts []string
	for _, d := range days {
		if d >= 0 && d < len(names) {
			parts = append(parts, names[d])
		}
	}
	return strings.Join(parts, ",")
}

func createLogger(cfg *config.AppConfig) *zap.Logger {
	// The log files live in the data dir, which may not exist yet on
	// first run.
	_ = os.MkdirAll(cfg.DataDir, 0o755)

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.OutputPaths = []string{filepath.Join(cfg.DataDir, "siteblock.log")}
	zapCfg.ErrorOutputPaths = []string{filepath.Join(cfg.DataDir, "siteblock.error.log")}
	zapCfg.EncoderConfig.TimeKey = "time"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zapCfg.Build()
	if err != nil {
		// Fallback to stderr if file logging fails
		logger, _ = zap.NewProduction()
	}
	return logger
}
