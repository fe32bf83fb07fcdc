// Package main provides the CLI entrypoint for sprintsync.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/sprintsync/internal/credential"
	"github.com/nhle/sprintsync/internal/export"
	"github.com/nhle/sprintsync/internal/linear"
	"github.com/nhle/sprintsync/internal/logger"
	"github.com/nhle/sprintsync/internal/model"
	"github.com/nhle/sprintsync/internal/store"
	syncpkg "github.com/nhle/sprintsync/internal/sync"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	flagConfigPath string
	flagLogLevel   string
	flagLogFile    string

	flagConnectKey  string
	flagConnectTeam string

	flagSyncCycle   string
	flagSyncBacklog bool

	flagExportFormat string
	flagExportOut    string

	flagAddSprint string
)

var rootCmd = &cobra.Command{
	Use:   "sprintsync",
	Short: "Sprint board synced with a Linear workspace",
	Long: `sprintsync keeps a local sprint/Gantt board in step with a Linear
workspace: it pulls cycles and issues into local sprints and tasks,
reconciles them without duplicates, and pushes local edits back.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logger.ParseLevel(flagLogLevel)
		if err != nil {
			return err
		}
		logger.SetLevel(level)
		if flagLogFile != "" {
			if err := logger.SetLogFile(flagLogFile); err != nil {
				return err
			}
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Close()
	},
	SilenceUsage: true,
}

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Store the API key and select a team",
	Long: `Validate an API key against the tracker, store it in the system
keyring, and select the team whose cycles and backlog will be synced.`,
	RunE: runConnect,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show connection and collection status",
	RunE:  runStatus,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull remote changes and reconcile the local board",
	Long: `Fetch the configured team's cycles and issues and merge them into
the local sprints and tasks. By default every linked cycle plus the
backlog is synced; --cycle or --backlog narrow the scope.`,
	RunE: runSync,
}

var pushCmd = &cobra.Command{
	Use:   "push <task-id>",
	Short: "Push a local task's fields to its linked issue",
	Args:  cobra.ExactArgs(1),
	RunE:  runPush,
}

var addCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a local task",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdd,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the board as JSON, CSV, or Markdown",
	RunE:  runExport,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the background sync loop until interrupted",
	RunE:  runWatch,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config",
		model.DefaultConfigPath(), "config file path")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level",
		"info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file",
		"", "also write logs to this file")

	connectCmd.Flags().StringVar(&flagConnectKey, "api-key", "", "tracker API key")
	connectCmd.Flags().StringVar(&flagConnectTeam, "team", "", "team ID to sync")

	syncCmd.Flags().StringVar(&flagSyncCycle, "cycle", "", "sync a single cycle by remote ID")
	syncCmd.Flags().BoolVar(&flagSyncBacklog, "backlog", false, "sync only the backlog")

	exportCmd.Flags().StringVar(&flagExportFormat, "format", "json",
		"output format (json, csv, md)")
	exportCmd.Flags().StringVarP(&flagExportOut, "output", "o", "",
		"output file (default stdout)")

	addCmd.Flags().StringVar(&flagAddSprint, "sprint", "", "sprint ID to place the task in")

	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(watchCmd)
}

// openStore opens the configured SQLite store.
func openStore(cfg *model.AppConfig) (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(cfg.Storage.DBPath)
}

// newOrchestrator wires a tracker client and orchestrator from config
// plus the keyring-held API key.
func newOrchestrator(cfg *model.AppConfig, s store.Store) (*syncpkg.Orchestrator, error) {
	apiKey, err := credential.APIKey()
	if err != nil {
		return nil, fmt.Errorf("no stored API key, run `sprintsync connect` first: %w", err)
	}

	client := linear.NewClient(apiKey)
	return syncpkg.New(client, s, syncpkg.Config{
		TeamID:   cfg.Linear.TeamID,
		Interval: time.Duration(cfg.Sync.IntervalSec) * time.Second,
	}), nil
}

func runConnect(cmd *cobra.Command, args []string) error {
	if flagConnectKey == "" {
		return fmt.Errorf("--api-key is required")
	}

	client := linear.NewClient(flagConnectKey)
	ctx := cmd.Context()

	viewer, err := client.Viewer(ctx)
	if err != nil {
		return fmt.Errorf("validating API key: %w", err)
	}

	if err := credential.StoreAPIKey(flagConnectKey); err != nil {
		return err
	}
	fmt.Printf("connected as %s\n", viewer.Name)

	teams, err := client.Teams(ctx)
	if err != nil {
		return err
	}

	cfg, err := model.LoadConfig(flagConfigPath)
	if err != nil {
		return err
	}

	if flagConnectTeam == "" {
		fmt.Println("available teams:")
		for _, t := range teams {
			fmt.Printf("  %s  %s (%s)\n", t.ID, t.Name, t.Key)
		}
		fmt.Println("re-run with --team <id> to select one")
		return nil
	}

	for _, t := range teams {
		if t.ID != flagConnectTeam {
			continue
		}
		cfg.Linear.TeamID = t.ID
		cfg.Linear.TeamName = t.Name
		if err := model.SaveConfig(flagConfigPath, cfg); err != nil {
			return err
		}

		// Mirror the selection into the store so sync state and
		// session settings live side by side.
		s, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer s.Close()
		if err := s.SetSetting(ctx, store.SettingTeamID, t.ID); err != nil {
			return err
		}
		if err := s.SetSetting(ctx, store.SettingTeamName, t.Name); err != nil {
			return err
		}

		fmt.Printf("selected team %s\n", t.Name)
		return nil
	}
	return fmt.Errorf("team %q not found", flagConnectTeam)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := model.LoadConfig(flagConfigPath)
	if err != nil {
		return err
	}

	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()

	if cfg.Linear.TeamID == "" {
		fmt.Println("not connected (run `sprintsync connect`)")
	} else {
		fmt.Printf("team: %s (%s)\n", cfg.Linear.TeamName, cfg.Linear.TeamID)
	}

	lastSync, err := s.GetSetting(ctx, store.SettingLastSync)
	if err != nil {
		return err
	}
	if lastSync == "" {
		fmt.Println("last sync: never")
	} else {
		fmt.Printf("last sync: %s\n", lastSync)
	}

	tasks, err := s.Tasks(ctx)
	if err != nil {
		return err
	}
	sprints, err := s.Sprints(ctx)
	if err != nil {
		return err
	}

	linked := 0
	for _, t := range tasks {
		if t.Linked() {
			linked++
		}
	}
	fmt.Printf("%d sprints, %d tasks (%d linked)\n", len(sprints), len(tasks), linked)
	return nil
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := model.LoadConfig(flagConfigPath)
	if err != nil {
		return err
	}

	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	orch, err := newOrchestrator(cfg, s)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	var reports []syncpkg.Report
	switch {
	case flagSyncCycle != "":
		reports, err = orch.SyncCycle(ctx, flagSyncCycle)
		if err == nil {
			// Remember the selection for status display.
			if serr := s.SetSetting(ctx, store.SettingCycleID, flagSyncCycle); serr != nil {
				logger.Warn("recording selected cycle: %v", serr)
			}
		}
	case flagSyncBacklog:
		reports, err = orch.SyncBacklog(ctx)
	default:
		reports, err = orch.SyncAll(ctx)
	}
	if err != nil {
		return err
	}

	for _, r := range reports {
		fmt.Println(r.Summary())
	}
	return nil
}

func runPush(cmd *cobra.Command, args []string) error {
	cfg, err := model.LoadConfig(flagConfigPath)
	if err != nil {
		return err
	}

	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	orch, err := newOrchestrator(cfg, s)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	tasks, err := s.Tasks(ctx)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if t.ID != args[0] {
			continue
		}
		if !t.Linked() {
			linked, err := orch.PushNewTask(ctx, t)
			if err != nil {
				return err
			}
			fmt.Printf("created remote issue %s for task %s\n",
				linked.RemoteIssueID, linked.ID)
			return nil
		}
		if err := orch.PushTaskUpdate(ctx, t); err != nil {
			return err
		}
		fmt.Printf("pushed task %s to issue %s\n", t.ID, t.RemoteIssueID)
		return nil
	}
	return fmt.Errorf("task %q not found", args[0])
}

func runAdd(cmd *cobra.Command, args []string) error {
	cfg, err := model.LoadConfig(flagConfigPath)
	if err != nil {
		return err
	}

	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	task := model.NewLocalTask(args[0])
	task.SprintID = flagAddSprint

	if err := s.UpsertTask(cmd.Context(), task); err != nil {
		return err
	}
	fmt.Printf("created task %s\n", task.ID)
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := model.LoadConfig(flagConfigPath)
	if err != nil {
		return err
	}

	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()

	tasks, err := s.Tasks(ctx)
	if err != nil {
		return err
	}
	sprints, err := s.Sprints(ctx)
	if err != nil {
		return err
	}

	snapshot := export.Snapshot{
		ExportedAt: time.Now(),
		Sprints:    sprints,
		Tasks:      tasks,
	}

	out := os.Stdout
	if flagExportOut != "" {
		f, err := os.Create(flagExportOut)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	switch flagExportFormat {
	case "json":
		return export.WriteJSON(out, snapshot)
	case "csv":
		return export.WriteCSV(out, snapshot)
	case "md", "markdown":
		return export.WriteMarkdown(out, snapshot)
	default:
		return fmt.Errorf("unknown format %q: use json, csv, or md", flagExportFormat)
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := model.LoadConfig(flagConfigPath)
	if err != nil {
		return err
	}

	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	orch, err := newOrchestrator(cfg, s)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := s.SetSetting(ctx, store.SettingAutoSync, "true"); err != nil {
		logger.Warn("recording auto-sync flag: %v", err)
	}
	defer func() {
		if err := s.SetSetting(context.Background(), store.SettingAutoSync, "false"); err != nil {
			logger.Warn("clearing auto-sync flag: %v", err)
		}
	}()

	logger.Info("watching, sync every %ds (ctrl-c to stop)", cfg.Sync.IntervalSec)

	// Do an initial sync immediately, then hand off to the loop.
	if reports, err := orch.SyncAll(ctx); err != nil {
		logger.Warn("initial sync failed: %v", err)
	} else {
		for _, r := range reports {
			logger.Info("%s", r.Summary())
		}
	}

	orch.Run(ctx)
	return nil
}
