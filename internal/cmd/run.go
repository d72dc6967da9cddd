package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/harrison/pitufo/internal/config"
	"github.com/harrison/pitufo/internal/executor"
	"github.com/harrison/pitufo/internal/filelock"
	"github.com/harrison/pitufo/internal/fileutil"
	"github.com/harrison/pitufo/internal/history"
	"github.com/harrison/pitufo/internal/logger"
	"github.com/spf13/cobra"
)

// addRunFlags registers the normalization flags on cmd
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("path", "p", "", "Directory to scan (alternative to the positional argument)")
	cmd.Flags().Bool("follow", false, "Follow symbolic links to directories")
	cmd.Flags().Bool("minify", false, "Write compact output instead of indented output")
	cmd.Flags().Bool("strip-bom", false, "Strip a leading byte-order marker before parsing")
	cmd.Flags().BoolP("verbose", "v", false, "Report every successfully processed file")
	cmd.Flags().IntP("max-depth", "m", 0, "Maximum traversal depth (0 = unlimited)")
	cmd.Flags().String("config", "", "Path to config file (default: .pitufo/config.yaml)")
	cmd.Flags().String("log-level", "", "Log level: trace, debug, info, warn, error (default: info)")
	cmd.Flags().String("log-dir", "", "Also write a run log file into this directory")
	cmd.Flags().IntP("workers", "w", 1, "Number of files processed concurrently")
	cmd.Flags().Bool("atomic", false, "Replace files through a temp file and rename")
	cmd.Flags().Bool("lock", false, "Refuse to start while another run over the same directory is active")
	cmd.Flags().String("history", "", "Record the run in this SQLite history database")
	cmd.Flags().Bool("fail-on-error", false, "Exit with a non-zero status when any file failed")
	cmd.Flags().Bool("dry-run", false, "List candidate files without rewriting them")
}

// loadRunConfig loads the config file, applies explicitly set flags and validates the result.
func loadRunConfig(cmd *cobra.Command, args []string) (config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return config.Config{}, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	} else {
		cfg, err = config.LoadConfigFromDir(".")
		if err != nil {
			return config.Config{}, fmt.Errorf("failed to load config: %w", err)
		}
	}

	var overrides config.FlagOverrides

	pathFlag, _ := cmd.Flags().GetString("path")
	switch {
	case len(args) == 1 && cmd.Flags().Changed("path") && pathFlag != args[0]:
		return config.Config{}, fmt.Errorf("conflicting paths: --path %q and argument %q", pathFlag, args[0])
	case len(args) == 1:
		overrides.Path = &args[0]
	case cmd.Flags().Changed("path"):
		overrides.Path = &pathFlag
	}

	overrides.FollowSymlinks = boolFlag(cmd, "follow")
	overrides.Minify = boolFlag(cmd, "minify")
	overrides.StripBOM = boolFlag(cmd, "strip-bom")
	overrides.Verbose = boolFlag(cmd, "verbose")
	overrides.MaxDepth = intFlag(cmd, "max-depth")
	overrides.LogLevel = stringFlag(cmd, "log-level")
	overrides.LogDir = stringFlag(cmd, "log-dir")
	overrides.Workers = intFlag(cmd, "workers")
	overrides.AtomicWrite = boolFlag(cmd, "atomic")
	overrides.Lock = boolFlag(cmd, "lock")
	overrides.HistoryDB = stringFlag(cmd, "history")
	overrides.FailOnError = boolFlag(cmd, "fail-on-error")

	// Merge CLI flags with config (flags take precedence)
	cfg.MergeWithFlags(overrides)

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return *cfg, nil
}

// Build flag pointers for merge (only explicitly set values)
func boolFlag(cmd *cobra.Command, name string) *bool {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetBool(name)
	return &v
}

func intFlag(cmd *cobra.Command, name string) *int {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetInt(name)
	return &v
}

func stringFlag(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}

// runNormalize implements the root command
func runNormalize(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(cmd, args)
	if err != nil {
		return err
	}

	console := logger.NewConsoleLoggerWithErrors(cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg.LogLevel)
	console.SetVerbose(cfg.Verbose)

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	if dryRun {
		return listCandidates(cmd.OutOrStdout(), cfg, console)
	}

	if cfg.Lock {
		lock, err := filelock.AcquireRunLock(cfg.Path)
		if err != nil {
			if errors.Is(err, filelock.ErrLocked) {
				return fmt.Errorf("another pitufo run is active on %s", cfg.Path)
			}
			return fmt.Errorf("failed to acquire run lock: %w", err)
		}
		defer lock.Unlock()
		console.LogDebug(fmt.Sprintf("Acquired run lock %s", lock.Path()))
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var recorder executor.Recorder
	runID := uuid.NewString()
	if cfg.HistoryDB != "" {
		store, err := history.NewStore(cfg.HistoryDB)
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer store.Close()

		root, err := filepath.Abs(cfg.Path)
		if err != nil {
			root = cfg.Path
		}
		rec, err := store.BeginRun(ctx, root, history.RunSettings{
			Minify:         cfg.Minify,
			StripBOM:       cfg.StripBOM,
			FollowSymlinks: cfg.FollowSymlinks,
			MaxDepth:       cfg.MaxDepth,
		})
		if err != nil {
			return fmt.Errorf("failed to record run: %w", err)
		}
		recorder = rec
		runID = rec.RunID()
	}

	var runLogger executor.Logger = console
	if cfg.LogDir != "" {
		fileLogger, err := logger.NewFileLoggerWithDirAndLevel(cfg.LogDir, cfg.LogLevel, runID)
		if err != nil {
			return fmt.Errorf("failed to create file logger: %w", err)
		}
		defer fileLogger.Close()
		runLogger = logger.NewMultiLogger(console, fileLogger)
	}

	console.LogDebug(fmt.Sprintf("Run %s: path=%s minify=%t strip_bom=%t follow=%t max_depth=%d workers=%d",
		runID, cfg.Path, cfg.Minify, cfg.StripBOM, cfg.FollowSymlinks, cfg.MaxDepth, cfg.Workers))

	summary, err := executor.NewRunner(cfg, runLogger, recorder).Run(ctx)
	if err != nil {
		return err
	}

	if cfg.FailOnError && summary.Failed > 0 {
		return fmt.Errorf("%d of %d file(s) failed", summary.Failed, summary.Candidates)
	}

	return nil
}

// listCandidates prints the files a run would process without touching them
func listCandidates(w io.Writer, cfg config.Config, console *logger.ConsoleLogger) error {
	result, err := fileutil.Scan(cfg.Path, executor.WalkOptions(cfg, nil))
	if err != nil {
		return fmt.Errorf("cannot open root: %w", err)
	}

	fmt.Fprintf(w, "Dry-run mode: %d candidate file(s) under %s\n", len(result.Files), cfg.Path)
	for _, path := range result.Files {
		fmt.Fprintf(w, "  %s\n", path)
	}

	for _, skipped := range result.Errors {
		console.LogWarn(fmt.Sprintf("skipped: %v", skipped))
	}

	return nil
}
