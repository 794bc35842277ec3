package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/roach88/lfmerge/internal/config"
	"github.com/roach88/lfmerge/internal/journal"
	"github.com/roach88/lfmerge/internal/merge"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Root       string
	LogFile    string

	loaded   bool
	settings config.Settings
	logger   *slog.Logger
	closers  []io.Closer
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the lfmerge CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "lfmerge",
		Short: "lfmerge - merge LIFT updates into Language Forge projects",
		Long: `Apply incremental .lift.update files to LIFT lexicon files.

Updates are named <project>_<sha>_<suffix>.lift.update and are merged
entry by entry, keyed on guid, oldest first.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return opts.load(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return opts.close()
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", config.DefaultFile, "CUE settings file")
	cmd.PersistentFlags().StringVar(&opts.Root, "root", "", "Language Forge server folder (overrides serverRoot)")
	cmd.PersistentFlags().StringVar(&opts.LogFile, "log-file", "", "also write logs to this rotated file")

	// Add subcommands
	cmd.AddCommand(NewScanCommand(opts))
	cmd.AddCommand(NewMergeCommand(opts))
	cmd.AddCommand(NewProcessCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewFoldersCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewReleaseCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// load reads settings, applies flag overrides and builds the logger. Safe to
// call more than once; commands call it so they also work without the root.
func (o *RootOptions) load(cmd *cobra.Command) error {
	if o.loaded {
		return nil
	}
	settings, err := config.Load(o.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load settings", err)
	}
	if o.Root != "" {
		root, err := filepath.Abs(o.Root)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --root", err)
		}
		settings.ServerRoot = root
	}
	if o.LogFile != "" {
		settings.LogFile = o.LogFile
	}
	if o.Verbose {
		settings.LogLevel = "debug"
	}
	o.settings = settings

	var w io.Writer = cmd.ErrOrStderr()
	if settings.LogFile != "" {
		lj := &lumberjack.Logger{
			Filename:   settings.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
		}
		o.closers = append(o.closers, lj)
		w = io.MultiWriter(w, lj)
	}
	o.logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: parseLevel(settings.LogLevel),
	}))
	o.loaded = true
	return nil
}

func (o *RootOptions) close() error {
	var first error
	for _, c := range o.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	o.closers = nil
	return first
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// layout resolves the server layout from settings.
func (o *RootOptions) layout() (config.Layout, error) {
	l, err := o.settings.Layout()
	if err != nil {
		return config.Layout{}, WrapExitError(ExitCommandError, "server root not configured (use --root or serverRoot)", err)
	}
	return l, nil
}

// openJournal opens the configured journal, creating its folder if needed.
func (o *RootOptions) openJournal() (*journal.Journal, error) {
	path, err := o.settings.Journal()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "journal path not configured (use --root or journal)", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to create journal folder", err)
	}
	j, err := journal.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	return j, nil
}

// merger builds a Merger from settings.
func (o *RootOptions) merger() *merge.Merger {
	return merge.New(
		merge.WithLogger(o.logger),
		merge.WithBackupSuffix(o.settings.BackupSuffix),
		merge.WithLockTimeout(o.settings.LockTimeout),
	)
}

// formatter returns an OutputFormatter writing to cmd's streams.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}
