package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/lfmerge/internal/watch"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Process updates as they arrive",
		Long: `Watch MergeWork/LiftUpdates and run a processing pass whenever new
update files arrive. Pending files are processed once at start.

Runs until interrupted.

Examples:
  lfmerge --root /var/lib/languageforge watch --log-file /var/log/lfmerge.log`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(rootOpts, cmd)
		},
	}
	return cmd
}

func runWatch(opts *RootOptions, cmd *cobra.Command) error {
	if err := opts.load(cmd); err != nil {
		return err
	}
	out := opts.formatter(cmd)

	p, j, err := opts.processor()
	if err != nil {
		return out.Fail(err, nil)
	}
	defer j.Close()

	layout, err := opts.layout()
	if err != nil {
		return out.Fail(err, nil)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := watch.New(layout.LiftUpdatesPath(), func(ctx context.Context) error {
		report, err := p.ProcessAll(ctx)
		for _, project := range report.Failed() {
			opts.logger.Warn("project put on hold", "project", project)
		}
		return err
	},
		watch.WithDebounce(opts.settings.Debounce),
		watch.WithLogger(opts.logger),
	)
	if err := w.Run(ctx); err != nil {
		return out.Fail(WrapExitError(ExitCommandError, "watch failed", err), nil)
	}
	return nil
}
