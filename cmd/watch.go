package cmd

import (
	"context"
	"os"
	"os/signal"
	"time"

	filerec "github.com/TFMV/filerec/internal/walk"
	"github.com/spf13/cobra"
)

var (
	watchDebounce time.Duration
	watchTimeout  time.Duration
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "List files again whenever the tree changes",
	Long: `Watch lists every file below a directory, then lists them again each time
something below it changes. Excluded directories are not watched.

Examples:
  filerec watch
  filerec watch ~/src --debounce=500ms
  filerec watch . --timeout=1h --format=json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := resolveRoot(args)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		return runWatch(ctx, root, cmd)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", filerec.DefaultDebounce, "Quiet period before listing again")
	watchCmd.Flags().DurationVar(&watchTimeout, "timeout", 0, "Duration to watch before exiting (e.g., 1h, 30m)")
}

func runWatch(ctx context.Context, root string, cmd *cobra.Command) error {
	cfg, err := configFromViper()
	if err != nil {
		return err
	}
	defer cfg.Logger.Sync()

	printItem, err := newItemPrinter()
	if err != nil {
		return err
	}

	noticeColor.Fprintf(cmd.ErrOrStderr(), "Watching %s for changes...\n", root)
	noticeColor.Fprintln(cmd.ErrOrStderr(), "Press Ctrl+C to exit.")

	opts := filerec.WatchOptions{
		Debounce: watchDebounce,
		Timeout:  watchTimeout,
	}
	listing := 0
	return filerec.Watch(ctx, root, cfg, opts, func(ctx context.Context, s *filerec.Stream) error {
		if listing > 0 {
			noticeColor.Fprintf(cmd.ErrOrStderr(), "--- listing %d at %s ---\n", listing+1, time.Now().Format(time.RFC3339))
		}
		listing++
		return printStream(ctx, s, cmd.OutOrStdout(), printItem)
	})
}
