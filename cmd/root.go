package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	filerec "github.com/TFMV/filerec/internal/walk"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
	version = "0.1.0"

	// Status output on stderr. Color is disabled when stderr is not a terminal.
	progressColor = color.New(color.FgCyan)
	noticeColor   = color.New(color.Faint)
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "filerec [options] [path]",
	Short: "Stream every file below a directory",
	Long: `filerec lists every file below a directory, recursively, as soon as it
is found. Output arrives in batches: a small first batch, then larger ones.

Examples:
  filerec
  filerec ~/src --ignore-dir=.git,node_modules
  filerec /srv --expand-symlinks --workers=8
  filerec . --format=json
  filerec . --template='{key} -> {}'`,
	Version:       version,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := resolveRoot(args)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return runList(ctx, root, cmd.OutOrStdout())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default is $HOME/.filerec.yaml)")
	rootCmd.PersistentFlags().Int("chunk-size", filerec.DefaultChunkSize, "Items in the first batch; later batches are ten times larger")
	rootCmd.PersistentFlags().StringSlice("ignore-dir", filerec.DefaultIgnoredDirectories, "Directory names never descended into (comma-separated)")
	rootCmd.PersistentFlags().Bool("expand-symlinks", false, "Descend into symbolic links to directories")
	rootCmd.PersistentFlags().IntP("workers", "w", 1, "Directories listed in parallel")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().Bool("silent", false, "Disable all logging except errors")
	rootCmd.PersistentFlags().String("format", "text", "Output format (text|json)")
	rootCmd.PersistentFlags().String("template", "", "Output template with {}, {key}, {base} and {dir} placeholders")
	rootCmd.PersistentFlags().Bool("progress", false, "Report progress on stderr")

	// Bind flags to viper
	for _, name := range []string{
		"chunk-size", "ignore-dir", "expand-symlinks", "workers",
		"verbose", "silent", "format", "template", "progress",
	} {
		viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		// Search config in home directory with name ".filerec" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".filerec")
	}

	viper.SetEnvPrefix("filerec")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		noticeColor.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// resolveRoot turns the optional path argument into an absolute root,
// defaulting to the working directory.
func resolveRoot(args []string) (string, error) {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("invalid path %q: %w", root, err)
	}
	return abs, nil
}

// configFromViper builds the traversal configuration from flags, the
// config file and the environment.
func configFromViper() (filerec.Config, error) {
	cfg := filerec.DefaultConfig()
	cfg.ChunkSize = viper.GetInt("chunk-size")
	cfg.IgnoredDirectories = viper.GetStringSlice("ignore-dir")
	cfg.ExpandSymbolicLink = viper.GetBool("expand-symlinks")
	cfg.Workers = viper.GetInt("workers")

	switch {
	case viper.GetBool("verbose"):
		cfg.LogLevel = filerec.LogLevelDebug
	case viper.GetBool("silent"):
		cfg.LogLevel = filerec.LogLevelError
	default:
		cfg.LogLevel = filerec.LogLevelWarn
	}
	cfg.Logger = newLogger(cfg.LogLevel)

	if viper.GetBool("progress") {
		cfg.Progress = func(stats filerec.Stats) {
			progressColor.Fprintf(os.Stderr, "\rFiles: %d, dirs: %d, batches: %d, %.0f files/s",
				stats.FilesEmitted, stats.DirsListed, stats.BatchesEmitted, stats.FilesPerSec)
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// newLogger builds the CLI logger. It writes to stderr so that stdout
// carries nothing but items.
func newLogger(level filerec.LogLevel) *zap.Logger {
	config := zap.NewDevelopmentConfig()
	config.DisableStacktrace = true
	switch level {
	case filerec.LogLevelDebug:
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case filerec.LogLevelError:
		config.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		config.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	logger, err := config.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// itemPrinter writes items in the selected output format.
type itemPrinter func(w io.Writer, item filerec.Item) error

func newItemPrinter() (itemPrinter, error) {
	if tmpl := viper.GetString("template"); tmpl != "" {
		return func(w io.Writer, item filerec.Item) error {
			_, err := fmt.Fprintln(w, filerec.FormatItem(tmpl, item))
			return err
		}, nil
	}

	switch format := viper.GetString("format"); format {
	case "text":
		return func(w io.Writer, item filerec.Item) error {
			_, err := fmt.Fprintln(w, item.Key)
			return err
		}, nil
	case "json":
		return func(w io.Writer, item filerec.Item) error {
			line, err := json.Marshal(item)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(w, string(line))
			return err
		}, nil
	default:
		return nil, fmt.Errorf("invalid format: %s", format)
	}
}

// printStream writes every batch of s to w until the stream ends.
func printStream(ctx context.Context, s *filerec.Stream, w io.Writer, printItem itemPrinter) error {
	for {
		batch, ok := s.Next(ctx)
		if !ok {
			return s.Err()
		}
		for _, item := range batch {
			if err := printItem(w, item); err != nil {
				return fmt.Errorf("error writing output: %w", err)
			}
		}
	}
}

func runList(ctx context.Context, root string, out io.Writer) error {
	cfg, err := configFromViper()
	if err != nil {
		return err
	}
	defer cfg.Logger.Sync()

	printItem, err := newItemPrinter()
	if err != nil {
		return err
	}

	s, err := filerec.Start(ctx, root, cfg)
	if err != nil {
		return err
	}
	defer s.Cancel()

	err = printStream(ctx, s, out, printItem)
	if cfg.Progress != nil {
		s.Cancel() // delivers the final progress line
		fmt.Fprintln(os.Stderr)
	}
	return err
}
