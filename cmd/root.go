package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"declutter/internal/tui"

	// Archive formats.
	_ "declutter/internal/archive/tarx"
	_ "declutter/internal/archive/zipx"
)

var (
	configPath     string
	flagLogLevel   string
	flagLogFormat  string
	flagWorkers    int
	flagExclude    []string
	flagNoProgress bool
)

// errEntriesFailed is returned after the report listing the failures has
// been printed.
var errEntriesFailed = errors.New("some files could not be processed")

var rootCmd = &cobra.Command{
	Use:   "declutter <folder>",
	Short: "declutter - sort a folder by file type",
	Long: "declutter moves every file under a folder into images/, audio/, video/, documents/ " +
		"and other/ by extension, unpacks archives into archives/<name>/ and removes the folders " +
		"left empty.\n\n" +
		"A folder whose name matches a subcommand, such as plan or config, has to be given " +
		"with a path prefix: declutter ./plan",
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := organize(cmd, args[0], false)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), tui.RenderReport(report))
		if report.Err() != nil {
			return fmt.Errorf("%w: %d failed", errEntriesFailed, len(report.Failures))
		}
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "config file (default ~/.config/declutter/config.toml or ./declutter.toml)")
	flags.StringVar(&flagLogLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	flags.StringVar(&flagLogFormat, "log-format", "", "log format (text, json)")
	flags.IntVar(&flagWorkers, "workers", 0, "files processed in parallel")
	flags.StringSliceVar(&flagExclude, "exclude", nil, "paths to leave alone, as doublestar patterns relative to the folder")
	flags.BoolVar(&flagNoProgress, "no-progress", false, "never show the progress view")
}
