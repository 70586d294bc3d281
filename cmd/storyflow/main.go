package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/holon-run/storyflow/pkg/config"
	sflog "github.com/holon-run/storyflow/pkg/log"
)

var (
	logLevel     string
	rootDir      string
	trackerToken string
	projectID    string
)

var rootCmd = &cobra.Command{
	Use:   "storyflow",
	Short: "Storyflow ties tracker stories to git branches and pull requests.",
	Long: `Storyflow maps Pivotal Tracker stories to git branches in a
feature / release / hotfix workflow converging on development, master and a
validation branch.

  storyflow start [filter]   pick a story and create its branch
  storyflow publish          push the branch and open its pull request(s)
  storyflow finish           merge the branch into its root branch(es)
  storyflow info             show the story of the current branch`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(rootDir)
		if err != nil {
			return err
		}
		level, source := cfg.ResolveLogLevel(logLevel, sflog.DefaultLevel)
		if err := sflog.SetLevel(level); err != nil {
			return fmt.Errorf("invalid log level from %s: %w", source, err)
		}
		sflog.Debug("log level resolved", "level", level, "source", source)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, progress, minimal")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "C", ".", "Run as if started in this directory")
	rootCmd.PersistentFlags().StringVar(&trackerToken, "tracker-token", "", "Pivotal Tracker API token (overrides PIVOTAL_API_TOKEN and git config)")
	rootCmd.PersistentFlags().StringVar(&projectID, "project-id", "", "Pivotal Tracker project id (overrides git config and project file)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", renderFail(iconFail), err)
		os.Exit(1)
	}
}
