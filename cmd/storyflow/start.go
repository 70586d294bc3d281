package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/holon-run/storyflow/pkg/flow"
	sflog "github.com/holon-run/storyflow/pkg/log"
)

// StartedState is the tracker state a story moves to once its branch exists.
const StartedState = "started"

var (
	startLimit     int
	startKeepState bool
)

var startCmd = &cobra.Command{
	Use:   "start [filter]",
	Short: "Pick a story and create its branch",
	Long: `Pick a story from the tracker and create its working branch.

The filter is either a story id or a story type (feature, bug, chore,
release). Without a filter, startable features and bugs are offered.
Feature, bug and chore branches start from the development branch,
hotfix branches from the validation branch.

Nothing is committed or pushed.

Examples:
  storyflow start
  storyflow start 135468
  storyflow start chore --limit 10`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := loadApp(ctx)
		if err != nil {
			return err
		}

		var filter string
		if len(args) == 1 {
			filter = args[0]
		}

		selector := &flow.Selector{Finder: a.tracker, Chooser: a.prompter}
		s, err := selector.Select(ctx, filter, startLimit)
		if err != nil {
			return err
		}

		starter := &flow.Starter{Conventions: a.conventions, Git: a.git, Asker: a.prompter}
		s, err = starter.Start(ctx, s)
		if err != nil {
			return err
		}

		if !startKeepState && !s.IsRelease() {
			if _, err := a.tracker.UpdateState(ctx, s.ID, StartedState); err != nil {
				sflog.Warn("failed to mark story started", "id", s.ID, "error", err)
				fmt.Fprintf(cmd.OutOrStdout(), "%s Story #%d could not be marked %s\n", renderWarn(iconWarn), s.ID, StartedState)
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s Switched to a new branch %s\n", renderPass(iconPass), renderAccent(s.BranchName))
		return nil
	},
}

func init() {
	startCmd.Flags().IntVar(&startLimit, "limit", flow.DefaultSelectLimit, "Number of candidate stories to offer")
	startCmd.Flags().BoolVar(&startKeepState, "keep-state", false, "Do not move the story to started in the tracker")
	rootCmd.AddCommand(startCmd)
}
