package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	sflog "github.com/holon-run/storyflow/pkg/log"
	"github.com/holon-run/storyflow/pkg/story"
)

var infoCmd = &cobra.Command{
	Use:   "info [story-id]",
	Short: "Show a story and its notes",
	Long: `Show a story from the tracker.

Without an argument the story of the current branch is shown.

Examples:
  storyflow info
  storyflow info 135468`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := loadApp(ctx)
		if err != nil {
			return err
		}

		var (
			s      story.Story
			branch string
		)
		if len(args) == 1 {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid story id %q: %w", args[0], err)
			}
			if s, err = a.tracker.GetStory(ctx, id); err != nil {
				return err
			}
		} else {
			if branch, err = a.currentBranch(ctx); err != nil {
				return err
			}
			if s, err = a.storyResolver().ResolveStory(ctx, branch); err != nil {
				return err
			}
		}

		notes, err := a.tracker.ListNotes(ctx, s.ID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if err := story.PrettyPrint(out, s, notes); err != nil {
			return err
		}
		if s.State != "" {
			fmt.Fprintf(out, "%s %s\n", renderMuted("state"), s.State)
		}
		if s.URL != "" {
			fmt.Fprintf(out, "%s %s\n", renderMuted("url"), renderAccent(s.URL))
		}
		if branch != "" {
			target := a.conventions.MergeTarget(s)
			ahead, behind, err := a.git.AheadBehind(ctx, target, branch)
			if err != nil {
				sflog.Debug("failed to compare with merge target", "target", target, "error", err)
				return nil
			}
			fmt.Fprintf(out, "%s %d ahead, %d behind %s\n", renderMuted("branch"), ahead, behind, target)
			if base, err := a.git.MergeBase(ctx, target, branch); err == nil {
				fmt.Fprintf(out, "%s %s\n", renderMuted("forked at"), shortSHA(base))
			}
		}
		return nil
	},
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
