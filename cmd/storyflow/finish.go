package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/holon-run/storyflow/pkg/flow"
	sflog "github.com/holon-run/storyflow/pkg/log"
	"github.com/holon-run/storyflow/pkg/merge"
	"github.com/holon-run/storyflow/pkg/prompt"
	"github.com/holon-run/storyflow/pkg/story"
	"github.com/holon-run/storyflow/pkg/tracker"
)

var (
	finishNoPush    bool
	finishKeepState bool
)

var finishCmd = &cobra.Command{
	Use:   "finish",
	Short: "Merge the current story branch into its root branch(es)",
	Long: `Finish the story of the current branch.

Feature, bug and chore branches merge into the development branch and
release branches into the master branch. Hotfix branches merge into the
validation branch first, then into the master branch and finally into the
development branch. Release merges create an annotated tag named after the
release. Each merged branch is pushed unless --no-push is given; with
--no-push only the primary merge is made.

Merges fast-forward when possible and create a merge commit otherwise.
Conflicts are left for you to resolve.

Examples:
  storyflow finish
  storyflow finish --no-push`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := loadApp(ctx)
		if err != nil {
			return err
		}

		branch, err := a.currentBranch(ctx)
		if err != nil {
			return err
		}
		s, err := a.storyResolver().ResolveStory(ctx, branch)
		if err != nil {
			return err
		}
		if !a.git.IsClean(ctx) {
			return fmt.Errorf("%w:\n%s", flow.ErrDirtyWorkingTree, a.git.DiagnoseWorkingTree(ctx))
		}

		if !finishNoPush {
			question := fmt.Sprintf("Merge %s into %s and push?", branch, strings.Join(a.conventions.FinishTargets(s), ", "))
			ok, err := a.prompter.Confirm(ctx, question, true)
			if err != nil {
				return err
			}
			if !ok {
				return prompt.ErrAborted
			}
		}

		engine := merge.New(a.conventions, a.git)
		var outcomes []merge.Outcome
		switch {
		case !finishNoPush:
			outcomes, err = engine.MergeToRoots(ctx, s)
		case s.IsRelease():
			var out merge.Outcome
			out, err = engine.MergeRelease(ctx, s)
			outcomes = append(outcomes, out)
		default:
			var out merge.Outcome
			out, err = engine.Merge(ctx, s, a.conventions.MergeTarget(s))
			outcomes = append(outcomes, out)
		}

		printOutcomes(cmd.OutOrStdout(), outcomes)
		if err != nil {
			return err
		}

		if !finishKeepState {
			markFinished(ctx, cmd.OutOrStdout(), a, s)
		}
		return nil
	},
}

func markFinished(ctx context.Context, w io.Writer, a *app, s story.Story) {
	state := tracker.FinishedState(s.Category)
	if _, err := a.tracker.UpdateState(ctx, s.ID, state); err != nil {
		sflog.Warn("failed to update story state", "id", s.ID, "state", state, "error", err)
		fmt.Fprintf(w, "%s Story #%d could not be marked %s\n", renderWarn(iconWarn), s.ID, state)
		return
	}
	fmt.Fprintf(w, "%s Story #%d marked %s\n", renderPass(iconPass), s.ID, state)
}

func printOutcomes(w io.Writer, outcomes []merge.Outcome) {
	for _, out := range outcomes {
		if out.State == merge.Failed {
			fmt.Fprintf(w, "%s %s into %s %s\n", renderFail(iconFail), out.Source, out.Target, renderMuted("(failed)"))
			continue
		}

		line := fmt.Sprintf("%s Merged %s into %s %s", renderPass(iconPass), out.Source, out.Target, renderMuted("("+out.Strategy.String()+")"))
		if out.Tag != "" {
			line += " tagged " + renderAccent(out.Tag)
		}
		if out.Pushed {
			line += " and pushed"
		}
		fmt.Fprintln(w, line)
	}
}

func init() {
	finishCmd.Flags().BoolVar(&finishNoPush, "no-push", false, "Merge locally into the primary target only")
	finishCmd.Flags().BoolVar(&finishKeepState, "keep-state", false, "Do not move the story to its finished state in the tracker")
	rootCmd.AddCommand(finishCmd)
}
