package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	sflog "github.com/holon-run/storyflow/pkg/log"
	"github.com/holon-run/storyflow/pkg/publisher"
	"github.com/holon-run/storyflow/pkg/publisher/githubpr"
)

var (
	publishProvider string
	publishDryRun   bool
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Push the current branch and open its pull request(s)",
	Long: `Publish the current story branch.

The working tree must be clean. The branch is pushed with upstream tracking
and a pull request is opened into the development branch. Hotfix branches
get a second pull request into the validation branch; release branches
target the master branch.

The outcome is written to .git/storyflow/publish-result.json.

Examples:
  storyflow publish
  storyflow publish --dry-run
  storyflow publish --provider git`,
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

		registry, unavailable, err := a.publishers(ctx)
		if err != nil {
			return err
		}
		p, err := registry.Lookup(publishProvider)
		if err != nil {
			if reason, ok := unavailable[publishProvider]; ok {
				// A branch without a story is the more useful report.
				if _, err := a.storyResolver().ResolveStory(ctx, branch); err != nil {
					return err
				}
				return fmt.Errorf("publisher '%s' is not available: %w", publishProvider, reason)
			}
			return err
		}

		req := publisher.PublishRequest{Branch: branch, DryRun: publishDryRun}
		if err := p.Validate(req); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}

		result, pubErr := p.Publish(ctx, req)

		if !publishDryRun && len(result.Actions) > 0 {
			dir, err := a.stateDir(ctx)
			if err == nil {
				err = publisher.WriteResult(dir, result)
			}
			if err != nil {
				sflog.Warn("failed to write publish result", "error", err)
			}
		}

		printResult(cmd.OutOrStdout(), result)
		if pubErr != nil {
			return fmt.Errorf("publish failed: %w", pubErr)
		}
		return nil
	},
}

func printResult(w io.Writer, result publisher.PublishResult) {
	switch {
	case result.DryRun && result.Success:
		fmt.Fprintf(w, "%s Dry run: %s would be published by '%s'\n", renderPass(iconPass), result.Branch, result.Provider)
	case result.Success:
		fmt.Fprintf(w, "%s Published %s using provider '%s'\n", renderPass(iconPass), result.Branch, result.Provider)
	case len(result.Actions) > 0:
		fmt.Fprintf(w, "%s Publish of %s completed with errors\n", renderWarn(iconWarn), result.Branch)
	default:
		return
	}

	for _, action := range result.Actions {
		line := "  - " + action.Description
		if url := action.Metadata["pr_url"]; url != "" {
			line += " " + renderAccent(url)
		}
		fmt.Fprintln(w, line)
	}
	for _, e := range result.Errors {
		fmt.Fprintf(w, "  %s %s\n", renderFail(iconFail), e.Message)
	}
}

var publishListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available publishers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := loadApp(ctx)
		if err != nil {
			return err
		}

		registry, unavailable, err := a.publishers(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, renderHeader("Available publishers:"))
		for _, name := range registry.List() {
			fmt.Fprintf(out, "  - %s\n", name)
		}
		for name, reason := range unavailable {
			fmt.Fprintf(out, "  - %s %s\n", name, renderMuted("(unavailable: "+reason.Error()+")"))
		}
		return nil
	},
}

var publishInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the result of the last publish",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := loadApp(ctx)
		if err != nil {
			return err
		}
		dir, err := a.stateDir(ctx)
		if err != nil {
			return err
		}

		result, err := publisher.ReadResult(dir)
		if err != nil {
			return fmt.Errorf("no publish result found, run 'storyflow publish' first: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s\n", renderMuted("published at"), result.PublishedAt.Format("2006-01-02 15:04:05"))
		if result.StoryID != 0 {
			fmt.Fprintf(out, "%s #%d\n", renderMuted("story"), result.StoryID)
		}
		printResult(out, result)
		return nil
	},
}

func init() {
	publishCmd.Flags().StringVar(&publishProvider, "provider", githubpr.Name, "Publisher to use (see 'storyflow publish list')")
	publishCmd.Flags().BoolVar(&publishDryRun, "dry-run", false, "Resolve the story and check the tree without pushing")
	publishCmd.AddCommand(publishListCmd)
	publishCmd.AddCommand(publishInfoCmd)
	rootCmd.AddCommand(publishCmd)
}
