package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	httphandler "github.com/ericfisherdev/ghbulkreview/internal/adapter/driving/http"
	"github.com/ericfisherdev/ghbulkreview/internal/application"
	"github.com/ericfisherdev/ghbulkreview/internal/domain/model"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ghbulkreview",
		Short:         "Comment on, approve, and merge GitHub pull requests in bulk",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCmd(),
		newFetchCmd(),
		newReviewCmd(),
		newTokenCmd(),
		newOutcomesCmd(),
	)
	return root
}

// queryFlags holds the search flags shared by fetch and review. Flags that
// were not set keep the saved value.
type queryFlags struct {
	org             string
	reviewRequested string
	author          string
	title           string
	reviewedBy      string
	checkCI         bool
	now             bool
}

func (f *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.org, "org", "", "Only pull requests in this organization")
	cmd.Flags().StringVar(&f.reviewRequested, "review-requested", "", "Only pull requests requesting review from this user")
	cmd.Flags().StringVar(&f.author, "author", "", "Only pull requests opened by this user")
	cmd.Flags().StringVar(&f.title, "title", "", "Only pull requests whose title contains this text")
	cmd.Flags().StringVar(&f.reviewedBy, "reviewed-by", "", "Only pull requests reviewed by this user")
	cmd.Flags().BoolVar(&f.checkCI, "check-ci", false, "Evaluate GitHub Actions check runs for merge readiness")
	cmd.Flags().BoolVar(&f.now, "now", false, "Bypass the query cache")
}

// resolve overlays the changed flags on the saved query.
func (f *queryFlags) resolve(ctx context.Context, cmd *cobra.Command, ws *application.Workspace) (model.Query, error) {
	saved, err := ws.Query(ctx)
	if err != nil {
		return model.Query{}, fmt.Errorf("loading saved query: %w", err)
	}
	return f.apply(cmd.Flags(), saved), nil
}

// apply returns q with every flag the user set replacing its field. An
// explicitly empty flag clears the saved value. FetchNow is never saved, so
// it always comes from --now.
func (f *queryFlags) apply(flags *pflag.FlagSet, q model.Query) model.Query {
	if flags.Changed("org") {
		q.OrgName = f.org
	}
	if flags.Changed("review-requested") {
		q.ReviewRequestedUser = f.reviewRequested
	}
	if flags.Changed("author") {
		q.Author = f.author
	}
	if flags.Changed("title") {
		q.Title = f.title
	}
	if flags.Changed("reviewed-by") {
		q.ReviewedBy = f.reviewedBy
	}
	if flags.Changed("check-ci") {
		q.CheckCI = f.checkCI
	}
	q.FetchNow = f.now

	return q
}

func newFetchCmd() *cobra.Command {
	var qf queryFlags

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "List open pull requests matching the query",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withApp(ctx, func(a *app) error {
				q, err := qf.resolve(ctx, cmd, a.workspace)
				if err != nil {
					return err
				}

				result, err := a.workspace.Fetch(ctx, q)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if result.Warning != "" {
					printWarning(out, result.Warning)
				}
				printPullRequests(out, result.PullRequests, q.CheckCI)
				return nil
			})
		},
	}

	qf.register(cmd)
	return cmd
}

func newReviewCmd() *cobra.Command {
	var (
		qf        queryFlags
		action    string
		comment   string
		selectRaw []string
		selectAll bool
	)

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Apply an action to the selected pull requests",
		Long: "Fetches the query, then comments on, approves, or merges every selected\n" +
			"pull request. Select with --select owner/repo#123 (repeatable) or --all.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			act, err := model.ParseAction(action)
			if err != nil {
				return err
			}

			selected, err := parseSelections(selectRaw)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			return withApp(ctx, func(a *app) error {
				q, err := qf.resolve(ctx, cmd, a.workspace)
				if err != nil {
					return err
				}
				if _, err := a.workspace.Fetch(ctx, q); err != nil {
					return err
				}
				if act.Merges() && !q.CheckCI {
					fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render("CI was not checked; it is re-read live before each merge"))
				}

				if !cmd.Flags().Changed("comment") {
					if comment, err = a.workspace.CommentText(ctx); err != nil {
						return fmt.Errorf("loading saved comment: %w", err)
					}
				}

				result, err := a.workspace.Review(ctx, application.ReviewRequest{
					Selected:  selected,
					SelectAll: selectAll,
					Comment:   comment,
					Action:    act,
				})
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				printOutcomes(out, result.Outcomes)
				fmt.Fprintln(out, dimStyle.Render("run "+result.RunID))
				return nil
			})
		},
	}

	qf.register(cmd)
	cmd.Flags().StringVar(&action, "action", "", "One of: comment, approve, merge, approve_and_merge")
	cmd.Flags().StringVar(&comment, "comment", "", "Comment or review body (defaults to the last one used)")
	cmd.Flags().StringArrayVar(&selectRaw, "select", nil, "Pull request to act on, as owner/repo#123")
	cmd.Flags().BoolVar(&selectAll, "all", false, "Act on every fetched pull request")
	_ = cmd.MarkFlagRequired("action")
	cmd.MarkFlagsMutuallyExclusive("select", "all")

	return cmd
}

// parseSelections parses owner/repo#number references.
func parseSelections(raw []string) ([]model.PRHandle, error) {
	handles := make([]model.PRHandle, 0, len(raw))
	for _, s := range raw {
		h, err := model.ParsePRHandle(s)
		if err != nil {
			return nil, err
		}
		handles = append(handles, h)
	}
	return handles, nil
}

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the stored GitHub token",
	}

	setCmd := &cobra.Command{
		Use:   "set [token]",
		Short: "Validate and store a GitHub token (reads stdin when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := tokenArg(cmd, args)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			return withApp(ctx, func(a *app) error {
				login, err := a.tokens.Save(ctx, token)
				if err != nil {
					return err
				}
				printSuccess(cmd.OutOrStdout(), "token saved for "+login)
				return nil
			})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored GitHub token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withApp(ctx, func(a *app) error {
				if err := a.tokens.Clear(ctx); err != nil {
					return err
				}
				printSuccess(cmd.OutOrStdout(), "token removed")
				return nil
			})
		},
	}

	cmd.AddCommand(setCmd, clearCmd)
	return cmd
}

func tokenArg(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading token from stdin: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func newOutcomesCmd() *cobra.Command {
	var (
		limit int
		runID string
	)

	cmd := &cobra.Command{
		Use:   "outcomes",
		Short: "Show the most recent review outcomes, or those of one run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive, got %d", limit)
			}

			ctx := cmd.Context()
			return withApp(ctx, func(a *app) error {
				var (
					records []model.OutcomeRecord
					err     error
				)
				if runID != "" {
					records, err = a.workspace.RunOutcomes(ctx, runID)
				} else {
					records, err = a.workspace.RecentOutcomes(ctx, limit)
				}
				if err != nil {
					return err
				}
				printOutcomeRecords(cmd.OutOrStdout(), records)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of outcomes to show")
	cmd.Flags().StringVar(&runID, "run", "", "Show every outcome of this run id, in submission order")
	cmd.MarkFlagsMutuallyExclusive("run", "limit")
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withApp(ctx, func(a *app) error {
				return serve(ctx, a)
			})
		},
	}
}

func serve(ctx context.Context, a *app) error {
	h := httphandler.NewHandler(a.workspace, a.tokens, a.provider, slog.Default())

	srv := &http.Server{
		Addr:              a.cfg.ListenAddr,
		Handler:           httphandler.NewServeMux(h, slog.Default()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// Bulk reviews pace batches and wait between approve and merge.
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", "addr", a.cfg.ListenAddr, "github_configured", a.provider.HasClient())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
