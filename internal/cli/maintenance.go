package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ranked/internal/store"
)

// RebalanceOptions holds flags for the rebalance command.
type RebalanceOptions struct {
	ListOptions
	Scope string
	All   bool
}

// RebalanceResult reports rows rewritten per scope.
type RebalanceResult struct {
	Scope string `json:"scope"`
	Rows  int    `json:"rows"`
}

// NewRebalanceCommand creates the rebalance command.
func NewRebalanceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RebalanceOptions{ListOptions: ListOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "rebalance",
		Short: "Respace the ranks of a scope",
		Long: `Respace the ranks of a scope without changing its order.

Sparse scopes get equal gaps across the list bounds; dense scopes are
renumbered 0..n-1.

Examples:
  ranked rebalance --list todos --scope board=b1,column=2
  ranked rebalance --list todos --all`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRebalance(opts, cmd)
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().StringVarP(&opts.Scope, "scope", "s", "", "scope to respace (field=value,...)")
	cmd.Flags().BoolVar(&opts.All, "all", false, "respace every non-empty scope")

	return cmd
}

func runRebalance(opts *RebalanceOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := cmd.Context()

	if opts.All == cmd.Flags().Changed("scope") {
		return fail(formatter, &CLIError{Code: ErrCodeBadFlag, Message: "exactly one of --scope or --all is required"})
	}

	sess, cliErr := openList(ctx, &opts.ListOptions)
	if cliErr != nil {
		return fail(formatter, cliErr)
	}
	defer sess.Close()

	var results []RebalanceResult
	if opts.All {
		scopes, err := sess.list.Scopes(ctx)
		if err != nil {
			return fail(formatter, &CLIError{Code: ErrCodeStore, Message: err.Error()})
		}
		for _, scope := range scopes {
			n, err := sess.list.Rebalance(ctx, scope)
			if err != nil {
				return fail(formatter, &CLIError{Code: errorCode(err), Message: err.Error()})
			}
			results = append(results, RebalanceResult{Scope: scope.String(), Rows: n})
		}
	} else {
		scope, err := parseScope(sess.list.Spec(), opts.Scope)
		if err != nil {
			return fail(formatter, &CLIError{Code: ErrCodeBadFlag, Message: err.Error()})
		}
		n, err := sess.list.Rebalance(ctx, scope)
		if err != nil {
			return fail(formatter, &CLIError{Code: errorCode(err), Message: err.Error()})
		}
		results = append(results, RebalanceResult{Scope: scope.String(), Rows: n})
	}

	if formatter.Format == "json" {
		return formatter.Success(results)
	}
	for _, r := range results {
		fmt.Fprintf(formatter.Writer, "%s: %d row(s) rewritten\n", r.Scope, r.Rows)
	}
	return nil
}

// VerifyResult holds the outcome of the verify command.
type VerifyResult struct {
	Valid      bool            `json:"valid"`
	Violations []ViolationView `json:"violations,omitempty"`
}

// ViolationView is the output form of a store.Violation.
type ViolationView struct {
	Kind  string `json:"kind"`
	Scope string `json:"scope"`
	ID    string `json:"id"`
	Rank  int64  `json:"rank"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check every scope for duplicate, out-of-bounds or gapped ranks",
		Long: `Check every scope of a list for ordering violations.

Exit codes:
  0 - No violations
  1 - One or more violations found
  2 - Command error`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, cmd)
		},
	}

	opts.addFlags(cmd)
	return cmd
}

func runVerify(opts *ListOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	sess, cliErr := openList(cmd.Context(), opts)
	if cliErr != nil {
		return fail(formatter, cliErr)
	}
	defer sess.Close()

	violations, err := sess.list.Verify(cmd.Context())
	if err != nil {
		return fail(formatter, &CLIError{Code: ErrCodeStore, Message: err.Error()})
	}

	result := VerifyResult{Valid: len(violations) == 0}
	for _, v := range violations {
		result.Violations = append(result.Violations, violationView(v))
	}

	if formatter.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else if result.Valid {
		fmt.Fprintf(formatter.Writer, "✓ %s: no violations\n", sess.list.Spec().Name)
	} else {
		fmt.Fprintf(formatter.Writer, "✗ %s: %d violation(s)\n", sess.list.Spec().Name, len(violations))
		for _, v := range violations {
			fmt.Fprintf(formatter.Writer, "  %s\n", v)
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("%d violation(s)", len(violations)))
	}
	return nil
}

func violationView(v store.Violation) ViolationView {
	return ViolationView{Kind: string(v.Kind), Scope: v.Scope.String(), ID: v.ID, Rank: v.Rank}
}
