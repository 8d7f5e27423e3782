package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/roach88/ranked/internal/ir"
	"github.com/roach88/ranked/internal/store"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	ListOptions
	Scope string
	ID    string
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{ListOptions: ListOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print records in rank order",
		Long: `Print the records of one scope, or of every scope, in rank order.

Examples:
  ranked show --list todos
  ranked show --list todos --scope board=b1,column=2
  ranked show --list todos --id card-7`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, cmd)
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().StringVarP(&opts.Scope, "scope", "s", "", "only this scope (field=value,...)")
	cmd.Flags().StringVar(&opts.ID, "id", "", "only this record")

	return cmd
}

func runShow(opts *ShowOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := cmd.Context()

	sess, cliErr := openList(ctx, &opts.ListOptions)
	if cliErr != nil {
		return fail(formatter, cliErr)
	}
	defer sess.Close()

	spec := sess.list.Spec()

	if opts.ID != "" {
		rec, err := sess.list.Get(ctx, opts.ID)
		if err != nil {
			return fail(formatter, &CLIError{Code: errorCode(err), Message: err.Error()})
		}
		return formatter.Record(newRecordView(spec, rec))
	}

	var scopes []ir.ScopeKey
	if cmd.Flags().Changed("scope") {
		scope, err := parseScope(spec, opts.Scope)
		if err != nil {
			return fail(formatter, &CLIError{Code: ErrCodeBadFlag, Message: err.Error()})
		}
		scopes = []ir.ScopeKey{scope}
	} else {
		var err error
		if scopes, err = sess.list.Scopes(ctx); err != nil {
			return fail(formatter, &CLIError{Code: ErrCodeStore, Message: err.Error()})
		}
	}

	views, err := scopeViews(ctx, sess.list, scopes)
	if err != nil {
		return fail(formatter, &CLIError{Code: ErrCodeStore, Message: err.Error()})
	}
	return formatter.Scopes(views)
}

// scopeViews reads the records of each scope.
func scopeViews(ctx context.Context, list *store.List, scopes []ir.ScopeKey) ([]ScopeView, error) {
	spec := list.Spec()
	views := make([]ScopeView, 0, len(scopes))
	for _, scope := range scopes {
		recs, err := list.Records(ctx, scope)
		if err != nil {
			return nil, err
		}
		view := ScopeView{Scope: spec.ScopeObject(scope), Records: make([]RecordView, len(recs))}
		for i, rec := range recs {
			view.Records[i] = newRecordView(spec, rec)
		}
		views = append(views, view)
	}
	return views, nil
}
