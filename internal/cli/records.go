package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ranked/internal/rank"
	"github.com/roach88/ranked/internal/store"
)

// InsertOptions holds flags for the insert command.
type InsertOptions struct {
	ListOptions
	ID       string
	Scope    string
	Position string
	Payload  string
}

// NewInsertCommand creates the insert command.
func NewInsertCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InsertOptions{ListOptions: ListOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "insert",
		Short: "Insert a record into a scope",
		Long: `Insert a record and print the rank it was given.

Without --position the record is appended. A position is a 0-based index
among the scope's records, or first/last.

Examples:
  ranked insert --list todos --scope board=b1,column=2 --payload "write docs"
  ranked insert --list todos --scope board=b1 --position first --id card-7`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInsert(opts, cmd)
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().StringVar(&opts.ID, "id", "", "record id (generated if empty)")
	cmd.Flags().StringVarP(&opts.Scope, "scope", "s", "", "scope as field=value,... (omitted fields are null)")
	cmd.Flags().StringVarP(&opts.Position, "position", "p", "", "index, first or last (default last)")
	cmd.Flags().StringVar(&opts.Payload, "payload", "", "record payload")

	return cmd
}

func runInsert(opts *InsertOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	pos, err := rank.ParsePosition(opts.Position)
	if err != nil {
		return fail(formatter, &CLIError{Code: ErrCodeBadFlag, Message: err.Error()})
	}
	if pos.IsMove() {
		return fail(formatter, &CLIError{Code: ErrCodeBadFlag, Message: fmt.Sprintf("position %s only applies to existing records", pos)})
	}

	sess, cliErr := openList(cmd.Context(), &opts.ListOptions)
	if cliErr != nil {
		return fail(formatter, cliErr)
	}
	defer sess.Close()

	spec := sess.list.Spec()
	scope, err := parseScope(spec, opts.Scope)
	if err != nil {
		return fail(formatter, &CLIError{Code: ErrCodeBadFlag, Message: err.Error()})
	}

	rec, err := sess.list.Insert(cmd.Context(), store.InsertRequest{
		ID:       opts.ID,
		Scope:    scope,
		Payload:  opts.Payload,
		Position: pos,
	})
	if err != nil {
		return fail(formatter, &CLIError{Code: errorCode(err), Message: err.Error()})
	}

	return formatter.Record(newRecordView(spec, rec))
}

// MoveOptions holds flags for the move command.
type MoveOptions struct {
	ListOptions
	Position string
}

// NewMoveCommand creates the move command.
func NewMoveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MoveOptions{ListOptions: ListOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "move <id>",
		Short: "Reposition a record within its scope",
		Long: `Reposition a record within its scope.

A position is a 0-based index among the other records of the scope,
first/last, or up/down to swap with the neighbouring record.

Examples:
  ranked move card-7 --position up
  ranked move card-7 --position 0`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMove(opts, args[0], cmd)
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().StringVarP(&opts.Position, "position", "p", "", "index, first, last, up or down")
	_ = cmd.MarkFlagRequired("position")

	return cmd
}

func runMove(opts *MoveOptions, id string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	pos, err := rank.ParsePosition(opts.Position)
	if err != nil {
		return fail(formatter, &CLIError{Code: ErrCodeBadFlag, Message: err.Error()})
	}

	sess, cliErr := openList(cmd.Context(), &opts.ListOptions)
	if cliErr != nil {
		return fail(formatter, cliErr)
	}
	defer sess.Close()

	rec, err := sess.list.Move(cmd.Context(), id, pos)
	if err != nil {
		return fail(formatter, &CLIError{Code: errorCode(err), Message: err.Error()})
	}

	return formatter.Record(newRecordView(sess.list.Spec(), rec))
}

// UpdateOptions holds flags for the update command.
type UpdateOptions struct {
	ListOptions
	Scope    string
	Position string
	Payload  string
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UpdateOptions{ListOptions: ListOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a record's scope, payload or position",
		Long: `Change a record's scope, payload or position.

Only the flags given are changed. A record moved to another scope is
appended there unless --position says otherwise.

Examples:
  ranked update card-7 --scope board=b1,column=3
  ranked update card-7 --payload "reviewed"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(opts, args[0], cmd)
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().StringVarP(&opts.Scope, "scope", "s", "", "new scope as field=value,...")
	cmd.Flags().StringVarP(&opts.Position, "position", "p", "", "index, first, last, up or down")
	cmd.Flags().StringVar(&opts.Payload, "payload", "", "new payload")

	return cmd
}

func runUpdate(opts *UpdateOptions, id string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	pos, err := rank.ParsePosition(opts.Position)
	if err != nil {
		return fail(formatter, &CLIError{Code: ErrCodeBadFlag, Message: err.Error()})
	}

	sess, cliErr := openList(cmd.Context(), &opts.ListOptions)
	if cliErr != nil {
		return fail(formatter, cliErr)
	}
	defer sess.Close()

	req := store.UpdateRequest{Position: pos}
	if cmd.Flags().Changed("scope") {
		req.Scope, err = parseScope(sess.list.Spec(), opts.Scope)
		if err != nil {
			return fail(formatter, &CLIError{Code: ErrCodeBadFlag, Message: err.Error()})
		}
	}
	if cmd.Flags().Changed("payload") {
		req.Payload = &opts.Payload
	}

	rec, err := sess.list.Update(cmd.Context(), id, req)
	if err != nil {
		return fail(formatter, &CLIError{Code: errorCode(err), Message: err.Error()})
	}

	return formatter.Record(newRecordView(sess.list.Spec(), rec))
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "delete <id>",
		Short:         "Delete a record",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(opts, args[0], cmd)
		},
	}

	opts.addFlags(cmd)
	return cmd
}

func runDelete(opts *ListOptions, id string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	sess, cliErr := openList(cmd.Context(), opts)
	if cliErr != nil {
		return fail(formatter, cliErr)
	}
	defer sess.Close()

	if err := sess.list.Delete(cmd.Context(), id); err != nil {
		return fail(formatter, &CLIError{Code: errorCode(err), Message: err.Error()})
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]string{"deleted": id})
	}
	fmt.Fprintf(formatter.Writer, "deleted %s\n", id)
	return nil
}
