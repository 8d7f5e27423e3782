package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ranked/internal/compiler"
	"github.com/roach88/ranked/internal/harness"
	"github.com/roach88/ranked/internal/ir"
	"github.com/roach88/ranked/internal/store"
)

// ListOptions holds the flags every record command shares.
type ListOptions struct {
	*RootOptions
	List string // list name; may be empty when the config defines one list
}

func (o *ListOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.List, "list", "l", "", "list name (optional when the config defines a single list)")
}

// session is an open database and one registered list.
type session struct {
	store *store.Store
	list  *store.List
}

func (s *session) Close() error {
	return s.store.Close()
}

// openList loads and validates the configured lists, opens the database
// and registers the selected list. A failure comes back as the CLIError
// to report.
func openList(ctx context.Context, opts *ListOptions) (*session, *CLIError) {
	spec, cliErr := resolveList(opts.Config, opts.List)
	if cliErr != nil {
		return nil, cliErr
	}

	st, err := store.Open(opts.Database,
		store.WithDriver(opts.Driver),
		store.WithLogger(opts.logger()),
	)
	if err != nil {
		return nil, &CLIError{Code: ErrCodeStore, Message: err.Error()}
	}

	list, err := st.List(ctx, spec)
	if err != nil {
		st.Close()
		return nil, &CLIError{Code: errorCode(err), Message: err.Error()}
	}

	opts.logger().Debug("list opened", "list", spec.Name, "db", opts.Database, "driver", st.Driver())
	return &session{store: st, list: list}, nil
}

// resolveList returns the named list from the config, or the only one
// when name is empty.
func resolveList(config, name string) (ir.ListSpec, *CLIError) {
	result, errs := LoadLists(config, LoadModeFailFast)
	if len(errs) > 0 {
		if le, ok := errs[0].(*LoadError); ok {
			return ir.ListSpec{}, &CLIError{Code: le.Code, Message: le.Message}
		}
		return ir.ListSpec{}, &CLIError{Code: ErrCodeGeneric, Message: errs[0].Error()}
	}

	if verrs := compiler.Validate(result.Lists); len(verrs) > 0 {
		return ir.ListSpec{}, &CLIError{Code: verrs[0].Code, Message: verrs[0].Error(), Details: verrs}
	}

	if name == "" {
		if len(result.Lists) == 1 {
			return result.Lists[0], nil
		}
		return ir.ListSpec{}, &CLIError{
			Code:    ErrCodeUnknownList,
			Message: fmt.Sprintf("%d lists defined, choose one with --list", len(result.Lists)),
		}
	}

	for _, spec := range result.Lists {
		if spec.Name == name {
			return spec, nil
		}
	}
	return ir.ListSpec{}, &CLIError{
		Code:    ErrCodeUnknownList,
		Message: fmt.Sprintf("list %q not defined in %s", name, config),
	}
}

// parseScope converts a --scope value of the form "field=value,..." into
// a key for spec. Omitted fields are null; "null" is an explicit null.
func parseScope(spec ir.ListSpec, text string) (ir.ScopeKey, error) {
	values := make(map[string]ir.IRValue)
	if strings.TrimSpace(text) == "" {
		return spec.ScopeKeyFromMap(values)
	}

	fields := make(map[string]ir.ScopeField, len(spec.Scope))
	for _, f := range spec.Scope {
		fields[f.Name] = f
	}

	for _, part := range strings.Split(text, ",") {
		name, raw, ok := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid scope component %q: want field=value", part)
		}
		f, known := fields[name]
		if !known {
			return nil, fmt.Errorf("list %q has no scope field %s", spec.Name, name)
		}
		if _, dup := values[name]; dup {
			return nil, fmt.Errorf("scope field %s given twice", name)
		}
		v, err := f.Parse(strings.TrimSpace(raw))
		if err != nil {
			return nil, err
		}
		values[name] = v
	}
	return spec.ScopeKeyFromMap(values)
}

// errorCode names an error for CLI output.
func errorCode(err error) string {
	return harness.ErrorCode(err)
}

// fail reports e through the formatter and returns the matching exit error.
func fail(f *OutputFormatter, e *CLIError) error {
	_ = f.Error(e.Code, e.Message, e.Details)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", e.Code, e.Message))
}
