package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/nsreg/internal/journal"
	"github.com/roach88/nsreg/internal/registry"
)

// UseOptions holds flags for the use command.
type UseOptions struct {
	*RootOptions
	Strict        bool
	NoAutoInclude bool
	Provide       []string
}

// UseResult is the output of the use command.
type UseResult struct {
	Identifiers []string       `json:"identifiers"`
	Bindings    map[string]any `json:"bindings"`
}

// NewUseCommand creates the use command.
func NewUseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "use <identifier>...",
		Short: "Import identifiers into the global scope",
		Long: `Import identifiers in order and print the resulting global bindings.

Missing targets are loaded first unless --no-auto-include is set. A target
ending in the wildcard segment imports every member of its namespace.

Examples:
  nsreg use app.util
  nsreg use app.util lib.*
  nsreg use app.util --no-auto-include --strict
  nsreg use app.util --provide app.util`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUse(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "fail on targets that are missing and not loaded")
	cmd.Flags().BoolVar(&opts.NoAutoInclude, "no-auto-include", false, "never load missing targets")
	cmd.Flags().StringSliceVar(&opts.Provide, "provide", nil, "identifiers to declare as defined before importing")

	return cmd
}

func runUse(opts *UseOptions, ids []string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	s, err := opts.openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	if len(opts.Provide) > 0 {
		if err := s.reg.Provide(opts.Provide...); err != nil {
			return reportError(f, "provide failed", err)
		}
	}

	var useOpts []registry.UseOption
	if cmd.Flags().Changed("strict") {
		useOpts = append(useOpts, registry.WithStrict(opts.Strict))
	}
	if opts.NoAutoInclude {
		useOpts = append(useOpts, registry.WithAutoInclude(false))
	}

	if err := s.reg.Use(cmd.Context(), ids, useOpts...); err != nil {
		return reportError(f, fmt.Sprintf("use %s failed", strings.Join(ids, " ")), err)
	}

	bindings, _ := s.reg.Root().Interface().(map[string]any)
	if bindings == nil {
		bindings = map[string]any{}
	}
	text, err := formatBindings(bindings)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to encode bindings", err)
	}
	return f.Success(UseResult{Identifiers: ids, Bindings: bindings}, text)
}

// formatBindings renders one "name = value" line per global binding, sorted
// by name.
func formatBindings(bindings map[string]any) (string, error) {
	if len(bindings) == 0 {
		return "(no bindings)", nil
	}
	names := make([]string, 0, len(bindings))
	for name := range bindings {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, name := range names {
		data, err := journal.MarshalCanonical(bindings[name])
		if err != nil {
			return "", fmt.Errorf("encode %s: %w", name, err)
		}
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s = %s", name, data)
	}
	return b.String(), nil
}
