package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/nsreg/internal/journal"
)

// IncludeResult is the output of the include command.
type IncludeResult struct {
	Identifier string `json:"identifier"`
	URI        string `json:"uri"`
	Included   bool   `json:"included"`
	Value      any    `json:"value,omitempty"`
}

// NewIncludeCommand creates the include command.
func NewIncludeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "include <identifier>",
		Short: "Load one unit",
		Long: `Fetch, evaluate and bind the unit of an identifier.

Exit codes:
  0 - Unit included
  1 - The request failed or the unit could not be evaluated
  2 - Invalid identifier or no usable transport

Examples:
  nsreg include app.util
  nsreg include app.util --journal ./nsreg.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInclude(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runInclude(opts *RootOptions, id string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	s, err := opts.openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	uri := s.reg.MapIdentifierToURI(id)
	f.VerboseLog("including %s from %s", id, uri)

	ok, err := s.reg.Include(cmd.Context(), id)
	if err != nil {
		return reportError(f, fmt.Sprintf("include %s failed", id), err)
	}
	if !ok {
		if outErr := f.Error(CodeLoadFailed, fmt.Sprintf("include %s failed", id), map[string]string{"uri": uri}); outErr != nil {
			return outErr
		}
		return NewExitError(ExitFailure, fmt.Sprintf("request for %s failed", uri))
	}

	value, _ := s.reg.Get(id)
	text, err := journal.MarshalCanonical(value)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to encode value", err)
	}
	return f.Success(IncludeResult{
		Identifier: id,
		URI:        uri,
		Included:   true,
		Value:      value,
	}, fmt.Sprintf("✓ %s (%s)\n  %s", id, uri, text))
}
