package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/nsreg/internal/registry"
)

// ResolveResult is the output of the resolve command.
type ResolveResult struct {
	Identifier string `json:"identifier"`
	URI        string `json:"uri"`
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <identifier>",
		Short: "Print the unit URI of an identifier",
		Long: `Print the URI an identifier maps to under the current configuration.

Nothing is fetched.

Examples:
  nsreg resolve app.util
  nsreg resolve app.util --base-uri https://units.example.com/`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.settings()
			if err != nil {
				return err
			}
			reg := registry.New(registry.WithConfig(cfg.RegistryConfig()))
			defer reg.Close()

			res := ResolveResult{Identifier: args[0], URI: reg.MapIdentifierToURI(args[0])}
			return rootOpts.formatter(cmd).Success(res, res.URI)
		},
	}
}
