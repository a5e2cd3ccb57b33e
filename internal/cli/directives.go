package cli

import (
	"github.com/spf13/cobra"

	"github.com/kbolino/go-cgobind/internal/directive"
	"github.com/kbolino/go-cgobind/internal/stage"
)

func newDirectivesCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "directives",
		Short: "Print the link directives without generating anything",
		Long: `Print the directives a full run would emit. No header is read and nothing
is written, so the include directory advertised may not exist yet.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, cfg, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			syntax, err := directive.ParseSyntax(cfg.Syntax)
			if err != nil {
				return err
			}
			return directive.Emit(cmd.OutOrStdout(), stage.Plan(env, cfg), syntax)
		},
	}
}
