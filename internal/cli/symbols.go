package cli

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/kbolino/go-cgobind/internal/stage"
	"github.com/kbolino/go-cgobind/internal/translate"
)

func newSymbolsCommand(opts *options) *cobra.Command {
	var allowedOnly bool
	cmd := &cobra.Command{
		Use:   "symbols",
		Short: "List the declarations found in the library headers",
		Long: `List every function, type and variable declared by the library headers and
their includes, with the header origin and whether the allowlist keeps it.
Nothing is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, cfg, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			symbols, err := stage.Symbols(cmd.Context(), env, cfg, &translate.CC{CPP: cfg.Preprocessor()})
			if err != nil {
				return err
			}

			var data [][]string
			for _, s := range symbols {
				if allowedOnly && !s.Allowed {
					continue
				}
				allowed := "no"
				if s.Allowed {
					allowed = "yes"
				}
				note := ""
				if s.Err != nil {
					note = s.Err.Error()
				}
				data = append(data, []string{s.Kind.String(), s.Name, s.Form.String(), s.Origin.String(), allowed, note})
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"KIND", "NAME", "FORM", "ORIGIN", "ALLOWED", "NOTE"})
			table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.SetAutoWrapText(false)
			table.SetHeaderLine(false)
			table.SetBorder(false)
			table.SetNoWhiteSpace(true)
			table.SetTablePadding("    ")
			table.AppendBulk(data)
			table.Render()

			fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d declarations allowlisted\n", countAllowed(symbols), len(symbols))
			return nil
		},
	}
	cmd.Flags().BoolVar(&allowedOnly, "allowed", false, "only list allowlisted declarations")
	return cmd
}

func countAllowed(symbols []stage.Symbol) int {
	n := 0
	for _, s := range symbols {
		if s.Allowed {
			n++
		}
	}
	return n
}
