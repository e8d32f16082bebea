package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/slipdesk/internal/intake"
)

// ProductList is the printed product catalogue.
type ProductList []string

func (l ProductList) String() string {
	return strings.Join(l, "\n")
}

// NewOptionsCommand creates the options command.
func NewOptionsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "options",
		Short: "List the products accepted by the producto field",
		Long: `Fetch the product catalogue from the backend. The built-in catalogue
is printed when the backend is unreachable or returns nothing.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: rootOpts.Verbose}
			products := intake.ProductOptions(cmd.Context(), rootOpts.client(), rootOpts.Logger)
			return formatter.Success(ProductList(products))
		},
	}
}
