package cli

import (
	"github.com/spf13/cobra"
)

// NewLogoutCommand creates the logout command.
func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget every remembered form field",
		Long: `Clear the remembered fields of every form. Other keys in the field
store are left alone. The session token lives in the config file and is
not touched.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: rootOpts.Verbose}

			selected, err := selectForms(nil)
			if err != nil {
				return err
			}
			cleared, err := clearForms(rootOpts, selected)
			if err != nil {
				return err
			}
			return formatter.Success(ClearedView{Namespaces: cleared})
		},
	}
}
