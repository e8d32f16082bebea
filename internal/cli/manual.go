package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/slipdesk/internal/activity"
	"github.com/roach88/slipdesk/internal/forms"
	"github.com/roach88/slipdesk/internal/intake"
)

// ManualOptions holds flags for the manual command.
type ManualOptions struct {
	*RootOptions
	Fields []string
}

// NewManualCommand creates the manual command.
func NewManualCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ManualOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "manual",
		Short: "Submit a manually transcribed receipt",
		Long: `Submit the receipt data by hand when automatic verification failed.

Customer fields are restored from the field store. Transaction fields
(valor, fecha, hora, banco, cuenta_desde_ult4, cuenta_hasta_ult4) are never
stored and must be passed each time. fecha is YYYY-MM-DD and hora is HH:MM.

Examples:
  slipdesk manual -f valor=150000 -f fecha=2025-03-05 -f hora=14:05 -f banco=Nequi`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runManual(cmd, opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Fields, "field", "f", nil, "form field as name=value (repeatable)")

	return cmd
}

func runManual(cmd *cobra.Command, opts *ManualOptions) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	state, err := opts.loadFormState(st, forms.Manual, opts.Fields)
	if err != nil {
		return err
	}

	var next string
	log := activity.New(activity.WithLogger(opts.Logger))
	orch := intake.New(opts.client(),
		intake.WithActivity(log),
		intake.WithLogger(opts.Logger),
		intake.WithNavigator(intake.NavigatorFunc(func(p string) { next = p })),
	)

	outcome, err := orch.SubmitManual(cmd.Context(), state.values)
	formatter.Activity(log)
	if err != nil {
		return validationFailure(formatter, err)
	}
	return reportOutcome(formatter, outcome, next)
}
