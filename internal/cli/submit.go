package cli

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/slipdesk/internal/activity"
	"github.com/roach88/slipdesk/internal/forms"
	"github.com/roach88/slipdesk/internal/intake"
	"github.com/roach88/slipdesk/internal/model"
)

// SubmitOptions holds flags for the submit command.
type SubmitOptions struct {
	*RootOptions
	Type   string
	Fields []string
}

// OutcomeView is the printed form of a submission outcome.
type OutcomeView struct {
	Outcome     string `json:"outcome"`
	Status      int    `json:"status,omitempty"`
	Reason      string `json:"reason,omitempty"`
	Token       string `json:"correlation_id,omitempty"`
	Correlation string `json:"correlation"`
	FileRef     string `json:"file_ref,omitempty"`
	Next        string `json:"next,omitempty"`
}

func (v OutcomeView) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Outcome: %s", v.Outcome)
	if v.Status != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", v.Status)
	}
	if v.Reason != "" {
		fmt.Fprintf(&b, "\nReason: %s", v.Reason)
	}
	if v.Token != "" {
		fmt.Fprintf(&b, "\nCorrelation: %s (%s)", v.Token, v.Correlation)
	}
	if v.FileRef != "" {
		fmt.Fprintf(&b, "\nFile: %s", v.FileRef)
	}
	if v.Next != "" {
		fmt.Fprintf(&b, "\nNext: %s", v.Next)
	}
	return b.String()
}

func newOutcomeView(o model.Outcome, next string) OutcomeView {
	return OutcomeView{
		Outcome:     o.Kind.String(),
		Status:      o.Status,
		Reason:      o.Reason,
		Token:       o.CorrelationID,
		Correlation: o.Correlation.String(),
		FileRef:     o.FileRef,
		Next:        next,
	}
}

// NewSubmitCommand creates the submit command.
func NewSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SubmitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "submit <file>",
		Short: "Submit a payment receipt for automatic verification",
		Long: `Submit a receipt image or PDF with the intake form fields.

Persisted fields (producto, nombre, sucursal, ...) are restored from the
field store; --field values replace them and are saved for the next run.
An approved receipt is correlated with the backend records before the
command returns.

Examples:
  slipdesk submit recibo.jpg --field producto=ESTA --field numero_personas=2 --field nombre=Ana
  slipdesk submit scan.pdf --type application/pdf`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Type, "type", "", "declared MIME type (default: from the file extension)")
	cmd.Flags().StringArrayVarP(&opts.Fields, "field", "f", nil, "form field as name=value (repeatable)")

	return cmd
}

func runSubmit(cmd *cobra.Command, opts *SubmitOptions, path string) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	file, err := readFile(path, opts.Type)
	if err != nil {
		return err
	}

	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	state, err := opts.loadFormState(st, forms.Intake, opts.Fields)
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

	if err := orch.Gate().Hold(file); err != nil {
		return validationFailure(formatter, err)
	}
	formatter.VerboseLog("Submitting %s (%s, %d bytes)", file.Name, file.ContentType, file.Size)

	outcome, err := orch.SubmitHeld(cmd.Context(), state.values)
	formatter.Activity(log)
	if err != nil {
		return validationFailure(formatter, err)
	}
	return reportOutcome(formatter, outcome, next)
}

// readFile loads the receipt. The declared type falls back to the
// extension's registered MIME type.
func readFile(path, declared string) (model.File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return model.File{}, WrapExitError(ExitCommandError, "failed to read file", err)
	}
	ct := declared
	if ct == "" {
		ct = mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	}
	return model.File{
		Name:        filepath.Base(path),
		ContentType: ct,
		Size:        int64(len(content)),
		Content:     content,
	}, nil
}

// validationFailure prints a local rejection. Anything that is not a
// validation error is returned as a command error.
func validationFailure(f *OutputFormatter, err error) error {
	var ve *intake.ValidationError
	if errors.As(err, &ve) {
		var details interface{}
		if ve.Field != "" {
			details = map[string]string{"field": ve.Field}
		}
		return f.Fail(ExitFailure, string(ve.Code), ve.Message, details)
	}
	if errors.Is(err, intake.ErrInFlight) {
		return f.Fail(ExitFailure, "IN_FLIGHT", err.Error(), nil)
	}
	return WrapExitError(ExitCommandError, "submission failed", err)
}

// reportOutcome prints the outcome. Only an approval exits zero.
func reportOutcome(f *OutputFormatter, outcome model.Outcome, next string) error {
	view := newOutcomeView(outcome, next)
	if outcome.Succeeded() {
		return f.Success(view)
	}
	code := strings.ToUpper(outcome.Kind.String())
	msg := outcome.Reason
	if msg == "" {
		msg = strings.ReplaceAll(outcome.Kind.String(), "_", " ")
	}
	return f.Fail(ExitFailure, code, msg, view)
}
