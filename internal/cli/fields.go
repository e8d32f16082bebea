package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/slipdesk/internal/fieldcache"
	"github.com/roach88/slipdesk/internal/forms"
	"github.com/roach88/slipdesk/internal/store"
)

// FieldValue is one stored form field.
type FieldValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// FieldList is the printed form of the field store.
type FieldList []FieldValue

func (l FieldList) String() string {
	if len(l) == 0 {
		return "No stored fields"
	}
	lines := make([]string, len(l))
	for i, f := range l {
		lines[i] = fmt.Sprintf("%s = %s", f.Key, f.Value)
	}
	return strings.Join(lines, "\n")
}

// ClearedView reports the namespaces whose fields were removed.
type ClearedView struct {
	Namespaces []string `json:"namespaces"`
}

func (v ClearedView) String() string {
	return "Cleared fields: " + strings.Join(v.Namespaces, ", ")
}

// NewFieldsCommand creates the fields command group.
func NewFieldsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fields",
		Short: "Show or reset the remembered form fields",
		Long: `Form fields typed in earlier runs are remembered per form (intake,
manual). These commands inspect or clear them.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "show [form...]",
		Short:         "Print the stored field values",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFieldsShow(cmd, rootOpts, args)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "reset [form...]",
		Short:         "Forget the stored field values",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFieldsReset(cmd, rootOpts, args)
		},
	})

	return cmd
}

// selectForms resolves form names; no names selects every form.
func selectForms(names []string) ([]*forms.Form, error) {
	if len(names) == 0 {
		all, err := formNames()
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load forms", err)
		}
		names = all
	}
	out := make([]*forms.Form, 0, len(names))
	for _, name := range names {
		form, err := forms.Get(name)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "unknown form", err)
		}
		out = append(out, form)
	}
	return out, nil
}

func runFieldsShow(cmd *cobra.Command, opts *RootOptions, names []string) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: opts.Verbose}

	selected, err := selectForms(names)
	if err != nil {
		return err
	}
	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	list := FieldList{}
	for _, form := range selected {
		keys, err := st.Keys(form.Namespace + ":")
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list fields", err)
		}
		for _, key := range keys {
			_, field := store.SplitKey(key)
			if _, known := form.Field(field); !known {
				continue
			}
			v, ok, err := st.Get(key)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read field", err)
			}
			if ok {
				list = append(list, FieldValue{Key: key, Value: v})
			}
		}
	}
	return formatter.Success(list)
}

func runFieldsReset(cmd *cobra.Command, opts *RootOptions, names []string) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: opts.Verbose}

	selected, err := selectForms(names)
	if err != nil {
		return err
	}
	cleared, err := clearForms(opts, selected)
	if err != nil {
		return err
	}
	return formatter.Success(ClearedView{Namespaces: cleared})
}

// clearForms removes the persisted fields of each form and nothing else.
func clearForms(opts *RootOptions, selected []*forms.Form) ([]string, error) {
	st, err := opts.openStore()
	if err != nil {
		return nil, err
	}
	defer st.Close()

	cleared := make([]string, 0, len(selected))
	for _, form := range selected {
		fieldcache.New(st, form.Namespace, form.Persisted(), nil, opts.Logger).Clear()
		cleared = append(cleared, form.Namespace)
	}
	return cleared, nil
}
