package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/slipdesk/internal/activity"
	"github.com/roach88/slipdesk/internal/backend"
	"github.com/roach88/slipdesk/internal/report"
)

// ReportOptions holds flags for the report command.
type ReportOptions struct {
	*RootOptions
	Preset     string
	Start      string
	End        string
	PDF        bool
	XLSX       bool
	OutDir     string
	NoDownload bool
}

// ReportView is the printed form of a report run.
type ReportView struct {
	*report.Result
	Preset string `json:"preset"`
}

func (v ReportView) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Report %s: HTTP %d", v.Preset, v.Status)
	if v.State != "" {
		fmt.Fprintf(&b, " (%s)", v.State)
	}
	if v.Start != "" {
		fmt.Fprintf(&b, "\nRange: %s to %s", v.Start, v.End)
	}
	if len(v.Outputs) == 0 {
		b.WriteString("\nNo outputs")
	}
	for _, o := range v.Outputs {
		fmt.Fprintf(&b, "\n  %s  %s", o.Kind, o.Name)
		if o.Path != "" {
			fmt.Fprintf(&b, "  -> %s", o.Path)
		} else {
			fmt.Fprintf(&b, "  (%s)", o.Subpath)
		}
	}
	return b.String()
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate and download the aggregate report",
		Long: `Run today's calendar job, generate the report for a date range and
download the produced files.

Presets: hoy, ayer, ultimos8, ultimos15, ultimomes, personalizado.
personalizado requires --start and --end (YYYY-MM-DD).

Examples:
  slipdesk report
  slipdesk report --preset ultimos8 --xlsx
  slipdesk report --preset personalizado --start 2025-03-01 --end 2025-03-05 --out informes`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Preset, "preset", string(report.PresetToday), "date range preset")
	cmd.Flags().StringVar(&opts.Start, "start", "", "range start for the personalizado preset")
	cmd.Flags().StringVar(&opts.End, "end", "", "range end for the personalizado preset")
	cmd.Flags().BoolVar(&opts.PDF, "pdf", true, "generate the PDF report")
	cmd.Flags().BoolVar(&opts.XLSX, "xlsx", false, "generate the XLSX workbook")
	cmd.Flags().StringVar(&opts.OutDir, "out", "", "download directory (default from config)")
	cmd.Flags().BoolVar(&opts.NoDownload, "no-download", false, "print output paths without downloading")

	return cmd
}

func runReport(cmd *cobra.Command, opts *ReportOptions) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	preset, err := report.ParsePreset(opts.Preset)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid preset", err)
	}
	if !opts.PDF && !opts.XLSX {
		return NewExitError(ExitCommandError, "nothing to generate: enable --pdf or --xlsx")
	}

	req := report.Request{
		Preset:   preset,
		Start:    opts.Start,
		End:      opts.End,
		MakePDF:  opts.PDF,
		MakeXLSX: opts.XLSX,
		OutDir:   opts.Config.Report.OutDir,
	}
	if cmd.Flags().Changed("out") {
		req.OutDir = opts.OutDir
	}
	if opts.NoDownload {
		req.OutDir = ""
	}

	log := activity.New(activity.WithLogger(opts.Logger))
	runner := report.NewRunner(opts.client(),
		report.WithActivity(log),
		report.WithLogger(opts.Logger),
	)

	res, err := runner.Run(cmd.Context(), req)
	formatter.Activity(log)
	if err != nil {
		return reportFailure(formatter, res, preset, err)
	}
	return formatter.Success(ReportView{Result: res, Preset: string(preset)})
}

func reportFailure(f *OutputFormatter, res *report.Result, preset report.Preset, err error) error {
	var details interface{}
	if res != nil {
		details = ReportView{Result: res, Preset: string(preset)}
	}

	var httpErr *backend.HTTPError
	switch {
	case errors.Is(err, report.ErrMissingRange):
		return NewExitError(ExitCommandError, "the personalizado preset requires --start and --end")
	case res != nil:
		return f.Fail(ExitFailure, "DOWNLOAD_FAILED", err.Error(), details)
	case errors.As(err, &httpErr):
		return f.Fail(ExitFailure, "REPORT_FAILED", err.Error(), nil)
	case backend.IsTransport(err):
		return f.Fail(ExitFailure, "NETWORK_ERROR", err.Error(), nil)
	default:
		return WrapExitError(ExitCommandError, "report failed", err)
	}
}
