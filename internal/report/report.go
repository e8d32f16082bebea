// Package report requests aggregate reports and downloads their outputs.
//
// A run first triggers the calendar job for today, then the report-range
// job for the chosen preset. When the range job reports output files, the
// requested ones are downloaded concurrently into the output directory.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/slipdesk/internal/activity"
	"github.com/roach88/slipdesk/internal/backend"
)

// Preset names a report period.
type Preset string

const (
	PresetToday     Preset = "hoy"
	PresetYesterday Preset = "ayer"
	PresetLast8     Preset = "ultimos8"
	PresetLast15    Preset = "ultimos15"
	PresetLastMonth Preset = "ultimomes"
	PresetCustom    Preset = "personalizado"
)

// Presets lists the valid presets.
func Presets() []Preset {
	return []Preset{PresetToday, PresetYesterday, PresetLast8, PresetLast15, PresetLastMonth, PresetCustom}
}

// ParsePreset validates s. An empty string is PresetToday.
func ParsePreset(s string) (Preset, error) {
	if s == "" {
		return PresetToday, nil
	}
	for _, p := range Presets() {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown preset %q", s)
}

// ErrInFlight is returned when a run starts while another is in progress.
var ErrInFlight = errors.New("report: run already in flight")

// ErrMissingRange is returned for a custom preset without start and end.
var ErrMissingRange = errors.New("report: custom preset needs start and end dates")

// Client is the subset of the backend client a Runner calls.
type Client interface {
	CalendarRun(ctx context.Context, date string, makePDF, makeXLSX bool) (*backend.Response, error)
	ReportRange(ctx context.Context, query url.Values) (*backend.Response, error)
	Download(ctx context.Context, subpath string, w io.Writer) error
}

// Request describes one report run.
type Request struct {
	Preset   Preset
	Start    string
	End      string
	MakePDF  bool
	MakeXLSX bool

	// OutDir receives downloaded files. Empty skips downloads.
	OutDir string
}

// Output is one report file.
type Output struct {
	Kind    string `json:"kind"`
	Subpath string `json:"subpath"`
	Name    string `json:"name"`
	Path    string `json:"path,omitempty"`
}

// Result is a successful run.
type Result struct {
	Status  int      `json:"status"`
	State   string   `json:"state,omitempty"`
	Start   string   `json:"start,omitempty"`
	End     string   `json:"end,omitempty"`
	Outputs []Output `json:"outputs"`
}

// rangeResponse is the report-range body.
type rangeResponse struct {
	Status     string `json:"status"`
	OutputPDF  string `json:"output_pdf"`
	OutputXLSX string `json:"output_xlsx"`
	Range      *struct {
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"range"`
}

// Runner runs reports. One run at a time.
//
// Thread-safety: Runner is safe for concurrent use.
type Runner struct {
	client   Client
	now      func() time.Time
	activity *activity.Log
	logger   *zap.Logger

	running atomic.Bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithClock replaces time.Now for the calendar date.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// WithActivity records progress to l.
func WithActivity(l *activity.Log) Option {
	return func(r *Runner) { r.activity = l }
}

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// NewRunner creates a runner calling client.
func NewRunner(client Client, opts ...Option) *Runner {
	r := &Runner{client: client, now: time.Now}
	for _, o := range opts {
		o(r)
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	if r.activity == nil {
		r.activity = activity.New(activity.WithLogger(r.logger))
	}
	return r
}

// Run executes req.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, ErrInFlight
	}
	defer r.running.Store(false)

	if req.Preset == "" {
		req.Preset = PresetToday
	}
	if req.Preset == PresetCustom && (req.Start == "" || req.End == "") {
		return nil, ErrMissingRange
	}

	task := r.activity.Task("Process " + r.now().Format(activity.TimeLayout))

	today := r.now().UTC().Format("2006-01-02")
	task.Add("Running calendar "+today+"...", nil)
	cal, err := r.client.CalendarRun(ctx, today, req.MakePDF, req.MakeXLSX)
	if err != nil {
		task.Add("CLIENT_ERROR: "+err.Error(), nil)
		return nil, err
	}
	if !cal.OK() {
		task.Add(fmt.Sprintf("ERROR calendar: %d %s", cal.Status, cal.Body), nil)
		return nil, fmt.Errorf("calendar failed: %w", &backend.HTTPError{Status: cal.Status, Message: backend.ErrorMessage(cal)})
	}
	task.Add("Calendar OK", nil)

	q := url.Values{
		"preset":    {string(req.Preset)},
		"make_pdf":  {strconv.FormatBool(req.MakePDF)},
		"make_xlsx": {strconv.FormatBool(req.MakeXLSX)},
	}
	if req.Preset == PresetCustom {
		q.Set("start", req.Start)
		q.Set("end", req.End)
	}
	task.Add("POST range "+q.Encode(), nil)

	resp, err := r.client.ReportRange(ctx, q)
	if err != nil {
		task.Add("CLIENT_ERROR: "+err.Error(), nil)
		return nil, err
	}

	var body rangeResponse
	parseErr := json.Unmarshal(resp.Body, &body)
	if !resp.OK() || parseErr != nil || (body.Status != "ok" && body.OutputPDF == "" && body.OutputXLSX == "") {
		task.Add(fmt.Sprintf("Error %d: %s", resp.Status, resp.Body), nil)
		return nil, &backend.HTTPError{Status: resp.Status, Message: string(resp.Body)}
	}
	task.Add(fmt.Sprintf("HTTP %d %s", resp.Status, body.Status), nil)

	res := &Result{Status: resp.Status, State: body.Status}
	if body.Range != nil {
		res.Start, res.End = body.Range.Start, body.Range.End
	}
	if body.OutputPDF != "" && req.MakePDF {
		res.Outputs = append(res.Outputs, Output{
			Kind:    "pdf",
			Subpath: NormalizeSubpath(body.OutputPDF),
			Name:    FileName("informe", "pdf", res.Start, res.End),
		})
	}
	if body.OutputXLSX != "" && req.MakeXLSX {
		res.Outputs = append(res.Outputs, Output{
			Kind:    "xlsx",
			Subpath: NormalizeSubpath(body.OutputXLSX),
			Name:    FileName("consolidado", "xlsx", res.Start, res.End),
		})
	}

	if req.OutDir != "" && len(res.Outputs) > 0 {
		if err := r.download(ctx, req.OutDir, res.Outputs); err != nil {
			task.Add("Download failed: "+err.Error(), nil)
			return res, err
		}
	}
	r.logger.Info("report generated", zap.String("preset", string(req.Preset)), zap.Int("outputs", len(res.Outputs)))
	return res, nil
}

// download fetches outputs concurrently. Paths are filled in on success.
func (r *Runner) download(ctx context.Context, dir string, outputs []Output) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := range outputs {
		out := &outputs[i]
		g.Go(func() error {
			path := filepath.Join(dir, out.Name)
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("create %s: %w", out.Name, err)
			}
			if err := r.client.Download(ctx, out.Subpath, f); err != nil {
				f.Close()
				os.Remove(path)
				return fmt.Errorf("download %s: %w", out.Subpath, err)
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close %s: %w", out.Name, err)
			}
			out.Path = path
			return nil
		})
	}
	return g.Wait()
}

var logsPrefix = regexp.MustCompile(`^/?(?:app/)?logs/`)

// NormalizeSubpath strips a leading "logs/" or "app/logs/" from a backend
// output path. Slashes are kept.
func NormalizeSubpath(p string) string {
	return logsPrefix.ReplaceAllString(p, "")
}

// FileName names a downloaded output: base.ext without a range,
// base_<start>.ext for a single day, base_<start>_a_<end>.ext otherwise.
func FileName(base, ext, start, end string) string {
	switch {
	case start == "" || end == "":
		return base + "." + ext
	case start == end:
		return fmt.Sprintf("%s_%s.%s", base, start, ext)
	default:
		return fmt.Sprintf("%s_%s_a_%s.%s", base, start, end, ext)
	}
}
