package harness

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/slipdesk/internal/activity"
	"github.com/roach88/slipdesk/internal/backend"
	"github.com/roach88/slipdesk/internal/intake"
	"github.com/roach88/slipdesk/internal/model"
	"github.com/roach88/slipdesk/internal/report"
	"github.com/roach88/slipdesk/internal/search"
	"github.com/roach88/slipdesk/internal/testutil"
)

// Harness wires the real flows to a fake backend for one scenario.
type Harness struct {
	t      testing.TB
	fake   *testutil.FakeBackend
	log    *activity.Log
	orch   *intake.Orchestrator
	search *search.Engine
	report *report.Runner
	waits  []string
	logger *zap.Logger
}

// Run executes scenario and evaluates its expect clauses and assertions.
//
// Each run gets its own fake backend, stopped when the test ends. The
// returned error covers setup problems only; scenario failures are reported
// through Result.
func Run(t testing.TB, scenario *Scenario) (*Result, error) {
	t.Helper()

	h, err := newHarness(t, scenario)
	if err != nil {
		return nil, err
	}
	defer h.search.Close()

	ctx := context.Background()
	result := NewResult()
	for i, step := range scenario.Steps {
		got, err := h.execute(ctx, step)
		if err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
		result.Steps = append(result.Steps, got)
		for _, msg := range checkExpect(i, got, step.Expect) {
			result.AddError(msg)
		}
	}

	result.Trace = traceOf(h.fake.Calls(""))
	result.Waits = h.waits
	result.Activity = activityLines(h.log)

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func newHarness(t testing.TB, scenario *Scenario) (*Harness, error) {
	h := &Harness{
		t:      t,
		fake:   testutil.NewFakeBackend(t),
		logger: zap.NewNop(),
	}
	for route, replies := range scenario.Backend {
		for _, r := range replies {
			h.fake.On(route, r.Reply())
		}
	}
	for subpath, content := range scenario.Files {
		h.fake.SetFile(subpath, content)
	}

	clock := testutil.NewStepClock(testutil.DefaultEpoch, time.Second)
	h.log = activity.New(activity.WithClock(clock.Now), activity.WithLogger(h.logger))
	client := backend.New(h.fake.URL(), backend.WithLogger(h.logger))

	var tokens intake.TokenGenerator = testutil.NewFixedToken("")
	if len(scenario.Tokens) > 0 {
		tokens = intake.NewFixedTokens(scenario.Tokens...)
	}

	policy := intake.DefaultRetryPolicy()
	policy.Sleep = func(ctx context.Context, d time.Duration) error {
		h.waits = append(h.waits, d.String())
		return ctx.Err()
	}

	h.orch = intake.New(client,
		intake.WithTokens(tokens),
		intake.WithRetryPolicy(policy),
		intake.WithActivity(h.log),
		intake.WithClock(clock.Now),
		intake.WithLogger(h.logger),
	)
	h.search = search.New(client, search.WithActivity(h.log), search.WithLogger(h.logger))
	h.report = report.NewRunner(client,
		report.WithClock(clock.Now),
		report.WithActivity(h.log),
		report.WithLogger(h.logger),
	)
	return h, nil
}

func (h *Harness) execute(ctx context.Context, step Step) (StepResult, error) {
	switch {
	case step.Submit != nil:
		return h.submit(ctx, step.Submit), nil
	case step.Manual != nil:
		out, err := h.orch.SubmitManual(ctx, step.Manual.Values)
		return outcomeResult("manual", out, err), nil
	case step.Search != nil:
		return h.runSearch(ctx, step.Search), nil
	case step.Report != nil:
		return h.runReport(ctx, step.Report)
	default:
		return StepResult{}, errors.New("empty step")
	}
}

func (h *Harness) submit(ctx context.Context, s *SubmitStep) StepResult {
	file := model.File{Name: s.File.Name, ContentType: s.File.Type, Size: s.File.Size}
	if s.File.Content != "" {
		file.Content = []byte(s.File.Content)
		if file.Size == 0 {
			file.Size = int64(len(file.Content))
		}
	} else {
		file.Content = make([]byte, s.File.Size)
	}

	if err := h.orch.Gate().Hold(file); err != nil {
		return StepResult{Action: "submit", Error: errorCode(err)}
	}
	out, err := h.orch.SubmitHeld(ctx, s.Values)
	return outcomeResult("submit", out, err)
}

func (h *Harness) runSearch(ctx context.Context, s *SearchStep) StepResult {
	st, err := h.search.Submit(ctx, s.Q)
	res := StepResult{Action: "search", Count: st.Count, Results: len(st.Results)}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

func (h *Harness) runReport(ctx context.Context, s *ReportStep) (StepResult, error) {
	preset, err := report.ParsePreset(s.Preset)
	if err != nil {
		return StepResult{}, err
	}
	req := report.Request{Preset: preset, Start: s.Start, End: s.End, MakePDF: s.PDF, MakeXLSX: s.XLSX}
	if s.Download {
		req.OutDir = h.t.TempDir()
	}

	out, err := h.report.Run(ctx, req)
	res := StepResult{Action: "report"}
	if out != nil {
		res.Status = out.Status
		for _, o := range out.Outputs {
			res.Outputs = append(res.Outputs, o.Name)
		}
	}
	if err != nil {
		res.Error = err.Error()
	}
	return res, nil
}

func outcomeResult(action string, out model.Outcome, err error) StepResult {
	if err != nil {
		return StepResult{Action: action, Error: errorCode(err)}
	}
	return StepResult{
		Action:      action,
		Outcome:     out.Kind.String(),
		Correlation: out.Correlation.String(),
		Token:       out.CorrelationID,
		Status:      out.Status,
		Reason:      out.Reason,
	}
}

// errorCode reports validation failures by code so scenarios can match them
// exactly.
func errorCode(err error) string {
	var ve *intake.ValidationError
	if errors.As(err, &ve) {
		return string(ve.Code)
	}
	return err.Error()
}

func traceOf(calls []testutil.Call) []TraceEvent {
	trace := make([]TraceEvent, 0, len(calls))
	for _, c := range calls {
		trace = append(trace, TraceEvent{
			Seq:      c.Seq,
			Route:    c.Route,
			Method:   c.Method,
			Path:     c.Path,
			Token:    c.Token,
			Query:    c.Query.Encode(),
			File:     c.FileName,
			Meta:     c.Meta,
			Canceled: c.Canceled,
		})
	}
	return trace
}

// activityLines returns the log followed by each task's lines, oldest first.
func activityLines(l *activity.Log) []string {
	var out []string
	lines := l.Lines()
	for i := len(lines) - 1; i >= 0; i-- {
		out = append(out, lines[i])
	}
	tasks := l.Tasks()
	for i := len(tasks) - 1; i >= 0; i-- {
		out = append(out, tasks[i].Lines()...)
	}
	return out
}
