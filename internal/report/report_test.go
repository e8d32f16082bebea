package report

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/slipdesk/internal/activity"
	"github.com/roach88/slipdesk/internal/backend"
	"github.com/roach88/slipdesk/internal/testutil"
)

func newRunner(t *testing.T) (*testutil.FakeBackend, *Runner, *activity.Log) {
	t.Helper()
	fake := testutil.NewFakeBackend(t)
	clock := testutil.NewStepClock(testutil.DefaultEpoch, time.Second)
	log := activity.New(activity.WithClock(clock.Now))
	r := NewRunner(backend.New(fake.URL()), WithClock(clock.Now), WithActivity(log))
	return fake, r, log
}

func TestParsePreset(t *testing.T) {
	p, err := ParsePreset("")
	require.NoError(t, err)
	assert.Equal(t, PresetToday, p)

	p, err = ParsePreset("ultimos15")
	require.NoError(t, err)
	assert.Equal(t, PresetLast15, p)

	_, err = ParsePreset("forever")
	assert.Error(t, err)
}

func TestNormalizeSubpath(t *testing.T) {
	tests := map[string]string{
		"logs/2025/informe.pdf":        "2025/informe.pdf",
		"/logs/2025/informe.pdf":       "2025/informe.pdf",
		"/app/logs/x/consolidado.xlsx": "x/consolidado.xlsx",
		"reports/logs/a.pdf":           "reports/logs/a.pdf",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeSubpath(in), in)
	}
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "informe.pdf", FileName("informe", "pdf", "", ""))
	assert.Equal(t, "informe_2025-03-05.pdf", FileName("informe", "pdf", "2025-03-05", "2025-03-05"))
	assert.Equal(t, "consolidado_2025-03-01_a_2025-03-05.xlsx", FileName("consolidado", "xlsx", "2025-03-01", "2025-03-05"))
}

func TestRun_CustomPresetNeedsRange(t *testing.T) {
	fake, r, _ := newRunner(t)

	_, err := r.Run(context.Background(), Request{Preset: PresetCustom, Start: "2025-03-01"})
	assert.ErrorIs(t, err, ErrMissingRange)
	assert.Empty(t, fake.Calls(""), "no network call on local validation failure")
}

func TestRun_CalendarFailureStops(t *testing.T) {
	fake, r, log := newRunner(t)
	fake.On(testutil.RouteCalendar, testutil.JSON(http.StatusInternalServerError, `{"detail":"boom"}`))

	_, err := r.Run(context.Background(), Request{Preset: PresetToday, MakePDF: true})
	require.Error(t, err)
	assert.True(t, backend.IsHTTP(err))
	assert.Equal(t, 0, fake.Count(testutil.RouteReport))

	lines := log.Tasks()[0].Lines()
	assert.Contains(t, lines[len(lines)-1], "ERROR calendar: 500")
}

func TestRun_DownloadsRequestedOutputs(t *testing.T) {
	fake, r, _ := newRunner(t)
	fake.On(testutil.RouteReport, testutil.JSON(http.StatusOK, `{
		"status": "ok",
		"output_pdf": "/app/logs/2025/informe.pdf",
		"output_xlsx": "logs/2025/consolidado.xlsx",
		"range": {"start": "2025-02-26", "end": "2025-03-05"}
	}`))
	fake.SetFile("2025/informe.pdf", "%PDF")
	fake.SetFile("2025/consolidado.xlsx", "PK")

	dir := t.TempDir()
	res, err := r.Run(context.Background(), Request{Preset: PresetLast8, MakePDF: true, MakeXLSX: true, OutDir: dir})
	require.NoError(t, err)

	cal := fake.Calls(testutil.RouteCalendar)
	require.Len(t, cal, 1)
	assert.Equal(t, "2025-03-05", cal[0].Query.Get("date"))

	rng := fake.Calls(testutil.RouteReport)
	require.Len(t, rng, 1)
	assert.Equal(t, "ultimos8", rng[0].Query.Get("preset"))
	assert.Equal(t, "true", rng[0].Query.Get("make_pdf"))
	assert.Empty(t, rng[0].Query.Get("start"))

	require.Len(t, res.Outputs, 2)
	assert.Equal(t, "informe_2025-02-26_a_2025-03-05.pdf", res.Outputs[0].Name)
	assert.Equal(t, "2025/consolidado.xlsx", res.Outputs[1].Subpath)

	got, err := os.ReadFile(filepath.Join(dir, "informe_2025-02-26_a_2025-03-05.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(got))
	assert.Equal(t, 2, fake.Count(testutil.RouteDownload))
}

func TestRun_SkipsOutputsNotRequested(t *testing.T) {
	fake, r, _ := newRunner(t)
	fake.On(testutil.RouteReport, testutil.JSON(http.StatusOK, `{"output_pdf":"logs/a.pdf","output_xlsx":"logs/b.xlsx"}`))
	fake.SetFile("b.xlsx", "PK")

	dir := t.TempDir()
	res, err := r.Run(context.Background(), Request{Preset: PresetCustom, Start: "2025-03-01", End: "2025-03-01", MakeXLSX: true, OutDir: dir})
	require.NoError(t, err)

	rng := fake.Calls(testutil.RouteReport)[0]
	assert.Equal(t, "2025-03-01", rng.Query.Get("start"))
	assert.Equal(t, "false", rng.Query.Get("make_pdf"))

	require.Len(t, res.Outputs, 1)
	assert.Equal(t, "xlsx", res.Outputs[0].Kind)
	assert.Equal(t, "consolidado.xlsx", res.Outputs[0].Name, "no range in body")

	assert.Equal(t, 1, fake.Count(testutil.RouteDownload))
	for _, c := range fake.Calls(testutil.RouteDownload) {
		assert.NotContains(t, c.Path, "a.pdf")
	}
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "consolidado.xlsx", entries[0].Name())
}

func TestRun_RangeFailure(t *testing.T) {
	fake, r, _ := newRunner(t)
	fake.On(testutil.RouteReport, testutil.JSON(http.StatusOK, `{"status":"pending"}`))

	_, err := r.Run(context.Background(), Request{Preset: PresetYesterday, MakePDF: true})
	require.Error(t, err)
	var he *backend.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusOK, he.Status)
}

func TestRun_MissingDownloadFails(t *testing.T) {
	fake, r, _ := newRunner(t)
	fake.On(testutil.RouteReport, testutil.JSON(http.StatusOK, `{"status":"ok","output_pdf":"logs/missing.pdf"}`))

	dir := t.TempDir()
	res, err := r.Run(context.Background(), Request{MakePDF: true, OutDir: dir})
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Empty(t, res.Outputs[0].Path)

	_, statErr := os.Stat(filepath.Join(dir, "informe.pdf"))
	assert.True(t, os.IsNotExist(statErr), "partial file removed")
}

func TestRun_RejectsReentry(t *testing.T) {
	fake, r, _ := newRunner(t)
	release := make(chan struct{})
	fake.On(testutil.RouteCalendar, testutil.Reply{Status: http.StatusOK, Body: `{}`, Release: release})
	fake.On(testutil.RouteReport, testutil.JSON(http.StatusOK, `{"status":"ok"}`))

	done := make(chan error, 1)
	go func() {
		_, err := r.Run(context.Background(), Request{MakePDF: true})
		done <- err
	}()
	require.Eventually(t, func() bool { return fake.Count(testutil.RouteCalendar) == 1 }, 2*time.Second, 5*time.Millisecond)

	_, err := r.Run(context.Background(), Request{MakePDF: true})
	assert.ErrorIs(t, err, ErrInFlight)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, fake.Count(testutil.RouteCalendar))
}
