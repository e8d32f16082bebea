package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *Result {
	r := NewResult()
	r.Trace = []TraceEvent{
		{Seq: 1, Route: "intake", Method: "POST", Path: "/_read/lectura", Token: "aaaaaaaaaaaa", Meta: `{"nombre":"Ana"}`},
		{Seq: 2, Route: "correlate", Method: "POST", Path: "/_datos/datos", Token: "aaaaaaaaaaaa", Query: "source=auto"},
		{Seq: 3, Route: "search", Method: "GET", Path: "/_buscar/query", Query: "q=ana"},
	}
	r.Activity = []string{"[14:30:00] Approved.", "[14:30:01] Datos: ok."}
	return r
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	errs := EvaluateAssertions(sampleResult(), []Assertion{
		{Type: AssertCallCount, Route: "correlate", Count: 1},
		{Type: AssertCallCount, Route: "manual", Count: 0},
		{Type: AssertCallOrder, Routes: []string{"intake", "search"}},
		{Type: AssertCallContains, Route: "correlate", Token: "aaaaaaaaaaaa", Query: "source=auto"},
		{Type: AssertCallContains, Route: "intake", Meta: `"nombre":"Ana"`},
		{Type: AssertActivityContains, Message: "Datos: ok."},
	})
	assert.Empty(t, errs)
}

func TestEvaluateAssertions_Fail(t *testing.T) {
	tests := []struct {
		name string
		a    Assertion
		want string
	}{
		{"count", Assertion{Type: AssertCallCount, Route: "intake", Count: 2}, "1 calls"},
		{"order", Assertion{Type: AssertCallOrder, Routes: []string{"search", "intake"}}, "no intake call"},
		{"contains token", Assertion{Type: AssertCallContains, Route: "correlate", Token: "bbbbbbbbbbbb"}, "not found in trace"},
		{"contains query", Assertion{Type: AssertCallContains, Route: "correlate", Query: "source=manual"}, "not found in trace"},
		{"activity", Assertion{Type: AssertActivityContains, Message: "Rejected"}, "none matching"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(sampleResult(), []Assertion{tt.a})
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], tt.want)
		})
	}
}

func TestAssertionError_IncludesTrace(t *testing.T) {
	err := &AssertionError{
		Type:     AssertCallCount,
		Expected: "1 calls to intake",
		Actual:   "0 calls",
		Trace:    sampleResult().Trace,
	}
	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: call_count")
	assert.Contains(t, msg, "[2] correlate POST /_datos/datos")
}

func TestCheckExpect(t *testing.T) {
	count := 3
	got := StepResult{Action: "search", Count: 2, Results: 2}
	errs := checkExpect(0, got, &ExpectClause{Count: &count})
	require.Len(t, errs, 1)
	assert.Equal(t, "steps[0].expect.count: want 3, got 2", errs[0])

	assert.Empty(t, checkExpect(0, got, nil))

	errs = checkExpect(1, StepResult{Action: "search", Error: "boom"}, &ExpectClause{})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "unexpected error boom")
}
