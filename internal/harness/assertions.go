package harness

import (
	"fmt"
	"strings"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s %s\n", ev.Seq, ev.Route, ev.Method, ev.Path)
		}
	}
	return buf.String()
}

// EvaluateAssertions returns one message per failed assertion.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertCallCount:
			err = assertCallCount(result.Trace, a)
		case AssertCallOrder:
			err = assertCallOrder(result.Trace, a)
		case AssertCallContains:
			err = assertCallContains(result.Trace, a)
		case AssertActivityContains:
			err = assertActivityContains(result.Activity, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func assertCallCount(trace []TraceEvent, a Assertion) error {
	n := 0
	for _, ev := range trace {
		if ev.Route == a.Route {
			n++
		}
	}
	if n != a.Count {
		return &AssertionError{
			Type:     AssertCallCount,
			Expected: fmt.Sprintf("%d calls to %s", a.Count, a.Route),
			Actual:   fmt.Sprintf("%d calls", n),
			Trace:    trace,
		}
	}
	return nil
}

// assertCallOrder requires each route to occur after the previous one.
// Other calls may come in between.
func assertCallOrder(trace []TraceEvent, a Assertion) error {
	pos := 0
	for _, want := range a.Routes {
		found := false
		for pos < len(trace) {
			ev := trace[pos]
			pos++
			if ev.Route == want {
				found = true
				break
			}
		}
		if !found {
			return &AssertionError{
				Type:     AssertCallOrder,
				Expected: fmt.Sprintf("calls in order: %v", a.Routes),
				Actual:   fmt.Sprintf("no %s call in the expected position", want),
				Trace:    trace,
			}
		}
	}
	return nil
}

func assertCallContains(trace []TraceEvent, a Assertion) error {
	for _, ev := range trace {
		if ev.Route != a.Route {
			continue
		}
		if a.Token != "" && ev.Token != a.Token {
			continue
		}
		if a.Query != "" && ev.Query != a.Query {
			continue
		}
		if a.Meta != "" && !strings.Contains(ev.Meta, a.Meta) {
			continue
		}
		return nil
	}
	return &AssertionError{
		Type:     AssertCallContains,
		Expected: fmt.Sprintf("%s call with token=%q query=%q meta~%q", a.Route, a.Token, a.Query, a.Meta),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

func assertActivityContains(lines []string, a Assertion) error {
	for _, l := range lines {
		if strings.Contains(l, a.Message) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertActivityContains,
		Expected: fmt.Sprintf("activity line containing %q", a.Message),
		Actual:   fmt.Sprintf("%d lines, none matching", len(lines)),
	}
}

// checkExpect compares a step result against its expect clause.
func checkExpect(i int, got StepResult, want *ExpectClause) []string {
	if want == nil {
		return nil
	}
	var errs []string
	mismatch := func(field string, w, g any) {
		errs = append(errs, fmt.Sprintf("steps[%d].expect.%s: want %v, got %v", i, field, w, g))
	}
	if want.Outcome != "" && want.Outcome != got.Outcome {
		mismatch("outcome", want.Outcome, got.Outcome)
	}
	if want.Correlation != "" && want.Correlation != got.Correlation {
		mismatch("correlation", want.Correlation, got.Correlation)
	}
	if want.Token != "" && want.Token != got.Token {
		mismatch("token", want.Token, got.Token)
	}
	if want.Status != 0 && want.Status != got.Status {
		mismatch("status", want.Status, got.Status)
	}
	if want.Reason != "" && want.Reason != got.Reason {
		mismatch("reason", want.Reason, got.Reason)
	}
	if want.Error != "" && !strings.Contains(got.Error, want.Error) {
		mismatch("error", want.Error, got.Error)
	}
	if want.Error == "" && got.Error != "" && got.Outcome == "" {
		errs = append(errs, fmt.Sprintf("steps[%d]: unexpected error %s", i, got.Error))
	}
	if want.Count != nil && *want.Count != got.Count {
		mismatch("count", *want.Count, got.Count)
	}
	if want.Results != nil && *want.Results != got.Results {
		mismatch("results", *want.Results, got.Results)
	}
	if want.Outputs != nil && *want.Outputs != len(got.Outputs) {
		mismatch("outputs", *want.Outputs, len(got.Outputs))
	}
	return errs
}
