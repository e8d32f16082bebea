package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/slipdesk/internal/testutil"
)

// Scenario is one end-to-end test.
type Scenario struct {
	// Name identifies the scenario and its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// Tokens are handed out in order as correlation tokens. Empty uses a
	// single repeating token.
	Tokens []string `yaml:"tokens,omitempty"`

	// Backend programs replies per route.
	Backend map[string][]ReplySpec `yaml:"backend,omitempty"`

	// Files are served under the download route by subpath.
	Files map[string]string `yaml:"files,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions"`
}

// ReplySpec is a programmed backend reply. JSON and Text are mutually
// exclusive; both empty sends an empty body.
type ReplySpec struct {
	Status int    `yaml:"status"`
	JSON   string `yaml:"json,omitempty"`
	Text   string `yaml:"text,omitempty"`
}

// Reply converts r to a fake backend reply.
func (r ReplySpec) Reply() testutil.Reply {
	if r.Text != "" {
		return testutil.Text(r.Status, r.Text)
	}
	return testutil.JSON(r.Status, r.JSON)
}

// Step runs exactly one action.
type Step struct {
	Submit *SubmitStep `yaml:"submit,omitempty"`
	Manual *ManualStep `yaml:"manual,omitempty"`
	Search *SearchStep `yaml:"search,omitempty"`
	Report *ReportStep `yaml:"report,omitempty"`

	// Expect is checked against the step's result. Omitted fields are not
	// checked.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// FileSpec describes the receipt to submit. Content defaults to Size
// zero bytes.
type FileSpec struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	Size    int64  `yaml:"size"`
	Content string `yaml:"content,omitempty"`
}

// SubmitStep submits a receipt with intake form values.
type SubmitStep struct {
	File   FileSpec          `yaml:"file"`
	Values map[string]string `yaml:"values"`
}

// ManualStep submits the manual-entry form.
type ManualStep struct {
	Values map[string]string `yaml:"values"`
}

// SearchStep runs an explicit search.
type SearchStep struct {
	Q string `yaml:"q"`
}

// ReportStep runs a report.
type ReportStep struct {
	Preset   string `yaml:"preset"`
	Start    string `yaml:"start,omitempty"`
	End      string `yaml:"end,omitempty"`
	PDF      bool   `yaml:"pdf"`
	XLSX     bool   `yaml:"xlsx"`
	Download bool   `yaml:"download"`
}

// ExpectClause is matched against a StepResult.
type ExpectClause struct {
	Outcome     string `yaml:"outcome,omitempty"`
	Correlation string `yaml:"correlation,omitempty"`
	Token       string `yaml:"token,omitempty"`
	Status      int    `yaml:"status,omitempty"`
	Reason      string `yaml:"reason,omitempty"`

	// Error is a validation code, or a substring of the returned error.
	Error string `yaml:"error,omitempty"`

	Count   *int `yaml:"count,omitempty"`
	Results *int `yaml:"results,omitempty"`
	Outputs *int `yaml:"outputs,omitempty"`
}

// Assertion checks the trace or activity log after all steps ran.
type Assertion struct {
	Type string `yaml:"type"`

	Route  string   `yaml:"route,omitempty"`
	Routes []string `yaml:"routes,omitempty"`
	Count  int      `yaml:"count,omitempty"`

	// call_contains filters. Empty filters match anything.
	Token string `yaml:"token,omitempty"`
	Query string `yaml:"query,omitempty"`
	Meta  string `yaml:"meta,omitempty"`

	Message string `yaml:"message,omitempty"`
}

// Assertion types.
const (
	AssertCallCount        = "call_count"
	AssertCallOrder        = "call_order"
	AssertCallContains     = "call_contains"
	AssertActivityContains = "activity_contains"
)

var knownRoutes = map[string]bool{
	testutil.RouteIntake:    true,
	testutil.RouteCorrelate: true,
	testutil.RouteManual:    true,
	testutil.RouteOptions:   true,
	testutil.RouteSearch:    true,
	testutil.RouteCalendar:  true,
	testutil.RouteReport:    true,
	testutil.RouteDownload:  true,
}

// LoadScenario reads and validates a scenario file. Unknown keys are
// rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for route, replies := range s.Backend {
		if !knownRoutes[route] || route == testutil.RouteDownload {
			return fmt.Errorf("backend: unknown route %q", route)
		}
		for i, r := range replies {
			if r.JSON != "" && r.Text != "" {
				return fmt.Errorf("backend.%s[%d]: json and text are mutually exclusive", route, i)
			}
		}
	}

	for i, step := range s.Steps {
		n := 0
		for _, set := range []bool{step.Submit != nil, step.Manual != nil, step.Search != nil, step.Report != nil} {
			if set {
				n++
			}
		}
		if n != 1 {
			return fmt.Errorf("steps[%d]: exactly one of submit, manual, search, report is required", i)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertCallCount, AssertCallContains:
		if !knownRoutes[a.Route] {
			return fmt.Errorf("assertions[%d]: unknown route %q for %s", index, a.Route, a.Type)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertCallOrder:
		if len(a.Routes) == 0 {
			return fmt.Errorf("assertions[%d]: routes list is required for call_order", index)
		}
		for _, r := range a.Routes {
			if !knownRoutes[r] {
				return fmt.Errorf("assertions[%d]: unknown route %q for call_order", index, r)
			}
		}
	case AssertActivityContains:
		if a.Message == "" {
			return fmt.Errorf("assertions[%d]: message is required for activity_contains", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
