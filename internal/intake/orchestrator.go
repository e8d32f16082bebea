package intake

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/slipdesk/internal/activity"
	"github.com/roach88/slipdesk/internal/backend"
	"github.com/roach88/slipdesk/internal/forms"
	"github.com/roach88/slipdesk/internal/model"
)

// View paths handed to the Navigator after a successful submission.
const (
	IntakePath = "/adjuntar"
	ManualPath = "/manualtotal"
)

// Backend is the subset of the backend client the orchestrator calls.
type Backend interface {
	Intake(ctx context.Context, file model.File, meta model.Metadata, token string) (*backend.Response, error)
	Correlate(ctx context.Context, token, source string) (*backend.Response, error)
	ManualIntake(ctx context.Context, form url.Values, token string) (*backend.Response, error)
}

// Navigator is told which view to show after an approval.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) { f(path) }

// State is the observable submission state.
type State struct {
	Sending bool
	Error   string
	OK      bool
}

// Orchestrator runs submissions against the backend.
//
// At most one submission (intake or manual) is in flight per Orchestrator;
// a second call while one is sending returns ErrInFlight. The correlation
// follow-up runs after classification, inside the same call.
//
// Thread-safety: Orchestrator is safe for concurrent use.
type Orchestrator struct {
	client   Backend
	gate     *Gate
	tokens   TokenGenerator
	retry    RetryPolicy
	activity *activity.Log
	nav      Navigator
	logger   *zap.Logger
	now      func() time.Time

	sending atomic.Bool

	mu    sync.Mutex
	state State
	subs  []func(State)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithGate shares a Gate with the caller. By default the orchestrator owns one.
func WithGate(g *Gate) Option {
	return func(o *Orchestrator) { o.gate = g }
}

// WithTokens replaces the token generator.
func WithTokens(g TokenGenerator) Option {
	return func(o *Orchestrator) { o.tokens = g }
}

// WithRetryPolicy replaces the correlation retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(o *Orchestrator) { o.retry = p }
}

// WithActivity records events to l.
func WithActivity(l *activity.Log) Option {
	return func(o *Orchestrator) { o.activity = l }
}

// WithNavigator sets the post-approval navigator.
func WithNavigator(n Navigator) Option {
	return func(o *Orchestrator) { o.nav = n }
}

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithClock replaces time.Now for task titles.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates an orchestrator calling client.
func New(client Backend, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client: client,
		tokens: RandomTokens{},
		retry:  DefaultRetryPolicy(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.gate == nil {
		o.gate = &Gate{}
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.activity == nil {
		o.activity = activity.New(activity.WithLogger(o.logger))
	}
	if o.nav == nil {
		o.nav = NavigatorFunc(func(string) {})
	}
	return o
}

// Gate returns the gate holding the file for the next submission.
func (o *Orchestrator) Gate() *Gate {
	return o.gate
}

// Activity returns the session activity log.
func (o *Orchestrator) Activity() *activity.Log {
	return o.activity
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Subscribe registers fn to receive every state change.
// fn runs on the submitting goroutine and must not call Submit.
func (o *Orchestrator) Subscribe(fn func(State)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.subs = append(o.subs, fn)
}

func (o *Orchestrator) publish(s State) {
	o.mu.Lock()
	o.state = s
	subs := slices.Clone(o.subs)
	o.mu.Unlock()

	for _, fn := range subs {
		fn(s)
	}
}

// Reset clears the held file and the visible state.
func (o *Orchestrator) Reset() {
	o.gate.Clear()
	o.publish(State{})
	o.activity.Add("Form reset.", nil)
}

// NewRequest builds a submission request for the intake form from raw
// field values. Form validation failures are returned as *ValidationError.
func NewRequest(file model.File, values map[string]string) (model.SubmissionRequest, error) {
	form, err := forms.Get(forms.Intake)
	if err != nil {
		return model.SubmissionRequest{}, err
	}
	meta, err := form.Build(values)
	if err != nil {
		return model.SubmissionRequest{}, fromFieldError(err)
	}
	return model.SubmissionRequest{Form: forms.Intake, File: file, Metadata: meta}, nil
}

// SubmitHeld submits the held file with the given intake field values.
func (o *Orchestrator) SubmitHeld(ctx context.Context, values map[string]string) (model.Outcome, error) {
	file, ok := o.gate.Held()
	if !ok {
		err := &ValidationError{Code: ErrCodeMissingFile, Message: "attach a valid file"}
		o.publish(State{Error: err.Message})
		return model.Outcome{}, err
	}
	req, err := NewRequest(file, values)
	if err != nil {
		o.publish(State{Error: err.Error()})
		return model.Outcome{}, err
	}
	return o.Submit(ctx, req)
}

// Submit sends req to the intake endpoint and classifies the response.
//
// Validation failures return a *ValidationError and make no network call.
// Every other result is reported through the returned Outcome; its Err holds
// the typed backend error for Rejected and NetworkError.
func (o *Orchestrator) Submit(ctx context.Context, req model.SubmissionRequest) (model.Outcome, error) {
	if !o.sending.CompareAndSwap(false, true) {
		o.logger.Debug("submission ignored: already sending")
		return model.Outcome{}, ErrInFlight
	}
	defer o.sending.Store(false)

	if err := o.validate(req); err != nil {
		o.publish(State{Error: err.Error()})
		return model.Outcome{}, err
	}

	token := o.tokens.Generate()
	task := o.activity.Task("Process " + o.now().Format(activity.TimeLayout))
	o.publish(State{Sending: true})
	task.Add("reading...", map[string]string{"file": req.File.Name, "token": token})

	resp, err := o.client.Intake(ctx, req.File, req.Metadata, token)
	outcome := Classify(resp, err)
	outcome.CorrelationID = token

	switch outcome.Kind {
	case model.OutcomeApproved:
		o.activity.Add("Approved.", nil)
		task.Add("Approved.", nil)
		if id := BackendCorrelationID(resp); id != "" {
			outcome.CorrelationID = id
		}
		outcome.Correlation, _ = o.Correlate(ctx, outcome.CorrelationID, SourceAuto)
		o.gate.Clear()
		o.publish(State{OK: true})
		o.nav.Navigate(IntakePath)

	case model.OutcomeVerificationFailed:
		task.Add("Verification failed: manual flow.", map[string]string{"file": outcome.FileRef})
		o.publish(State{Error: "verification failed, manual flow required"})

	case model.OutcomeManualRequired:
		o.logger.Info("ambiguous intake response", zap.Int("status", outcome.Status), zap.ByteString("body", resp.Body))
		task.Add("Needs reprocessing or manual correction.", nil)
		o.publish(State{Error: "needs reprocessing or manual correction"})

	case model.OutcomeRejected:
		line := fmt.Sprintf("Error %d: %s", outcome.Status, outcome.Reason)
		o.activity.Add(line, nil)
		task.Add(line, nil)
		o.publish(State{Error: outcome.Reason})

	case model.OutcomeNetworkError:
		line := "Network error: " + outcome.Reason
		o.activity.Add(line, nil)
		task.Add(line, nil)
		o.publish(State{Error: outcome.Reason})
	}

	o.logger.Info("submission classified",
		zap.String("outcome", outcome.Kind.String()),
		zap.String("token", outcome.CorrelationID),
		zap.Stringer("correlation", outcome.Correlation))
	return outcome, nil
}

func (o *Orchestrator) validate(req model.SubmissionRequest) error {
	if req.File.Name == "" && len(req.File.Content) == 0 {
		return &ValidationError{Code: ErrCodeMissingFile, Message: "attach a valid file"}
	}
	if err := Validate(req.File); err != nil {
		return err
	}

	name := req.Form
	if name == "" {
		name = forms.Intake
	}
	form, err := forms.Get(name)
	if err != nil {
		return err
	}
	for _, fd := range form.Fields {
		if !fd.Required {
			continue
		}
		v, ok := req.Metadata.Get(fd.Name)
		if !ok || v == nil || v == "" {
			return &ValidationError{Code: ErrCodeMissingField, Field: fd.Name, Message: "complete the required fields"}
		}
	}
	return nil
}

func fromFieldError(err error) error {
	fe, ok := err.(*forms.FieldError)
	if !ok {
		return err
	}
	code := ErrCodeInvalidField
	if fe.Code == forms.ErrCodeMissing {
		code = ErrCodeMissingField
	}
	return &ValidationError{Code: code, Field: fe.Field, Message: fe.Message}
}
