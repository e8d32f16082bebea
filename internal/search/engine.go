// Package search runs incremental evidence searches.
//
// An Engine has two triggers. Type is the live path: it debounces input and
// drops queries shorter than the live minimum. Submit is the explicit path:
// it runs immediately, with no minimum, and waits for its own result.
//
// Every issued query takes the next value of a monotonic generation counter
// and its own cancellable context. Issuing a query cancels the previous one,
// and a response is applied only if its generation is still the latest
// issued when it arrives. Late or cancelled responses are dropped silently.
package search

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/roach88/slipdesk/internal/activity"
	"github.com/roach88/slipdesk/internal/backend"
	"github.com/roach88/slipdesk/internal/model"
)

// Defaults for the live path.
const (
	DefaultDebounce = 350 * time.Millisecond
	DefaultMinLive  = 2
)

// ErrSuperseded is returned by Submit when a newer query took over before
// its own response was applied.
var ErrSuperseded = errors.New("search: superseded by a newer query")

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("search: engine closed")

// Searcher runs one query against the backend.
type Searcher interface {
	Search(ctx context.Context, p model.SearchParams) (*model.ResultSet, error)
}

// State is the observable search state.
//
// Count is the backend's total match count; len(Results) is how many rows
// it returned, which may be fewer.
type State struct {
	Query      string
	Generation int64
	Loading    bool
	Error      string
	Count      int
	Results    []model.Item
}

// Engine is an incremental search engine.
//
// Thread-safety: Engine is safe for concurrent use.
type Engine struct {
	searcher Searcher
	debounce time.Duration
	minLive  int
	params   model.SearchParams
	activity *activity.Log
	logger   *zap.Logger

	gen atomic.Int64

	base     context.Context
	stop     context.CancelFunc
	inflight sync.WaitGroup

	mu     sync.Mutex
	timer  *time.Timer
	seq    uint64 // bumped by every input; a debounced fire from an older seq is dropped
	cancel context.CancelFunc
	state  State
	subs   []func(State)
	closed bool

	// pubMu keeps subscriber delivery in state order.
	pubMu sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithDebounce sets the live-path quiet window.
func WithDebounce(d time.Duration) Option {
	return func(e *Engine) { e.debounce = d }
}

// WithMinLive sets the minimum live query length in characters.
func WithMinLive(n int) Option {
	return func(e *Engine) { e.minLive = n }
}

// WithParams sets the pagination and sort knobs sent with every query.
func WithParams(p model.SearchParams) Option {
	return func(e *Engine) { e.params = p }
}

// WithActivity records issued queries and failures to l.
func WithActivity(l *activity.Log) Option {
	return func(e *Engine) { e.activity = l }
}

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an engine querying s.
func New(s Searcher, opts ...Option) *Engine {
	e := &Engine{
		searcher: s,
		debounce: DefaultDebounce,
		minLive:  DefaultMinLive,
	}
	for _, o := range opts {
		o(e)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.activity == nil {
		e.activity = activity.New(activity.WithLogger(e.logger))
	}
	e.base, e.stop = context.WithCancel(context.Background())
	return e
}

// State returns the current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Generation returns the latest issued generation.
func (e *Engine) Generation() int64 {
	return e.gen.Load()
}

// Subscribe registers fn to receive every state change, in order.
// fn must not call back into the Engine.
func (e *Engine) Subscribe(fn func(State)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subs = append(e.subs, fn)
}

// Type feeds live input. The query fires after the debounce window passes
// with no further input; inputs shorter than the live minimum never fire.
func (e *Engine) Type(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	e.seq++
	seq := e.seq
	e.timer = time.AfterFunc(e.debounce, func() { e.fire(seq, text) })
}

// fire issues a debounced live query unless newer input arrived after it
// was scheduled. Timer.Stop cannot recall a callback that already started.
func (e *Engine) fire(seq uint64, text string) {
	q := strings.TrimSpace(text)
	if utf8.RuneCountInString(q) < e.minLive {
		return
	}
	e.mu.Lock()
	if seq != e.seq || e.closed {
		e.mu.Unlock()
		e.logger.Debug("superseded live query dropped", zap.String("query", q))
		return
	}
	e.activity.Add("(live) GET "+q, nil)
	e.issueLocked(q)
}

// Submit runs text immediately and waits for its response.
//
// It cancels any pending live query. If a newer query is issued before this
// one's response is applied, Submit returns ErrSuperseded. A response error
// on the current generation is returned along with the state that shows it.
func (e *Engine) Submit(ctx context.Context, text string) (State, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return State{}, ErrClosed
	}
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.seq++

	q := strings.TrimSpace(text)
	e.activity.Add("GET "+q, nil)
	gen, done := e.issueLocked(q)

	select {
	case <-done:
	case <-ctx.Done():
		return e.State(), ctx.Err()
	}

	st := e.State()
	if st.Generation != gen {
		return st, ErrSuperseded
	}
	if st.Error != "" {
		return st, errors.New(st.Error)
	}
	return st, nil
}

// issueLocked starts a query, cancelling the previous one. The returned
// channel closes once the query has finished, applied or not. Called with
// e.mu held; returns with it released.
func (e *Engine) issueLocked(q string) (int64, <-chan struct{}) {
	done := make(chan struct{})

	if e.closed {
		e.mu.Unlock()
		close(done)
		return 0, done
	}
	if e.cancel != nil {
		e.cancel()
	}
	ctx, cancel := context.WithCancel(e.base)
	e.cancel = cancel
	gen := e.gen.Add(1)
	e.state = State{
		Query:      q,
		Generation: gen,
		Loading:    true,
		Count:      e.state.Count,
		Results:    e.state.Results,
	}
	e.inflight.Add(1)
	e.publishLocked()

	go func() {
		defer e.inflight.Done()
		defer close(done)
		defer cancel()
		e.run(ctx, gen, q)
	}()
	return gen, done
}

func (e *Engine) run(ctx context.Context, gen int64, q string) {
	p := e.params
	p.Q = q
	rs, err := e.searcher.Search(ctx, p)

	e.mu.Lock()
	if gen != e.gen.Load() || e.closed {
		e.mu.Unlock()
		e.logger.Debug("stale search response dropped", zap.Int64("generation", gen))
		return
	}

	if err != nil {
		if ctx.Err() != nil || backend.IsCanceled(err) {
			// Cancelled without being superseded: Reset or Close got here first.
			e.state.Loading = false
			e.publishLocked()
			return
		}
		e.state = State{Query: q, Generation: gen, Error: errorText(err)}
		e.publishLocked()
		e.activity.Add("Error: "+errorText(err), nil)
		return
	}

	e.state = State{
		Query:      q,
		Generation: gen,
		Count:      rs.Count,
		Results:    rs.Results,
	}
	e.publishLocked()
	e.activity.Add(fmt.Sprintf("Received: %d results (showing %d)", rs.Count, len(rs.Results)), nil)
}

// publishLocked delivers the current state. Called with e.mu held; returns
// with it released.
func (e *Engine) publishLocked() {
	st := e.state
	subs := slices.Clone(e.subs)
	e.pubMu.Lock()
	e.mu.Unlock()
	defer e.pubMu.Unlock()

	for _, fn := range subs {
		fn(st)
	}
}

// Reset clears the query and results and drops any in-flight query.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.seq++
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	gen := e.gen.Add(1)
	e.state = State{Generation: gen}
	e.publishLocked()
	e.activity.Add("Fields and results cleared.", nil)
}

// Close stops the debounce timer, cancels in-flight work and waits for it to
// finish. The engine ignores all input afterwards.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.seq++
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.mu.Unlock()

	e.stop()
	e.inflight.Wait()
}

func errorText(err error) string {
	var he *backend.HTTPError
	if errors.As(err, &he) {
		return he.Message
	}
	if errors.Is(err, backend.ErrUnexpectedBody) {
		return "unexpected server response"
	}
	var te *backend.TransportError
	if errors.As(err, &te) && te.Err != nil {
		return te.Err.Error()
	}
	return err.Error()
}
