package intake

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/slipdesk/internal/backend"
	"github.com/roach88/slipdesk/internal/model"
)

// Correlation sources sent as the "source" query parameter.
const (
	SourceAuto   = "auto"
	SourceManual = "manual"
)

// RetryPolicy bounds the correlation follow-up.
//
// A response whose status equals RetryOn is retried after Backoff while
// attempts remain. Success, any other status and transport failures end the
// loop immediately.
type RetryPolicy struct {
	MaxAttempts int
	RetryOn     int
	Backoff     time.Duration

	// Sleep waits for d or until ctx is done. nil uses a timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy allows one retry of a 404 after 600ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 2,
		RetryOn:     http.StatusNotFound,
		Backoff:     600 * time.Millisecond,
	}
}

// Attempt is one try of a retried call.
type Attempt func(ctx context.Context, n int) (*backend.Response, error)

// Do runs call under the policy. It returns the number of attempts made and
// the last response or error.
func (p RetryPolicy) Do(ctx context.Context, call Attempt) (int, *backend.Response, error) {
	max := p.MaxAttempts
	if max < 1 {
		max = 1
	}
	for n := 1; ; n++ {
		resp, err := call(ctx, n)
		if err != nil {
			return n, nil, err
		}
		if resp.OK() || resp.Status != p.RetryOn || n >= max {
			return n, resp, nil
		}
		if err := p.sleep(ctx, p.Backoff); err != nil {
			return n, resp, err
		}
	}
}

func (p RetryPolicy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Correlate issues the follow-up call for token and reports its status.
//
// A failure is returned as *CorrelationFailure for the caller to log; it
// must not change an outcome that was already reported.
func (o *Orchestrator) Correlate(ctx context.Context, token, source string) (model.CorrelationStatus, error) {
	attempts, resp, err := o.retry.Do(ctx, func(ctx context.Context, n int) (*backend.Response, error) {
		if n > 1 {
			o.activity.Add("Datos: retrying", map[string]any{"token": token, "attempt": n})
		}
		return o.client.Correlate(ctx, token, source)
	})

	if err == nil && resp.OK() {
		o.activity.Add("Datos: ok.", nil)
		o.logger.Debug("correlation done",
			zap.String("token", token),
			zap.String("source", source),
			zap.Int("attempts", attempts))
		return model.CorrelationDone, nil
	}

	failure := &CorrelationFailure{Token: token, Source: source, Attempts: attempts, Err: err}
	if resp != nil {
		failure.Status = resp.Status
	}
	if err != nil {
		o.activity.Add("Datos: network error "+err.Error(), nil)
	} else {
		o.activity.Add(fmt.Sprintf("Datos: response %d.", resp.Status), nil)
	}
	o.logger.Warn("correlation failed", zap.Error(failure))
	return model.CorrelationFailed, failure
}
