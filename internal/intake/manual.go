package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/slipdesk/internal/activity"
	"github.com/roach88/slipdesk/internal/backend"
	"github.com/roach88/slipdesk/internal/forms"
	"github.com/roach88/slipdesk/internal/model"
)

// ManualValues builds the urlencoded body of the manual-entry form.
//
// Field values are validated against the manual form, then sent under their
// wire names. Dates (YYYY-MM-DD) render as DD/MM/YYYY and times (HH:MM) as
// "hh:mm a. m." or "hh:mm p. m.". Empty optional fields are sent empty.
func ManualValues(values map[string]string) (url.Values, error) {
	form, err := forms.Get(forms.Manual)
	if err != nil {
		return nil, err
	}
	meta, err := form.Build(values)
	if err != nil {
		return nil, fromFieldError(err)
	}

	out := url.Values{}
	for _, fd := range form.Fields {
		v, _ := meta.Get(fd.Name)
		var s string
		switch x := v.(type) {
		case string:
			s = x
		case int:
			s = strconv.Itoa(x)
		}
		switch fd.Format {
		case forms.FormatDate:
			s = FormatDate(s)
		case forms.FormatTime:
			s = FormatTime(s)
		}
		out.Set(fd.WireName(), s)
	}
	return out, nil
}

// FormatDate renders an ISO date as DD/MM/YYYY, or "" when it does not parse.
func FormatDate(iso string) string {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(iso))
	if err != nil {
		return ""
	}
	return t.Format("02/01/2006")
}

// FormatTime renders HH:MM as a 12-hour clock with a Spanish meridiem, or ""
// when it is not a valid time of day. A missing minute part reads as 00.
func FormatTime(hhmm string) string {
	hhmm = strings.TrimSpace(hhmm)
	hRaw, mRaw, _ := strings.Cut(hhmm, ":")
	if mRaw == "" {
		mRaw = "00"
	}
	h, ok := clockField(hRaw, 23)
	if !ok {
		return ""
	}
	m, ok := clockField(mRaw, 59)
	if !ok {
		return ""
	}

	label := "a. m."
	if h >= 12 {
		label = "p. m."
	}
	h %= 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%02d:%02d %s", h, m, label)
}

// clockField parses one or two unsigned digits no greater than limit.
func clockField(s string, limit int) (int, bool) {
	if len(s) == 0 || len(s) > 2 {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n > limit {
		return 0, false
	}
	return n, true
}

// SubmitManual posts a manually transcribed receipt.
//
// It shares the in-flight guard with Submit. A 2xx response whose body has a
// truthy "saved" or "ok" is Approved and triggers correlation with source
// "manual"; every other response is Rejected.
func (o *Orchestrator) SubmitManual(ctx context.Context, values map[string]string) (model.Outcome, error) {
	if !o.sending.CompareAndSwap(false, true) {
		return model.Outcome{}, ErrInFlight
	}
	defer o.sending.Store(false)

	body, err := ManualValues(values)
	if err != nil {
		o.publish(State{Error: err.Error()})
		return model.Outcome{}, err
	}

	task := o.activity.Task("Process " + o.now().Format(activity.TimeLayout))
	o.publish(State{Sending: true})
	task.Add("Sending to /manualtotal ...", nil)

	resp, err := o.client.ManualIntake(ctx, body, "")
	if err != nil {
		outcome := Classify(nil, err)
		line := "Network error: " + outcome.Reason
		task.Add(line, nil)
		o.publish(State{Error: outcome.Reason})
		return outcome, nil
	}

	obj := manualBody(resp)
	if resp.OK() && (truthy(obj["saved"]) || truthy(obj["ok"])) {
		task.Add("Processed manually.", nil)
		token, _ := obj["correlation_id"].(string)
		if token == "" {
			token = o.tokens.Generate()
		}
		outcome := model.Outcome{Kind: model.OutcomeApproved, Status: resp.Status, CorrelationID: token}
		outcome.Correlation, _ = o.Correlate(ctx, token, SourceManual)
		o.publish(State{OK: true})
		o.nav.Navigate(ManualPath)
		o.logger.Info("manual submission saved", zap.String("token", token))
		return outcome, nil
	}

	raw, _ := json.Marshal(obj)
	reason := fmt.Sprintf("Error %d: %s", resp.Status, raw)
	task.Add(reason, nil)
	o.publish(State{Error: reason})
	return model.Outcome{
		Kind:   model.OutcomeRejected,
		Reason: reason,
		Status: resp.Status,
		Err:    &backend.HTTPError{Status: resp.Status, Message: string(raw)},
	}, nil
}

// manualBody parses the body as a JSON object regardless of content type.
// Unparseable bodies read as an empty object.
func manualBody(resp *backend.Response) map[string]any {
	obj := map[string]any{}
	if err := json.Unmarshal(resp.Body, &obj); err != nil || obj == nil {
		return map[string]any{}
	}
	return obj
}
