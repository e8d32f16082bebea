package intake

import (
	"encoding/json"
	"errors"

	"github.com/roach88/slipdesk/internal/backend"
	"github.com/roach88/slipdesk/internal/model"
)

// Classify maps the primary intake call result to an outcome.
//
// err is the transport error from the call, if any. The outcome's
// CorrelationID is left for the caller to fill.
func Classify(resp *backend.Response, err error) model.Outcome {
	if err != nil {
		return model.Outcome{
			Kind:   model.OutcomeNetworkError,
			Reason: networkReason(err),
			Err:    err,
		}
	}

	if !resp.OK() {
		msg := backend.ErrorMessage(resp)
		return model.Outcome{
			Kind:   model.OutcomeRejected,
			Reason: msg,
			Status: resp.Status,
			Err:    &backend.HTTPError{Status: resp.Status, Message: msg},
		}
	}

	obj := resp.Object()
	switch {
	case obj["validacion"] == "automatica" || obj["status"] == "ok":
		return model.Outcome{Kind: model.OutcomeApproved, Status: resp.Status}
	case obj["status"] == "verification_failed" && truthy(obj["file"]):
		return model.Outcome{
			Kind:    model.OutcomeVerificationFailed,
			Status:  resp.Status,
			FileRef: fileRef(obj["file"]),
		}
	default:
		// Unrecognised success bodies need a human look, not an error.
		return model.Outcome{Kind: model.OutcomeManualRequired, Status: resp.Status}
	}
}

// BackendCorrelationID returns the correlation_id carried by a JSON body.
func BackendCorrelationID(resp *backend.Response) string {
	if resp == nil {
		return ""
	}
	if id, ok := resp.Object()["correlation_id"].(string); ok {
		return id
	}
	return ""
}

func networkReason(err error) string {
	var te *backend.TransportError
	if errors.As(err, &te) && te.Err != nil {
		return te.Err.Error()
	}
	return err.Error()
}

// truthy applies JSON truthiness: null, false, 0 and "" are false.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0
	default:
		return true
	}
}

func fileRef(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
