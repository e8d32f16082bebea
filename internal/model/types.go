package model

// File is a candidate receipt blob with the type the caller declared for it.
// The declared type is taken at face value; the validation gate never sniffs
// Content.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Content     []byte
}

// SubmissionRequest is one user-triggered intake submission.
// It is built from the held file and form state and is not modified once sent.
type SubmissionRequest struct {
	// Form names the form schema the metadata was built from ("intake").
	Form string

	File     File
	Metadata Metadata
}

// OutcomeKind is the semantic result of a primary intake call.
type OutcomeKind int

const (
	// OutcomeApproved means the backend validated the evidence automatically.
	OutcomeApproved OutcomeKind = iota + 1
	// OutcomeVerificationFailed means verification failed and a file reference
	// was returned for the manual flow.
	OutcomeVerificationFailed
	// OutcomeManualRequired is the conservative default for unrecognised 2xx bodies.
	OutcomeManualRequired
	// OutcomeRejected means a non-2xx response.
	OutcomeRejected
	// OutcomeNetworkError means no response was received.
	OutcomeNetworkError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeApproved:
		return "approved"
	case OutcomeVerificationFailed:
		return "verification_failed"
	case OutcomeManualRequired:
		return "manual_required"
	case OutcomeRejected:
		return "rejected"
	case OutcomeNetworkError:
		return "network_error"
	default:
		return "unknown"
	}
}

// CorrelationStatus tracks the follow-up call started after an approval.
type CorrelationStatus int

const (
	CorrelationNotStarted CorrelationStatus = iota
	CorrelationDone
	CorrelationFailed
)

func (s CorrelationStatus) String() string {
	switch s {
	case CorrelationDone:
		return "done"
	case CorrelationFailed:
		return "failed"
	default:
		return "not_started"
	}
}

// Outcome is the classified result of a submission.
//
// Reason is set for Rejected (extracted backend message) and NetworkError
// (transport detail). Err carries the typed error behind Rejected and
// NetworkError so callers can use errors.As.
type Outcome struct {
	Kind   OutcomeKind
	Reason string
	Status int

	// FileRef is the backend file reference returned with VerificationFailed.
	FileRef string

	// CorrelationID is the token attached to the primary and follow-up calls.
	CorrelationID string
	Correlation   CorrelationStatus

	Err error
}

// Succeeded reports whether the outcome is Approved.
func (o Outcome) Succeeded() bool {
	return o.Kind == OutcomeApproved
}
