// Package intake submits receipt evidence to the backend.
//
// The pipeline is:
//
//	Gate (type/size) → form validation → POST intake (token header)
//	  → Classify → on Approved: Correlate with bounded retry
//
// Classify turns the primary response into one of five outcomes. Only
// Approved starts the correlation follow-up, and a failed follow-up is
// logged without changing the outcome. Rejected and NetworkError keep the
// held file so the caller can retry.
//
// An Orchestrator admits one submission at a time; overlapping calls return
// ErrInFlight without touching the network.
package intake
