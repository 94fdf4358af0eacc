package payment

import "fmt"

// Status enumerates the payment-record lifecycle.
type Status string

const (
	StatusSubmitted           Status = "submitted"
	StatusUTRDetected         Status = "utr_detected"
	StatusDetectionFailed     Status = "utr_detection_failed"
	StatusPendingVerification Status = "pending_verification"
	StatusVerified            Status = "verified"
	StatusRejected            Status = "rejected"
	StatusExpired             Status = "expired"
)

// legalTransitions is the full status machine. Expiry is handled separately
// (any non-terminal status may be rewritten to expired on read), but is kept
// in the table so transition covers it too. Detection-failed records may go
// straight to pending_verification via a manually entered reference;
// detection-failed and rejected records re-enter through submitted on
// resubmission.
var legalTransitions = map[Status][]Status{
	StatusSubmitted:           {StatusUTRDetected, StatusDetectionFailed, StatusExpired},
	StatusUTRDetected:         {StatusPendingVerification, StatusExpired},
	StatusDetectionFailed:     {StatusSubmitted, StatusPendingVerification, StatusExpired},
	StatusPendingVerification: {StatusVerified, StatusRejected, StatusExpired},
	StatusRejected:            {StatusSubmitted, StatusExpired},
	StatusVerified:            {},
	StatusExpired:             {},
}

// transition moves from one status to another, rejecting anything the
// table does not allow.
func transition(from, to Status) (Status, error) {
	for _, t := range legalTransitions[from] {
		if t == to {
			return to, nil
		}
	}
	return from, fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, from, to)
}

// isTerminal reports whether a status can never change again.
func isTerminal(s Status) bool {
	return s == StatusVerified || s == StatusExpired
}
