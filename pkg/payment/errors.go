package payment

import "errors"

var (
	// ErrPaymentNotFound means no payment record exists for the order.
	ErrPaymentNotFound = errors.New("payment record not found")

	// ErrOrderNotFound means the order reference does not resolve.
	ErrOrderNotFound = errors.New("order not found")

	// ErrNotOrderOwner means the submitting user does not own the order.
	ErrNotOrderOwner = errors.New("order belongs to another user")

	// ErrPaymentExists means a payment record already exists for the order;
	// retries must go through Resubmit so attempt bookkeeping is preserved.
	ErrPaymentExists = errors.New("payment already submitted for this order")

	// ErrDuplicateReference means the extracted reference already backs
	// another order's payment in pending_verification or verified state.
	ErrDuplicateReference = errors.New("transaction reference already used by another payment")

	// ErrRetryLimitExceeded means the bounded-retry ceiling was hit.
	ErrRetryLimitExceeded = errors.New("resubmission limit reached, contact support")

	// ErrInvalidStateTransition means the requested action is not legal
	// from the record's current status.
	ErrInvalidStateTransition = errors.New("illegal payment state transition")

	// ErrInvalidReference means a manually entered reference failed
	// candidate validation.
	ErrInvalidReference = errors.New("reference failed validation")
)
