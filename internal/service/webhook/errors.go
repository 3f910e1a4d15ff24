package webhook

import "errors"

var (
	// ErrMisconfigured means no signing secret is set; nothing can be
	// verified until the operator fixes the environment.
	ErrMisconfigured = errors.New("webhook: signing secret not configured")

	// ErrMissingSignature means the request carried no signature header.
	ErrMissingSignature = errors.New("webhook: missing signature header")

	// ErrSignatureMismatch means the signature did not match the body.
	ErrSignatureMismatch = errors.New("webhook: signature mismatch")

	// ErrUnsupportedEvent means the event type is not a push.
	ErrUnsupportedEvent = errors.New("webhook: unsupported event type")

	// ErrInvalidPayload means the push payload was missing required fields.
	ErrInvalidPayload = errors.New("webhook: invalid payload")

	// ErrProjectNotFound means no project tracks the pushed repository
	// and branch.
	ErrProjectNotFound = errors.New("webhook: no project for repository and branch")
)
