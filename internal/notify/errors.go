package notify

import "errors"

var (
	// ErrDisabled indicates no webhook URL is configured.
	ErrDisabled = errors.New("chat notifications disabled")

	// ErrUnexpectedStatus indicates the webhook answered with a non-2xx status.
	ErrUnexpectedStatus = errors.New("webhook returned unexpected status")
)
