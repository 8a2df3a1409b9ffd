package domain

import "errors"

var (
	ErrInvalidSignature   = errors.New("invalid_signature")
	ErrInvalidPayload     = errors.New("invalid_payload")
	ErrInvalidEvent       = errors.New("invalid_event")
	ErrEventIgnored       = errors.New("event_ignored")
	ErrInvalidConfig      = errors.New("invalid_config")
	ErrIntentNotSucceeded = errors.New("payment_not_succeeded")
)
