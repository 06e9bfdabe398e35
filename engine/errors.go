package engine

import "errors"

// Sentinel errors surfaced in send-log entries and rule details. Provider
// failures are not wrapped; their raw message is preserved verbatim.
var (
	ErrProviderNotConfigured = errors.New("provider not configured")
	ErrInsufficientCredits   = errors.New("insufficient credits")
)
