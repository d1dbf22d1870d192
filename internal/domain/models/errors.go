package models

import "errors"

// Sentinel errors for the degradation paths of the scoring flow. Callers
// branch with errors.Is; every wrap site adds its own context.
var (
	// ErrHistoryUnavailable marks a failed history fetch. Recovered locally:
	// the request proceeds with an empty history and documented defaults.
	ErrHistoryUnavailable = errors.New("history store unavailable")

	// ErrScorerUnavailable marks a failed model call. Fatal for the request;
	// a verdict without the model is never fabricated.
	ErrScorerUnavailable = errors.New("anomaly scorer unavailable")

	// ErrPersistence marks a failed history append. Recovered locally:
	// logged and retried in the background, never surfaced to the caller.
	ErrPersistence = errors.New("history append failed")

	// ErrInvalidTimestamp marks a transaction whose timestamp does not
	// resolve to an absolute instant. Input error, never defaulted.
	ErrInvalidTimestamp = errors.New("invalid transaction timestamp")

	// ErrUnorderedHistory marks a history slice that is not ascending by
	// timestamp; every derived feature of the sequence would be invalid.
	ErrUnorderedHistory = errors.New("history not ordered by timestamp")
)
