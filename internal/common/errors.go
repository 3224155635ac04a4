// Package common defines shared constants and sentinel errors used across
// the capture agent. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Store-level errors.
	ErrorNotFound = errors.New("not found")

	// Record validation errors.
	ErrorMissingURL = errors.New("missing or malformed url")

	// Sync-engine errors.
	ErrorDeliveryFailed = errors.New("delivery failed")
)
