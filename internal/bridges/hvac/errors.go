package hvac

import "errors"

// Domain-specific errors for the HVAC bridge.
var (
	// ErrUnknownEntity is returned for an entity ID not in the settings.
	ErrUnknownEntity = errors.New("hvac: unknown entity")

	// ErrNoState is returned when an entity has not reported yet.
	ErrNoState = errors.New("hvac: no state reported")

	// ErrInvalidPayload is returned when a state message cannot be decoded.
	ErrInvalidPayload = errors.New("hvac: invalid payload")

	// ErrMissingField is returned when a state message lacks the sensor field.
	ErrMissingField = errors.New("hvac: field missing from state")

	// ErrAlreadyStarted is returned by Start on a running listener.
	ErrAlreadyStarted = errors.New("hvac: already started")

	// ErrNotSubscribed is returned when unsubscribing a topic the owner
	// never subscribed to.
	ErrNotSubscribed = errors.New("hvac: not subscribed")
)
