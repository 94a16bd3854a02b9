package engine

import "errors"

var (
	// ErrNotRunning is returned by commands issued while the engine is stopped.
	ErrNotRunning = errors.New("engine: not running")

	// ErrAlreadyRunning is returned by Start on a running engine.
	ErrAlreadyRunning = errors.New("engine: already running")

	// ErrUnknownStrategy is returned for a strategy name other than graph or statechart.
	ErrUnknownStrategy = errors.New("engine: unknown strategy")

	// ErrUnknownSensor is returned for a reading from an unconfigured sensor.
	ErrUnknownSensor = errors.New("engine: unknown sensor")

	// ErrInvalidReading is returned for a non-finite or implausible temperature.
	ErrInvalidReading = errors.New("engine: invalid reading")
)
