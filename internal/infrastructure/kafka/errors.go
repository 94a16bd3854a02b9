package kafka

import "errors"

var (
	// ErrDisabled is returned by NewPublisher when kafka.enabled is false.
	ErrDisabled      = errors.New("kafka: disabled in configuration")
	ErrInvalidConfig = errors.New("kafka: invalid configuration")
	ErrPublishFailed = errors.New("kafka: publish failed")
	ErrClosed        = errors.New("kafka: publisher closed")
)
