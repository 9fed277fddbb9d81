package consumers

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration matches every *ConfigError.
	ErrConfiguration = errors.New("configuration error")

	// ErrDomain matches every *DomainError.
	ErrDomain = errors.New("domain error")

	// ErrNoLayer is returned when sending without a layer.
	ErrNoLayer = errors.New("no channel layer")

	// ErrNoReplyChannel is returned by Invocation.Reply when the message has
	// no reply channel.
	ErrNoReplyChannel = errors.New("message has no reply channel")

	// ErrNoInternalChannel is returned by Invocation.Send when the consumer has
	// no resolved channel name.
	ErrNoInternalChannel = errors.New("consumer has no internal channel")
)

// ConfigError reports a problem found while defining a consumer or building
// its routes. It is never returned while dispatching.
type ConfigError struct {
	Consumer string
	Reason   string
	Err      error
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("consumers: configure %s: %s", e.Consumer, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Is reports whether target is ErrConfiguration.
func (e *ConfigError) Is(target error) bool { return target == ErrConfiguration }

func configErrorf(consumer, format string, args ...any) *ConfigError {
	return &ConfigError{Consumer: consumer, Reason: fmt.Sprintf(format, args...)}
}

// DomainError is an error a handler expects to happen, such as a missing
// resource or denied access. The default error policy turns it into an
// {"error": Message} reply on the message's reply channel.
type DomainError struct {
	Message string
	Err     error
}

func (e *DomainError) Error() string { return e.Message }

func (e *DomainError) Unwrap() error { return e.Err }

// Is reports whether target is ErrDomain.
func (e *DomainError) Is(target error) bool { return target == ErrDomain }

// Fail returns a DomainError with the given message.
func Fail(msg string) error {
	return &DomainError{Message: msg}
}

// Failf returns a DomainError with a formatted message. A %w verb keeps the
// wrapped error reachable through errors.Is and errors.As.
//
//	return consumers.Failf("room %s not found", id)
func Failf(format string, args ...any) error {
	err := fmt.Errorf(format, args...)
	return &DomainError{Message: err.Error(), Err: errors.Unwrap(err)}
}
