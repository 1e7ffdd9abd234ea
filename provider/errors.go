package provider

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupportedCapability is returned when a caller asks for a feature a
	// provider does not advertise. It indicates a caller defect.
	ErrUnsupportedCapability = errors.New("unsupported capability")

	// ErrUnsupportedOperation is returned for optional operations a provider doesn't implement.
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrTransport is wrapped by every network failure.
	ErrTransport = errors.New("transport failure")

	ErrUnknownProvider   = errors.New("unknown provider")
	ErrDuplicateProvider = errors.New("provider already registered")
)

// UnsupportedError names the provider and the feature that was asked for.
type UnsupportedError struct {
	Provider string
	Feature  string
	Kind     error
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, e.Feature)
}

func (e *UnsupportedError) Unwrap() error {
	return e.Kind
}

// Is makes every UnsupportedError match both unsupported sentinels, so callers
// needn't care which of the two a provider used.
func (e *UnsupportedError) Is(target error) bool {
	return target == ErrUnsupportedCapability || target == ErrUnsupportedOperation
}

func unsupported(provider, feature string, kind error) error {
	return &UnsupportedError{Provider: provider, Feature: feature, Kind: kind}
}

// TransportError preserves a failed response of a service.
type TransportError struct {
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *TransportError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Status != 0 {
		fmt.Fprintf(&b, ": server replied with status %d", e.Status)
	}
	if e.Body != "" {
		fmt.Fprintf(&b, ": %s", e.Body)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %s", e.Err)
	}

	return b.String()
}

func (e *TransportError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrTransport}
	}

	return []error{ErrTransport, e.Err}
}
