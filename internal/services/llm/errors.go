package llm

import (
	"errors"
	"fmt"
)

// ErrNoProviders indicates the router has no registered backends at all.
var ErrNoProviders = errors.New("no providers registered")

// InvocationError wraps a backend failure (network, auth, backend-imposed
// timeout). The router never retries; retry policy belongs to the caller.
type InvocationError struct {
	ProviderKey string
	Err         error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("provider %q invocation failed: %v", e.ProviderKey, e.Err)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

// IsInvocationError reports whether err is a provider invocation failure.
func IsInvocationError(err error) bool {
	var ie *InvocationError
	return errors.As(err, &ie)
}
