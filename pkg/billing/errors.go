package billing

import (
	"errors"
	"fmt"
)

// ProviderError wraps any failure of a billing provider RPC. Callers must
// never treat a provider failure as proof that the remote state changed;
// batch jobs record it per row and continue, command handlers log it and
// still apply the local state change where the contract demands it.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("billing provider %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsProviderError reports whether err is (or wraps) a ProviderError.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}
