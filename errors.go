package privilege

import (
	"errors"
	"fmt"
)

// ErrUnsupportedOperation marks a (method, category, item) combination with no
// entry in the scope rule table. This is not a denial: the request itself is
// not a recognized operation, and the API layer should surface it as a
// different error class than NO_PRIV.
var ErrUnsupportedOperation = errors.New("operation not supported")

func unsupportedOperation(method Method, category, item string) error {
	if item == "" {
		return fmt.Errorf("%w: %s %s", ErrUnsupportedOperation, method, category)
	}
	return fmt.Errorf("%w: %s %s %s", ErrUnsupportedOperation, method, category, item)
}

// LookupError wraps a failed entity-ownership lookup. Evaluation fails closed
// by returning it up the call chain; it is never coerced into an allow or a
// deny.
type LookupError struct {
	Entity string
	ID     string
	Err    error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup owner of %s %q: %v", e.Entity, e.ID, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }
