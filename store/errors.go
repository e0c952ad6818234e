package store

import (
	"errors"
	"fmt"

	"github.com/tsawler/pdfstore/core"
)

// ErrTraversalLimit is returned, wrapped in a *TraversalError, when a graph
// walk exceeds one of the store's limits.
var ErrTraversalLimit = errors.New("store: traversal limit exceeded")

// TraversalError reports which limit a walk hit and where.
type TraversalError struct {
	Ref   core.Reference // object being walked; zero for store-wide limits
	What  string         // "value nodes" or "objects"
	Limit int
}

func (e *TraversalError) Error() string {
	if e.Ref.IsZero() {
		return fmt.Sprintf("%v: more than %d %s", ErrTraversalLimit, e.Limit, e.What)
	}
	return fmt.Sprintf("%v: object %v has more than %d %s", ErrTraversalLimit, e.Ref, e.Limit, e.What)
}

func (e *TraversalError) Unwrap() error {
	return ErrTraversalLimit
}
