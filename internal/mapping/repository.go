// Package mapping provides the component mapping repository: the table
// resolving an IR (type, subtype) pair to the Talend component that
// implements it. The repository is an external collaborator; this package
// ships a static built-in table, a YAML file loader, and a SQL-backed
// implementation.
package mapping

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when no component mapping exists for a pair.
var ErrNotFound = errors.New("no component mapping found")

// Repository resolves IR node types to Talend component names.
type Repository interface {
	// Lookup returns the component name for (irType, irSubtype).
	// ErrNotFound is returned when the pair is unmapped.
	Lookup(ctx context.Context, irType, irSubtype string) (string, error)

	// Close releases any underlying resources.
	Close() error
}

// Key is a (type, subtype) pair.
type Key struct {
	Type    string
	Subtype string
}

func (k Key) String() string {
	return fmt.Sprintf("(%s, %s)", k.Type, k.Subtype)
}

// NotFoundError decorates ErrNotFound with the missing pair.
type NotFoundError struct {
	Key Key
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no component mapping for %s", e.Key)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }
