package scanengine

import (
	"errors"
	"fmt"
)

// ErrInvalidTarget is returned by Scan when ip does not parse as an IPv4 or IPv6 address.
var ErrInvalidTarget = errors.New("scanengine: invalid target")

// UnknownSetError is returned by Scan when one of the requested scanset names is not configured.
// It is raised synchronously, before any probe is attached.
type UnknownSetError struct {
	Name string
}

func (e *UnknownSetError) Error() string {
	return fmt.Sprintf("scanengine: unknown scanset %q", e.Name)
}
