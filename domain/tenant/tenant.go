// Package tenant provides tenant identity rules shared by every tenant-scoped operation.
package tenant

import (
	"errors"
	"strings"
)

// ErrTenantRequired is returned when a caller does not resolve a tenant.
// There is no default tenant; callers must surface this as a client error.
var ErrTenantRequired = errors.New("tenant id is required")

// Require trims and validates a tenant identifier.
func Require(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrTenantRequired
	}
	return id, nil
}
