package tenant

import "errors"

var (
	// ErrTenantNotFound is returned when the bot id has no configuration record.
	ErrTenantNotFound = errors.New("tenant not found")
)
