package tenant

import (
	"context"
	"errors"
)

// Context keys for tenant-related values.
type ctxKey int

const (
	tenantKey ctxKey = iota
)

// ErrNoTenantInContext is returned when a tenant is required but absent.
var ErrNoTenantInContext = errors.New("tenant not found in context")

// WithTenant stores tenant info in context.
func WithTenant(ctx context.Context, t *Tenant) context.Context {
	return context.WithValue(ctx, tenantKey, t)
}

// GetTenant retrieves tenant from context.
func GetTenant(ctx context.Context) *Tenant {
	t, _ := ctx.Value(tenantKey).(*Tenant)
	return t
}

// GetBotID returns the bot id from context, falling back to DefaultBotID.
// Repositories use this to scope every query.
func GetBotID(ctx context.Context) string {
	if t := GetTenant(ctx); t != nil {
		return t.BotID
	}
	return DefaultBotID
}

// MustGetTenant retrieves tenant or panics.
// Use in places where missing tenant is a programming error (behind middleware).
func MustGetTenant(ctx context.Context) *Tenant {
	t := GetTenant(ctx)
	if t == nil {
		panic("tenant not in context")
	}
	return t
}
