package middleware

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"chefdeck/internal/core/apperror"
	"chefdeck/internal/core/tenant"
	"chefdeck/pkg/logger"
)

const (
	// TenantHeader carries the bot id that scopes every request.
	TenantHeader = "X-Bot-ID"
)

// TenantResolver looks up bot configurations.
type TenantResolver interface {
	GetByBotID(ctx context.Context, botID string) (*tenant.Tenant, error)
}

// Tenant middleware resolves the bot id from the header and injects the
// tenant into context. A missing header falls back to the default tenant so
// single-venue installs work with zero configuration; an unknown bot id is a
// hard 404.
//
// Configs change rarely (a venue is registered once), so lookups are cached
// in-process with a TTL instead of hitting the database per request.
func Tenant(resolver TenantResolver, cacheTTL time.Duration) gin.HandlerFunc {
	cache := &tenantCache{
		entries: make(map[string]tenantCacheEntry),
		ttl:     cacheTTL,
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()

		botID := c.GetHeader(TenantHeader)
		if botID == "" {
			botID = tenant.DefaultBotID
		}

		t, ok := cache.get(botID)
		if !ok {
			var err error
			t, err = resolver.GetByBotID(ctx, botID)
			if err != nil {
				if errors.Is(err, tenant.ErrTenantNotFound) {
					_ = c.Error(apperror.NewNotFound("tenant", botID))
				} else {
					logger.Warn(ctx, "tenant resolution failed", "bot_id", botID, "error", err)
					_ = c.Error(apperror.NewInternal(err).WithDetail("bot_id", botID))
				}
				c.Abort()
				return
			}
			cache.put(botID, t)
		}

		ctx = tenant.WithTenant(ctx, t)
		c.Request = c.Request.WithContext(ctx)
		c.Set("bot_id", t.BotID)

		c.Next()
	}
}

type tenantCacheEntry struct {
	tenant  *tenant.Tenant
	expires time.Time
}

type tenantCache struct {
	mu      sync.RWMutex
	entries map[string]tenantCacheEntry
	ttl     time.Duration
}

func (tc *tenantCache) get(botID string) (*tenant.Tenant, bool) {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	e, ok := tc.entries[botID]
	if !ok || time.Now().After(e.expires) {
		return nil, false
	}
	return e.tenant, true
}

func (tc *tenantCache) put(botID string, t *tenant.Tenant) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.entries[botID] = tenantCacheEntry{tenant: t, expires: time.Now().Add(tc.ttl)}
}
