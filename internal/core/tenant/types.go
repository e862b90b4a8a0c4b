// Package tenant provides multi-tenant resolution for the shared-database
// architecture: every bot (one Telegram bot = one venue) shares one PostgreSQL
// database, and every row carries the bot id.
package tenant

import (
	"time"
)

// DefaultBotID is used when a request carries no X-Bot-ID header.
// Kept for single-venue installations that never configured tenancy.
const DefaultBotID = "default"

// Tenant represents a bot configuration record.
type Tenant struct {
	BotID     string    `db:"bot_id"`   // tenant key, also the Telegram bot identifier
	Name      string    `db:"name"`     // human-readable venue name
	Token     string    `db:"token"`    // bot token (used by the Telegram-facing collaborator, stored here)
	OwnerID   int64     `db:"owner_id"` // Telegram user id of the venue owner
	CreatedAt time.Time `db:"created_at"`
}

// IsDefault reports whether this is the fallback single-venue tenant.
func (t *Tenant) IsDefault() bool {
	return t.BotID == DefaultBotID
}
