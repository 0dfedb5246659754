package model

import (
	"time"

	"github.com/google/uuid"
)

// KitCooldown is one row of the cooldown ledger: the expiry instant of a
// (player, kit) redemption. The ledger stores raw instants only; whether a
// cooldown is currently active is the caller's judgement.
type KitCooldown struct {
	PlayerID uuid.UUID `json:"player_id"`
	KitID    int64     `json:"kit_id"`
	End      time.Time `json:"end"`
}

// ActiveAt reports whether the cooldown has not yet lapsed at the given
// instant.
func (c *KitCooldown) ActiveAt(now time.Time) bool {
	return c.End.After(now)
}
