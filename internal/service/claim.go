package service

import (
	"context"
	"log"
	"time"

	"openkits-api/internal/model"

	"github.com/google/uuid"
)

// ClaimDecision is the outcome of a redemption eligibility check.
type ClaimDecision string

const (
	ClaimAllowed        ClaimDecision = "allowed"
	ClaimDisabled       ClaimDecision = "disabled"
	ClaimNoPermission   ClaimDecision = "no_permission"
	ClaimOnCooldown     ClaimDecision = "on_cooldown"
	ClaimAlreadyClaimed ClaimDecision = "already_claimed"
	ClaimTooExpensive   ClaimDecision = "insufficient_funds"
)

// CheckClaim decides whether a player may redeem a kit right now. Checks run
// in order: enabled flag, permission, cooldown or one-time claim, price.
// hasPermission may be nil when the caller cannot resolve permissions, in
// which case permission-gated kits are refused.
func (s *KitService) CheckClaim(ctx context.Context, kit *model.Kit, playerID uuid.UUID, hasPermission func(node string) bool, balance float64) ClaimDecision {
	if kit == nil || !kit.Enable {
		return ClaimDisabled
	}

	if kit.RequirePermission {
		if hasPermission == nil || !hasPermission(kit.Permission) {
			return ClaimNoPermission
		}
	}

	if cooldown := s.FindCooldown(ctx, playerID, kit.ID); cooldown != nil {
		if kit.IsOneTime {
			return ClaimAlreadyClaimed
		}
		if cooldown.ActiveAt(time.Now()) {
			return ClaimOnCooldown
		}
	}

	if kit.Price > 0 && balance < kit.Price {
		return ClaimTooExpensive
	}

	return ClaimAllowed
}

// ClaimKit runs the eligibility check, delivers the kit's items to the sink
// and records the redemption in the cooldown ledger. One-time kits get a row
// regardless of their cooldown so the claim is remembered; kits with neither
// a cooldown nor the one-time flag leave no row behind.
func (s *KitService) ClaimKit(ctx context.Context, kit *model.Kit, playerID uuid.UUID, hasPermission func(node string) bool, balance float64, sink model.ItemSink) ClaimDecision {
	decision := s.CheckClaim(ctx, kit, playerID, hasPermission, balance)
	if decision != ClaimAllowed {
		return decision
	}

	if !kit.Give(sink) {
		log.Printf("[KitService] Delivered kit %d to %s with dropped items", kit.ID, playerID)
	}

	if kit.Cooldown > 0 || kit.IsOneTime {
		end := time.Now().Add(time.Duration(kit.Cooldown) * time.Second)
		if s.FindCooldown(ctx, playerID, kit.ID) != nil {
			s.UpdateCooldown(ctx, playerID, kit.ID, end)
		} else {
			s.AddCooldown(ctx, playerID, kit.ID, end)
		}
	}

	return ClaimAllowed
}
