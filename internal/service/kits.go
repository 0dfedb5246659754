package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"openkits-api/internal/cache"
	"openkits-api/internal/item"
	"openkits-api/internal/model"
	"openkits-api/internal/repository"

	"github.com/google/uuid"
)

// KitService is the cached repository facade: every read checks the
// in-memory indexes first, every mutation writes the backing store and then
// updates or invalidates the affected cache entry in the same call.
//
// Failures degrade, they never crash: errors are logged and callers receive
// nil, empty or zero results ("kit system temporarily unavailable"). Retry is
// the caller's responsibility.
type KitService struct {
	store       repository.Store
	kits        *cache.KitCache
	cooldowns   cache.Cache
	cooldownTTL time.Duration
}

// NewKitService creates the facade. kits indexes kits by id; cooldowns holds
// the per-player cooldown lists as JSON values with the given TTL.
func NewKitService(store repository.Store, kits *cache.KitCache, cooldowns cache.Cache, cooldownTTL time.Duration) *KitService {
	return &KitService{
		store:       store,
		kits:        kits,
		cooldowns:   cooldowns,
		cooldownTTL: cooldownTTL,
	}
}

func cooldownKey(playerID uuid.UUID) string {
	return "cooldowns:" + playerID.String()
}

// CreateKit encodes the items, inserts the kit and populates the cache.
// Returns the new kit id, or 0 on failure.
func (s *KitService) CreateKit(ctx context.Context, name, icon string, price float64, requirePermission bool, permission string, cooldownSeconds int64, oneTime, enable bool, items []item.Stack) int64 {
	payload, err := item.Encode(items)
	if err != nil {
		log.Printf("[KitService] Failed to encode items for kit %q: %v", name, err)
		return 0
	}

	kit := &model.Kit{
		Name:              name,
		Icon:              icon,
		Price:             price,
		RequirePermission: requirePermission,
		Permission:        permission,
		Cooldown:          cooldownSeconds,
		IsOneTime:         oneTime,
		Enable:            enable,
		Items:             payload,
	}

	id, err := s.store.CreateKit(ctx, kit)
	if err != nil {
		log.Printf("[KitService] Failed to create kit %q: %v", name, err)
		return 0
	}

	kit.ID = id
	s.kits.Put(kit)
	return id
}

// FindKit returns the kit with the given id, or nil when absent or the
// backend is unavailable. Misses are not cached.
func (s *KitService) FindKit(ctx context.Context, id int64) *model.Kit {
	if kit := s.kits.Get(id); kit != nil {
		return kit
	}

	kit, err := s.store.FindKitByID(ctx, id)
	if err != nil {
		log.Printf("[KitService] Failed to find kit %d: %v", id, err)
		return nil
	}
	if kit == nil {
		return nil
	}

	s.kits.Put(kit)
	return kit
}

// FindKitByName returns the first kit whose name contains the given text,
// case-insensitively, preferring the lowest id. Cached entries are scanned
// first; a miss falls through to the store.
func (s *KitService) FindKitByName(ctx context.Context, name string) *model.Kit {
	if kit := s.kits.GetByName(name); kit != nil {
		return kit
	}

	kit, err := s.store.FindKitByName(ctx, name)
	if err != nil {
		log.Printf("[KitService] Failed to find kit %q: %v", name, err)
		return nil
	}
	if kit == nil {
		return nil
	}

	s.kits.Put(kit)
	return kit
}

// ListKits returns all kits. A warm cache serves the whole list; otherwise
// the store is read and the cache repopulated.
func (s *KitService) ListKits(ctx context.Context) []model.Kit {
	if s.kits.Len() > 0 {
		return s.kits.Values()
	}

	kits, err := s.store.ListKits(ctx)
	if err != nil {
		log.Printf("[KitService] Failed to list kits: %v", err)
		return nil
	}

	for i := range kits {
		s.kits.Put(&kits[i])
	}
	return kits
}

// updateKit runs the store mutation and, on success, applies the same change
// to the cached entry so readers in this process observe it immediately.
func (s *KitService) updateKit(id int64, err error, what string, apply func(*model.Kit)) bool {
	if err != nil {
		log.Printf("[KitService] Failed to update %s of kit %d: %v", what, id, err)
		return false
	}
	s.kits.Mutate(id, apply)
	return true
}

func (s *KitService) UpdateKitName(ctx context.Context, id int64, name string) bool {
	return s.updateKit(id, s.store.UpdateKitName(ctx, id, name), "name",
		func(k *model.Kit) { k.Name = name })
}

func (s *KitService) UpdateKitPermission(ctx context.Context, id int64, require bool, permission string) bool {
	return s.updateKit(id, s.store.UpdateKitPermission(ctx, id, require, permission), "permission",
		func(k *model.Kit) {
			k.RequirePermission = require
			k.Permission = permission
		})
}

// UpdateKitItems re-encodes the item sequence and replaces the kit's payload.
func (s *KitService) UpdateKitItems(ctx context.Context, id int64, items []item.Stack) bool {
	payload, err := item.Encode(items)
	if err != nil {
		log.Printf("[KitService] Failed to encode items for kit %d: %v", id, err)
		return false
	}
	return s.updateKit(id, s.store.UpdateKitItems(ctx, id, payload), "items",
		func(k *model.Kit) { k.Items = payload })
}

func (s *KitService) UpdateKitPrice(ctx context.Context, id int64, price float64) bool {
	return s.updateKit(id, s.store.UpdateKitPrice(ctx, id, price), "price",
		func(k *model.Kit) { k.Price = price })
}

func (s *KitService) UpdateKitCooldown(ctx context.Context, id int64, cooldownSeconds int64) bool {
	return s.updateKit(id, s.store.UpdateKitCooldown(ctx, id, cooldownSeconds), "cooldown",
		func(k *model.Kit) { k.Cooldown = cooldownSeconds })
}

func (s *KitService) UpdateKitEnabled(ctx context.Context, id int64, enable bool) bool {
	return s.updateKit(id, s.store.UpdateKitEnabled(ctx, id, enable), "enabled flag",
		func(k *model.Kit) { k.Enable = enable })
}

func (s *KitService) UpdateKitIcon(ctx context.Context, id int64, icon string) bool {
	return s.updateKit(id, s.store.UpdateKitIcon(ctx, id, icon), "icon",
		func(k *model.Kit) { k.Icon = icon })
}

func (s *KitService) UpdateKitOneTime(ctx context.Context, id int64, oneTime bool) bool {
	return s.updateKit(id, s.store.UpdateKitOneTime(ctx, id, oneTime), "one-time flag",
		func(k *model.Kit) { k.IsOneTime = oneTime })
}

// RemoveKit deletes the kit with its cooldown rows and invalidates both
// indexes.
func (s *KitService) RemoveKit(ctx context.Context, id int64) bool {
	if err := s.store.RemoveKit(ctx, id); err != nil {
		log.Printf("[KitService] Failed to remove kit %d: %v", id, err)
		return false
	}

	s.kits.Invalidate(id)
	// Cooldown rows went with the kit; cached per-player lists cannot be
	// enumerated by kit, so drop them wholesale.
	if err := s.cooldowns.Clear(ctx); err != nil {
		log.Printf("[KitService] Failed to clear cooldown cache: %v", err)
	}
	return true
}

// ListCooldowns returns all cooldown rows for a player, serving from the
// cache when warm.
func (s *KitService) ListCooldowns(ctx context.Context, playerID uuid.UUID) []model.KitCooldown {
	key := cooldownKey(playerID)

	if data, err := s.cooldowns.Get(ctx, key); err == nil {
		var cooldowns []model.KitCooldown
		if err := json.Unmarshal(data, &cooldowns); err == nil {
			return cooldowns
		}
		log.Printf("[KitService] Corrupt cooldown cache entry for %s, reloading", playerID)
	}

	cooldowns, err := s.store.ListCooldowns(ctx, playerID)
	if err != nil {
		log.Printf("[KitService] Failed to list cooldowns for %s: %v", playerID, err)
		return nil
	}

	s.storeCooldownList(ctx, playerID, cooldowns)
	return cooldowns
}

// FindCooldown returns the cooldown row for (player, kit), or nil when the
// player never redeemed the kit or the row was cleared. Judging whether the
// cooldown is still active is the caller's job.
func (s *KitService) FindCooldown(ctx context.Context, playerID uuid.UUID, kitID int64) *model.KitCooldown {
	cooldowns := s.ListCooldowns(ctx, playerID)
	for i := range cooldowns {
		if cooldowns[i].KitID == kitID {
			return &cooldowns[i]
		}
	}
	return nil
}

// AddCooldown records a redemption expiry. The ledger accepts duplicate
// (player, kit) rows; callers that want one row per pair must use
// UpdateCooldown for subsequent redemptions.
func (s *KitService) AddCooldown(ctx context.Context, playerID uuid.UUID, kitID int64, end time.Time) bool {
	if err := s.store.AddCooldown(ctx, playerID, kitID, end); err != nil {
		log.Printf("[KitService] Failed to add cooldown for %s kit %d: %v", playerID, kitID, err)
		return false
	}

	// The store keeps second precision, so the cached copy must match what a
	// cold reload would scan back.
	s.mutateCooldownList(ctx, playerID, func(cooldowns []model.KitCooldown) []model.KitCooldown {
		return append(cooldowns, model.KitCooldown{PlayerID: playerID, KitID: kitID, End: end.UTC().Truncate(time.Second)})
	})
	return true
}

// UpdateCooldown rewrites the expiry of every (player, kit) row.
func (s *KitService) UpdateCooldown(ctx context.Context, playerID uuid.UUID, kitID int64, end time.Time) bool {
	if err := s.store.UpdateCooldown(ctx, playerID, kitID, end); err != nil {
		log.Printf("[KitService] Failed to update cooldown for %s kit %d: %v", playerID, kitID, err)
		return false
	}

	s.mutateCooldownList(ctx, playerID, func(cooldowns []model.KitCooldown) []model.KitCooldown {
		for i := range cooldowns {
			if cooldowns[i].KitID == kitID {
				cooldowns[i].End = end.UTC().Truncate(time.Second)
			}
		}
		return cooldowns
	})
	return true
}

// RemoveCooldown deletes the (player, kit) rows.
func (s *KitService) RemoveCooldown(ctx context.Context, playerID uuid.UUID, kitID int64) bool {
	if err := s.store.RemoveCooldown(ctx, playerID, kitID); err != nil {
		log.Printf("[KitService] Failed to remove cooldown for %s kit %d: %v", playerID, kitID, err)
		return false
	}

	s.mutateCooldownList(ctx, playerID, func(cooldowns []model.KitCooldown) []model.KitCooldown {
		kept := cooldowns[:0]
		for _, c := range cooldowns {
			if c.KitID != kitID {
				kept = append(kept, c)
			}
		}
		return kept
	})
	return true
}

// RemoveCooldownsForPlayer deletes all of a player's cooldown rows.
func (s *KitService) RemoveCooldownsForPlayer(ctx context.Context, playerID uuid.UUID) bool {
	if err := s.store.RemoveCooldownsForPlayer(ctx, playerID); err != nil {
		log.Printf("[KitService] Failed to remove cooldowns for %s: %v", playerID, err)
		return false
	}

	if err := s.cooldowns.Delete(ctx, cooldownKey(playerID)); err != nil {
		log.Printf("[KitService] Failed to invalidate cooldown cache for %s: %v", playerID, err)
	}
	return true
}

// RemoveCooldownsForKit deletes every player's rows for one kit.
func (s *KitService) RemoveCooldownsForKit(ctx context.Context, kitID int64) bool {
	if err := s.store.RemoveCooldownsForKit(ctx, kitID); err != nil {
		log.Printf("[KitService] Failed to remove cooldowns for kit %d: %v", kitID, err)
		return false
	}

	// Per-player cache keys cannot be enumerated by kit; drop them all.
	if err := s.cooldowns.Clear(ctx); err != nil {
		log.Printf("[KitService] Failed to clear cooldown cache: %v", err)
	}
	return true
}

// storeCooldownList caches a player's cooldown list.
func (s *KitService) storeCooldownList(ctx context.Context, playerID uuid.UUID, cooldowns []model.KitCooldown) {
	data, err := json.Marshal(cooldowns)
	if err != nil {
		log.Printf("[KitService] Failed to marshal cooldowns for %s: %v", playerID, err)
		return
	}
	if err := s.cooldowns.Set(ctx, cooldownKey(playerID), data, s.cooldownTTL); err != nil {
		log.Printf("[KitService] Failed to cache cooldowns for %s: %v", playerID, err)
	}
}

// mutateCooldownList rewrites a warm cache entry in place. On a cold entry
// the key is invalidated instead, so the next read reloads a complete list
// from the store rather than trusting a partial one.
func (s *KitService) mutateCooldownList(ctx context.Context, playerID uuid.UUID, fn func([]model.KitCooldown) []model.KitCooldown) {
	key := cooldownKey(playerID)

	data, err := s.cooldowns.Get(ctx, key)
	if err != nil {
		if delErr := s.cooldowns.Delete(ctx, key); delErr != nil {
			log.Printf("[KitService] Failed to invalidate cooldown cache for %s: %v", playerID, delErr)
		}
		return
	}

	var cooldowns []model.KitCooldown
	if err := json.Unmarshal(data, &cooldowns); err != nil {
		if delErr := s.cooldowns.Delete(ctx, key); delErr != nil {
			log.Printf("[KitService] Failed to invalidate cooldown cache for %s: %v", playerID, delErr)
		}
		return
	}

	s.storeCooldownList(ctx, playerID, fn(cooldowns))
}
