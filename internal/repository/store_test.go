package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"openkits-api/internal/model"

	"github.com/google/uuid"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "kits.db"), "openkits")
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testKit(name string) *model.Kit {
	return &model.Kit{
		Name:              name,
		Icon:              "CHEST",
		Price:             49.99,
		RequirePermission: true,
		Permission:        "openkits.kit." + name,
		Cooldown:          3600,
		IsOneTime:         false,
		Enable:            true,
		Items:             []byte(`[{"material":"STONE","amount":1}]`),
	}
}

// testEnd returns an expiry instant with the precision the ledger persists.
func testEnd(offset time.Duration) time.Time {
	return time.Now().Add(offset).UTC().Truncate(time.Second)
}

// runStoreSuite exercises the full Store contract. Both backends must pass
// it unchanged.
func runStoreSuite(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("SchemaIsIdempotent", func(t *testing.T) {
		if err := store.CheckSchema(ctx); err != nil {
			t.Fatalf("first CheckSchema failed: %v", err)
		}
		if err := store.CheckSchema(ctx); err != nil {
			t.Fatalf("repeated CheckSchema failed: %v", err)
		}
	})

	t.Run("KitLifecycle", func(t *testing.T) {
		kit := testKit("warrior")
		id, err := store.CreateKit(ctx, kit)
		if err != nil {
			t.Fatalf("CreateKit failed: %v", err)
		}
		if id <= 0 {
			t.Fatalf("CreateKit returned id %d", id)
		}

		found, err := store.FindKitByID(ctx, id)
		if err != nil {
			t.Fatalf("FindKitByID failed: %v", err)
		}
		if found == nil {
			t.Fatal("FindKitByID returned nil for existing kit")
		}
		if found.Name != kit.Name || found.Icon != kit.Icon || found.Price != kit.Price ||
			found.RequirePermission != kit.RequirePermission || found.Permission != kit.Permission ||
			found.Cooldown != kit.Cooldown || found.IsOneTime != kit.IsOneTime || found.Enable != kit.Enable {
			t.Errorf("stored kit = %+v, want fields of %+v", found, kit)
		}
		if string(found.Items) != string(kit.Items) {
			t.Errorf("stored items = %s, want %s", found.Items, kit.Items)
		}

		missing, err := store.FindKitByID(ctx, id+1000)
		if err != nil || missing != nil {
			t.Errorf("FindKitByID for absent id = (%v, %v), want (nil, nil)", missing, err)
		}

		if err := store.RemoveKit(ctx, id); err != nil {
			t.Fatalf("RemoveKit failed: %v", err)
		}
		gone, err := store.FindKitByID(ctx, id)
		if err != nil || gone != nil {
			t.Errorf("kit still present after removal: (%v, %v)", gone, err)
		}
	})

	t.Run("FindKitByNameSubstring", func(t *testing.T) {
		firstID, err := store.CreateKit(ctx, testKit("Starter"))
		if err != nil {
			t.Fatalf("CreateKit failed: %v", err)
		}
		secondID, err := store.CreateKit(ctx, testKit("StarterPro"))
		if err != nil {
			t.Fatalf("CreateKit failed: %v", err)
		}
		defer store.RemoveKit(ctx, firstID)
		defer store.RemoveKit(ctx, secondID)

		// Case-insensitive substring match, lowest id wins.
		for _, query := range []string{"Starter", "starter", "TART", "StarterP"} {
			found, err := store.FindKitByName(ctx, query)
			if err != nil {
				t.Fatalf("FindKitByName(%q) failed: %v", query, err)
			}
			if found == nil {
				t.Fatalf("FindKitByName(%q) returned nil", query)
			}
			wantID := firstID
			if query == "StarterP" {
				wantID = secondID
			}
			if found.ID != wantID {
				t.Errorf("FindKitByName(%q) = kit %d, want %d", query, found.ID, wantID)
			}
		}

		missing, err := store.FindKitByName(ctx, "nosuchkit")
		if err != nil || missing != nil {
			t.Errorf("FindKitByName for absent name = (%v, %v), want (nil, nil)", missing, err)
		}
	})

	t.Run("ListKitsOrderedByID", func(t *testing.T) {
		var ids []int64
		for _, name := range []string{"alpha", "beta", "gamma"} {
			id, err := store.CreateKit(ctx, testKit(name))
			if err != nil {
				t.Fatalf("CreateKit failed: %v", err)
			}
			ids = append(ids, id)
		}
		defer func() {
			for _, id := range ids {
				store.RemoveKit(ctx, id)
			}
		}()

		kits, err := store.ListKits(ctx)
		if err != nil {
			t.Fatalf("ListKits failed: %v", err)
		}
		if len(kits) < 3 {
			t.Fatalf("ListKits returned %d kits, want at least 3", len(kits))
		}
		for i := 1; i < len(kits); i++ {
			if kits[i].ID <= kits[i-1].ID {
				t.Errorf("kits not ordered by id: %d after %d", kits[i].ID, kits[i-1].ID)
			}
		}
	})

	t.Run("FieldUpdates", func(t *testing.T) {
		id, err := store.CreateKit(ctx, testKit("mutable"))
		if err != nil {
			t.Fatalf("CreateKit failed: %v", err)
		}
		defer store.RemoveKit(ctx, id)

		if err := store.UpdateKitName(ctx, id, "renamed"); err != nil {
			t.Fatalf("UpdateKitName failed: %v", err)
		}
		if err := store.UpdateKitPermission(ctx, id, false, ""); err != nil {
			t.Fatalf("UpdateKitPermission failed: %v", err)
		}
		if err := store.UpdateKitItems(ctx, id, []byte(`[{"material":"DIRT","amount":2}]`)); err != nil {
			t.Fatalf("UpdateKitItems failed: %v", err)
		}
		if err := store.UpdateKitPrice(ctx, id, 0); err != nil {
			t.Fatalf("UpdateKitPrice failed: %v", err)
		}
		if err := store.UpdateKitCooldown(ctx, id, 60); err != nil {
			t.Fatalf("UpdateKitCooldown failed: %v", err)
		}
		if err := store.UpdateKitEnabled(ctx, id, false); err != nil {
			t.Fatalf("UpdateKitEnabled failed: %v", err)
		}
		if err := store.UpdateKitIcon(ctx, id, "BARRIER"); err != nil {
			t.Fatalf("UpdateKitIcon failed: %v", err)
		}
		if err := store.UpdateKitOneTime(ctx, id, true); err != nil {
			t.Fatalf("UpdateKitOneTime failed: %v", err)
		}

		kit, err := store.FindKitByID(ctx, id)
		if err != nil || kit == nil {
			t.Fatalf("FindKitByID after updates = (%v, %v)", kit, err)
		}
		if kit.Name != "renamed" || kit.RequirePermission || kit.Permission != "" ||
			kit.Price != 0 || kit.Cooldown != 60 || kit.Enable || kit.Icon != "BARRIER" || !kit.IsOneTime {
			t.Errorf("updates not applied: %+v", kit)
		}
		if string(kit.Items) != `[{"material":"DIRT","amount":2}]` {
			t.Errorf("items update not applied: %s", kit.Items)
		}

		// Updating an absent kit is not an error, it just affects no rows.
		if err := store.UpdateKitName(ctx, id+1000, "ghost"); err != nil {
			t.Errorf("update of absent kit returned error: %v", err)
		}
	})

	t.Run("CooldownLifecycle", func(t *testing.T) {
		kitID, err := store.CreateKit(ctx, testKit("cooled"))
		if err != nil {
			t.Fatalf("CreateKit failed: %v", err)
		}
		defer store.RemoveKit(ctx, kitID)

		player := uuid.New()
		end := testEnd(time.Hour)

		if err := store.AddCooldown(ctx, player, kitID, end); err != nil {
			t.Fatalf("AddCooldown failed: %v", err)
		}

		found, err := store.FindCooldown(ctx, player, kitID)
		if err != nil {
			t.Fatalf("FindCooldown failed: %v", err)
		}
		if found == nil {
			t.Fatal("FindCooldown returned nil for existing row")
		}
		if found.PlayerID != player || found.KitID != kitID || !found.End.Equal(end) {
			t.Errorf("cooldown = %+v, want player %s kit %d end %v", found, player, kitID, end)
		}

		newEnd := testEnd(2 * time.Hour)
		if err := store.UpdateCooldown(ctx, player, kitID, newEnd); err != nil {
			t.Fatalf("UpdateCooldown failed: %v", err)
		}
		found, err = store.FindCooldown(ctx, player, kitID)
		if err != nil || found == nil {
			t.Fatalf("FindCooldown after update = (%v, %v)", found, err)
		}
		if !found.End.Equal(newEnd) {
			t.Errorf("end after update = %v, want %v", found.End, newEnd)
		}

		if err := store.RemoveCooldown(ctx, player, kitID); err != nil {
			t.Fatalf("RemoveCooldown failed: %v", err)
		}
		gone, err := store.FindCooldown(ctx, player, kitID)
		if err != nil || gone != nil {
			t.Errorf("cooldown still present after removal: (%v, %v)", gone, err)
		}
	})

	t.Run("DuplicateCooldownRows", func(t *testing.T) {
		kitID, err := store.CreateKit(ctx, testKit("dupes"))
		if err != nil {
			t.Fatalf("CreateKit failed: %v", err)
		}
		defer store.RemoveKit(ctx, kitID)

		player := uuid.New()
		first := testEnd(time.Hour)
		second := testEnd(2 * time.Hour)

		// No uniqueness constraint: two adds create two rows.
		if err := store.AddCooldown(ctx, player, kitID, first); err != nil {
			t.Fatalf("AddCooldown failed: %v", err)
		}
		if err := store.AddCooldown(ctx, player, kitID, second); err != nil {
			t.Fatalf("second AddCooldown failed: %v", err)
		}

		rows, err := store.ListCooldowns(ctx, player)
		if err != nil {
			t.Fatalf("ListCooldowns failed: %v", err)
		}
		if len(rows) != 2 {
			t.Fatalf("expected 2 duplicate rows, got %d", len(rows))
		}

		// FindCooldown returns exactly one of the duplicates.
		found, err := store.FindCooldown(ctx, player, kitID)
		if err != nil || found == nil {
			t.Fatalf("FindCooldown = (%v, %v)", found, err)
		}
		if !found.End.Equal(first) && !found.End.Equal(second) {
			t.Errorf("FindCooldown end = %v, want one of %v, %v", found.End, first, second)
		}

		// Update rewrites every duplicate.
		updated := testEnd(3 * time.Hour)
		if err := store.UpdateCooldown(ctx, player, kitID, updated); err != nil {
			t.Fatalf("UpdateCooldown failed: %v", err)
		}
		rows, err = store.ListCooldowns(ctx, player)
		if err != nil {
			t.Fatalf("ListCooldowns failed: %v", err)
		}
		for _, row := range rows {
			if !row.End.Equal(updated) {
				t.Errorf("duplicate row end = %v, want %v", row.End, updated)
			}
		}

		// Remove deletes every duplicate at once.
		if err := store.RemoveCooldown(ctx, player, kitID); err != nil {
			t.Fatalf("RemoveCooldown failed: %v", err)
		}
		rows, err = store.ListCooldowns(ctx, player)
		if err != nil || len(rows) != 0 {
			t.Errorf("rows after removal = (%v, %v), want none", rows, err)
		}
	})

	t.Run("RemoveCooldownsForPlayerAndKit", func(t *testing.T) {
		kitA, err := store.CreateKit(ctx, testKit("ledgerA"))
		if err != nil {
			t.Fatalf("CreateKit failed: %v", err)
		}
		kitB, err := store.CreateKit(ctx, testKit("ledgerB"))
		if err != nil {
			t.Fatalf("CreateKit failed: %v", err)
		}
		defer store.RemoveKit(ctx, kitA)
		defer store.RemoveKit(ctx, kitB)

		alice := uuid.New()
		bob := uuid.New()
		end := testEnd(time.Hour)
		for _, c := range []struct {
			player uuid.UUID
			kit    int64
		}{{alice, kitA}, {alice, kitB}, {bob, kitA}} {
			if err := store.AddCooldown(ctx, c.player, c.kit, end); err != nil {
				t.Fatalf("AddCooldown failed: %v", err)
			}
		}

		if err := store.RemoveCooldownsForPlayer(ctx, alice); err != nil {
			t.Fatalf("RemoveCooldownsForPlayer failed: %v", err)
		}
		rows, err := store.ListCooldowns(ctx, alice)
		if err != nil || len(rows) != 0 {
			t.Errorf("alice rows = (%v, %v), want none", rows, err)
		}
		rows, err = store.ListCooldowns(ctx, bob)
		if err != nil || len(rows) != 1 {
			t.Fatalf("bob rows = (%v, %v), want 1", rows, err)
		}

		if err := store.RemoveCooldownsForKit(ctx, kitA); err != nil {
			t.Fatalf("RemoveCooldownsForKit failed: %v", err)
		}
		rows, err = store.ListCooldowns(ctx, bob)
		if err != nil || len(rows) != 0 {
			t.Errorf("bob rows after kit removal = (%v, %v), want none", rows, err)
		}
	})

	t.Run("RemoveKitCascadesCooldowns", func(t *testing.T) {
		kitID, err := store.CreateKit(ctx, testKit("cascade"))
		if err != nil {
			t.Fatalf("CreateKit failed: %v", err)
		}

		player := uuid.New()
		if err := store.AddCooldown(ctx, player, kitID, testEnd(time.Hour)); err != nil {
			t.Fatalf("AddCooldown failed: %v", err)
		}

		if err := store.RemoveKit(ctx, kitID); err != nil {
			t.Fatalf("RemoveKit failed: %v", err)
		}

		rows, err := store.ListCooldowns(ctx, player)
		if err != nil || len(rows) != 0 {
			t.Errorf("cooldowns survived kit removal: (%v, %v)", rows, err)
		}
	})

	t.Run("PurgeKeepsOneTimeAndUnexpired", func(t *testing.T) {
		regular, err := store.CreateKit(ctx, testKit("purgeable"))
		if err != nil {
			t.Fatalf("CreateKit failed: %v", err)
		}
		oneTimeKit := testKit("forever")
		oneTimeKit.IsOneTime = true
		oneTime, err := store.CreateKit(ctx, oneTimeKit)
		if err != nil {
			t.Fatalf("CreateKit failed: %v", err)
		}
		defer store.RemoveKit(ctx, regular)
		defer store.RemoveKit(ctx, oneTime)

		player := uuid.New()
		expired := testEnd(-48 * time.Hour)
		active := testEnd(time.Hour)

		if err := store.AddCooldown(ctx, player, regular, expired); err != nil {
			t.Fatalf("AddCooldown failed: %v", err)
		}
		if err := store.AddCooldown(ctx, player, oneTime, expired); err != nil {
			t.Fatalf("AddCooldown failed: %v", err)
		}
		other := uuid.New()
		if err := store.AddCooldown(ctx, other, regular, active); err != nil {
			t.Fatalf("AddCooldown failed: %v", err)
		}

		purged, err := store.PurgeExpiredCooldowns(ctx, testEnd(-24*time.Hour))
		if err != nil {
			t.Fatalf("PurgeExpiredCooldowns failed: %v", err)
		}
		if purged != 1 {
			t.Errorf("purged = %d, want 1", purged)
		}

		// The one-time redemption record survives its expiry.
		row, err := store.FindCooldown(ctx, player, oneTime)
		if err != nil || row == nil {
			t.Errorf("one-time row purged: (%v, %v)", row, err)
		}
		// The lapsed regular row is gone, the active one stays.
		row, err = store.FindCooldown(ctx, player, regular)
		if err != nil || row != nil {
			t.Errorf("expired regular row survived: (%v, %v)", row, err)
		}
		row, err = store.FindCooldown(ctx, other, regular)
		if err != nil || row == nil {
			t.Errorf("active row purged: (%v, %v)", row, err)
		}
	})
}

func TestSQLiteStore(t *testing.T) {
	runStoreSuite(t, newTestStore(t))
}

func TestSQLiteStoreReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kits.db")

	store, err := NewSQLiteStore(path, "openkits")
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	id, err := store.CreateKit(ctx, testKit("persistent"))
	if err != nil {
		t.Fatalf("CreateKit failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewSQLiteStore(path, "openkits")
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	kit, err := reopened.FindKitByID(ctx, id)
	if err != nil || kit == nil {
		t.Fatalf("kit lost across reopen: (%v, %v)", kit, err)
	}
	if kit.Name != "persistent" {
		t.Errorf("kit name = %q, want %q", kit.Name, "persistent")
	}
}
