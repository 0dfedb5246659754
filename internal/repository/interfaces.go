package repository

import (
	"context"
	"time"

	"openkits-api/internal/model"

	"github.com/google/uuid"
)

// KitRepository defines kit data access methods. Lookups return (nil, nil)
// when no row matches; errors are reserved for connector and statement
// failures.
type KitRepository interface {
	// CreateKit inserts a new kit and returns its assigned id.
	CreateKit(ctx context.Context, kit *model.Kit) (int64, error)

	// FindKitByID retrieves a kit by id.
	FindKitByID(ctx context.Context, id int64) (*model.Kit, error)

	// FindKitByName retrieves the kit whose name contains the given text,
	// case-insensitively. With several candidates the lowest id wins.
	FindKitByName(ctx context.Context, name string) (*model.Kit, error)

	// ListKits retrieves all kits ordered by id.
	ListKits(ctx context.Context) ([]model.Kit, error)

	// Field-scoped updates. Each touches exactly one aspect of the kit.
	UpdateKitName(ctx context.Context, id int64, name string) error
	UpdateKitPermission(ctx context.Context, id int64, require bool, permission string) error
	UpdateKitItems(ctx context.Context, id int64, items []byte) error
	UpdateKitPrice(ctx context.Context, id int64, price float64) error
	UpdateKitCooldown(ctx context.Context, id int64, cooldown int64) error
	UpdateKitEnabled(ctx context.Context, id int64, enable bool) error
	UpdateKitIcon(ctx context.Context, id int64, icon string) error
	UpdateKitOneTime(ctx context.Context, id int64, oneTime bool) error

	// RemoveKit deletes a kit and all of its cooldown rows.
	RemoveKit(ctx context.Context, id int64) error
}

// CooldownRepository defines cooldown ledger access methods. The ledger
// stores raw expiry instants; it does not judge whether a cooldown is
// currently active.
type CooldownRepository interface {
	AddCooldown(ctx context.Context, playerID uuid.UUID, kitID int64, end time.Time) error
	UpdateCooldown(ctx context.Context, playerID uuid.UUID, kitID int64, end time.Time) error
	RemoveCooldown(ctx context.Context, playerID uuid.UUID, kitID int64) error
	RemoveCooldownsForPlayer(ctx context.Context, playerID uuid.UUID) error
	RemoveCooldownsForKit(ctx context.Context, kitID int64) error

	// ListCooldowns retrieves all cooldown rows for a player.
	ListCooldowns(ctx context.Context, playerID uuid.UUID) ([]model.KitCooldown, error)

	// FindCooldown retrieves the first row matching (player, kit), or
	// (nil, nil) when the player never redeemed the kit.
	FindCooldown(ctx context.Context, playerID uuid.UUID, kitID int64) (*model.KitCooldown, error)

	// PurgeExpiredCooldowns deletes rows that expired before the given
	// instant, keeping rows of one-time kits so their redemption record
	// survives. Returns the number of rows removed.
	PurgeExpiredCooldowns(ctx context.Context, before time.Time) (int64, error)
}

// Store is the full backend connector contract: kit and cooldown access plus
// schema bootstrap and shutdown. The embedded and networked implementations
// are interchangeable behind this interface.
type Store interface {
	KitRepository
	CooldownRepository

	// CheckSchema creates the kit and cooldown tables if absent. It never
	// alters existing columns and is safe to call repeatedly.
	CheckSchema(ctx context.Context) error

	// Close releases the underlying connection or pool.
	Close() error
}

// endFormat is the persisted layout of cooldown expiry instants. RFC 3339 in
// UTC is fixed-width, so lexicographic comparison in SQL matches
// chronological order.
const endFormat = time.RFC3339

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanKit(row rowScanner) (*model.Kit, error) {
	var kit model.Kit
	err := row.Scan(
		&kit.ID,
		&kit.Name,
		&kit.Icon,
		&kit.Price,
		&kit.RequirePermission,
		&kit.Permission,
		&kit.Cooldown,
		&kit.IsOneTime,
		&kit.Enable,
		&kit.Items,
	)
	if err != nil {
		return nil, err
	}
	return &kit, nil
}

func scanCooldown(row rowScanner) (*model.KitCooldown, error) {
	var playerID string
	var end string
	var cooldown model.KitCooldown
	if err := row.Scan(&playerID, &cooldown.KitID, &end); err != nil {
		return nil, err
	}
	parsedID, err := uuid.Parse(playerID)
	if err != nil {
		return nil, err
	}
	parsedEnd, err := time.Parse(endFormat, end)
	if err != nil {
		return nil, err
	}
	cooldown.PlayerID = parsedID
	cooldown.End = parsedEnd
	return &cooldown, nil
}
