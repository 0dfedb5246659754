package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"openkits-api/internal/model"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// SQLiteStore implements Store using an embedded file-based SQLite database.
// Thread-safe with WAL mode for high-concurrency reads.
type SQLiteStore struct {
	db     *sql.DB
	prefix string
	mu     sync.RWMutex
}

// NewSQLiteStore opens (and lazily creates) the database file at dbPath and
// bootstraps the schema. prefix names the tables, e.g. "openkits" yields
// openkits_kits and openkits_cooldowns.
func NewSQLiteStore(dbPath, prefix string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open with WAL mode and other optimizations
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite connection pool settings
	db.SetMaxOpenConns(1) // SQLite only supports 1 writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0) // Keep connection alive

	s := &SQLiteStore{db: db, prefix: prefix}
	if err := s.CheckSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("[SQLiteStore] Initialized with database: %s", dbPath)
	return s, nil
}

func (s *SQLiteStore) kitsTable() string      { return s.prefix + "_kits" }
func (s *SQLiteStore) cooldownsTable() string { return s.prefix + "_cooldowns" }

// CheckSchema creates the kit and cooldown tables if they do not exist.
// Existing columns are never altered.
func (s *SQLiteStore) CheckSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		Id INTEGER PRIMARY KEY AUTOINCREMENT,
		Name VARCHAR(35),
		Icon VARCHAR(200),
		Price DECIMAL,
		RequirePermission BOOLEAN,
		Permission VARCHAR(200),
		Cooldown BIGINT,
		IsOneTime BOOLEAN,
		Enable BOOLEAN,
		Items BLOB
	);
	CREATE TABLE IF NOT EXISTS %s (
		PlayerId VARCHAR(36),
		KitId BIGINT,
		"End" VARCHAR(200)
	);
	`, s.kitsTable(), s.cooldownsTable())

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to bootstrap schema: %w", err)
	}
	return nil
}

// CreateKit inserts a new kit and returns its auto-assigned id.
func (s *SQLiteStore) CreateKit(ctx context.Context, kit *model.Kit) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := fmt.Sprintf(`
		INSERT INTO %s (Name, Icon, Price, RequirePermission, Permission, Cooldown, IsOneTime, Enable, Items)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.kitsTable())

	result, err := s.db.ExecContext(ctx, query,
		kit.Name, kit.Icon, kit.Price, kit.RequirePermission, kit.Permission,
		kit.Cooldown, kit.IsOneTime, kit.Enable, kit.Items)
	if err != nil {
		return 0, fmt.Errorf("failed to insert kit: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read generated kit id: %w", err)
	}
	return id, nil
}

const kitColumns = `Id, Name, Icon, Price, RequirePermission, Permission, Cooldown, IsOneTime, Enable, Items`

// FindKitByID retrieves a kit by id, or (nil, nil) when absent.
func (s *SQLiteStore) FindKitByID(ctx context.Context, id int64) (*model.Kit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE Id = ? LIMIT 1`, kitColumns, s.kitsTable())

	kit, err := scanKit(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find kit %d: %w", id, err)
	}
	return kit, nil
}

// FindKitByName retrieves the first kit whose name contains the given text,
// case-insensitively. The lowest id wins, which keeps the choice
// deterministic when several names match.
func (s *SQLiteStore) FindKitByName(ctx context.Context, name string) (*model.Kit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := fmt.Sprintf(
		`SELECT %s FROM %s WHERE LOWER(Name) LIKE '%%' || LOWER(?) || '%%' ORDER BY Id LIMIT 1`,
		kitColumns, s.kitsTable())

	kit, err := scanKit(s.db.QueryRowContext(ctx, query, name))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find kit %q: %w", name, err)
	}
	return kit, nil
}

// ListKits retrieves all kits ordered by id.
func (s *SQLiteStore) ListKits(ctx context.Context) ([]model.Kit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY Id`, kitColumns, s.kitsTable())

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list kits: %w", err)
	}
	defer rows.Close()

	var kits []model.Kit
	for rows.Next() {
		kit, err := scanKit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan kit row: %w", err)
		}
		kits = append(kits, *kit)
	}
	return kits, rows.Err()
}

func (s *SQLiteStore) updateKitField(ctx context.Context, id int64, assignment string, args ...any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE Id = ?`, s.kitsTable(), assignment)
	args = append(args, id)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update kit %d: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) UpdateKitName(ctx context.Context, id int64, name string) error {
	return s.updateKitField(ctx, id, `Name = ?`, name)
}

func (s *SQLiteStore) UpdateKitPermission(ctx context.Context, id int64, require bool, permission string) error {
	return s.updateKitField(ctx, id, `RequirePermission = ?, Permission = ?`, require, permission)
}

func (s *SQLiteStore) UpdateKitItems(ctx context.Context, id int64, items []byte) error {
	return s.updateKitField(ctx, id, `Items = ?`, items)
}

func (s *SQLiteStore) UpdateKitPrice(ctx context.Context, id int64, price float64) error {
	return s.updateKitField(ctx, id, `Price = ?`, price)
}

func (s *SQLiteStore) UpdateKitCooldown(ctx context.Context, id int64, cooldown int64) error {
	return s.updateKitField(ctx, id, `Cooldown = ?`, cooldown)
}

func (s *SQLiteStore) UpdateKitEnabled(ctx context.Context, id int64, enable bool) error {
	return s.updateKitField(ctx, id, `Enable = ?`, enable)
}

func (s *SQLiteStore) UpdateKitIcon(ctx context.Context, id int64, icon string) error {
	return s.updateKitField(ctx, id, `Icon = ?`, icon)
}

func (s *SQLiteStore) UpdateKitOneTime(ctx context.Context, id int64, oneTime bool) error {
	return s.updateKitField(ctx, id, `IsOneTime = ?`, oneTime)
}

// RemoveKit deletes the kit and its cooldown rows in one transaction.
func (s *SQLiteStore) RemoveKit(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE Id = ?`, s.kitsTable()), id); err != nil {
		return fmt.Errorf("failed to delete kit %d: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE KitId = ?`, s.cooldownsTable()), id); err != nil {
		return fmt.Errorf("failed to delete cooldowns for kit %d: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit kit removal: %w", err)
	}
	return nil
}

// AddCooldown inserts a cooldown row. The table has no uniqueness constraint
// on (PlayerId, KitId); calling Add twice creates duplicate rows.
func (s *SQLiteStore) AddCooldown(ctx context.Context, playerID uuid.UUID, kitID int64, end time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := fmt.Sprintf(`INSERT INTO %s (PlayerId, KitId, "End") VALUES (?, ?, ?)`, s.cooldownsTable())
	if _, err := s.db.ExecContext(ctx, query, playerID.String(), kitID, end.UTC().Format(endFormat)); err != nil {
		return fmt.Errorf("failed to add cooldown: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateCooldown(ctx context.Context, playerID uuid.UUID, kitID int64, end time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := fmt.Sprintf(`UPDATE %s SET "End" = ? WHERE PlayerId = ? AND KitId = ?`, s.cooldownsTable())
	if _, err := s.db.ExecContext(ctx, query, end.UTC().Format(endFormat), playerID.String(), kitID); err != nil {
		return fmt.Errorf("failed to update cooldown: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RemoveCooldown(ctx context.Context, playerID uuid.UUID, kitID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := fmt.Sprintf(`DELETE FROM %s WHERE PlayerId = ? AND KitId = ?`, s.cooldownsTable())
	if _, err := s.db.ExecContext(ctx, query, playerID.String(), kitID); err != nil {
		return fmt.Errorf("failed to remove cooldown: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RemoveCooldownsForPlayer(ctx context.Context, playerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := fmt.Sprintf(`DELETE FROM %s WHERE PlayerId = ?`, s.cooldownsTable())
	if _, err := s.db.ExecContext(ctx, query, playerID.String()); err != nil {
		return fmt.Errorf("failed to remove cooldowns for player %s: %w", playerID, err)
	}
	return nil
}

func (s *SQLiteStore) RemoveCooldownsForKit(ctx context.Context, kitID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := fmt.Sprintf(`DELETE FROM %s WHERE KitId = ?`, s.cooldownsTable())
	if _, err := s.db.ExecContext(ctx, query, kitID); err != nil {
		return fmt.Errorf("failed to remove cooldowns for kit %d: %w", kitID, err)
	}
	return nil
}

// ListCooldowns retrieves all cooldown rows for a player.
func (s *SQLiteStore) ListCooldowns(ctx context.Context, playerID uuid.UUID) ([]model.KitCooldown, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := fmt.Sprintf(`SELECT PlayerId, KitId, "End" FROM %s WHERE PlayerId = ?`, s.cooldownsTable())

	rows, err := s.db.QueryContext(ctx, query, playerID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list cooldowns: %w", err)
	}
	defer rows.Close()

	var cooldowns []model.KitCooldown
	for rows.Next() {
		cooldown, err := scanCooldown(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cooldown row: %w", err)
		}
		cooldowns = append(cooldowns, *cooldown)
	}
	return cooldowns, rows.Err()
}

// FindCooldown retrieves the oldest row matching (player, kit), or
// (nil, nil) when none exists.
func (s *SQLiteStore) FindCooldown(ctx context.Context, playerID uuid.UUID, kitID int64) (*model.KitCooldown, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := fmt.Sprintf(
		`SELECT PlayerId, KitId, "End" FROM %s WHERE PlayerId = ? AND KitId = ? ORDER BY rowid LIMIT 1`,
		s.cooldownsTable())

	cooldown, err := scanCooldown(s.db.QueryRowContext(ctx, query, playerID.String(), kitID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find cooldown: %w", err)
	}
	return cooldown, nil
}

// PurgeExpiredCooldowns deletes lapsed rows, except rows belonging to
// one-time kits whose redemption record must survive.
func (s *SQLiteStore) PurgeExpiredCooldowns(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := fmt.Sprintf(
		`DELETE FROM %s WHERE "End" < ? AND KitId NOT IN (SELECT Id FROM %s WHERE IsOneTime = 1)`,
		s.cooldownsTable(), s.kitsTable())

	result, err := s.db.ExecContext(ctx, query, before.UTC().Format(endFormat))
	if err != nil {
		return 0, fmt.Errorf("failed to purge cooldowns: %w", err)
	}
	purged, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	if purged > 0 {
		log.Printf("[SQLiteStore] Purged %d expired cooldown rows (before: %v)", purged, before)
	}
	return purged, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ensure SQLiteStore implements Store
var _ Store = (*SQLiteStore)(nil)
