package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"openkits-api/internal/model"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
)

// MySQLStore implements Store against a networked MySQL server. The pool is
// opened once at startup and shared across callers; individual operations
// borrow connections from it.
type MySQLStore struct {
	db     *sql.DB
	prefix string
}

// NewMySQLStore opens a bounded connection pool for the given DSN, verifies
// connectivity and bootstraps the schema.
func NewMySQLStore(dsn, prefix string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	s := &MySQLStore{db: db, prefix: prefix}
	if err := s.CheckSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("[MySQLStore] Initialized with table prefix: %s", prefix)
	return s, nil
}

func (s *MySQLStore) kitsTable() string      { return s.prefix + "_kits" }
func (s *MySQLStore) cooldownsTable() string { return s.prefix + "_cooldowns" }

// CheckSchema creates the kit and cooldown tables if they do not exist.
// Existing columns are never altered. End is backtick-quoted because END is a
// reserved word in MySQL.
func (s *MySQLStore) CheckSchema(ctx context.Context) error {
	kits := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			Id BIGINT AUTO_INCREMENT PRIMARY KEY,
			Name VARCHAR(35),
			Icon VARCHAR(200),
			Price DECIMAL(16,2),
			RequirePermission BOOLEAN,
			Permission VARCHAR(200),
			Cooldown BIGINT,
			IsOneTime BOOLEAN,
			Enable BOOLEAN,
			Items BLOB
		)`, s.kitsTable())
	if _, err := s.db.ExecContext(ctx, kits); err != nil {
		return fmt.Errorf("failed to create kit table: %w", err)
	}

	cooldowns := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			PlayerId VARCHAR(36),
			KitId BIGINT,
			`+"`End`"+` VARCHAR(200)
		)`, s.cooldownsTable())
	if _, err := s.db.ExecContext(ctx, cooldowns); err != nil {
		return fmt.Errorf("failed to create cooldown table: %w", err)
	}
	return nil
}

// CreateKit inserts a new kit and returns its auto-assigned id.
func (s *MySQLStore) CreateKit(ctx context.Context, kit *model.Kit) (int64, error) {
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

// FindKitByID retrieves a kit by id, or (nil, nil) when absent.
func (s *MySQLStore) FindKitByID(ctx context.Context, id int64) (*model.Kit, error) {
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
// case-insensitively. The lowest id wins.
func (s *MySQLStore) FindKitByName(ctx context.Context, name string) (*model.Kit, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM %s WHERE LOWER(Name) LIKE CONCAT('%%', LOWER(?), '%%') ORDER BY Id LIMIT 1`,
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
func (s *MySQLStore) ListKits(ctx context.Context) ([]model.Kit, error) {
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

func (s *MySQLStore) updateKitField(ctx context.Context, id int64, assignment string, args ...any) error {
	query := fmt.Sprintf(`UPDATE %s SET %s WHERE Id = ?`, s.kitsTable(), assignment)
	args = append(args, id)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update kit %d: %w", id, err)
	}
	return nil
}

func (s *MySQLStore) UpdateKitName(ctx context.Context, id int64, name string) error {
	return s.updateKitField(ctx, id, `Name = ?`, name)
}

func (s *MySQLStore) UpdateKitPermission(ctx context.Context, id int64, require bool, permission string) error {
	return s.updateKitField(ctx, id, `RequirePermission = ?, Permission = ?`, require, permission)
}

func (s *MySQLStore) UpdateKitItems(ctx context.Context, id int64, items []byte) error {
	return s.updateKitField(ctx, id, `Items = ?`, items)
}

func (s *MySQLStore) UpdateKitPrice(ctx context.Context, id int64, price float64) error {
	return s.updateKitField(ctx, id, `Price = ?`, price)
}

func (s *MySQLStore) UpdateKitCooldown(ctx context.Context, id int64, cooldown int64) error {
	return s.updateKitField(ctx, id, `Cooldown = ?`, cooldown)
}

func (s *MySQLStore) UpdateKitEnabled(ctx context.Context, id int64, enable bool) error {
	return s.updateKitField(ctx, id, `Enable = ?`, enable)
}

func (s *MySQLStore) UpdateKitIcon(ctx context.Context, id int64, icon string) error {
	return s.updateKitField(ctx, id, `Icon = ?`, icon)
}

func (s *MySQLStore) UpdateKitOneTime(ctx context.Context, id int64, oneTime bool) error {
	return s.updateKitField(ctx, id, `IsOneTime = ?`, oneTime)
}

// RemoveKit deletes the kit and its cooldown rows in one transaction.
func (s *MySQLStore) RemoveKit(ctx context.Context, id int64) error {
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
func (s *MySQLStore) AddCooldown(ctx context.Context, playerID uuid.UUID, kitID int64, end time.Time) error {
	query := fmt.Sprintf("INSERT INTO %s (PlayerId, KitId, `End`) VALUES (?, ?, ?)", s.cooldownsTable())
	if _, err := s.db.ExecContext(ctx, query, playerID.String(), kitID, end.UTC().Format(endFormat)); err != nil {
		return fmt.Errorf("failed to add cooldown: %w", err)
	}
	return nil
}

func (s *MySQLStore) UpdateCooldown(ctx context.Context, playerID uuid.UUID, kitID int64, end time.Time) error {
	query := fmt.Sprintf("UPDATE %s SET `End` = ? WHERE PlayerId = ? AND KitId = ?", s.cooldownsTable())
	if _, err := s.db.ExecContext(ctx, query, end.UTC().Format(endFormat), playerID.String(), kitID); err != nil {
		return fmt.Errorf("failed to update cooldown: %w", err)
	}
	return nil
}

func (s *MySQLStore) RemoveCooldown(ctx context.Context, playerID uuid.UUID, kitID int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE PlayerId = ? AND KitId = ?`, s.cooldownsTable())
	if _, err := s.db.ExecContext(ctx, query, playerID.String(), kitID); err != nil {
		return fmt.Errorf("failed to remove cooldown: %w", err)
	}
	return nil
}

func (s *MySQLStore) RemoveCooldownsForPlayer(ctx context.Context, playerID uuid.UUID) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE PlayerId = ?`, s.cooldownsTable())
	if _, err := s.db.ExecContext(ctx, query, playerID.String()); err != nil {
		return fmt.Errorf("failed to remove cooldowns for player %s: %w", playerID, err)
	}
	return nil
}

func (s *MySQLStore) RemoveCooldownsForKit(ctx context.Context, kitID int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE KitId = ?`, s.cooldownsTable())
	if _, err := s.db.ExecContext(ctx, query, kitID); err != nil {
		return fmt.Errorf("failed to remove cooldowns for kit %d: %w", kitID, err)
	}
	return nil
}

// ListCooldowns retrieves all cooldown rows for a player.
func (s *MySQLStore) ListCooldowns(ctx context.Context, playerID uuid.UUID) ([]model.KitCooldown, error) {
	query := fmt.Sprintf("SELECT PlayerId, KitId, `End` FROM %s WHERE PlayerId = ?", s.cooldownsTable())

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

// FindCooldown retrieves the first row matching (player, kit), or (nil, nil)
// when none exists. The table has no primary key, so with duplicate rows the
// server's scan order decides which row is returned.
func (s *MySQLStore) FindCooldown(ctx context.Context, playerID uuid.UUID, kitID int64) (*model.KitCooldown, error) {
	query := fmt.Sprintf(
		"SELECT PlayerId, KitId, `End` FROM %s WHERE PlayerId = ? AND KitId = ? LIMIT 1",
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
func (s *MySQLStore) PurgeExpiredCooldowns(ctx context.Context, before time.Time) (int64, error) {
	query := fmt.Sprintf(
		"DELETE FROM %s WHERE `End` < ? AND KitId NOT IN (SELECT Id FROM %s WHERE IsOneTime = 1)",
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
		log.Printf("[MySQLStore] Purged %d expired cooldown rows (before: %v)", purged, before)
	}
	return purged, nil
}

// Close closes the connection pool.
func (s *MySQLStore) Close() error {
	return s.db.Close()
}

// Ensure MySQLStore implements Store
var _ Store = (*MySQLStore)(nil)
