// Package sqlite provides a SQLite-backed implementation of the
// storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/sylvanite/partyhub/internal/party"
	"github.com/sylvanite/partyhub/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store implements storage.Store using SQLite.
type Store struct {
	db *sql.DB
}

// New creates a Store with the given database path. It creates parent
// directories and runs migrations automatically.
func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save replaces the persisted party set in one transaction, so a failure
// rolls back to the previously committed state.
func (s *Store) Save(ctx context.Context, snapshots []party.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Full replace: the snapshot set is authoritative.
	if _, err := tx.ExecContext(ctx, "DELETE FROM parties"); err != nil {
		return fmt.Errorf("failed to clear parties: %w", err)
	}

	for i := range snapshots {
		if err := insertParty(ctx, tx, &snapshots[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit save: %w", err)
	}
	return nil
}

func insertParty(ctx context.Context, tx *sql.Tx, snap *party.Snapshot) error {
	var homeWorld sql.NullString
	var homeX, homeY, homeZ sql.NullFloat64
	var homeYaw, homePitch sql.NullFloat64
	if snap.Home != nil {
		homeWorld = sql.NullString{String: snap.Home.World, Valid: true}
		homeX = sql.NullFloat64{Float64: snap.Home.X, Valid: true}
		homeY = sql.NullFloat64{Float64: snap.Home.Y, Valid: true}
		homeZ = sql.NullFloat64{Float64: snap.Home.Z, Valid: true}
		homeYaw = sql.NullFloat64{Float64: float64(snap.Home.Yaw), Valid: true}
		homePitch = sql.NullFloat64{Float64: float64(snap.Home.Pitch), Valid: true}
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO parties (id, leader, name, color, icon,
			home_world, home_x, home_y, home_z, home_yaw, home_pitch,
			play_time_ms, kills, deaths, last_reward_claim, consecutive_days, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ID.String(), snap.Leader.String(), snap.Name, snap.Color, snap.Icon,
		homeWorld, homeX, homeY, homeZ, homeYaw, homePitch,
		snap.PlayTimeMillis, snap.Kills, snap.Deaths,
		snap.LastRewardClaim, snap.ConsecutiveDays, snap.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert party: %w", err)
	}

	for _, member := range snap.Members {
		role := party.RoleMember
		if r, ok := snap.Roles[member]; ok {
			role = r
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO party_members (party_id, player_id, role) VALUES (?, ?, ?)",
			snap.ID.String(), member.String(), role.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert member: %w", err)
		}
	}

	for _, banned := range snap.Banned {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO party_bans (party_id, player_id) VALUES (?, ?)",
			snap.ID.String(), banned.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert ban: %w", err)
		}
	}

	for _, ally := range snap.Allies {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO party_allies (party_id, ally_id) VALUES (?, ?)",
			snap.ID.String(), ally.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert ally: %w", err)
		}
	}

	for _, ach := range snap.Achievements {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO party_achievements (party_id, achievement_id) VALUES (?, ?)",
			snap.ID.String(), ach,
		)
		if err != nil {
			return fmt.Errorf("failed to insert achievement: %w", err)
		}
	}

	return nil
}

// Load retrieves every persisted party. Rows that fail to decode are
// skipped with a warning rather than failing the whole load.
func (s *Store) Load(ctx context.Context) ([]party.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, leader, name, color, icon,
			home_world, home_x, home_y, home_z, home_yaw, home_pitch,
			play_time_ms, kills, deaths, last_reward_claim, consecutive_days, created_at
		 FROM parties`)
	if err != nil {
		return nil, fmt.Errorf("failed to query parties: %w", err)
	}
	defer rows.Close()

	var snapshots []party.Snapshot
	for rows.Next() {
		snap, err := scanParty(rows)
		if err != nil {
			slog.Warn("Skipping malformed party row", "error", err)
			continue
		}
		snapshots = append(snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate parties: %w", err)
	}

	for i := range snapshots {
		if err := s.loadAssociations(ctx, &snapshots[i]); err != nil {
			return nil, err
		}
	}
	return snapshots, nil
}

func scanParty(rows *sql.Rows) (party.Snapshot, error) {
	var snap party.Snapshot
	var id, leader string
	var homeWorld sql.NullString
	var homeX, homeY, homeZ, homeYaw, homePitch sql.NullFloat64

	err := rows.Scan(&id, &leader, &snap.Name, &snap.Color, &snap.Icon,
		&homeWorld, &homeX, &homeY, &homeZ, &homeYaw, &homePitch,
		&snap.PlayTimeMillis, &snap.Kills, &snap.Deaths,
		&snap.LastRewardClaim, &snap.ConsecutiveDays, &snap.CreatedAt)
	if err != nil {
		return party.Snapshot{}, err
	}

	if snap.ID, err = uuid.Parse(id); err != nil {
		return party.Snapshot{}, fmt.Errorf("bad party id %q: %w", id, err)
	}
	if snap.Leader, err = uuid.Parse(leader); err != nil {
		return party.Snapshot{}, fmt.Errorf("bad leader id %q: %w", leader, err)
	}
	if homeWorld.Valid {
		snap.Home = &party.HomeToken{
			World: homeWorld.String,
			X:     homeX.Float64,
			Y:     homeY.Float64,
			Z:     homeZ.Float64,
			Yaw:   float32(homeYaw.Float64),
			Pitch: float32(homePitch.Float64),
		}
	}
	return snap, nil
}

func (s *Store) loadAssociations(ctx context.Context, snap *party.Snapshot) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT player_id, role FROM party_members WHERE party_id = ?", snap.ID.String())
	if err != nil {
		return fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	snap.Roles = make(map[uuid.UUID]party.Role)
	for rows.Next() {
		var playerID, roleName string
		if err := rows.Scan(&playerID, &roleName); err != nil {
			return fmt.Errorf("failed to scan member: %w", err)
		}
		id, err := uuid.Parse(playerID)
		if err != nil {
			slog.Warn("Skipping malformed member id", "party_id", snap.ID, "error", err)
			continue
		}
		role, err := party.ParseRole(roleName)
		if err != nil {
			role = party.RoleMember
		}
		snap.Members = append(snap.Members, id)
		snap.Roles[id] = role
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate members: %w", err)
	}

	if snap.Banned, err = s.idList(ctx,
		"SELECT player_id FROM party_bans WHERE party_id = ?", snap.ID); err != nil {
		return err
	}
	if snap.Allies, err = s.idList(ctx,
		"SELECT ally_id FROM party_allies WHERE party_id = ?", snap.ID); err != nil {
		return err
	}

	achRows, err := s.db.QueryContext(ctx,
		"SELECT achievement_id FROM party_achievements WHERE party_id = ?", snap.ID.String())
	if err != nil {
		return fmt.Errorf("failed to query achievements: %w", err)
	}
	defer achRows.Close()
	for achRows.Next() {
		var ach string
		if err := achRows.Scan(&ach); err != nil {
			return fmt.Errorf("failed to scan achievement: %w", err)
		}
		snap.Achievements = append(snap.Achievements, ach)
	}
	return achRows.Err()
}

func (s *Store) idList(ctx context.Context, query string, partyID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx, query, partyID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query id list: %w", err)
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			slog.Warn("Skipping malformed id", "party_id", partyID, "error", err)
			continue
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
