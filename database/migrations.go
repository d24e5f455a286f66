/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

const migrationLockKey = "hummer-starter"

var (
	migrationRegistryMu sync.RWMutex
	migrationRegistry   = map[string]MigrationItem{}
)

// MigrationManager applies versioned schema migrations on one connection.
type MigrationManager struct {
	db     bun.IDB
	logger Logger
}

// Migration is an applied migration record stored in the database.
type Migration struct {
	bun.BaseModel `bun:"table:migrations"`

	Version     string    `bun:"version,pk"`
	Name        string    `bun:"name,notnull"`
	AppliedAt   time.Time `bun:"applied_at,notnull"`
	Description string    `bun:"description"`
}

// MigrationFunc is a migration step executed within a transaction.
type MigrationFunc func(ctx context.Context, db bun.IDB) error

// MigrationItem describes a single migration version.
type MigrationItem struct {
	Version     string
	Name        string
	Description string
	Up          MigrationFunc
}

// RegisterMigration adds a migration that RunMigrations applies after the
// base tables exist. Versions must be unique; a later registration with the
// same version replaces the earlier one.
func RegisterMigration(item MigrationItem) {
	migrationRegistryMu.Lock()
	defer migrationRegistryMu.Unlock()
	migrationRegistry[item.Version] = item
}

// NewMigrationManager runs migrations on db, usually a Session.
func NewMigrationManager(db bun.IDB, logger Logger) *MigrationManager {
	if logger == nil {
		logger = GetLogger()
	}
	return &MigrationManager{db: db, logger: logger}
}

// RunMigrations creates the tracking table if needed and applies every
// pending migration in ascending version order. Each migration commits
// together with its tracking row, so a failure leaves earlier versions
// applied and later ones pending.
func (mm *MigrationManager) RunMigrations(ctx context.Context) error {
	if mm.db == nil {
		return fmt.Errorf("database not initialized")
	}
	if _, ok := os.LookupEnv("BUNDEBUG_MIGRATION"); !ok {
		EnableBunSqlSilent(true)
		defer EnableBunSqlSilent(false)
	}

	unlock, err := mm.lock(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	defer unlock()

	if err := mm.createMigrationTable(ctx); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied := 0
	for _, migration := range mm.getAllMigrations() {
		ran, err := mm.runMigration(ctx, migration)
		if err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", migration.Version, err)
		}
		if ran {
			applied++
		}
	}

	mm.logger.Info("Database migrations completed", "applied", applied)
	return nil
}

// lock serializes concurrent runners on Postgres with a session advisory
// lock. Other dialects rely on the primary key of the tracking table.
func (mm *MigrationManager) lock(ctx context.Context) (func(), error) {
	if mm.db.Dialect().Name() != dialect.PG {
		return func() {}, nil
	}
	if _, err := mm.db.ExecContext(ctx, "SELECT pg_advisory_lock(hashtext(?))", migrationLockKey); err != nil {
		return nil, err
	}
	return func() {
		if _, err := mm.db.ExecContext(context.WithoutCancel(ctx), "SELECT pg_advisory_unlock(hashtext(?))", migrationLockKey); err != nil {
			mm.logger.Warn("Failed to release migration advisory lock", "error", err)
		}
	}, nil
}

func (mm *MigrationManager) createMigrationTable(ctx context.Context) error {
	_, err := mm.db.NewCreateTable().
		Model((*Migration)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func (mm *MigrationManager) getAllMigrations() []MigrationItem {
	migrations := []MigrationItem{
		{
			Version:     "001",
			Name:        "create_base_tables",
			Description: "Create tables for registered models",
			Up:          mm.createBaseTables,
		},
	}
	migrationRegistryMu.RLock()
	for _, item := range migrationRegistry {
		if item.Version != "001" {
			migrations = append(migrations, item)
		}
	}
	migrationRegistryMu.RUnlock()

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations
}

func (mm *MigrationManager) runMigration(ctx context.Context, migration MigrationItem) (bool, error) {
	exists, err := mm.db.NewSelect().
		Model((*Migration)(nil)).
		Where("version = ?", migration.Version).
		Exists(ctx)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	tx, err := mm.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	var committed bool
	defer func() {
		if !committed {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				mm.logger.Error("Failed to rollback transaction", "error", rollbackErr)
			}
		}
	}()

	if err := migration.Up(ctx, tx); err != nil {
		return false, err
	}

	record := &Migration{
		Version:     migration.Version,
		Name:        migration.Name,
		AppliedAt:   time.Now().UTC(),
		Description: migration.Description,
	}
	if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	committed = true
	mm.logger.Info("Migration executed successfully", "version", migration.Version, "name", migration.Name)
	return true, nil
}

func (mm *MigrationManager) createBaseTables(ctx context.Context, db bun.IDB) error {
	for _, model := range RegisteredModelInstances() {
		_, err := db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create table %s: %w", getModelName(model), err)
		}
	}
	return nil
}

// GetAppliedMigrations returns migration records ordered by version.
func (mm *MigrationManager) GetAppliedMigrations(ctx context.Context) ([]Migration, error) {
	var migrations []Migration
	err := mm.db.NewSelect().
		Model(&migrations).
		Order("version ASC").
		Scan(ctx)
	return migrations, err
}
