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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func TestMigrationManager(t *testing.T) {
	ctx := context.Background()

	t.Run("Should create registered tables and record the version", func(t *testing.T) {
		manager := newSQLiteManager(t)
		err := WithSession(ctx, manager, func(ctx context.Context, db bun.IDB) error {
			mm := NewMigrationManager(db, &recordingLogger{})
			if err := mm.RunMigrations(ctx); err != nil {
				return err
			}
			applied, err := mm.GetAppliedMigrations(ctx)
			if err != nil {
				return err
			}
			require.NotEmpty(t, applied)
			assert.Equal(t, "001", applied[0].Version)
			assert.Equal(t, "create_base_tables", applied[0].Name)
			assert.False(t, applied[0].AppliedAt.IsZero())

			_, err = db.NewInsert().Model(&widget{Name: "gear"}).Exec(ctx)
			return err
		})
		require.NoError(t, err)
	})

	t.Run("Should be idempotent", func(t *testing.T) {
		manager := newSQLiteManager(t)
		logger := &recordingLogger{}
		for i := 0; i < 2; i++ {
			err := WithSession(ctx, manager, func(ctx context.Context, db bun.IDB) error {
				return NewMigrationManager(db, logger).RunMigrations(ctx)
			})
			require.NoError(t, err)
		}
		assert.Contains(t, logger.output(), "INFO Database migrations completed [applied 0]")

		err := WithSession(ctx, manager, func(ctx context.Context, db bun.IDB) error {
			applied, err := NewMigrationManager(db, logger).GetAppliedMigrations(ctx)
			assert.Len(t, applied, 1)
			return err
		})
		require.NoError(t, err)
	})

	t.Run("Should roll back a failed migration", func(t *testing.T) {
		manager := newSQLiteManager(t)
		boom := errors.New("boom")
		err := WithSession(ctx, manager, func(ctx context.Context, db bun.IDB) error {
			mm := NewMigrationManager(db, &recordingLogger{})
			require.NoError(t, mm.createMigrationTable(ctx))

			ran, err := mm.runMigration(ctx, MigrationItem{
				Version: "900",
				Name:    "broken",
				Up: func(ctx context.Context, tx bun.IDB) error {
					if _, err := tx.NewCreateTable().Model((*widget)(nil)).IfNotExists().Exec(ctx); err != nil {
						return err
					}
					return boom
				},
			})
			assert.False(t, ran)
			assert.ErrorIs(t, err, boom)

			applied, err := mm.GetAppliedMigrations(ctx)
			assert.Empty(t, applied)
			return err
		})
		require.NoError(t, err)
	})

	t.Run("Should fail without a database", func(t *testing.T) {
		err := NewMigrationManager(nil, &recordingLogger{}).RunMigrations(ctx)
		require.Error(t, err)
	})
}
