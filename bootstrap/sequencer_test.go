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

package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/hummer-starter/database"
	"github.com/uptrace/bun"
)

type captureLogger struct {
	mu     sync.Mutex
	errors []string
}

func (l *captureLogger) SetLevel(database.LogLevel)   {}
func (l *captureLogger) Debug(string, ...interface{}) {}
func (l *captureLogger) Info(string, ...interface{})  {}
func (l *captureLogger) Warn(string, ...interface{})  {}
func (l *captureLogger) Error(msg string, fields ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, fmt.Sprint(msg, " ", fields))
}

func (l *captureLogger) errorOutput() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(l.errors, "\n")
}

type downFactory struct{ err error }

func (f downFactory) Session(context.Context) (*database.Session, error) { return nil, f.err }

func newSQLite(t *testing.T) database.AbstractDatabaseManager {
	t.Helper()
	manager := database.NewDatabaseManager(&database.ConnectionConfig{
		Type:   "sqlite",
		DBName: filepath.Join(t.TempDir(), "bootstrap.db"),
	})
	manager.SetLogger(&captureLogger{})
	t.Cleanup(func() { _ = manager.Disconnect() })
	return manager
}

func TestSequencer(t *testing.T) {
	ctx := context.Background()

	t.Run("Should start in NotStarted", func(t *testing.T) {
		s := NewSequencer(downFactory{}, WithLogger(&captureLogger{}))
		assert.Equal(t, NotStarted, s.State())
		assert.Equal(t, "NotStarted", s.State().String())
	})

	t.Run("Should reach Ready after a successful migration", func(t *testing.T) {
		manager := newSQLite(t)
		s := NewSequencer(manager, WithLogger(&captureLogger{}))
		result := s.Run(ctx)
		require.NoError(t, result.Err)
		assert.Equal(t, Ready, s.State())

		err := database.WithSession(ctx, manager, func(ctx context.Context, db bun.IDB) error {
			applied, err := database.NewMigrationManager(db, &captureLogger{}).GetAppliedMigrations(ctx)
			assert.NotEmpty(t, applied)
			return err
		})
		require.NoError(t, err)
	})

	t.Run("Should reach Ready when the database is unreachable", func(t *testing.T) {
		logger := &captureLogger{}
		down := errors.New("dial tcp 10.0.0.1:5432: connect: connection refused")
		s := NewSequencer(downFactory{err: down}, WithLogger(logger))

		result := s.Run(ctx)
		assert.Equal(t, Ready, s.State())
		assert.ErrorIs(t, result.Err, ErrMigrationFailure)
		assert.ErrorIs(t, result.Err, down)

		out := logger.errorOutput()
		assert.Contains(t, out, "Migration error, continuing startup")
		assert.Contains(t, out, "connection refused")
		assert.Contains(t, out, "sequencer.go")
	})

	t.Run("Should swallow a failing migrator", func(t *testing.T) {
		logger := &captureLogger{}
		boom := errors.New("relation already exists")
		s := NewSequencer(newSQLite(t), WithLogger(logger), WithMigrator(func(context.Context, bun.IDB) error {
			return fmt.Errorf("apply 002: %w", boom)
		}))

		result := s.Run(ctx)
		assert.Equal(t, Ready, s.State())
		assert.ErrorIs(t, result.Err, boom)
		assert.Contains(t, logger.errorOutput(), "inner relation already exists")
	})

	t.Run("Should recover a panicking migrator", func(t *testing.T) {
		s := NewSequencer(newSQLite(t), WithLogger(&captureLogger{}), WithMigrator(func(context.Context, bun.IDB) error {
			panic("bad migration")
		}))

		result := s.Run(ctx)
		assert.Equal(t, Ready, s.State())
		assert.ErrorIs(t, result.Err, ErrMigrationFailure)
		assert.Contains(t, result.Err.Error(), "bad migration")
	})

	t.Run("Should run only once", func(t *testing.T) {
		calls := 0
		s := NewSequencer(newSQLite(t), WithLogger(&captureLogger{}), WithMigrator(func(context.Context, bun.IDB) error {
			calls++
			return nil
		}))
		first := s.Run(ctx)
		second := s.Run(ctx)
		assert.Equal(t, 1, calls)
		assert.Equal(t, first, second)
	})

	t.Run("Should not leak credentials in logs", func(t *testing.T) {
		logger := &captureLogger{}
		down := errors.New("connect postgres://alice:topsecret@db:5432/app: timeout")
		NewSequencer(downFactory{err: down}, WithLogger(logger)).Run(ctx)
		assert.NotContains(t, logger.errorOutput(), "topsecret")
	})
}
