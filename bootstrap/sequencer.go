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

// Package bootstrap runs the one-time startup work that must happen before
// the process accepts traffic.
package bootstrap

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/tomoncle/hummer-starter/database"
	"github.com/uptrace/bun"
)

// ErrMigrationFailure marks a failed startup migration. It is logged and
// never returned from Run.
var ErrMigrationFailure = errors.New("migration failure")

// State is the startup phase of a Sequencer.
type State int32

const (
	NotStarted State = iota
	MigrationAttempted
	Ready
)

func (s State) String() string {
	switch s {
	case MigrationAttempted:
		return "MigrationAttempted"
	case Ready:
		return "Ready"
	default:
		return "NotStarted"
	}
}

// Result records how the migration attempt went. Err is nil on success.
type Result struct {
	Err error
}

// Migrator applies schema migrations on a session.
type Migrator func(ctx context.Context, db bun.IDB) error

// Sequencer moves NotStarted -> MigrationAttempted -> Ready exactly once.
// Ready is reached whatever the migration outcome.
type Sequencer struct {
	sessions database.SessionFactory
	migrate  Migrator
	logger   database.Logger
	state    atomic.Int32
	once     sync.Once
	result   Result
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithLogger replaces the BOOTSTRAP logger.
func WithLogger(logger database.Logger) Option {
	return func(s *Sequencer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMigrator replaces the default database.MigrationManager run.
func WithMigrator(m Migrator) Option {
	return func(s *Sequencer) {
		if m != nil {
			s.migrate = m
		}
	}
}

// NewSequencer returns a Sequencer in NotStarted that migrates through
// sessions opened from the given factory.
func NewSequencer(sessions database.SessionFactory, opts ...Option) *Sequencer {
	s := &Sequencer{
		sessions: sessions,
		logger:   database.NewNamedLogger("BOOTSTRAP"),
	}
	s.migrate = func(ctx context.Context, db bun.IDB) error {
		return database.NewMigrationManager(db, s.logger).RunMigrations(ctx)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current phase. It is safe for concurrent use.
func (s *Sequencer) State() State {
	return State(s.state.Load())
}

// Run attempts the startup migration once and always ends in Ready.
// Later calls return the first result without doing anything.
func (s *Sequencer) Run(ctx context.Context) Result {
	s.once.Do(func() {
		s.logger.Info("Starting database migration")
		err := s.runMigration(ctx)
		s.state.Store(int32(MigrationAttempted))
		if err != nil {
			s.logFailure(err)
		} else {
			s.logger.Info("Database migration completed successfully")
		}
		s.result = Result{Err: err}
		s.state.Store(int32(Ready))
	})
	return s.result
}

func (s *Sequencer) runMigration(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = migrationFailure(fmt.Errorf("panic: %v", r))
		}
	}()
	if err := database.WithSession(ctx, s.sessions, s.migrate); err != nil {
		return migrationFailure(err)
	}
	return nil
}

// migrationFailure tags cause with ErrMigrationFailure and records the
// stack at the call site.
func migrationFailure(cause error) error {
	return errors.WithStack(fmt.Errorf("%w: %w", ErrMigrationFailure, cause))
}

func (s *Sequencer) logFailure(err error) {
	fields := []interface{}{
		"error", database.SanitizeSecrets(err.Error()),
		"stack", database.SanitizeSecrets(fmt.Sprintf("%+v", err)),
	}
	if inner := innermost(err); inner != nil && inner != err {
		fields = append(fields, "inner", database.SanitizeSecrets(inner.Error()))
	}
	s.logger.Error("Migration error, continuing startup", fields...)
}

// innermost follows the last wrapped error down to the root cause.
func innermost(err error) error {
	for err != nil {
		var next error
		switch e := err.(type) {
		case interface{ Unwrap() []error }:
			if errs := e.Unwrap(); len(errs) > 0 {
				next = errs[len(errs)-1]
			}
		case interface{ Unwrap() error }:
			next = e.Unwrap()
		}
		if next == nil {
			return err
		}
		err = next
	}
	return nil
}
