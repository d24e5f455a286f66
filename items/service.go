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

package items

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomoncle/hummer-starter/database"
	"github.com/tomoncle/hummer-starter/repository"
	"github.com/uptrace/bun"
)

// ErrStorageUnavailable wraps every connection, query or write failure.
var ErrStorageUnavailable = errors.New("storage unavailable")

// Service lists, adds and deletes items. Every call runs on its own session.
type Service interface {
	// All returns every item, newest first. It never returns nil on success.
	All(ctx context.Context) ([]Item, error)

	// Add stores a new item stamped with the current UTC time and returns
	// it with its assigned ID.
	Add(ctx context.Context, name string) (Item, error)

	// Delete removes the item with the given ID. A missing ID is not an error.
	Delete(ctx context.Context, id int64) error
}

// Option configures a Service built by NewService.
type Option func(*serviceImpl)

// WithClock overrides the time source used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *serviceImpl) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger replaces the default database logger.
func WithLogger(logger database.Logger) Option {
	return func(s *serviceImpl) {
		if logger != nil {
			s.logger = logger
		}
	}
}

type serviceImpl struct {
	sessions database.SessionFactory
	now      func() time.Time
	logger   database.Logger
}

// NewService returns a Service that opens a fresh session for every call.
func NewService(sessions database.SessionFactory, opts ...Option) Service {
	s := &serviceImpl{
		sessions: sessions,
		now:      time.Now,
		logger:   database.GetLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *serviceImpl) All(ctx context.Context) ([]Item, error) {
	var result []Item
	err := database.WithSession(ctx, s.sessions, func(ctx context.Context, db bun.IDB) error {
		rows, err := repository.NewRepository[Item](db).GetAll(ctx, "created_at DESC", "id DESC")
		if err != nil {
			return err
		}
		result = make([]Item, 0, len(rows))
		for _, row := range rows {
			result = append(result, *row)
		}
		return nil
	})
	if err != nil {
		return nil, s.unavailable("list items", err)
	}
	return result, nil
}

func (s *serviceImpl) Add(ctx context.Context, name string) (Item, error) {
	item := &Item{
		Name: name,
		// Postgres stores microsecond precision.
		CreatedAt: s.now().UTC().Truncate(time.Microsecond),
	}
	err := database.WithSession(ctx, s.sessions, func(ctx context.Context, db bun.IDB) error {
		return repository.NewRepository[Item](db).Create(ctx, item)
	})
	if err != nil {
		return Item{}, s.unavailable("add item", err)
	}
	s.logger.Debug("Item added", "id", item.ID)
	return *item, nil
}

func (s *serviceImpl) Delete(ctx context.Context, id int64) error {
	var removed int64
	err := database.WithSession(ctx, s.sessions, func(ctx context.Context, db bun.IDB) error {
		var err error
		removed, err = repository.NewRepository[Item](db).Delete(ctx, id)
		return err
	})
	if err != nil {
		return s.unavailable("delete item", err)
	}
	if removed == 0 {
		s.logger.Debug("Item to delete not found", "id", id)
	}
	return nil
}

func (s *serviceImpl) unavailable(op string, err error) error {
	kind := database.UnknownErr
	if is, class := database.IsSqlError(err); is {
		kind = class
	}
	s.logger.Error("Item store operation failed", "op", op, "kind", kind.String(),
		"error", database.SanitizeSecrets(err.Error()))
	return fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, op, err)
}
