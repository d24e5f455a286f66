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

package repository

import (
	"context"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// CrudRepository defines basic CRUD operations for a generic entity type.
type CrudRepository[T any] interface {
	// GetOne returns the entity with the given primary key, or
	// sql.ErrNoRows when there is none.
	GetOne(ctx context.Context, id any) (*T, error)

	// GetAll returns every entity, ordered by the given ORDER BY terms.
	GetAll(ctx context.Context, orders ...string) ([]*T, error)

	// Create inserts entities and fills generated columns back in.
	Create(ctx context.Context, entity ...*T) error

	// Delete removes the entity with the given primary key and reports
	// how many rows went away.
	Delete(ctx context.Context, id any) (int64, error)
}

// Repository combines CRUD operations with the Bun query builders for
// anything more specific.
type Repository[T any] interface {
	CrudRepository[T]
	Dialect() schema.Dialect
	NewSelect() *bun.SelectQuery
	NewInsert() *bun.InsertQuery
	NewDelete() *bun.DeleteQuery
}
