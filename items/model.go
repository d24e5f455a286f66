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
	"time"

	"github.com/tomoncle/hummer-starter/database"
	"github.com/uptrace/bun"
)

// Item is the sample entity: a name and the moment it was created.
type Item struct {
	bun.BaseModel `bun:"table:items,alias:i"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	Name      string    `bun:"name,notnull" json:"name"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
}

func init() {
	database.RegisteredModel(database.NewModelAdapter((*Item)(nil), 10))
	database.RegisterMigration(database.MigrationItem{
		Version:     "002",
		Name:        "index_items_created_at",
		Description: "Index items by creation time for newest-first listing",
		Up:          createCreatedAtIndex,
	})
}

func createCreatedAtIndex(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateIndex().
		Model((*Item)(nil)).
		Index("items_created_at_idx").
		Column("created_at").
		Exec(ctx)
	return err
}
