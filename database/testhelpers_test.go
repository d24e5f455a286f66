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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type widget struct {
	bun.BaseModel `bun:"table:widgets"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name,notnull"`
}

func init() {
	RegisteredModel(NewModelAdapter((*widget)(nil), 1))
}

// newSQLiteManager returns a manager over a fresh file database that is
// closed when the test ends.
func newSQLiteManager(t *testing.T) AbstractDatabaseManager {
	t.Helper()
	manager := NewDatabaseManager(&ConnectionConfig{
		Type:         "sqlite",
		DBName:       filepath.Join(t.TempDir(), "test.db"),
		MaxIdleConns: 2,
		MaxOpenConns: 4,
	})
	manager.SetLogger(&recordingLogger{})
	require.NoError(t, manager.Open())
	t.Cleanup(func() { _ = manager.Disconnect() })
	return manager
}
