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
	"net/url"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresDSN(t *testing.T) {
	t.Run("Should bracket an IPv6 host", func(t *testing.T) {
		cfg, err := ParseDatabaseURL("postgres://u:p@[::1]:5432/app")
		require.NoError(t, err)

		u, err := url.Parse(postgresDSN(cfg))
		require.NoError(t, err)
		assert.Equal(t, "::1", u.Hostname())
		assert.Equal(t, "5432", u.Port())
		assert.Equal(t, "/app", u.Path)
		assert.Equal(t, "require", u.Query().Get("sslmode"))
		assert.Equal(t, "10", u.Query().Get("connect_timeout"))
	})

	t.Run("Should omit userinfo when there is no username", func(t *testing.T) {
		cfg, err := ParseConnectionString("postgres://localhost/app")
		require.NoError(t, err)

		u, err := url.Parse(postgresDSN(cfg))
		require.NoError(t, err)
		assert.Nil(t, u.User)
		assert.Equal(t, "disable", u.Query().Get("sslmode"))
	})
}

func TestMySQLDSN(t *testing.T) {
	t.Run("Should bracket an IPv6 host and keep TLS settings", func(t *testing.T) {
		cfg, err := ParseDatabaseURL("mysql://u:p%40ss@[::1]/app")
		require.NoError(t, err)

		mc, err := mysql.ParseDSN(mysqlDSN(cfg))
		require.NoError(t, err)
		assert.Equal(t, "tcp", mc.Net)
		assert.Equal(t, "[::1]:3306", mc.Addr)
		assert.Equal(t, "u", mc.User)
		assert.Equal(t, "p@ss", mc.Passwd)
		assert.Equal(t, "app", mc.DBName)
		assert.Equal(t, "skip-verify", mc.TLSConfig)
		assert.True(t, mc.ParseTime)
	})

	t.Run("Should leave TLS off for a local descriptor", func(t *testing.T) {
		cfg, err := ParseConnectionString("mysql://dev:pw@db:3307/app")
		require.NoError(t, err)

		mc, err := mysql.ParseDSN(mysqlDSN(cfg))
		require.NoError(t, err)
		assert.Equal(t, "db:3307", mc.Addr)
		assert.Empty(t, mc.TLSConfig)
	})
}
