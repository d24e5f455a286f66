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
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// AbstractDatabaseManager defines the operations for managing a database
// connection pool, handing out sessions and reporting health.
type AbstractDatabaseManager interface {
	SessionFactory
	Open() error
	Disconnect() error
	Ping(ctx context.Context) error
	HealthCheck(ctx context.Context) *HealthStatus
	GetDB() *bun.DB
	GetSQLDB() *sql.DB
	GetStats() *DBStats
	SetLogger(logger Logger)
}

// SessionFactory hands out a fresh connection-scoped session per call.
// Callers must Close every session they obtain.
type SessionFactory interface {
	Session(ctx context.Context) (*Session, error)
}

// HealthStatus holds the result of a health check against the database.
type HealthStatus struct {
	Healthy       bool          `json:"healthy"`
	Connected     bool          `json:"connected"`
	ResponseTime  time.Duration `json:"response_time"`
	ActiveConns   int           `json:"active_conns"`
	IdleConns     int           `json:"idle_conns"`
	MaxOpenConns  int           `json:"max_open_conns"`
	LastError     string        `json:"last_error,omitempty"`
	LastCheckTime time.Time     `json:"last_check_time"`
}

// DBStats mirrors database/sql stats returned by the manager.
type DBStats struct {
	MaxOpenConns      int           `json:"max_open_conns"`
	OpenConns         int           `json:"open_conns"`
	InUse             int           `json:"in_use"`
	Idle              int           `json:"idle"`
	WaitCount         int64         `json:"wait_count"`
	WaitDuration      time.Duration `json:"wait_duration"`
	MaxIdleClosed     int64         `json:"max_idle_closed"`
	MaxIdleTimeClosed int64         `json:"max_idle_time_closed"`
	MaxLifetimeClosed int64         `json:"max_lifetime_closed"`
}

// ConnectionConfig is the resolved connection descriptor plus pool tuning.
type ConnectionConfig struct {
	Type                   string        `yaml:"type"` // postgres, mysql, sqlite
	Host                   string        `yaml:"-"`
	Port                   int           `yaml:"-"`
	Username               string        `yaml:"-"`
	Password               string        `yaml:"-"`
	DBName                 string        `yaml:"-"`
	SSLMode                string        `yaml:"-"`
	TrustServerCertificate bool          `yaml:"-"`
	MaxIdleConns           int           `yaml:"max_idle_conns"`
	MaxOpenConns           int           `yaml:"max_open_conns"`
	ConnMaxLifetime        time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime        time.Duration `yaml:"conn_max_idle_time"`
	ConnectTimeout         time.Duration `yaml:"connect_timeout"`
	ReadTimeout            time.Duration `yaml:"read_timeout"`
	WriteTimeout           time.Duration `yaml:"write_timeout"`
	EnableQueryLog         bool          `yaml:"enable_query_log"`
	SlowQueryTime          time.Duration `yaml:"slow_query_time"`
}

// IsEmpty reports whether no endpoint was resolved at all.
func (c *ConnectionConfig) IsEmpty() bool {
	return c == nil || (c.Host == "" && c.DBName == "")
}

// RequiresTLS reports whether the descriptor asks for an encrypted link.
func (c *ConnectionConfig) RequiresTLS() bool {
	switch c.SSLMode {
	case "require", "verify-ca", "verify-full":
		return true
	}
	return false
}

// Redacted renders the descriptor for logs; the password never appears.
func (c *ConnectionConfig) Redacted() string {
	if c == nil {
		return "<nil>"
	}
	return fmt.Sprintf("Type=%s;Host=%s;Port=%d;Database=%s;Username=%s", c.Type, c.Host, c.Port, c.DBName, c.Username)
}

// String is Redacted, so a descriptor passed to a formatter cannot leak.
func (c *ConnectionConfig) String() string { return c.Redacted() }

// WithPool copies the pool and logging settings of tuning onto c.
func (c *ConnectionConfig) WithPool(tuning ConnectionConfig) *ConnectionConfig {
	if tuning.Type != "" && c.Type == "" {
		c.Type = tuning.Type
	}
	c.MaxIdleConns = tuning.MaxIdleConns
	c.MaxOpenConns = tuning.MaxOpenConns
	c.ConnMaxLifetime = tuning.ConnMaxLifetime
	c.ConnMaxIdleTime = tuning.ConnMaxIdleTime
	c.ConnectTimeout = tuning.ConnectTimeout
	c.ReadTimeout = tuning.ReadTimeout
	c.WriteTimeout = tuning.WriteTimeout
	c.EnableQueryLog = tuning.EnableQueryLog
	c.SlowQueryTime = tuning.SlowQueryTime
	return c
}

// DefaultConnectionConfig returns a connection config with sensible defaults.
func DefaultConnectionConfig() *ConnectionConfig {
	return &ConnectionConfig{
		Type:            "postgres",
		MaxIdleConns:    10,
		MaxOpenConns:    100,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: time.Minute * 30,
		ConnectTimeout:  time.Second * 10,
		ReadTimeout:     time.Second * 30,
		WriteTimeout:    time.Second * 30,
		EnableQueryLog:  false,
		SlowQueryTime:   time.Second * 2,
	}
}
