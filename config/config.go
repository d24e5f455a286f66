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

// Package config loads application settings from a YAML file and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/tomoncle/hummer-starter/database"
	"github.com/tomoncle/hummer-starter/server"
	"gopkg.in/yaml.v3"
)

const (
	// PathEnv overrides DefaultPath.
	PathEnv     = "APP_CONFIG"
	DefaultPath = "configs/app.yaml"
)

// ConnectionStrings holds named local connection strings. DefaultConnection
// is the fallback used when DATABASE_URL is unset.
type ConnectionStrings struct {
	DefaultConnection string `yaml:"default_connection"`
}

// LogConfig mirrors the utils logger switches.
type LogConfig struct {
	Level         string `yaml:"level"`
	ConsoleFormat string `yaml:"console_format"`
	FileEnabled   bool   `yaml:"file_enabled"`
	FileDir       string `yaml:"file_dir"`
	FileMaxAge    int    `yaml:"file_max_age_days"`
}

// Config is the application configuration file.
type Config struct {
	ConnectionStrings ConnectionStrings         `yaml:"connection_strings"`
	Database          database.ConnectionConfig `yaml:"database"`
	Server            server.Config             `yaml:"server"`
	Log               LogConfig                 `yaml:"log"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Database: *database.DefaultConnectionConfig(),
		Server:   server.DefaultConfig(),
		Log: LogConfig{
			Level:         "info",
			ConsoleFormat: "text",
			FileDir:       "logs",
			FileMaxAge:    7,
		},
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromEnv loads the file named by APP_CONFIG, or DefaultPath.
func LoadFromEnv() (*Config, error) {
	path := os.Getenv(PathEnv)
	if path == "" {
		path = DefaultPath
	}
	return Load(path)
}

// LoadDotEnv loads variables from the given .env files (".env" when none
// given) without overriding ones already set. Missing files are skipped.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}
