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

package main

import (
	"context"
	"os"

	"github.com/tomoncle/hummer-starter/bootstrap"
	"github.com/tomoncle/hummer-starter/config"
	"github.com/tomoncle/hummer-starter/database"
	"github.com/tomoncle/hummer-starter/items"
	"github.com/tomoncle/hummer-starter/server"
	"github.com/tomoncle/hummer-starter/utils"
)

func main() {
	log := utils.NewLogger("MAIN")

	if err := config.LoadDotEnv(); err != nil {
		log.WithError(err).Fatal("Failed to load .env")
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	utils.ConfigureConsoleLogFormat(utils.EnvDefaultString("CONSOLE_LOG_FORMAT", cfg.Log.ConsoleFormat))
	utils.ConfigureFileLog(utils.EnvDefaultBool("FILE_LOG_ENABLED", cfg.Log.FileEnabled), cfg.Log.FileDir, cfg.Log.FileMaxAge)
	utils.ConfigureLogLevel(utils.EnvDefaultString("LOG_LEVEL", cfg.Log.Level))

	dbLogger := database.GetLogger()
	conn, err := database.ResolveConnectionFromEnv(cfg.ConnectionStrings.DefaultConnection, dbLogger)
	if err != nil {
		log.WithError(err).Fatal("Invalid database connection settings")
	}
	conn.WithPool(cfg.Database)

	factory := database.NewDatabaseFactory()
	factory.SetLogger(dbLogger)
	manager, err := factory.CreateFromConfig(conn)
	if err != nil {
		log.WithError(err).Fatal("Failed to create database manager")
	}
	defer func() {
		if err := factory.Close(); err != nil {
			log.WithError(err).Warn("Failed to close database")
		}
	}()

	svc := items.NewService(manager, items.WithLogger(dbLogger))

	ctx := context.Background()
	bootstrap.NewSequencer(manager).Run(ctx)

	srv := server.New(cfg.Server, svc, factory)
	addr := server.ListenAddr(os.Getenv(server.PortEnv), cfg.Server.Addr)
	if err := srv.Run(ctx, addr); err != nil {
		log.WithError(err).Error("HTTP server stopped")
		_ = factory.Close()
		os.Exit(1)
	}
}
