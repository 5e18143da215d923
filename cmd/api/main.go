package main

import (
	"context"
	"time"

	"roomlink-backend/internal/config"
	"roomlink-backend/internal/interfaces/router"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load")
	}
	config.SetupLogger(cfg)

	app, db, rdb, err := router.CreateApp(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("app create")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres: get DB")
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("postgres connection failed")
	}
	log.Info().Msg("postgres connected")

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	log.Info().Msg("redis connected")

	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("listen")
	}
}
