package main

import (
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/waldohunt/go-server/internal/catalog"
	"github.com/waldohunt/go-server/internal/config"
	"github.com/waldohunt/go-server/internal/db"
	"github.com/waldohunt/go-server/internal/httpserver"
	"github.com/waldohunt/go-server/internal/session"
	"github.com/waldohunt/go-server/internal/token"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	conn, err := db.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer conn.Close()

	srv := httpserver.New(cfg,
		catalog.New(conn),
		session.NewStore(conn),
		token.New(cfg.JWTSecret, cfg.TokenTTL),
	)
	log.Info().Str("port", cfg.Port).Msg("starting go-server")
	if err := srv.Start(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
