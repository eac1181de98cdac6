package main

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/Khambazarov/realtime-chat-app/internal/config"
	"github.com/Khambazarov/realtime-chat-app/internal/db"
	clog "github.com/Khambazarov/realtime-chat-app/internal/log"
	"github.com/Khambazarov/realtime-chat-app/internal/mail"
	"github.com/Khambazarov/realtime-chat-app/internal/server"
	"github.com/Khambazarov/realtime-chat-app/internal/session"
	"github.com/Khambazarov/realtime-chat-app/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	clog.Init(cfg.Env)
	if err := config.Validate(cfg); err != nil {
		log.Fatal().Err(err).Msg("validate config")
	}

	gdb, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatal().Err(err).Msg("db migrate")
	}

	redisClient, err := session.NewRedisClient(context.Background(), cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connect")
	}
	sessions := session.NewRedisStore(redisClient, session.Lifetime)

	mailer, err := mail.New(cfg.SMTP, cfg.BaseURL, cfg.AssetBase, cfg.AppName)
	if err != nil {
		log.Fatal().Err(err).Msg("mailer init")
	}

	hub := ws.NewHub()
	r := server.SetupRouter(cfg, gdb, sessions, mailer, hub)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server run")
	}
}
