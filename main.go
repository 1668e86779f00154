package main

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordle/apps/duel-server/internal/duel"
	"github.com/robalobadob/wordle/apps/duel-server/internal/words"
	"github.com/robalobadob/wordle/apps/duel-server/internal/wsserver"
)

// wordOracle adapts the words package to the duel.Words interface.
type wordOracle struct{}

func (wordOracle) IsAllowed(w string) bool { return words.IsAllowed(w) }
func (wordOracle) RandomAnswer() string    { return words.RandomAnswer() }

func main() {
	_ = godotenv.Load()
	if lvl, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	if err := words.Init(); err != nil {
		log.Fatal().Err(err).Msg("failed to load word lists")
	}

	db, err := openDB(getEnv("DUEL_DB", "./data/duels.db"))
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	if err := initSchema(db); err != nil {
		log.Fatal().Err(err).Msg("init schema")
	}

	secret := []byte(getEnv("JWT_SECRET", "dev_secret_change_me"))

	hub := duel.NewHub(duel.Config{
		Words:      wordOracle{},
		IssueToken: wsserver.ResumeTokenIssuer(secret),
		Record:     func(r duel.Result) { insertDuelResult(db, r) },
	})

	srv := wsserver.New(hub, secret, wsserver.Options{
		MsgsPerSec:  getEnvFloat("WS_MSGS_PER_SEC", 10),
		Burst:       getEnvInt("WS_BURST", 20),
		RecentDuels: recentDuelsHandler(db),
	})

	port := getEnv("PORT", "5176")
	log.Info().Str("port", port).Msg("starting duel-server")
	if err := srv.Start(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
