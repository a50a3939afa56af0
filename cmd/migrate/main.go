// Command migrate applies the embedded postgres migrations to DATABASE_URL.
package main

import (
	"errors"
	"flag"
	"os"

	"librarian/internal/database"
	"librarian/internal/logger"

	"github.com/spf13/viper"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up or down")
	flag.Parse()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig()
	v.AutomaticEnv()
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	log := logger.New(logger.Config{Level: v.GetString("LOG_LEVEL"), Format: v.GetString("LOG_FORMAT")})

	err := database.RunMigrations(v.GetString("DATABASE_URL"), *direction)
	switch {
	case errors.Is(err, database.ErrNoChange):
		log.Info().Str("direction", *direction).Msg("no migrations to apply")
	case err != nil:
		log.Error().Err(err).Str("direction", *direction).Msg("migration failed")
		os.Exit(1)
	default:
		log.Info().Str("direction", *direction).Msg("migrations applied")
	}
}
