// Command seed loads the development users, and optionally sample books, into the configured store.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"librarian/internal/config"
	"librarian/internal/database"
	"librarian/internal/logger"
	"librarian/internal/repositories"
	"librarian/internal/security"
	"librarian/internal/seed"

	"github.com/rs/zerolog"
)

func main() {
	withBooks := flag.Bool("books", false, "also insert sample books when the store has none")
	flag.Parse()

	if err := run(*withBooks); err != nil {
		bootLog := zerolog.New(os.Stderr).With().Timestamp().Logger()
		bootLog.Fatal().Err(err).Msg("seeding failed")
	}
}

func run(withBooks bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	db, err := database.Open(cfg)
	if err != nil {
		return err
	}
	if err := database.Migrate(db, cfg); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	seeder := seed.NewSeeder(
		repositories.NewGORMUserRepository(db),
		repositories.NewGORMBookRepository(db),
		security.NewPasswordHasher(cfg.BcryptCost),
		log,
	)

	users, err := seeder.Users(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}
	log.Info().Int("created", users).Msg("users seeded")

	if withBooks {
		if _, err := seeder.Books(ctx); err != nil {
			return fmt.Errorf("failed to seed books: %w", err)
		}
	}
	return nil
}
