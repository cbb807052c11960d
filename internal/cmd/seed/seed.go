// Package seed parses seed command flags and provisions the starting
// world fixtures.
package seed

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/louisbranch/asterfall/internal/engine/seed"
	"github.com/louisbranch/asterfall/internal/engine/storage/sqlite"
	entrypoint "github.com/louisbranch/asterfall/internal/platform/cmd"
)

// Config holds seed command configuration.
type Config struct {
	DBPath string `env:"ASTERFALL_ENGINE_DB_PATH" envDefault:"data/asterfall.db"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The engine SQLite database path")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run seeds the world and exits.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceSeed, func(ctx context.Context) error {
		if dir := filepath.Dir(cfg.DBPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create storage dir: %w", err)
			}
		}
		store, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.Printf("seed: close store: %v", err)
			}
		}()

		if err := seed.Apply(ctx, seed.Stores{
			Personas: store,
			States:   store,
			World:    store,
			Events:   store,
		}, time.Now().UTC()); err != nil {
			return err
		}
		log.Printf("seed: done db=%s", cfg.DBPath)
		return nil
	})
}
