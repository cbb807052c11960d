// Package engine parses engine command flags and launches the
// simulation runtime: the turn engine plus the planner sweep loop.
package engine

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/louisbranch/asterfall/internal/engine"
	"github.com/louisbranch/asterfall/internal/engine/planner"
	"github.com/louisbranch/asterfall/internal/engine/policy"
	"github.com/louisbranch/asterfall/internal/engine/quota"
	"github.com/louisbranch/asterfall/internal/engine/storage/sqlite"
	"github.com/louisbranch/asterfall/internal/engine/validator"
	entrypoint "github.com/louisbranch/asterfall/internal/platform/cmd"
)

// Config holds engine command configuration.
type Config struct {
	DBPath              string        `env:"ASTERFALL_ENGINE_DB_PATH" envDefault:"data/asterfall.db"`
	Backend             string        `env:"ASTERFALL_ENGINE_BACKEND" envDefault:"stub"`
	BackendURL          string        `env:"ASTERFALL_ENGINE_BACKEND_URL"`
	BackendModel        string        `env:"ASTERFALL_ENGINE_BACKEND_MODEL" envDefault:"gpt-4o-mini"`
	BackendAPIKey       string        `env:"ASTERFALL_ENGINE_BACKEND_API_KEY"`
	BackendTimeout      time.Duration `env:"ASTERFALL_ENGINE_BACKEND_TIMEOUT" envDefault:"20s"`
	MaxInputChars       int           `env:"ASTERFALL_ENGINE_MAX_INPUT_CHARS" envDefault:"2000"`
	GlobalDailyCeiling  int           `env:"ASTERFALL_ENGINE_GLOBAL_DAILY_CEILING" envDefault:"200"`
	PerUserDailyCeiling int           `env:"ASTERFALL_ENGINE_PER_USER_DAILY_CEILING" envDefault:"20"`
	MinTickInterval     time.Duration `env:"ASTERFALL_ENGINE_MIN_TICK_INTERVAL" envDefault:"10m"`
	SweepInterval       time.Duration `env:"ASTERFALL_ENGINE_SWEEP_INTERVAL" envDefault:"1m"`
	TickParallelism     int           `env:"ASTERFALL_ENGINE_TICK_PARALLELISM" envDefault:"4"`
	PinnedMemoryCap     int           `env:"ASTERFALL_ENGINE_PINNED_MEMORY_CAP" envDefault:"10"`
	MoodDecayDivisor    int           `env:"ASTERFALL_ENGINE_MOOD_DECAY_DIVISOR" envDefault:"10"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The engine SQLite database path")
	fs.StringVar(&cfg.Backend, "backend", cfg.Backend, "Policy backend: stub or openai")
	fs.StringVar(&cfg.BackendURL, "backend-url", cfg.BackendURL, "Chat completions endpoint URL")
	fs.StringVar(&cfg.BackendModel, "backend-model", cfg.BackendModel, "Generative model name")
	fs.DurationVar(&cfg.BackendTimeout, "backend-timeout", cfg.BackendTimeout, "Generative call timeout")
	fs.IntVar(&cfg.MaxInputChars, "max-input-chars", cfg.MaxInputChars, "Per-call input character cap")
	fs.IntVar(&cfg.GlobalDailyCeiling, "global-daily-ceiling", cfg.GlobalDailyCeiling, "Daily global generative call ceiling")
	fs.IntVar(&cfg.PerUserDailyCeiling, "per-user-daily-ceiling", cfg.PerUserDailyCeiling, "Daily per-user generative call ceiling")
	fs.DurationVar(&cfg.MinTickInterval, "min-tick-interval", cfg.MinTickInterval, "Minimum gap between ticks of one NPC")
	fs.DurationVar(&cfg.SweepInterval, "sweep-interval", cfg.SweepInterval, "Planner sweep interval")
	fs.IntVar(&cfg.TickParallelism, "tick-parallelism", cfg.TickParallelism, "Concurrent ticks per sweep")
	fs.IntVar(&cfg.PinnedMemoryCap, "pinned-memory-cap", cfg.PinnedMemoryCap, "Retained pinned memories per NPC")
	fs.IntVar(&cfg.MoodDecayDivisor, "mood-decay-divisor", cfg.MoodDecayDivisor, "Mood decay divisor toward baseline")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the engine runtime and blocks until the context ends.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceEngine, func(ctx context.Context) error {
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
				log.Printf("engine: close store: %v", err)
			}
		}()

		ledger := quota.NewLedger(store, cfg.GlobalDailyCeiling, cfg.PerUserDailyCeiling)
		generative, err := buildBackend(cfg)
		if err != nil {
			return err
		}
		gateway := policy.NewGateway(generative, ledger, policy.GatewayConfig{
			MaxInputChars: cfg.MaxInputChars,
			CallTimeout:   cfg.BackendTimeout,
		})

		eng := engine.New(engine.Stores{
			Personas: store,
			States:   store,
			World:    store,
			Events:   store,
		}, gateway, engine.Config{
			Validator: validator.Config{
				MoodDecayDivisor: cfg.MoodDecayDivisor,
				PinnedMemoryCap:  cfg.PinnedMemoryCap,
			},
		})

		sweep := planner.New(eng, planner.Stores{
			Personas: store,
			States:   store,
			World:    store,
			Events:   store,
		}, planner.Config{
			MinTickInterval: cfg.MinTickInterval,
			SweepInterval:   cfg.SweepInterval,
			Parallelism:     cfg.TickParallelism,
		})

		log.Printf("engine: started backend=%s db=%s sweep=%s", cfg.Backend, cfg.DBPath, cfg.SweepInterval)
		return sweep.Run(ctx)
	})
}

func buildBackend(cfg Config) (policy.Policy, error) {
	switch policy.Kind(cfg.Backend) {
	case policy.KindStub:
		return nil, nil
	case policy.KindOpenAI:
		return policy.NewGenerative(policy.GenerativeConfig{
			CompletionsURL: cfg.BackendURL,
			Model:          cfg.BackendModel,
			APIKey:         cfg.BackendAPIKey,
			HTTPClient:     &http.Client{Timeout: cfg.BackendTimeout},
		}), nil
	default:
		return nil, fmt.Errorf("unknown policy backend %q", cfg.Backend)
	}
}
