// Package config loads server settings from defaults, an optional JSON file
// and CHESS_* environment variables, in that order.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/benbeisheim/chess-backend/internal/opponent"
)

// Duration reads "3s" style strings in JSON.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"3s\": %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) D() time.Duration {
	return time.Duration(d)
}

type Config struct {
	ListenAddr  string   `json:"listen_addr"`
	CORSOrigins []string `json:"cors_origins"`
	IdleTimeout Duration `json:"idle_timeout"`

	Opponent      opponent.Kind `json:"opponent"`
	EnginePath    string        `json:"engine_path"`
	SearchDepth   int           `json:"search_depth"`
	MoveTime      Duration      `json:"move_time"`
	EngineTimeout Duration      `json:"engine_timeout"`
	ThinkDelay    Duration      `json:"think_delay"`

	RedisURL string `json:"redis_url"`

	LogLevel    string `json:"log_level"`
	Development bool   `json:"development"`
}

func Default() Config {
	return Config{
		ListenAddr:    ":3000",
		CORSOrigins:   []string{"http://localhost:5173"},
		IdleTimeout:   Duration(2 * time.Hour),
		Opponent:      opponent.KindRandom,
		EnginePath:    "stockfish",
		SearchDepth:   12,
		MoveTime:      Duration(time.Second),
		EngineTimeout: Duration(3 * time.Second),
		ThinkDelay:    Duration(140 * time.Millisecond),
		LogLevel:      "info",
	}
}

// Load reads path over the defaults (an empty path skips the file), applies
// the environment and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	dur := func(key string, dst *Duration) error {
		if v, ok := lookup(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = Duration(d)
		}
		return nil
	}

	str("CHESS_LISTEN_ADDR", &c.ListenAddr)
	if v, ok := lookup("CHESS_CORS_ORIGINS"); ok {
		c.CORSOrigins = splitList(v)
	}
	if v, ok := lookup("CHESS_OPPONENT"); ok {
		c.Opponent = opponent.Kind(v)
	}
	str("CHESS_ENGINE_PATH", &c.EnginePath)
	if v, ok := lookup("CHESS_SEARCH_DEPTH"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CHESS_SEARCH_DEPTH: %w", err)
		}
		c.SearchDepth = n
	}
	str("CHESS_REDIS_URL", &c.RedisURL)
	str("CHESS_LOG_LEVEL", &c.LogLevel)
	if v, ok := lookup("CHESS_DEVELOPMENT"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CHESS_DEVELOPMENT: %w", err)
		}
		c.Development = b
	}

	return errors.Join(
		dur("CHESS_IDLE_TIMEOUT", &c.IdleTimeout),
		dur("CHESS_MOVE_TIME", &c.MoveTime),
		dur("CHESS_ENGINE_TIMEOUT", &c.EngineTimeout),
		dur("CHESS_THINK_DELAY", &c.ThinkDelay),
	)
}

func (c Config) Validate() error {
	var errs []error
	if c.ListenAddr == "" {
		errs = append(errs, errors.New("listen_addr is required"))
	}
	switch c.Opponent {
	case opponent.KindRandom, opponent.KindEmbedded:
	case opponent.KindUCI:
		if c.EnginePath == "" {
			errs = append(errs, errors.New("engine_path is required for the uci opponent"))
		}
	default:
		errs = append(errs, fmt.Errorf("opponent must be random, uci or embedded, got %q", c.Opponent))
	}
	if c.SearchDepth < 1 || c.SearchDepth > 64 {
		errs = append(errs, fmt.Errorf("search_depth %d out of range 1..64", c.SearchDepth))
	}
	for name, d := range map[string]Duration{
		"idle_timeout":   c.IdleTimeout,
		"move_time":      c.MoveTime,
		"engine_timeout": c.EngineTimeout,
		"think_delay":    c.ThinkDelay,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}
	return errors.Join(errs...)
}

// OpponentOptions maps the engine settings onto opponent.Options.
func (c Config) OpponentOptions() opponent.Options {
	return opponent.Options{
		Kind:       c.Opponent,
		EnginePath: c.EnginePath,
		Depth:      c.SearchDepth,
		MoveTime:   c.MoveTime.D(),
		Timeout:    c.EngineTimeout.D(),
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
