package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"

	"github.com/confweb/talkvote/internal/model"
)

type Config struct {
	Port                 int    `env:"PORT" envDefault:"8080"`
	DatabaseURL          string `env:"DATABASE_URL,required"`
	RedisURL             string `env:"REDIS_URL,required"`
	TalksSourceURL       string `env:"TALKS_SOURCE_URL,required"`
	TalksCacheTTLSeconds int    `env:"TALKS_CACHE_TTL_SECONDS" envDefault:"300"`
	VotingOpensAt        string `env:"VOTING_OPENS_AT"`
	VotingClosesAt       string `env:"VOTING_CLOSES_AT"`
	VotingForceState     string `env:"VOTING_FORCE_STATE"`
	VoteRateLimitPerMin  int    `env:"VOTE_RATE_LIMIT_PER_MIN" envDefault:"120"`
	AdminTokenHash       string `env:"ADMIN_TOKEN_HASH"`
	CookieSecure         bool   `env:"COOKIE_SECURE" envDefault:"false"`
	LogLevel             string `env:"LOG_LEVEL" envDefault:"info"`
	OtelStdout           bool   `env:"OTEL_STDOUT" envDefault:"false"`
}

func (c *Config) TalksCacheTTL() time.Duration {
	return time.Duration(c.TalksCacheTTLSeconds) * time.Second
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// VotingWindow parses the optional RFC3339 bounds. A zero time means the
// bound is not set.
func (c *Config) VotingWindow() (opensAt, closesAt time.Time, err error) {
	if c.VotingOpensAt != "" {
		opensAt, err = time.Parse(time.RFC3339, c.VotingOpensAt)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("VOTING_OPENS_AT must be RFC3339: %w", err)
		}
	}
	if c.VotingClosesAt != "" {
		closesAt, err = time.Parse(time.RFC3339, c.VotingClosesAt)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("VOTING_CLOSES_AT must be RFC3339: %w", err)
		}
	}
	return opensAt, closesAt, nil
}

func (c *Config) Validate(isProduction bool) error {
	if c.AdminTokenHash != "" {
		if !strings.HasPrefix(c.AdminTokenHash, "$2a$") &&
			!strings.HasPrefix(c.AdminTokenHash, "$2b$") &&
			!strings.HasPrefix(c.AdminTokenHash, "$2y$") {
			return fmt.Errorf("ADMIN_TOKEN_HASH must be a bcrypt hash (generate with: go run scripts/hash-token.go)")
		}
	}

	opensAt, closesAt, err := c.VotingWindow()
	if err != nil {
		return err
	}
	if !opensAt.IsZero() && !closesAt.IsZero() && !closesAt.After(opensAt) {
		return fmt.Errorf("VOTING_CLOSES_AT must be after VOTING_OPENS_AT")
	}

	if c.VotingForceState != "" {
		if _, err := model.ParseVotingState(c.VotingForceState); err != nil {
			return fmt.Errorf("VOTING_FORCE_STATE: %w", err)
		}
	}

	if c.TalksCacheTTLSeconds <= 0 {
		return fmt.Errorf("TALKS_CACHE_TTL_SECONDS must be positive")
	}

	if isProduction {
		if !c.CookieSecure {
			log.Warn().Msg("COOKIE_SECURE is false in production: voting cookie will be sent over plain HTTP")
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
		if c.AdminTokenHash == "" {
			log.Warn().Msg("ADMIN_TOKEN_HASH is empty in production: admin API disabled")
		}
		if c.VotingForceState != "" {
			log.Warn().Str("state", c.VotingForceState).Msg("VOTING_FORCE_STATE overrides the voting window")
		}
	}

	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
