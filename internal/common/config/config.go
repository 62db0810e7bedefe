package config

import (
	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Server struct {
		Port   int    `env:"PORT" envDefault:"8080"`
		Origin string `env:"ORIGIN" envDefault:"http://localhost:3000"`
	}

	Redis struct {
		Host     string `env:"REDIS_HOST" envDefault:"localhost"`
		Port     int    `env:"REDIS_PORT" envDefault:"6379"`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	// Optional archive database. Empty URI disables archival entirely.
	Mongo struct {
		URI      string `env:"MONGO_URI" envDefault:""`
		Database string `env:"MONGO_DB" envDefault:"communitybot"`
	}

	Chat struct {
		APIBaseURL string `env:"CHAT_API_URL,required"`
		BotToken   string `env:"BOT_TOKEN,required"`

		// Client-side rate limit for outbound platform calls.
		RequestsPerSecond float64 `env:"CHAT_RPS" envDefault:"10"`

		// Guilds whose invite snapshots are warmed at startup.
		GuildIDs []string `env:"GUILD_IDS" envSeparator:","`

		// When set, attributed joins post a welcome message here.
		WelcomeChannelID string `env:"WELCOME_CHANNEL_ID" envDefault:""`
	}

	Moderation struct {
		BadWords []string `env:"BAD_WORDS" envSeparator:","`
	}

	Log struct {
		Dir string `env:"LOG_DIR" envDefault:"logs"`
	}

	Auth struct {
		StaffTokens []string `env:"STAFF_TOKENS" envSeparator:","`
	}
}

func Load() *Config {
	// .env is optional; production sets variables directly.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		panic(err)
	}

	return cfg
}
