package config

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Port           string
	LogLevel       string
	CardsFile      string
	JWTSecret      string
	TokenTTL       time.Duration
	HouseCapacity  int
	MarketSize     int
	MinPlayers     int
	ExportEnabled  bool
	ExportFile     string
	MetricsEnabled bool
}

// FromEnv reads the configuration from the environment, layered over an
// optional YAML file named by CONFIG_FILE.
func FromEnv() Config {
	v := viper.New()
	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("cards_file", "")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("token_ttl", "10h")
	v.SetDefault("house_capacity", 5)
	v.SetDefault("market_size", 15)
	v.SetDefault("min_players", 1)
	v.SetDefault("export_enabled", false)
	v.SetDefault("export_file", "./partyhouse-results.txt")
	v.SetDefault("metrics_enabled", true)
	v.AutomaticEnv()

	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			log.Warn().Err(err).Str("file", path).Msg("config file not loaded")
		}
	}

	c := Config{}
	c.Port = v.GetString("port")
	c.LogLevel = v.GetString("log_level")
	c.CardsFile = v.GetString("cards_file")
	c.JWTSecret = v.GetString("jwt_secret")
	c.TokenTTL = v.GetDuration("token_ttl")
	c.HouseCapacity = v.GetInt("house_capacity")
	c.MarketSize = v.GetInt("market_size")
	c.MinPlayers = v.GetInt("min_players")
	c.ExportEnabled = v.GetBool("export_enabled")
	c.ExportFile = v.GetString("export_file")
	c.MetricsEnabled = v.GetBool("metrics_enabled")
	return c
}

// AuthEnabled reports whether socket connections need a signed token.
func (c Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}
