package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kiliankoe/partyhouse/assets"
	"github.com/kiliankoe/partyhouse/internal/api"
	"github.com/kiliankoe/partyhouse/internal/auth"
	"github.com/kiliankoe/partyhouse/internal/config"
	"github.com/kiliankoe/partyhouse/internal/game"
	"github.com/kiliankoe/partyhouse/internal/metrics"
	"github.com/kiliankoe/partyhouse/internal/ws"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const version = "v0.3.0-dev"

func main() {
	var (
		showHelp    = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
		portFlag    = flag.String("port", "", "Port to listen on (overrides PORT env var)")
	)
	flag.BoolVar(showHelp, "h", false, "Show help message (shorthand)")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Parse()

	if *showHelp {
		fmt.Printf(`Party House - real-time multiplayer card game server

Usage: %s [options]

Options:
  -h, --help      Show this help message
  -v, --version   Show version information
  --port PORT     Port to listen on (default: 8080 or PORT env var)

Environment Variables:
  PORT             Port to listen on (default: 8080)
  LOG_LEVEL        debug, info, warn or error (default: info)
  CONFIG_FILE      Optional YAML file with the same keys in lower case
  CARDS_FILE       Card catalog JSON (default: bundled catalog)
  JWT_SECRET       Require signed tokens on socket connections when set
  TOKEN_TTL        Lifetime of issued tokens (default: 10h)
  HOUSE_CAPACITY   Guests a house holds (default: 5)
  MARKET_SIZE      Cards in the shared market (default: 15)
  MIN_PLAYERS      Ready players needed to start (default: 1)
  EXPORT_ENABLED   Append party results to a file (default: false)
  EXPORT_FILE      Path of the results file (default: ./partyhouse-results.txt)
  METRICS_ENABLED  Serve Prometheus metrics on /metrics (default: true)

Examples:
  %s                  Start server with default settings
  %s --port 3000      Start server on port 3000
`, os.Args[0], os.Args[0], os.Args[0])
		return
	}

	if *showVersion {
		fmt.Printf("Party House %s\n", version)
		return
	}

	cfg := config.FromEnv()
	if *portFlag != "" {
		cfg.Port = *portFlag
	}

	// zerolog setup (human-friendly console)
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	catalog, err := assets.LoadCatalog(cfg.CardsFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.CardsFile).Msg("failed to load cards")
	}
	log.Info().
		Int("default", len(catalog.Default)).
		Int("non_star", len(catalog.NonStar)).
		Int("star", len(catalog.Star)).
		Msg("cards loaded")

	// Gin setup with custom logger (skip /socket.io noise)
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/socket.io") {
			return
		}
		log.Info().Str("method", c.Request.Method).Str("path", path).Int("status", c.Writer.Status()).Dur("dur", time.Since(start)).Msg("http")
	})

	rm := game.NewRoomManager(catalog, game.WithSettings(game.Settings{
		HouseCapacity: cfg.HouseCapacity,
		MarketSize:    cfg.MarketSize,
		MinPlayers:    cfg.MinPlayers,
	}))
	defer rm.Close()
	if err := rm.CheckSettings(); err != nil {
		log.Fatal().Err(err).Int("market_size", cfg.MarketSize).Msg("market cannot be filled from the card catalog")
	}

	var issuer *auth.Issuer
	if cfg.AuthEnabled() {
		issuer = auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	}

	m := metrics.New("partyhouse", nil)
	if cfg.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	(&api.Handlers{Catalog: catalog, Rooms: rm, Auth: issuer}).Register(r)

	sock := ws.New(rm, cfg, m, issuer)
	io := sock.Mount(r)
	defer io.Close()

	log.Info().Str("port", cfg.Port).Bool("auth", cfg.AuthEnabled()).Msg("listening")
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
