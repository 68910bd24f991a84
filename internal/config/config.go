package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration options for the daemon.
type Config struct {
	// Mode selects which surfaces run: http, mcp or both.
	Mode string
	// Addr is the HTTP listen address.
	Addr string
	// AuthToken protects the HTTP API when non-empty.
	AuthToken string
	// StateDir is where the SQLite database lives.
	StateDir string
	// LogLevel is one of debug, info, warn, error.
	LogLevel string
	// CacheSize bounds the in-memory task instance cache.
	CacheSize int
	// ShutdownGrace is the period granted to in-flight requests on shutdown.
	ShutdownGrace time.Duration
}

const (
	defaultMode          = "http"
	defaultAddr          = "0.0.0.0:7070"
	defaultLogLevel      = "info"
	defaultCacheSize     = 4096
	defaultShutdownGrace = 5 * time.Second
)

func getEnvString(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// Parse builds the configuration from CLI flags, environment variables and an
// optional .env file, in that priority order.
func Parse() (*Config, error) {
	// The .env file is optional; look in the working directory first, then
	// the user config directory.
	envFiles := []string{".env"}
	if configDir, err := os.UserConfigDir(); err == nil {
		envFiles = append(envFiles, filepath.Join(configDir, "tasktrackd", ".env"))
	}
	_ = godotenv.Load(envFiles...)

	cfg := &Config{
		Mode:          getEnvString("TASKTRACK_MODE", defaultMode),
		Addr:          getEnvString("TASKTRACK_ADDR", defaultAddr),
		AuthToken:     getEnvString("TASKTRACK_AUTH_TOKEN", ""),
		StateDir:      getEnvString("TASKTRACK_STATE_DIR", ""),
		LogLevel:      getEnvString("TASKTRACK_LOG_LEVEL", defaultLogLevel),
		CacheSize:     getEnvInt("TASKTRACK_CACHE_SIZE", defaultCacheSize),
		ShutdownGrace: getEnvDuration("TASKTRACK_SHUTDOWN_GRACE", defaultShutdownGrace),
	}

	var (
		mode          string
		addr          string
		stateDir      string
		logLevel      string
		cacheSize     int
		shutdownGrace time.Duration
	)
	flag.StringVar(&mode, "mode", "", "Run mode: http, mcp or both (overrides env)")
	flag.StringVar(&addr, "addr", "", "HTTP listen address (overrides env)")
	flag.StringVar(&stateDir, "state-dir", "", "Directory to store the database")
	flag.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.IntVar(&cacheSize, "cache-size", 0, "Bound of the in-memory instance cache")
	flag.DurationVar(&shutdownGrace, "shutdown-grace", 0, "Grace period when shutting down")
	flag.Parse()

	if mode != "" {
		cfg.Mode = mode
	}
	if addr != "" {
		cfg.Addr = addr
	}
	if stateDir != "" {
		cfg.StateDir = stateDir
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if cacheSize > 0 {
		cfg.CacheSize = cacheSize
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "shutdown-grace" {
			cfg.ShutdownGrace = shutdownGrace
		}
	})

	switch strings.ToLower(cfg.Mode) {
	case "http", "mcp", "both":
		cfg.Mode = strings.ToLower(cfg.Mode)
	default:
		return nil, fmt.Errorf("invalid mode %q: want http, mcp or both", cfg.Mode)
	}

	if cfg.StateDir == "" {
		dir, err := defaultStateDir()
		if err != nil {
			return nil, fmt.Errorf("resolve default state dir: %w", err)
		}
		cfg.StateDir = dir
	}
	if cfg.CacheSize < 1 {
		cfg.CacheSize = defaultCacheSize
	}

	return cfg, nil
}

func defaultStateDir() (string, error) {
	baseDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	path := filepath.Join(baseDir, "tasktrackd")
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", err
	}
	return path, nil
}
