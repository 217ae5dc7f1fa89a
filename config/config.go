/*
Package config reads server settings from the environment.

SOURCES (later wins):
  1. Built-in defaults
  2. A .env file in the working directory, if present (godotenv)
  3. Process environment
  4. Command-line flags for port and database path (applied in cmd/server)

VARIABLES:
  PORT                  HTTP port (8080)
  DB_PATH               SQLite path, ":memory:" allowed (seating.db)
  REDIS_URL             redis://... enables Redis event publishing (empty)
  REDIS_CHANNEL_PREFIX  Channel is "<prefix>:<projectID>" (seating)
  LOG_LEVEL             zerolog level name (info)
  LOG_FORMAT            json | pretty (json)
  ALLOWED_ORIGINS       Comma-separated CORS and websocket origins
*/
package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultPort          = 8080
	DefaultDBPath        = "seating.db"
	DefaultChannelPrefix = "seating"
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "json"
)

var DefaultAllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

type Config struct {
	Port               int
	DBPath             string
	RedisURL           string
	RedisChannelPrefix string
	LogLevel           string
	LogFormat          string
	AllowedOrigins     []string
}

// Pretty reports whether logs should go to a console writer.
func (c Config) Pretty() bool { return strings.EqualFold(c.LogFormat, "pretty") }

// Load reads envFile (when it exists) into the environment, then builds the
// configuration. Variables already set in the environment are not overridden.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}
	return FromEnv(Environ()), nil
}

// FromEnv builds a configuration from a key/value view of the environment.
func FromEnv(env map[string]string) Config {
	return Config{
		Port:               GetInt(env, "PORT", DefaultPort),
		DBPath:             GetString(env, "DB_PATH", DefaultDBPath),
		RedisURL:           GetString(env, "REDIS_URL", ""),
		RedisChannelPrefix: GetString(env, "REDIS_CHANNEL_PREFIX", DefaultChannelPrefix),
		LogLevel:           GetString(env, "LOG_LEVEL", DefaultLogLevel),
		LogFormat:          GetString(env, "LOG_FORMAT", DefaultLogFormat),
		AllowedOrigins:     GetList(env, "ALLOWED_ORIGINS", DefaultAllowedOrigins),
	}
}

// Environ returns the process environment as a map.
func Environ() map[string]string {
	environ := os.Environ()
	env := make(map[string]string, len(environ))
	for _, entry := range environ {
		if entry == "" {
			continue
		}
		key, value, _ := strings.Cut(entry, "=")
		env[key] = value
	}
	return env
}

// GetString returns env[key], or def when the key is missing or blank.
func GetString(env map[string]string, key, def string) string {
	if v, ok := env[key]; ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

// GetInt returns env[key] as an int, or def when missing or malformed.
func GetInt(env map[string]string, key string, def int) int {
	s, ok := env[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}

// GetList splits a comma-separated value, dropping empty items.
func GetList(env map[string]string, key string, def []string) []string {
	s := GetString(env, key, "")
	if s == "" {
		return append([]string(nil), def...)
	}
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), def...)
	}
	return out
}
