// Package config reads process settings from the environment and the
// optional tunables file.
package config

import (
	"encoding/json"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"trench_war_server/logic"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// Environment variables.
const (
	EnvPort       = "PORT"
	EnvLogLevel   = "LOG_LEVEL"
	EnvDBPath     = "TRENCHWAR_DB"
	EnvStaticDir  = "TRENCHWAR_STATIC"
	EnvConfigPath = "TRENCHWAR_CONFIG"
)

const DefaultPort = 3000

// Settings are the process level options.
type Settings struct {
	Port       int
	LogLevel   string
	DBPath     string // empty disables profiles
	StaticDir  string
	ConfigPath string // empty uses the built-in tunables
}

// LoadEnv loads the given dotenv files (".env" when none are named) into the
// environment. Missing files are skipped; variables already set win.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return errors.Wrapf(err, "load env file %s failed", f)
		}
		logger.WithField("file", f).Debug("loaded environment file")
	}
	return nil
}

// FromEnv reads Settings from the environment, applying defaults.
func FromEnv() Settings {
	s := Settings{
		Port:       DefaultPort,
		LogLevel:   getEnv(EnvLogLevel, "info"),
		DBPath:     os.Getenv(EnvDBPath),
		StaticDir:  getEnv(EnvStaticDir, "public"),
		ConfigPath: os.Getenv(EnvConfigPath),
	}
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			logger.WithField("value", v).Warn("invalid PORT, using default")
		} else {
			s.Port = port
		}
	}
	return s
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// LoadGameConfig reads the tunables file at path over the defaults and clamps
// the result. An empty path yields the defaults.
func LoadGameConfig(path string) (*logic.GameConfig, error) {
	cfg := logic.DefaultGameConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s failed", path)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s failed", path)
	}
	logic.ClampGameConfig(cfg)
	return cfg, nil
}
