// Package config resolves tuaid's runtime configuration: built-in default,
// overridden by a CLI flag, overridden again by an environment variable
// when both are set (spec.md §6).
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/tuai/tuaid/pkg/model"
)

const (
	defaultListenAddr     = "127.0.0.1:50051"
	defaultRetentionHours = 168 // one week
	defaultLogLevel       = "info"
)

// Config is the fully resolved set of runtime knobs.
type Config struct {
	Server         bool
	ShowEvents     bool
	ListenAddr     string
	DBPath         string
	RetentionHours int
	LogLevel       string
	ProtectConfig  string
}

// Flags mirrors the raw cobra/pflag values, before environment override.
type Flags struct {
	Server         bool
	ShowEvents     bool
	ListenAddr     string
	DBPath         string
	RetentionHours int
	LogLevel       string
	ProtectConfig  string
}

// Resolve applies the default -> flag -> env precedence chain. An
// environment variable wins over its corresponding flag whenever both are
// set, per spec.md §6.
func Resolve(f Flags) (Config, error) {
	cfg := Config{
		Server:         f.Server,
		ShowEvents:     f.ShowEvents,
		ListenAddr:     orDefault(f.ListenAddr, defaultListenAddr),
		DBPath:         f.DBPath,
		RetentionHours: orDefaultInt(f.RetentionHours, defaultRetentionHours),
		LogLevel:       orDefault(f.LogLevel, defaultLogLevel),
		ProtectConfig:  f.ProtectConfig,
	}

	if v, ok := lookupEnv("TUAI_LISTEN_ADDR"); ok {
		cfg.ListenAddr = v
	}
	if v, ok := lookupEnv("TUAI_DB_PATH"); ok {
		cfg.DBPath = v
	}
	if v, ok := lookupEnv("TUAI_RETENTION_HOURS"); ok {
		hours, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, model.ErrConfigInvalid
		}
		cfg.RetentionHours = hours
	}
	if v, ok := lookupEnv("TUAI_LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok := lookupEnv("TUAI_PROTECT_CONFIG"); ok {
		cfg.ProtectConfig = v
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return Config{}, model.ErrConfigInvalid
	}

	if cfg.DBPath == "" {
		path, err := defaultDBPath()
		if err != nil {
			return Config{}, err
		}
		cfg.DBPath = path
	}

	return cfg, nil
}

func defaultDBPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return dir + "/tuaid/events.db", nil
}

func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
