package sys

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// --- Configuration & Environment ---

type Config struct {
	Token          string
	GuildID        string
	DatabasePath   string
	LegacyDataPath string
	MetricsAddr    string
	SweepOnStartup bool
	SweepWorkers   int
	Silent         bool
}

// LoadConfig reads .env (if present) and the process environment.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		folder := "."
		if info, err := os.Stat("data"); err == nil && info.IsDir() {
			folder = "./data"
		}
		dbPath = filepath.Join(folder, GetProjectName()+".db")
	}

	legacyPath := os.Getenv("LEGACY_DATA_PATH")
	if legacyPath == "" {
		legacyPath = "data.json"
	}

	silent, _ := strconv.ParseBool(os.Getenv("SILENT"))

	sweepOnStartup := true
	if v := os.Getenv("SWEEP_ON_STARTUP"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SWEEP_ON_STARTUP %q: %w", v, err)
		}
		sweepOnStartup = parsed
	}

	workers := 2
	if v := os.Getenv("SWEEP_WORKERS"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SWEEP_WORKERS %q: %w", v, err)
		}
		workers = parsed
	}

	cfg := &Config{
		Token:          os.Getenv("DISCORD_TOKEN"),
		GuildID:        strings.TrimSpace(os.Getenv("GUILD_ID")),
		DatabasePath:   dbPath,
		LegacyDataPath: legacyPath,
		MetricsAddr:    os.Getenv("METRICS_ADDR"),
		SweepOnStartup: sweepOnStartup,
		SweepWorkers:   workers,
		Silent:         silent,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Silent {
		SetSilentMode(true)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Token == "" {
		return errors.New(MsgConfigMissingToken)
	}
	if c.GuildID != "" && (len(c.GuildID) < 17 || len(c.GuildID) > 20) {
		return errors.New("invalid GUILD_ID: must be a valid Snowflake")
	}
	if c.SweepWorkers < 1 {
		return fmt.Errorf("invalid SWEEP_WORKERS: %d (must be at least 1)", c.SweepWorkers)
	}
	return nil
}

func GetProjectName() string {
	exePath, err := os.Executable()
	projectName := "rolekeeper"
	if err == nil {
		projectName = filepath.Base(exePath)
		projectName = strings.TrimSuffix(projectName, ".exe")

		if projectName == "main" || strings.HasPrefix(projectName, "go_build_") || strings.HasSuffix(projectName, ".test") {
			projectName = "rolekeeper"
			if modData, err := os.ReadFile("go.mod"); err == nil {
				lines := strings.Split(string(modData), "\n")
				if len(lines) > 0 && strings.HasPrefix(lines[0], "module ") {
					parts := strings.Split(lines[0], "/")
					projectName = strings.TrimSpace(parts[len(parts)-1])
				}
			}
		}
	}
	return projectName
}
