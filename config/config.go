package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const DefaultTickHz = 60

type Config struct {
	DBPath           string
	OutputDir        string // where trimmed files go; empty means next to the source
	MPVPath          string
	FFmpegPath       string
	FFprobePath      string
	InsightsModel    string
	InsightsEndpoint string
	LogFile          string
	TickHz           int
}

type fileConfig struct {
	DBPath           string `toml:"db_path"`
	OutputDir        string `toml:"output_dir"`
	MPVPath          string `toml:"mpv_path"`
	FFmpegPath       string `toml:"ffmpeg_path"`
	FFprobePath      string `toml:"ffprobe_path"`
	InsightsModel    string `toml:"insights_model"`
	InsightsEndpoint string `toml:"insights_endpoint"`
	LogFile          string `toml:"log_file"`
	TickHz           int    `toml:"tick_hz"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("could not load .env", "error", err)
	}

	cfg := &Config{
		DBPath:      filepath.Join(dataDir(), "snipscrub.db"),
		MPVPath:     "mpv",
		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",
		LogFile:     filepath.Join(dataDir(), "snipscrub.log"),
		TickHz:      DefaultTickHz,
	}

	if configPath := configFilePath(); configPath != "" {
		if err := loadFile(configPath, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if cfg.TickHz <= 0 {
		return nil, fmt.Errorf("tick_hz must be positive, got %d", cfg.TickHz)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	setPath(&cfg.DBPath, fc.DBPath)
	setPath(&cfg.OutputDir, fc.OutputDir)
	setPath(&cfg.MPVPath, fc.MPVPath)
	setPath(&cfg.FFmpegPath, fc.FFmpegPath)
	setPath(&cfg.FFprobePath, fc.FFprobePath)
	setPath(&cfg.LogFile, fc.LogFile)
	if fc.InsightsModel != "" {
		cfg.InsightsModel = fc.InsightsModel
	}
	if fc.InsightsEndpoint != "" {
		cfg.InsightsEndpoint = fc.InsightsEndpoint
	}
	if fc.TickHz != 0 {
		cfg.TickHz = fc.TickHz
	}
	return nil
}

func applyEnvOverrides(cfg *Config) error {
	setPath(&cfg.DBPath, os.Getenv("SNIPSCRUB_DB_PATH"))
	setPath(&cfg.OutputDir, os.Getenv("SNIPSCRUB_OUTPUT_DIR"))
	setPath(&cfg.MPVPath, os.Getenv("SNIPSCRUB_MPV_PATH"))
	setPath(&cfg.FFmpegPath, os.Getenv("SNIPSCRUB_FFMPEG_PATH"))
	setPath(&cfg.FFprobePath, os.Getenv("SNIPSCRUB_FFPROBE_PATH"))
	setPath(&cfg.LogFile, os.Getenv("SNIPSCRUB_LOG_FILE"))
	if v := os.Getenv("SNIPSCRUB_INSIGHTS_MODEL"); v != "" {
		cfg.InsightsModel = v
	}
	if v := os.Getenv("SNIPSCRUB_INSIGHTS_ENDPOINT"); v != "" {
		cfg.InsightsEndpoint = v
	}
	if v := os.Getenv("SNIPSCRUB_TICK_HZ"); v != "" {
		hz, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SNIPSCRUB_TICK_HZ: %w", err)
		}
		cfg.TickHz = hz
	}
	return nil
}

func setPath(dst *string, v string) {
	if v != "" {
		*dst = expandTilde(v)
	}
}

func configFilePath() string {
	var configDir string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		configDir = filepath.Join(xdg, "snipscrub")
	} else if home, err := os.UserHomeDir(); err == nil {
		configDir = filepath.Join(home, ".config", "snipscrub")
	} else {
		return ""
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}

func dataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "snipscrub")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "snipscrub")
	}
	return "."
}

func expandTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
