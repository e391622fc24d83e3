package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/tidwall/jsonc"
)

// ErrHomeNotFound means the OpenClaw home directory does not exist.
var ErrHomeNotFound = errors.New("openclaw home directory not found")

const (
	defaultHome        = "~/.openclaw"
	defaultPort        = "3456"
	defaultLogPoll     = time.Second
	defaultStatePoll   = 2 * time.Second
	defaultBacklogMax  = 500
	defaultRatePerMin  = 600
	defaultEnvironment = "development"
)

// stateFiles are the workspace documents watched for changes, in order.
var stateFiles = []string{
	"KANBAN.md",
	"SESSION-STATE.md",
	"IDENTITY.md",
	"SOUL.md",
	"MEMORY.md",
	"SOVEREIGN_PLAN.md",
	"STABILITY.md",
}

// DashboardConfig holds runtime configuration for the dashboard server.
type DashboardConfig struct {
	Environment        string
	Addr               string
	Home               string
	Workspace          string
	LogPath            string
	LogPollInterval    time.Duration
	StatePollInterval  time.Duration
	BacklogMax         int
	StaticDir          string
	FSNotify           bool
	LogLevel           string
	RateLimitPerMinute int
	RateLimitRedisAddr string
	RateLimitRedisPass string
	RateLimitRedisDB   int
}

type fileConfig struct {
	Addr      string `toml:"addr"`
	Home      string `toml:"home"`
	Workspace string `toml:"workspace"`
	StaticDir string `toml:"static_dir"`
	LogLevel  string `toml:"log_level"`
	Watch     struct {
		LogPollMS   int   `toml:"log_poll_ms"`
		StatePollMS int   `toml:"state_poll_ms"`
		FSNotify    *bool `toml:"fsnotify"`
	} `toml:"watch"`
	Backlog struct {
		Max int `toml:"max"`
	} `toml:"backlog"`
	RateLimit struct {
		PerMinute     int    `toml:"per_minute"`
		RedisAddr     string `toml:"redis_addr"`
		RedisPassword string `toml:"redis_password"`
		RedisDB       int    `toml:"redis_db"`
	} `toml:"rate_limit"`
}

// LoadDashboardConfig reads .env, then the optional TOML file at path, then
// the environment. Environment variables win over file values.
func LoadDashboardConfig(path string) (DashboardConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return DashboardConfig{}, fmt.Errorf("load .env: %w", err)
	}
	if path == "" {
		path = os.Getenv("OPENCLAW_DASHBOARD_CONFIG")
	}
	file, err := readFileConfig(path)
	if err != nil {
		return DashboardConfig{}, err
	}

	addr := orDefault(file.Addr, ":"+defaultPort)
	if port, ok := os.LookupEnv("PORT"); ok && port != "" {
		addr = ":" + port
	}

	cfg := DashboardConfig{
		Environment:        GetString("APP_ENV", defaultEnvironment),
		Addr:               GetString("DASHBOARD_ADDR", addr),
		Home:               expandPath(GetString("OPENCLAW_HOME", orDefault(file.Home, defaultHome))),
		LogPollInterval:    GetMillis("LOG_POLL_MS", millisOr(file.Watch.LogPollMS, defaultLogPoll)),
		StatePollInterval:  GetMillis("STATE_POLL_MS", millisOr(file.Watch.StatePollMS, defaultStatePoll)),
		BacklogMax:         GetInt("LOG_BACKLOG_MAX", intOr(file.Backlog.Max, defaultBacklogMax)),
		StaticDir:          GetString("DASHBOARD_STATIC_DIR", file.StaticDir),
		FSNotify:           GetBool("WATCH_FSNOTIFY", file.Watch.FSNotify == nil || *file.Watch.FSNotify),
		LogLevel:           GetString("LOG_LEVEL", orDefault(file.LogLevel, "info")),
		RateLimitPerMinute: GetInt("RATE_LIMIT_PER_MINUTE", intOr(file.RateLimit.PerMinute, defaultRatePerMin)),
		RateLimitRedisAddr: GetString("RATE_LIMIT_REDIS_ADDR", file.RateLimit.RedisAddr),
		RateLimitRedisPass: GetString("RATE_LIMIT_REDIS_PASSWORD", file.RateLimit.RedisPassword),
		RateLimitRedisDB:   GetInt("RATE_LIMIT_REDIS_DB", file.RateLimit.RedisDB),
	}
	cfg.LogPath = filepath.Join(cfg.Home, "logs", "gateway.log")
	if cfg.StaticDir != "" {
		cfg.StaticDir = expandPath(cfg.StaticDir)
	}

	workspace := GetString("OPENCLAW_WORKSPACE", file.Workspace)
	if workspace == "" {
		workspace = workspaceFromOpenclaw(filepath.Join(cfg.Home, "openclaw.json"))
	}
	if workspace == "" {
		workspace = filepath.Join(cfg.Home, "workspace")
	}
	cfg.Workspace = expandPath(workspace)
	return cfg, nil
}

// Validate fails with ErrHomeNotFound when the home directory is missing.
func (c DashboardConfig) Validate() error {
	info, err := os.Stat(c.Home)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrHomeNotFound, c.Home)
		}
		return fmt.Errorf("stat home: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrHomeNotFound, c.Home)
	}
	return nil
}

// StatePaths lists the watched state files and directories, in order.
func (c DashboardConfig) StatePaths() []string {
	paths := make([]string, 0, len(stateFiles)+3)
	for _, name := range stateFiles {
		paths = append(paths, filepath.Join(c.Workspace, name))
	}
	return append(paths,
		filepath.Join(c.Home, "cron", "jobs.json"),
		filepath.Join(c.Home, "openclaw.json"),
		filepath.Join(c.Workspace, "memory"),
	)
}

// WatchedPaths is the log path followed by StatePaths.
func (c DashboardConfig) WatchedPaths() []string {
	return append([]string{c.LogPath}, c.StatePaths()...)
}

func readFileConfig(path string) (fileConfig, error) {
	var file fileConfig
	if strings.TrimSpace(path) == "" {
		return file, nil
	}
	data, err := os.ReadFile(expandPath(path))
	if err != nil {
		return file, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &file); err != nil {
		return file, fmt.Errorf("parse config: %w", err)
	}
	return file, nil
}

// workspaceFromOpenclaw returns agents.defaults.workspace, or "".
func workspaceFromOpenclaw(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	var doc struct {
		Agents struct {
			Defaults struct {
				Workspace string `json:"workspace"`
			} `json:"defaults"`
		} `json:"agents"`
	}
	if err := json.Unmarshal(jsonc.ToJSON(data), &doc); err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Agents.Defaults.Workspace)
}

func expandPath(path string) string {
	trimmed := strings.TrimSpace(path)
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return trimmed
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return strings.TrimSpace(v)
}

func intOr(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

func millisOr(ms int, fallback time.Duration) time.Duration {
	if ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}
