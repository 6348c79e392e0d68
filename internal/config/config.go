package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	appDirName              = "movie-watchlist"
	defaultDBFileName       = "watchlist.db"
	defaultEnvFileName      = ".env"
	defaultSessionTTL       = 720 * time.Hour
	defaultArgon2MemoryKiB  = 64 * 1024
	defaultArgon2Iterations = 3
	minArgon2MemoryKiB      = 8 * 1024
	defaultLogLevel         = "warn"
	defaultLogMaxSizeMB     = 10
	defaultLogMaxFiles      = 5
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Storage StorageConfig `toml:"storage"`
	Auth    AuthConfig    `toml:"auth"`
	Logging LoggingConfig `toml:"logging"`
}

type StorageConfig struct {
	Path string `toml:"path"`
}

type AuthConfig struct {
	RequireLogin     bool          `toml:"require_login"`
	SessionTTL       time.Duration `toml:"session_ttl"`
	Argon2MemoryKiB  int           `toml:"argon2_memory_kib"`
	Argon2Iterations int           `toml:"argon2_iterations"`
}

type LoggingConfig struct {
	Level     string `toml:"level"`
	File      string `toml:"file"`
	MaxSizeMB int    `toml:"max_size_mb"`
	MaxFiles  int    `toml:"max_files"`
}

// LoadOptions carries the inputs of Load. Env, when set, is consulted before
// the process environment; EnvFile overrides WATCHLIST_ENV_FILE.
type LoadOptions struct {
	ConfigPath string
	EnvFile    string
	Env        map[string]string
	Flags      FlagOverrides
}

type FlagOverrides struct {
	DBPath       *string
	RequireLogin *bool
	LogLevel     *string
}

// LoadReport names the files that contributed to the loaded config. Empty
// fields mean the layer was absent.
type LoadReport struct {
	ConfigFile string
	EnvFile    string
}

func DefaultConfig() Config {
	return Config{
		Auth: AuthConfig{
			RequireLogin:     false,
			SessionTTL:       defaultSessionTTL,
			Argon2MemoryKiB:  defaultArgon2MemoryKiB,
			Argon2Iterations: defaultArgon2Iterations,
		},
		Logging: LoggingConfig{
			Level:     defaultLogLevel,
			File:      "",
			MaxSizeMB: defaultLogMaxSizeMB,
			MaxFiles:  defaultLogMaxFiles,
		},
	}
}

// Load resolves the config from defaults, the TOML file, the .env file, the
// environment and flags, each layer overriding the one before.
func Load(opts LoadOptions) (Config, LoadReport, error) {
	cfg := DefaultConfig()
	report := LoadReport{}

	dotenv, envPath, err := readDotEnv(opts)
	if err != nil {
		return Config{}, report, err
	}
	if dotenv != nil {
		report.EnvFile = envPath
	}
	env := envLookup{opts: opts, dotenv: dotenv}

	configPath, err := resolveConfigPath(env, opts)
	if err != nil {
		return Config{}, report, fmt.Errorf("resolve config path: %w", err)
	}
	applied, err := loadAndApplyFile(configPath, &cfg)
	if err != nil {
		return Config{}, report, err
	}
	if applied {
		report.ConfigFile = configPath
	}

	if err := applyEnvOverrides(&cfg, env); err != nil {
		return Config{}, report, err
	}
	applyFlagOverrides(&cfg, opts.Flags)

	if cfg.Storage.Path == "" {
		home, err := watchlistHome(env)
		if err != nil {
			return Config{}, report, err
		}
		cfg.Storage.Path = filepath.Join(home, defaultDBFileName)
	}
	cfg.Storage.Path = expandHome(cfg.Storage.Path)
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))

	if err := validate(cfg); err != nil {
		return Config{}, report, err
	}
	return cfg, report, nil
}

// SessionFilePath is where the CLI keeps the login token, next to the
// database it belongs to.
func (c Config) SessionFilePath() string {
	return filepath.Join(filepath.Dir(c.Storage.Path), "session")
}

type rawConfig struct {
	Storage *rawStorage `toml:"storage"`
	Auth    *rawAuth    `toml:"auth"`
	Logging *rawLogging `toml:"logging"`
}

type rawStorage struct {
	Path *string `toml:"path"`
}

type rawAuth struct {
	RequireLogin     *bool   `toml:"require_login"`
	SessionTTL       *string `toml:"session_ttl"`
	Argon2MemoryKiB  *int    `toml:"argon2_memory_kib"`
	Argon2Iterations *int    `toml:"argon2_iterations"`
}

type rawLogging struct {
	Level     *string `toml:"level"`
	File      *string `toml:"file"`
	MaxSizeMB *int    `toml:"max_size_mb"`
	MaxFiles  *int    `toml:"max_files"`
}

func loadAndApplyFile(path string, cfg *Config) (bool, error) {
	if path == "" {
		return false, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("read config file %q: %w", path, err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return false, fmt.Errorf("%w: parse TOML file %q: %v", ErrInvalidConfig, path, err)
	}
	if err := applyRawConfig(cfg, raw); err != nil {
		return false, err
	}
	return true, nil
}

func applyRawConfig(cfg *Config, raw rawConfig) error {
	if raw.Storage != nil {
		setString(raw.Storage.Path, &cfg.Storage.Path)
	}

	if raw.Auth != nil {
		setBool(raw.Auth.RequireLogin, &cfg.Auth.RequireLogin)
		if err := setDuration("auth.session_ttl", raw.Auth.SessionTTL, &cfg.Auth.SessionTTL); err != nil {
			return err
		}
		setInt(raw.Auth.Argon2MemoryKiB, &cfg.Auth.Argon2MemoryKiB)
		setInt(raw.Auth.Argon2Iterations, &cfg.Auth.Argon2Iterations)
	}

	if raw.Logging != nil {
		setString(raw.Logging.Level, &cfg.Logging.Level)
		setString(raw.Logging.File, &cfg.Logging.File)
		setInt(raw.Logging.MaxSizeMB, &cfg.Logging.MaxSizeMB)
		setInt(raw.Logging.MaxFiles, &cfg.Logging.MaxFiles)
	}
	return nil
}

func applyEnvOverrides(cfg *Config, env envLookup) error {
	if value, ok := env.lookup("WATCHLIST_DB_PATH"); ok {
		cfg.Storage.Path = value
	}

	if value, ok := env.lookup("WATCHLIST_REQUIRE_LOGIN"); ok {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: parse WATCHLIST_REQUIRE_LOGIN: %v", ErrInvalidConfig, err)
		}
		cfg.Auth.RequireLogin = parsed
	}
	if value, ok := env.lookup("WATCHLIST_SESSION_TTL"); ok {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%w: parse WATCHLIST_SESSION_TTL: %v", ErrInvalidConfig, err)
		}
		cfg.Auth.SessionTTL = d
	}

	if value, ok := env.lookup("WATCHLIST_LOG_LEVEL"); ok {
		cfg.Logging.Level = value
	}
	if value, ok := env.lookup("WATCHLIST_LOG_FILE"); ok {
		cfg.Logging.File = value
	}
	if value, ok := env.lookup("WATCHLIST_LOG_MAX_SIZE_MB"); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: parse WATCHLIST_LOG_MAX_SIZE_MB: %v", ErrInvalidConfig, err)
		}
		cfg.Logging.MaxSizeMB = parsed
	}
	if value, ok := env.lookup("WATCHLIST_LOG_MAX_FILES"); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: parse WATCHLIST_LOG_MAX_FILES: %v", ErrInvalidConfig, err)
		}
		cfg.Logging.MaxFiles = parsed
	}
	return nil
}

func applyFlagOverrides(cfg *Config, flags FlagOverrides) {
	setString(flags.DBPath, &cfg.Storage.Path)
	setBool(flags.RequireLogin, &cfg.Auth.RequireLogin)
	setString(flags.LogLevel, &cfg.Logging.Level)
}

func validate(cfg Config) error {
	if cfg.Auth.SessionTTL <= 0 {
		return fmt.Errorf("%w: auth.session_ttl must be > 0", ErrInvalidConfig)
	}
	if cfg.Auth.Argon2MemoryKiB < minArgon2MemoryKiB {
		return fmt.Errorf("%w: auth.argon2_memory_kib must be >= %d", ErrInvalidConfig, minArgon2MemoryKiB)
	}
	if cfg.Auth.Argon2Iterations < 1 {
		return fmt.Errorf("%w: auth.argon2_iterations must be >= 1", ErrInvalidConfig)
	}
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: logging.level must be one of debug, info, warn, error", ErrInvalidConfig)
	}
	if cfg.Logging.MaxSizeMB < 1 || cfg.Logging.MaxFiles < 0 {
		return fmt.Errorf("%w: logging.max_size_mb must be >= 1 and logging.max_files >= 0", ErrInvalidConfig)
	}
	return nil
}

func setDuration(field string, raw *string, target *time.Duration) error {
	if raw == nil {
		return nil
	}
	d, err := time.ParseDuration(*raw)
	if err != nil {
		return fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, field, err)
	}
	*target = d
	return nil
}

func setString(raw *string, target *string) {
	if raw != nil {
		*target = *raw
	}
}

func setBool(raw *bool, target *bool) {
	if raw != nil {
		*target = *raw
	}
}

func setInt(raw *int, target *int) {
	if raw != nil {
		*target = *raw
	}
}

// envLookup layers explicit values over the process environment over the
// .env file.
type envLookup struct {
	opts   LoadOptions
	dotenv map[string]string
}

func (e envLookup) lookup(key string) (string, bool) {
	if e.opts.Env != nil {
		if value, ok := e.opts.Env[key]; ok {
			return value, true
		}
	}
	if value, ok := os.LookupEnv(key); ok {
		return value, true
	}
	value, ok := e.dotenv[key]
	return value, ok
}

func readDotEnv(opts LoadOptions) (map[string]string, string, error) {
	path := opts.EnvFile
	if path == "" {
		bare := envLookup{opts: opts}
		if value, ok := bare.lookup("WATCHLIST_ENV_FILE"); ok {
			path = value
		} else {
			path = defaultEnvFileName
		}
	}

	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, path, nil
		}
		return nil, path, fmt.Errorf("%w: read env file %q: %v", ErrInvalidConfig, path, err)
	}
	return values, path, nil
}

// ConfigPath reports the TOML file Load would read for opts, whether or not it
// exists.
func ConfigPath(opts LoadOptions) (string, error) {
	dotenv, _, err := readDotEnv(opts)
	if err != nil {
		return "", err
	}
	return resolveConfigPath(envLookup{opts: opts, dotenv: dotenv}, opts)
}

func resolveConfigPath(env envLookup, opts LoadOptions) (string, error) {
	if opts.ConfigPath != "" {
		return opts.ConfigPath, nil
	}
	if value, ok := env.lookup("WATCHLIST_CONFIG_PATH"); ok {
		return value, nil
	}
	return defaultConfigPath(env)
}

func watchlistHome(env envLookup) (string, error) {
	if value, ok := env.lookup("WATCHLIST_HOME"); ok && value != "" {
		return value, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}

	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Application Support", appDirName), nil
	}

	dataHome := filepath.Join(home, ".local", "share")
	if xdgDataHome, ok := env.lookup("XDG_DATA_HOME"); ok && xdgDataHome != "" {
		dataHome = xdgDataHome
	}
	return filepath.Join(dataHome, appDirName), nil
}

func defaultConfigPath(env envLookup) (string, error) {
	if value, ok := env.lookup("WATCHLIST_HOME"); ok && value != "" {
		return filepath.Join(value, "config.toml"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}

	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Application Support", appDirName, "config.toml"), nil
	}

	configHome := filepath.Join(home, ".config")
	if xdgConfigHome, ok := env.lookup("XDG_CONFIG_HOME"); ok && xdgConfigHome != "" {
		configHome = xdgConfigHome
	}
	return filepath.Join(configHome, appDirName, "config.toml"), nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
