package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// AttributionMode selects how the explainer treats absent features when
// decomposing a score into per-feature contributions.
type AttributionMode string

const (
	// AttributionPresentOnly reports every feature present in the candidate
	// row, plus row-absent features that occur in the query set (q_j > 0).
	AttributionPresentOnly AttributionMode = "present_only"
	// AttributionIncludeAbsent additionally reports the (typically
	// negative) contribution of features absent from both the candidate row
	// and the query set.
	AttributionIncludeAbsent AttributionMode = "include_absent"
)

// Config represents the complete baysets configuration.
// It mirrors the schema described in SPEC_FULL.md section 6.
type Config struct {
	Version     int               `yaml:"version" json:"version"`
	Paths       PathsConfig       `yaml:"paths" json:"paths"`
	Model       ModelConfig       `yaml:"model" json:"model"`
	Query       QueryConfig       `yaml:"query" json:"query"`
	Ingest      IngestConfig      `yaml:"ingest" json:"ingest"`
	Performance PerformanceConfig `yaml:"performance" json:"performance"`
	Cache       CacheConfig       `yaml:"cache" json:"cache"`
	Daemon      DaemonConfig      `yaml:"daemon" json:"daemon"`
	MCP         MCPConfig         `yaml:"mcp" json:"mcp"`
	Logging     LoggingConfig     `yaml:"logging" json:"logging"`
}

// PathsConfig configures where the computed index lives on disk.
type PathsConfig struct {
	// IndexDir is the directory containing the .xco/.yco/.ids/.fts files.
	IndexDir string `yaml:"index_dir" json:"index_dir"`
}

// ModelConfig configures the Beta-Bernoulli hyperparameter precomputation.
type ModelConfig struct {
	// SmoothingC is the smoothing constant `c` added to both the present
	// and absent pseudo-counts (spec §4.3). Default: 2.
	SmoothingC float64 `yaml:"smoothing_c" json:"smoothing_c"`
	// ParallelRowThreshold is the row count above which CSR construction's
	// per-row sort/compact pass (§4.2 step 3) is parallelized with
	// errgroup instead of run serially.
	ParallelRowThreshold int `yaml:"parallel_row_threshold" json:"parallel_row_threshold"`
}

// QueryConfig configures default query-time behavior.
type QueryConfig struct {
	// TopKDefault is the top-K used when a query omits one explicitly.
	TopKDefault int `yaml:"top_k_default" json:"top_k_default"`
	// AttributionMode is the default explainer mode.
	AttributionMode AttributionMode `yaml:"attribution_mode" json:"attribution_mode"`
	// MaxExplainTerms caps the number of per-feature contributions an
	// explain call returns (0 means unbounded).
	MaxExplainTerms int `yaml:"max_explain_terms" json:"max_explain_terms"`
}

// IngestConfig configures which PairSource implementation the builder uses
// and its connection details.
type IngestConfig struct {
	// Source selects the PairSource implementation: "memory", "sqlite", or
	// "flatfile".
	Source string `yaml:"source" json:"source"`
	// SQLiteDSN is the data source name for the sqlite-backed cursor.
	SQLiteDSN string `yaml:"sqlite_dsn" json:"sqlite_dsn"`
	// SQLiteQuery is the SELECT statement returning (item_id, feature_label)
	// rows for the sqlite-backed cursor.
	SQLiteQuery string `yaml:"sqlite_query" json:"sqlite_query"`
	// FlatFilePath is the path to a newline-delimited "item_id feature_label"
	// replay file for the flat-file source.
	FlatFilePath string `yaml:"flat_file_path" json:"flat_file_path"`
}

// PerformanceConfig configures performance tuning options.
type PerformanceConfig struct {
	BuildWorkers int `yaml:"build_workers" json:"build_workers"`
}

// CacheConfig configures the LRU cache of loaded computed indexes.
type CacheConfig struct {
	// MaxIndexes is the maximum number of distinct index directories kept
	// resident at once.
	MaxIndexes int `yaml:"max_indexes" json:"max_indexes"`
	// EnableDiskCache is parsed, merged and defaulted with the rest of the
	// config, but no code path reads it: no on-disk cache file is written or
	// read, and every load parses the four text files.
	EnableDiskCache bool `yaml:"enable_disk_cache" json:"enable_disk_cache"`
	// WatchForReload enables the fsnotify directory watcher that detects a
	// whole-directory index replacement and triggers a reload.
	WatchForReload bool `yaml:"watch_for_reload" json:"watch_for_reload"`
}

// DaemonConfig configures the Unix-socket query server.
type DaemonConfig struct {
	SocketPath string `yaml:"socket_path" json:"socket_path"`
	PIDFile    string `yaml:"pid_file" json:"pid_file"`
	LogLevel   string `yaml:"log_level" json:"log_level"`
}

// MCPConfig configures the MCP tool server transport.
type MCPConfig struct {
	Transport string `yaml:"transport" json:"transport"`
}

// LoggingConfig configures file-based logging.
type LoggingConfig struct {
	Level         string `yaml:"level" json:"level"`
	FilePath      string `yaml:"file_path" json:"file_path"`
	MaxSizeMB     int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles      int    `yaml:"max_files" json:"max_files"`
	WriteToStderr bool   `yaml:"write_to_stderr" json:"write_to_stderr"`
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			IndexDir: ".",
		},
		Model: ModelConfig{
			SmoothingC:           2.0,
			ParallelRowThreshold: 50_000,
		},
		Query: QueryConfig{
			TopKDefault:     20,
			AttributionMode: AttributionPresentOnly,
			MaxExplainTerms: 0,
		},
		Ingest: IngestConfig{
			Source: "memory",
		},
		Performance: PerformanceConfig{
			BuildWorkers: runtime.NumCPU(),
		},
		Cache: CacheConfig{
			MaxIndexes:      8,
			EnableDiskCache: true,
			WatchForReload:  true,
		},
		Daemon: DaemonConfig{
			SocketPath: defaultSocketPath(),
			PIDFile:    defaultPIDPath(),
			LogLevel:   "info",
		},
		MCP: MCPConfig{
			Transport: "stdio",
		},
		Logging: LoggingConfig{
			Level:         "info",
			FilePath:      defaultLogPath(),
			MaxSizeMB:     10,
			MaxFiles:      5,
			WriteToStderr: true,
		},
	}
}

func baysetsHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".baysets")
	}
	return filepath.Join(home, ".baysets")
}

func defaultSocketPath() string {
	return filepath.Join(baysetsHomeDir(), "daemon.sock")
}

func defaultPIDPath() string {
	return filepath.Join(baysetsHomeDir(), "daemon.pid")
}

func defaultLogPath() string {
	return filepath.Join(baysetsHomeDir(), "logs", "daemon.log")
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/baysets/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/baysets/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "baysets", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "baysets", "config.yaml")
	}
	return filepath.Join(home, ".config", "baysets", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// loadUserConfig loads the user/global configuration file if it exists.
// Returns nil config and nil error if the file doesn't exist (that's OK).
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()

	if !fileExists(configPath) {
		return nil, nil
	}

	cfg := NewConfig()
	if err := cfg.loadYAML(configPath); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}

	return cfg, nil
}

// Load loads configuration from the specified index directory.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/baysets/config.yaml)
//  3. Project config (.baysets.yaml in the index directory)
//  4. Environment variables (BAYSETS_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()
	cfg.Paths.IndexDir = dir

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile attempts to load configuration from .baysets.yaml or .baysets.yml.
func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, ".baysets.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return c.loadYAML(yamlPath)
	}

	ymlPath := filepath.Join(dir, ".baysets.yml")
	if _, err := os.Stat(ymlPath); err == nil {
		return c.loadYAML(ymlPath)
	}

	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Paths.IndexDir != "" {
		c.Paths.IndexDir = other.Paths.IndexDir
	}

	if other.Model.SmoothingC != 0 {
		c.Model.SmoothingC = other.Model.SmoothingC
	}
	if other.Model.ParallelRowThreshold != 0 {
		c.Model.ParallelRowThreshold = other.Model.ParallelRowThreshold
	}

	if other.Query.TopKDefault != 0 {
		c.Query.TopKDefault = other.Query.TopKDefault
	}
	if other.Query.AttributionMode != "" {
		c.Query.AttributionMode = other.Query.AttributionMode
	}
	if other.Query.MaxExplainTerms != 0 {
		c.Query.MaxExplainTerms = other.Query.MaxExplainTerms
	}

	if other.Ingest.Source != "" {
		c.Ingest.Source = other.Ingest.Source
	}
	if other.Ingest.SQLiteDSN != "" {
		c.Ingest.SQLiteDSN = other.Ingest.SQLiteDSN
	}
	if other.Ingest.SQLiteQuery != "" {
		c.Ingest.SQLiteQuery = other.Ingest.SQLiteQuery
	}
	if other.Ingest.FlatFilePath != "" {
		c.Ingest.FlatFilePath = other.Ingest.FlatFilePath
	}

	if other.Performance.BuildWorkers != 0 {
		c.Performance.BuildWorkers = other.Performance.BuildWorkers
	}

	if other.Cache.MaxIndexes != 0 {
		c.Cache.MaxIndexes = other.Cache.MaxIndexes
	}
	if other.Cache.EnableDiskCache {
		c.Cache.EnableDiskCache = other.Cache.EnableDiskCache
	}
	if other.Cache.WatchForReload {
		c.Cache.WatchForReload = other.Cache.WatchForReload
	}

	if other.Daemon.SocketPath != "" {
		c.Daemon.SocketPath = other.Daemon.SocketPath
	}
	if other.Daemon.PIDFile != "" {
		c.Daemon.PIDFile = other.Daemon.PIDFile
	}
	if other.Daemon.LogLevel != "" {
		c.Daemon.LogLevel = other.Daemon.LogLevel
	}

	if other.MCP.Transport != "" {
		c.MCP.Transport = other.MCP.Transport
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.FilePath != "" {
		c.Logging.FilePath = other.Logging.FilePath
	}
	if other.Logging.MaxSizeMB != 0 {
		c.Logging.MaxSizeMB = other.Logging.MaxSizeMB
	}
	if other.Logging.MaxFiles != 0 {
		c.Logging.MaxFiles = other.Logging.MaxFiles
	}
	if other.Logging.WriteToStderr {
		c.Logging.WriteToStderr = other.Logging.WriteToStderr
	}
}

// applyEnvOverrides applies BAYSETS_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("BAYSETS_SMOOTHING_C"); v != "" {
		if f, err := parseFloat64(v); err == nil && f > 0 {
			c.Model.SmoothingC = f
		}
	}
	if v := os.Getenv("BAYSETS_TOP_K_DEFAULT"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			c.Query.TopKDefault = k
		}
	}
	if v := os.Getenv("BAYSETS_ATTRIBUTION_MODE"); v != "" {
		c.Query.AttributionMode = AttributionMode(v)
	}
	if v := os.Getenv("BAYSETS_INDEX_DIR"); v != "" {
		c.Paths.IndexDir = v
	}
	if v := os.Getenv("BAYSETS_INGEST_SOURCE"); v != "" {
		c.Ingest.Source = v
	}
	if v := os.Getenv("BAYSETS_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
		c.Daemon.LogLevel = v
	}
	if v := os.Getenv("BAYSETS_DAEMON_SOCKET"); v != "" {
		c.Daemon.SocketPath = v
	}
	if v := os.Getenv("BAYSETS_MCP_TRANSPORT"); v != "" {
		c.MCP.Transport = v
	}
	if v := os.Getenv("BAYSETS_CACHE_MAX_INDEXES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Cache.MaxIndexes = n
		}
	}
}

// parseFloat64 parses a string to float64, used for config parsing.
func parseFloat64(s string) (float64, error) {
	var f float64
	_, err := fmt.Sscanf(strings.TrimSpace(s), "%f", &f)
	return f, err
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Model.SmoothingC <= 0 {
		return fmt.Errorf("model.smoothing_c must be positive, got %f", c.Model.SmoothingC)
	}

	if c.Query.TopKDefault <= 0 {
		return fmt.Errorf("query.top_k_default must be positive, got %d", c.Query.TopKDefault)
	}

	switch c.Query.AttributionMode {
	case AttributionPresentOnly, AttributionIncludeAbsent:
	default:
		return fmt.Errorf("query.attribution_mode must be %q or %q, got %q",
			AttributionPresentOnly, AttributionIncludeAbsent, c.Query.AttributionMode)
	}
	if c.Query.MaxExplainTerms < 0 {
		return fmt.Errorf("query.max_explain_terms must be non-negative, got %d", c.Query.MaxExplainTerms)
	}

	validSources := map[string]bool{"memory": true, "sqlite": true, "flatfile": true}
	if !validSources[strings.ToLower(c.Ingest.Source)] {
		return fmt.Errorf("ingest.source must be 'memory', 'sqlite', or 'flatfile', got %s", c.Ingest.Source)
	}
	if strings.ToLower(c.Ingest.Source) == "sqlite" && c.Ingest.SQLiteDSN == "" {
		return fmt.Errorf("ingest.sqlite_dsn is required when ingest.source is 'sqlite'")
	}
	if strings.ToLower(c.Ingest.Source) == "flatfile" && c.Ingest.FlatFilePath == "" {
		return fmt.Errorf("ingest.flat_file_path is required when ingest.source is 'flatfile'")
	}

	if c.Cache.MaxIndexes <= 0 {
		return fmt.Errorf("cache.max_indexes must be positive, got %d", c.Cache.MaxIndexes)
	}

	validTransports := map[string]bool{"stdio": true, "sse": true}
	if !validTransports[strings.ToLower(c.MCP.Transport)] {
		return fmt.Errorf("mcp.transport must be 'stdio' or 'sse', got %s", c.MCP.Transport)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadUserConfig loads the user configuration file.
// Returns nil config and nil error if the file doesn't exist.
func LoadUserConfig() (*Config, error) {
	return loadUserConfig()
}

// MergeNewDefaults adds new default fields while preserving existing values.
// Returns a list of field names that were added with their default values.
func (c *Config) MergeNewDefaults() []string {
	defaults := NewConfig()
	var added []string

	if c.Model.SmoothingC == 0 {
		c.Model.SmoothingC = defaults.Model.SmoothingC
		added = append(added, "model.smoothing_c")
	}
	if c.Model.ParallelRowThreshold == 0 {
		c.Model.ParallelRowThreshold = defaults.Model.ParallelRowThreshold
		added = append(added, "model.parallel_row_threshold")
	}
	if c.Query.TopKDefault == 0 {
		c.Query.TopKDefault = defaults.Query.TopKDefault
		added = append(added, "query.top_k_default")
	}
	if c.Query.AttributionMode == "" {
		c.Query.AttributionMode = defaults.Query.AttributionMode
		added = append(added, "query.attribution_mode")
	}
	if c.Cache.MaxIndexes == 0 {
		c.Cache.MaxIndexes = defaults.Cache.MaxIndexes
		added = append(added, "cache.max_indexes")
	}

	return added
}
