package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/yosuke-furukawa/json5/encoding/json5"
)

const (
	DirName         = "jobmatch"
	ConfigFileName  = "config.json"
	SourcesFileName = "sources.json"
	ProxiesFileName = "proxies.txt"
)

// Config holds runtime settings: search defaults, storage, events and the scoring model.
type Config struct {
	DefaultQuery    string `json:"default_query"`
	DefaultLocation string `json:"default_location"`
	Parallel        bool   `json:"parallel"`

	StoreURL     string   `json:"store_url"`
	KafkaBrokers []string `json:"kafka_brokers,omitempty"`
	KafkaTopic   string   `json:"kafka_topic"`
	ModelURL     string   `json:"model_url,omitempty"`

	RequestTimeoutSeconds int    `json:"request_timeout_seconds"`
	AdapterTimeoutSeconds int    `json:"adapter_timeout_seconds"`
	MaxCards              int    `json:"max_cards"`
	Schedule              string `json:"schedule"`

	MatchMinScore int `json:"match_min_score"`
	MatchLimit    int `json:"match_limit"`
}

func DefaultConfig() Config {
	return Config{
		DefaultQuery:          envString("JOBMATCH_DEFAULT_QUERY", "developer"),
		DefaultLocation:       envString("JOBMATCH_DEFAULT_LOCATION", "France"),
		Parallel:              envBool("JOBMATCH_PARALLEL", true),
		StoreURL:              envString("JOBMATCH_STORE_URL", "memory://"),
		KafkaBrokers:          splitCSV(envString("JOBMATCH_KAFKA_BROKERS", "")),
		KafkaTopic:            envString("JOBMATCH_KAFKA_TOPIC", "jobmatch.postings"),
		ModelURL:              envString("JOBMATCH_MODEL_URL", ""),
		RequestTimeoutSeconds: envInt("JOBMATCH_REQUEST_TIMEOUT", 10),
		AdapterTimeoutSeconds: envInt("JOBMATCH_ADAPTER_TIMEOUT", 120),
		MaxCards:              envInt("JOBMATCH_MAX_CARDS", 20),
		Schedule:              envString("JOBMATCH_SCHEDULE", "@every 6h"),
		MatchMinScore:         envInt("JOBMATCH_MATCH_MIN_SCORE", 10),
		MatchLimit:            envInt("JOBMATCH_MATCH_LIMIT", 100),
	}
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func (c Config) AdapterTimeout() time.Duration {
	return time.Duration(c.AdapterTimeoutSeconds) * time.Second
}

func ConfigDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv("JOBMATCH_CONFIG_DIR")); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, DirName), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}

func ProxiesPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ProxiesFileName), nil
}

// Load reads config.json on top of the env-aware defaults. A missing or empty
// file is not an error.
func Load() (Config, error) {
	cfg := DefaultConfig()
	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}
	return LoadFile(path, cfg)
}

func LoadFile(path string, cfg Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		return cfg, nil
	}

	if err := json5.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Init writes default config.json, sources.json and proxies.txt if they don't already exist.
func Init() ([]string, error) {
	var created []string

	dir, err := ConfigDir()
	if err != nil {
		return created, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return created, err
	}

	configPath := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		if err := writeJSON(configPath, DefaultConfig()); err != nil {
			return created, err
		}
		created = append(created, configPath)
	}

	sourcesPath := filepath.Join(dir, SourcesFileName)
	if _, err := os.Stat(sourcesPath); errors.Is(err, os.ErrNotExist) {
		if err := writeJSON(sourcesPath, map[string]SourceConfig{}); err != nil {
			return created, err
		}
		created = append(created, sourcesPath)
	}

	proxiesPath := filepath.Join(dir, ProxiesFileName)
	if _, err := os.Stat(proxiesPath); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(proxiesPath, []byte(""), 0o644); err != nil {
			return created, err
		}
		created = append(created, proxiesPath)
	}

	return created, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func LoadProxies(flagValue string) ([]string, error) {
	if strings.TrimSpace(flagValue) != "" {
		return splitCSV(flagValue), nil
	}

	if env := strings.TrimSpace(os.Getenv("JOBMATCH_PROXIES")); env != "" {
		return splitCSV(env), nil
	}

	path, err := ProxiesPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var proxies []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		proxies = append(proxies, line)
	}
	return proxies, nil
}

func envString(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func envInt(key string, fallback int) int {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
