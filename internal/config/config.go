package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for searchagent.
type Config struct {
	General       GeneralConfig             `json:"general" yaml:"general"`
	Providers     map[string]ProviderConfig `json:"providers" yaml:"providers"`
	Search        SearchConfig              `json:"search" yaml:"search"`
	CoinMarketCap CoinMarketCapConfig       `json:"coinmarketcap" yaml:"coinmarketcap"`
	Memory        MemoryConfig              `json:"memory" yaml:"memory"`
}

type GeneralConfig struct {
	LogLevel          string   `json:"logLevel" yaml:"logLevel"`
	LogFormat         string   `json:"logFormat" yaml:"logFormat"` // "text" | "json"
	Debug             bool     `json:"debug" yaml:"debug"`         // verbose agent trace, forces debug logging
	MaxIterations     int      `json:"maxIterations" yaml:"maxIterations"`
	DefaultProvider   string   `json:"defaultProvider" yaml:"defaultProvider"`
	FailoverChain     []string `json:"failoverChain,omitempty" yaml:"failoverChain,omitempty"`
	Temperature       float64  `json:"temperature" yaml:"temperature"`
	MaxTokens         int      `json:"maxTokens,omitempty" yaml:"maxTokens,omitempty"`
	SystemPromptExtra string   `json:"systemPromptExtra,omitempty" yaml:"systemPromptExtra,omitempty"`
}

type ProviderConfig struct {
	Enabled         bool   `json:"enabled" yaml:"enabled"`
	APIBase         string `json:"apiBase,omitempty" yaml:"apiBase,omitempty"`
	APIKey          string `json:"apiKey,omitempty" yaml:"apiKey,omitempty"`
	DefaultModel    string `json:"defaultModel,omitempty" yaml:"defaultModel,omitempty"`
	TimeoutSeconds  int    `json:"timeoutSeconds,omitempty" yaml:"timeoutSeconds,omitempty"`
	MaxRetries      int    `json:"maxRetries,omitempty" yaml:"maxRetries,omitempty"`
	RateLimitPerMin int    `json:"rateLimitPerMinute,omitempty" yaml:"rateLimitPerMinute,omitempty"`
}

// SearchConfig switches individual tools on and off and carries their credentials.
type SearchConfig struct {
	Wolfram       bool `json:"wolfram" yaml:"wolfram"`
	SerpAPI       bool `json:"serpapi" yaml:"serpapi"`
	Google        bool `json:"google" yaml:"google"`
	Wikipedia     bool `json:"wikipedia" yaml:"wikipedia"`
	Bing          bool `json:"bing" yaml:"bing"`
	CoinMarketCap bool `json:"coinmarketcap" yaml:"coinmarketcap"`
	Searx         bool `json:"searx" yaml:"searx"`
	DuckDuckGo    bool `json:"duckduckgo" yaml:"duckduckgo"`
	Calculator    bool `json:"calculator" yaml:"calculator"`

	GoogleAPIKey    string         `json:"googleApiKey,omitempty" yaml:"googleApiKey,omitempty"`
	GoogleCSEID     string         `json:"googleCseId,omitempty" yaml:"googleCseId,omitempty"`
	BingAPIKey      string         `json:"bingApiKey,omitempty" yaml:"bingApiKey,omitempty"`
	SerpAPIKey      string         `json:"serpApiKey,omitempty" yaml:"serpApiKey,omitempty"`
	WolframAppID    string         `json:"wolframAppId,omitempty" yaml:"wolframAppId,omitempty"`
	SearxHost       string         `json:"searxHost" yaml:"searxHost"`
	SearxEngines    FlexStringList `json:"searxEngines" yaml:"searxEngines"`
	SearxCategories FlexStringList `json:"searxCategories" yaml:"searxCategories"`
	WikipediaLang   string         `json:"wikipediaLang" yaml:"wikipediaLang"`
}

type CoinMarketCapConfig struct {
	APIKey             string `json:"apiKey,omitempty" yaml:"apiKey,omitempty"`
	APIBase            string `json:"apiBase,omitempty" yaml:"apiBase,omitempty"`
	CacheDurationDays  int    `json:"cacheDurationDays" yaml:"cacheDurationDays"`
	CacheFile          string `json:"cacheFile" yaml:"cacheFile"`       // snapshot file for the "file" backend
	CacheBackend       string `json:"cacheBackend" yaml:"cacheBackend"` // "file" | "sqlite"
	CacheDB            string `json:"cacheDb" yaml:"cacheDb"`           // database path for the "sqlite" backend
	RateLimitPerMinute int    `json:"rateLimitPerMinute" yaml:"rateLimitPerMinute"`
	MaxRetries         int    `json:"maxRetries" yaml:"maxRetries"`
	RenderURLs         bool   `json:"renderUrls" yaml:"renderUrls"`
	Convert            string `json:"convert" yaml:"convert"`
}

type MemoryConfig struct {
	Enabled                   bool   `json:"enabled" yaml:"enabled"`
	DBPath                    string `json:"dbPath" yaml:"dbPath"`
	MaxHistoryPerConversation int    `json:"maxHistoryPerConversation" yaml:"maxHistoryPerConversation"`
}

// FlexStringList is a []string that can be written as a list of strings
// and numbers, or as a single comma separated string ("google,bing").
type FlexStringList []string

func (f *FlexStringList) UnmarshalJSON(data []byte) error {
	// Try []string first
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*f = splitList(single)
		return nil
	}
	// Fallback: array of mixed types
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	result := make([]string, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			result = append(result, s)
			continue
		}
		var n float64
		if err := json.Unmarshal(item, &n); err == nil {
			result = append(result, strconv.FormatInt(int64(n), 10))
			continue
		}
		result = append(result, string(item))
	}
	*f = result
	return nil
}

func (f *FlexStringList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*f = splitList(value.Value)
		return nil
	}
	var ss []string
	if err := value.Decode(&ss); err != nil {
		return err
	}
	*f = ss
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// DefaultConfigDir returns the default config directory (~/.searchagent).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".searchagent"
	}
	return filepath.Join(home, ".searchagent")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Load reads a JSON or YAML (by extension) config file on top of Defaults,
// fills unset secrets from the environment and validates the result.
func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	ApplyEnv(cfg)
	cfg.expandPaths()

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// FromEnv builds a config from Defaults and the environment alone, for
// running without a config file.
func FromEnv() (*Config, error) {
	cfg := Defaults()
	ApplyEnv(cfg)
	cfg.expandPaths()
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func (c *Config) expandPaths() {
	c.Memory.DBPath = ExpandPath(c.Memory.DBPath)
	c.CoinMarketCap.CacheFile = ExpandPath(c.CoinMarketCap.CacheFile)
	c.CoinMarketCap.CacheDB = ExpandPath(c.CoinMarketCap.CacheDB)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match // Keep original if no env var and no default
		}
		return val
	})
}

// EnvPrefix prefixes the environment switches read by ApplyEnv,
// e.g. SEARCHAGENT_SEARCH_BY_COINMARKETCAP=true.
const EnvPrefix = "SEARCHAGENT_"

// ApplyEnv fills empty credentials from the conventional environment
// variables and applies SEARCHAGENT_* switches.
func ApplyEnv(cfg *Config) {
	setIfEmpty := func(dst *string, keys ...string) {
		if *dst != "" {
			return
		}
		for _, k := range keys {
			if v := os.Getenv(k); v != "" {
				*dst = v
				return
			}
		}
	}

	if pc, ok := cfg.Providers["openai"]; ok {
		setIfEmpty(&pc.APIKey, "OPENAI_API_KEY")
		setIfEmpty(&pc.APIBase, "OPENAI_API_BASE")
		cfg.Providers["openai"] = pc
	}
	setIfEmpty(&cfg.CoinMarketCap.APIKey, "COINMARKETCAP_API_KEY")
	setIfEmpty(&cfg.Search.GoogleAPIKey, "GOOGLE_API_KEY")
	setIfEmpty(&cfg.Search.GoogleCSEID, "GOOGLE_CSE_ID")
	setIfEmpty(&cfg.Search.BingAPIKey, "BING_API_KEY", "BING_SUBSCRIPTION_KEY")
	setIfEmpty(&cfg.Search.SerpAPIKey, "SERPAPI_API_KEY", "SERPER_API_KEY")
	setIfEmpty(&cfg.Search.WolframAppID, "WOLFRAM_ALPHA_APPID")

	switches := map[string]*bool{
		"SEARCH_BY_WOLFRAM":       &cfg.Search.Wolfram,
		"SEARCH_BY_SERPAPI":       &cfg.Search.SerpAPI,
		"SEARCH_BY_GOOGLE":        &cfg.Search.Google,
		"SEARCH_BY_WIKIPEDIA":     &cfg.Search.Wikipedia,
		"SEARCH_BY_BING":          &cfg.Search.Bing,
		"SEARCH_BY_COINMARKETCAP": &cfg.Search.CoinMarketCap,
		"SEARCH_BY_SEARX":         &cfg.Search.Searx,
		"SEARCH_BY_DUCKDUCKGO":    &cfg.Search.DuckDuckGo,
		"DEBUG":                   &cfg.General.Debug,
	}
	for name, dst := range switches {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}
}

// Save writes cfg as JSON, or YAML when path ends in .yaml/.yml.
func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.General.MaxIterations < 1 || cfg.General.MaxIterations > 200 {
		errs = append(errs, "general.maxIterations must be between 1 and 200")
	}
	switch cfg.General.LogLevel {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}
	switch cfg.General.LogFormat {
	case "", "text", "json":
		// valid
	default:
		errs = append(errs, "general.logFormat must be one of: text, json")
	}
	if cfg.General.Temperature < 0 || cfg.General.Temperature > 2 {
		errs = append(errs, "general.temperature must be between 0 and 2")
	}

	if cfg.Memory.MaxHistoryPerConversation < 1 {
		errs = append(errs, "memory.maxHistoryPerConversation must be >= 1")
	}

	cmc := cfg.CoinMarketCap
	if cmc.CacheDurationDays < 1 {
		errs = append(errs, "coinmarketcap.cacheDurationDays must be >= 1")
	}
	switch cmc.CacheBackend {
	case "file", "sqlite":
		// valid
	default:
		errs = append(errs, "coinmarketcap.cacheBackend must be one of: file, sqlite")
	}
	if cmc.RateLimitPerMinute < 0 {
		errs = append(errs, "coinmarketcap.rateLimitPerMinute must be >= 0")
	}
	if cmc.MaxRetries < 0 {
		errs = append(errs, "coinmarketcap.maxRetries must be >= 0")
	}

	if len(cfg.Providers) > 0 {
		if _, ok := cfg.Providers[cfg.General.DefaultProvider]; !ok {
			errs = append(errs, fmt.Sprintf("general.defaultProvider references unknown provider: %s", cfg.General.DefaultProvider))
		}
	}
	// Validate failover chain references exist in providers.
	for _, provName := range cfg.General.FailoverChain {
		if _, ok := cfg.Providers[provName]; !ok {
			errs = append(errs, fmt.Sprintf("general.failoverChain references unknown provider: %s", provName))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
