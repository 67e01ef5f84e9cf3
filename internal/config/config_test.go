package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// --- Validate ---

func TestValidate_ValidConfig(t *testing.T) {
	cfg := Defaults()
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected valid config, got: %v", err)
	}
}

func TestValidate_MaxIterations_TooLow(t *testing.T) {
	cfg := Defaults()
	cfg.General.MaxIterations = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for maxIterations=0")
	}
}

func TestValidate_MaxIterations_TooHigh(t *testing.T) {
	cfg := Defaults()
	cfg.General.MaxIterations = 999
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for maxIterations=999")
	}
}

func TestValidate_MaxIterations_Boundary(t *testing.T) {
	cfg := Defaults()

	cfg.General.MaxIterations = 1
	if err := Validate(cfg); err != nil {
		t.Fatalf("maxIterations=1 should be valid: %v", err)
	}

	cfg.General.MaxIterations = 200
	if err := Validate(cfg); err != nil {
		t.Fatalf("maxIterations=200 should be valid: %v", err)
	}
}

func TestValidate_InvalidLogFormat(t *testing.T) {
	cfg := Defaults()
	cfg.General.LogFormat = "xml"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for logFormat=xml")
	}
}

func TestValidate_CacheBackend(t *testing.T) {
	for _, backend := range []string{"file", "sqlite"} {
		cfg := Defaults()
		cfg.CoinMarketCap.CacheBackend = backend
		if err := Validate(cfg); err != nil {
			t.Fatalf("backend %q should be valid: %v", backend, err)
		}
	}

	cfg := Defaults()
	cfg.CoinMarketCap.CacheBackend = "redis"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for unknown cache backend")
	}
}

func TestValidate_CacheDuration(t *testing.T) {
	cfg := Defaults()
	cfg.CoinMarketCap.CacheDurationDays = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for cacheDurationDays=0")
	}
}

func TestValidate_InvalidMemoryConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Memory.MaxHistoryPerConversation = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for maxHistoryPerConversation=0")
	}
}

func TestValidate_UnknownProviderReferences(t *testing.T) {
	cfg := Defaults()
	cfg.General.DefaultProvider = "nope"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for unknown default provider")
	}

	cfg = Defaults()
	cfg.General.FailoverChain = []string{"openai", "missing"}
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for unknown failover provider")
	}
}

// --- Load / Save ---

func TestLoadSave_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	original := Defaults()
	original.General.DefaultProvider = "ollama"
	original.CoinMarketCap.RenderURLs = true

	if err := Save(path, original); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if loaded.General.DefaultProvider != "ollama" {
		t.Fatalf("expected 'ollama', got %q", loaded.General.DefaultProvider)
	}
	if !loaded.CoinMarketCap.RenderURLs {
		t.Fatal("expected renderUrls to survive the round trip")
	}
}

func TestLoadSave_YAMLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	original := Defaults()
	original.Search.Wikipedia = true
	original.CoinMarketCap.CacheBackend = "sqlite"

	if err := Save(path, original); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !loaded.Search.Wikipedia || loaded.CoinMarketCap.CacheBackend != "sqlite" {
		t.Fatalf("yaml round trip lost values: %+v", loaded.Search)
	}
}

func TestLoad_YAMLKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	content := `
search:
  coinmarketcap: true
  searxEngines: google, bing
coinmarketcap:
  cacheDurationDays: 3
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Search.CoinMarketCap || cfg.CoinMarketCap.CacheDurationDays != 3 {
		t.Fatalf("yaml values not applied: %+v", cfg.CoinMarketCap)
	}
	if cfg.CoinMarketCap.CacheFile != "cryptocurrency_map.json" {
		t.Fatalf("expected default cache file, got %q", cfg.CoinMarketCap.CacheFile)
	}
	if !cfg.Search.Google {
		t.Fatal("google search should stay enabled by default")
	}
	if len(cfg.Search.SearxEngines) != 2 || cfg.Search.SearxEngines[1] != "bing" {
		t.Fatalf("unexpected searx engines: %v", cfg.Search.SearxEngines)
	}
	if _, ok := cfg.Providers["openai"]; !ok {
		t.Fatal("default providers should be kept")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.json")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	os.WriteFile(path, []byte("{not json}"), 0o644)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

// --- Accessor ---

func TestGetByPath_ValidPaths(t *testing.T) {
	cfg := Defaults()

	val, err := GetByPath(cfg, "general.defaultProvider")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if val != "openai" {
		t.Fatalf("expected 'openai', got %v", val)
	}

	days, err := GetByPath(cfg, "coinmarketcap.cacheDurationDays")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if days != float64(1) {
		t.Fatalf("expected 1, got %v", days)
	}
}

func TestGetByPath_InvalidPath(t *testing.T) {
	cfg := Defaults()
	_, err := GetByPath(cfg, "nonexistent.path")
	if err == nil {
		t.Fatal("expected error for nonexistent path")
	}
}

func TestSetByPath_ValidPath(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "general.defaultProvider", "ollama"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if cfg.General.DefaultProvider != "ollama" {
		t.Fatalf("expected 'ollama', got %q", cfg.General.DefaultProvider)
	}
}

func TestSetByPath_EmptyValue(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "general.defaultProvider", ""); err != nil {
		t.Fatalf("set empty value should work: %v", err)
	}
	if cfg.General.DefaultProvider != "" {
		t.Fatalf("expected empty provider, got %q", cfg.General.DefaultProvider)
	}
}

func TestSetByPath_EmptyPath(t *testing.T) {
	if err := SetByPath(Defaults(), "", "x"); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestSetByPath_ThroughScalarFails(t *testing.T) {
	if err := SetByPath(Defaults(), "general.logLevel.color", "red"); err == nil {
		t.Fatal("expected error when traversing into a string")
	}
}

func TestSetByPath_BoolConversion(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "search.coinmarketcap", "true"); err != nil {
		t.Fatalf("set bool: %v", err)
	}
	if !cfg.Search.CoinMarketCap {
		t.Fatal("expected search.coinmarketcap=true")
	}
}

func TestSetByPath_CommaList(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "search.searxEngines", "google,duckduckgo"); err != nil {
		t.Fatalf("set list: %v", err)
	}
	if len(cfg.Search.SearxEngines) != 2 || cfg.Search.SearxEngines[1] != "duckduckgo" {
		t.Fatalf("unexpected engines: %v", cfg.Search.SearxEngines)
	}
}

func TestSetByPath_IntConversion(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "general.maxIterations", "50"); err != nil {
		t.Fatalf("set int: %v", err)
	}
	if cfg.General.MaxIterations != 50 {
		t.Fatalf("expected 50, got %d", cfg.General.MaxIterations)
	}
}

// --- Sanitize ---

func TestSanitize_MasksSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.CoinMarketCap.APIKey = "b54bcf4d-1bca-4e8e-9a24-22ff2c3d462c"
	cfg.Search.WolframAppID = "ABCDEF-1234567890"
	cfg.Providers["openai"] = ProviderConfig{
		Enabled: true,
		APIKey:  "sk-1234567890abcdefghijklmnop",
	}

	sanitized := Sanitize(cfg)

	if sanitized.CoinMarketCap.APIKey != "b54b****462c" {
		t.Fatalf("coinmarketcap key should be masked, got %q", sanitized.CoinMarketCap.APIKey)
	}
	if sanitized.Search.WolframAppID == cfg.Search.WolframAppID {
		t.Fatal("wolfram app id should be masked")
	}
	if sanitized.Providers["openai"].APIKey == cfg.Providers["openai"].APIKey {
		t.Fatal("API key should be masked")
	}
	// Verify original is untouched
	if cfg.CoinMarketCap.APIKey != "b54bcf4d-1bca-4e8e-9a24-22ff2c3d462c" {
		t.Fatal("original config should not be modified")
	}
}

func TestSanitize_ShortSecret(t *testing.T) {
	cfg := Defaults()
	cfg.Search.BingAPIKey = "short"
	sanitized := Sanitize(cfg)
	if sanitized.Search.BingAPIKey != "***" {
		t.Fatalf("short secret should be '***', got %q", sanitized.Search.BingAPIKey)
	}
}

func TestSanitize_UserAddedProvider(t *testing.T) {
	cfg := Defaults()
	cfg.Providers["groq"] = ProviderConfig{
		Enabled: true,
		APIBase: "https://api.groq.com/openai/v1",
		APIKey:  "gsk-abcdefghijklmnop",
	}

	sanitized := Sanitize(cfg)

	if got := sanitized.Providers["groq"].APIKey; got != "gsk-****mnop" {
		t.Fatalf("groq key should be masked, got %q", got)
	}
	if got := sanitized.Providers["groq"].APIBase; got != "https://api.groq.com/openai/v1" {
		t.Fatalf("api base should be kept, got %q", got)
	}
}

func TestIsSecretPath(t *testing.T) {
	secret := []string{"providers.openai.apiKey", "providers.custom.apiKey", "coinmarketcap.apiKey", "search.wolframAppId"}
	for _, p := range secret {
		if !IsSecretPath(p) {
			t.Errorf("%s should be secret", p)
		}
	}
	plain := []string{"providers.openai.apiBase", "providers.apiKey", "coinmarketcap.cacheFile", "search.googleCseId"}
	for _, p := range plain {
		if IsSecretPath(p) {
			t.Errorf("%s should not be secret", p)
		}
	}
}

func TestListPaths_SanitizedHidesSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.CoinMarketCap.APIKey = "b54bcf4d-1bca-4e8e-9a24-22ff2c3d462c"

	paths := ListPaths(Sanitize(cfg))
	if got := paths["coinmarketcap.apiKey"]; got != "b54b****462c" {
		t.Fatalf("expected masked key, got %v", got)
	}
}

func TestLoad_ValidatesConfig(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.json")
	// Invalid: maxIterations=0
	content := `{
		"general": {
			"maxIterations": 0
		}
	}`
	if err := os.WriteFile(cfgFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(cfgFile)
	if err == nil {
		t.Fatal("expected validation error for maxIterations=0")
	}
}

// --- ListPaths ---

func TestListPaths_ReturnsAllLeaves(t *testing.T) {
	cfg := Defaults()
	paths := ListPaths(cfg)
	if len(paths) == 0 {
		t.Fatal("expected non-empty paths")
	}

	// Check some known paths exist
	for _, expected := range []string{"general.logLevel", "search.google", "coinmarketcap.cacheFile", "memory.enabled"} {
		if _, ok := paths[expected]; !ok {
			t.Errorf("missing expected path: %s", expected)
		}
	}
}

// --- FlexStringList ---

func TestFlexStringList_MixedTypes(t *testing.T) {
	input := `["hello", 123, "world", 456.0]`
	var list FlexStringList
	if err := json.Unmarshal([]byte(input), &list); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(list) != 4 {
		t.Fatalf("expected 4 items, got %d", len(list))
	}
	if list[0] != "hello" || list[2] != "world" {
		t.Fatal("string items mismatch")
	}
	if list[1] != "123" || list[3] != "456" {
		t.Fatalf("number conversion mismatch: %v", list)
	}
}

func TestFlexStringList_PureStrings(t *testing.T) {
	input := `["a", "b", "c"]`
	var list FlexStringList
	if err := json.Unmarshal([]byte(input), &list); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(list) != 3 || list[0] != "a" {
		t.Fatalf("unexpected: %v", list)
	}
}

func TestFlexStringList_CommaString(t *testing.T) {
	var list FlexStringList
	if err := json.Unmarshal([]byte(`"news, science,"`), &list); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(list) != 2 || list[0] != "news" || list[1] != "science" {
		t.Fatalf("unexpected: %v", list)
	}
}

func TestFlexStringList_InvalidJSON(t *testing.T) {
	var list FlexStringList
	err := json.Unmarshal([]byte(`not json`), &list)
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

// --- ExpandEnvVars ---

func TestExpandEnvVars_SimpleSubstitution(t *testing.T) {
	t.Setenv("TEST_API_KEY", "sk-abc123")
	result := ExpandEnvVars(`{"apiKey": "${TEST_API_KEY}"}`)
	expected := `{"apiKey": "sk-abc123"}`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_DefaultValue(t *testing.T) {
	// Ensure the var is unset
	os.Unsetenv("NONEXISTENT_VAR_12345")
	result := ExpandEnvVars(`{"port": "${NONEXISTENT_VAR_12345:-8080}"}`)
	expected := `{"port": "8080"}`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_SetVarOverridesDefault(t *testing.T) {
	t.Setenv("MY_PORT", "9090")
	result := ExpandEnvVars(`{"port": "${MY_PORT:-8080}"}`)
	expected := `{"port": "9090"}`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_MultipleVars(t *testing.T) {
	t.Setenv("HOST", "localhost")
	t.Setenv("PORT", "3000")
	result := ExpandEnvVars(`"${HOST}:${PORT}"`)
	expected := `"localhost:3000"`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_UnsetVarNoDefault_KeepsOriginal(t *testing.T) {
	os.Unsetenv("TOTALLY_UNSET_VAR_XYZ")
	result := ExpandEnvVars(`"${TOTALLY_UNSET_VAR_XYZ}"`)
	expected := `"${TOTALLY_UNSET_VAR_XYZ}"`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_EmptyVarUsesDefault(t *testing.T) {
	t.Setenv("EMPTY_VAR", "")
	result := ExpandEnvVars(`"${EMPTY_VAR:-fallback}"`)
	expected := `"fallback"`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_NoVarsInInput(t *testing.T) {
	input := `{"key": "value", "number": 42}`
	result := ExpandEnvVars(input)
	if result != input {
		t.Fatalf("expected no change, got %q", result)
	}
}

func TestExpandEnvVars_DollarSignWithoutBraces(t *testing.T) {
	input := `"$HOME is not substituted"`
	result := ExpandEnvVars(input)
	if result != input {
		t.Fatalf("expected no change for bare $VAR, got %q", result)
	}
}

func TestLoad_WithEnvVarSubstitution(t *testing.T) {
	t.Setenv("TEST_SEARCHAGENT_CACHE", "/tmp/test-cache/map.json")

	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.json")
	content := `{
		"coinmarketcap": {
			"cacheFile": "${TEST_SEARCHAGENT_CACHE}",
			"cacheDurationDays": 2,
			"cacheBackend": "file"
		}
	}`
	if err := os.WriteFile(cfgFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.CoinMarketCap.CacheFile != "/tmp/test-cache/map.json" {
		t.Fatalf("expected cache file '/tmp/test-cache/map.json', got %q", cfg.CoinMarketCap.CacheFile)
	}
}

// --- ApplyEnv ---

func TestApplyEnv_FillsMissingSecrets(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("COINMARKETCAP_API_KEY", "cmc-env")
	t.Setenv("SERPAPI_API_KEY", "")
	t.Setenv("SERPER_API_KEY", "serper-env")

	cfg := Defaults()
	cfg.Search.GoogleAPIKey = "from-file"
	t.Setenv("GOOGLE_API_KEY", "from-env")
	ApplyEnv(cfg)

	if cfg.Providers["openai"].APIKey != "sk-env" {
		t.Fatalf("expected openai key from env, got %q", cfg.Providers["openai"].APIKey)
	}
	if cfg.CoinMarketCap.APIKey != "cmc-env" {
		t.Fatalf("expected coinmarketcap key from env, got %q", cfg.CoinMarketCap.APIKey)
	}
	if cfg.Search.SerpAPIKey != "serper-env" {
		t.Fatalf("expected SERPER_API_KEY fallback, got %q", cfg.Search.SerpAPIKey)
	}
	if cfg.Search.GoogleAPIKey != "from-file" {
		t.Fatal("configured values must win over the environment")
	}
}

func TestApplyEnv_Switches(t *testing.T) {
	t.Setenv("SEARCHAGENT_SEARCH_BY_COINMARKETCAP", "true")
	t.Setenv("SEARCHAGENT_SEARCH_BY_GOOGLE", "0")
	t.Setenv("SEARCHAGENT_DEBUG", "not-a-bool")

	cfg := Defaults()
	ApplyEnv(cfg)

	if !cfg.Search.CoinMarketCap {
		t.Fatal("expected coinmarketcap switched on")
	}
	if cfg.Search.Google {
		t.Fatal("expected google switched off")
	}
	if cfg.General.Debug {
		t.Fatal("unparsable switch must be ignored")
	}
}

// --- Defaults ---

func TestDefaults_ReturnsValidConfig(t *testing.T) {
	cfg := Defaults()
	if cfg == nil {
		t.Fatal("defaults returned nil")
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("defaults should be valid: %v", err)
	}
	if cfg.General.MaxIterations != 10 {
		t.Fatalf("expected 10 iterations, got %d", cfg.General.MaxIterations)
	}
	if cfg.Providers["openai"].DefaultModel != "gpt-4" {
		t.Fatalf("default model should be 'gpt-4', got %q", cfg.Providers["openai"].DefaultModel)
	}
	if cfg.CoinMarketCap.CacheDurationDays != 1 || cfg.CoinMarketCap.CacheFile != "cryptocurrency_map.json" {
		t.Fatalf("unexpected catalog cache defaults: %+v", cfg.CoinMarketCap)
	}
	if !cfg.Search.Google || cfg.Search.CoinMarketCap {
		t.Fatal("only google search is on by default")
	}
}
