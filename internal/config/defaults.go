package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel:        "info",
			LogFormat:       "text",
			MaxIterations:   10,
			DefaultProvider: "openai",
			Temperature:     0,
		},
		Providers: map[string]ProviderConfig{
			"openai": {
				Enabled:        true,
				APIBase:        "https://api.openai.com/v1",
				DefaultModel:   "gpt-4",
				TimeoutSeconds: 600,
				MaxRetries:     6,
			},
			"ollama": {
				Enabled:      false,
				APIBase:      "http://localhost:11434",
				DefaultModel: "llama3.1:8b",
			},
		},
		Search: SearchConfig{
			Google:          true,
			Calculator:      true,
			SearxHost:       "http://localhost:8080",
			SearxEngines:    FlexStringList{"google"},
			SearxCategories: FlexStringList{"news"},
			WikipediaLang:   "en",
		},
		CoinMarketCap: CoinMarketCapConfig{
			APIBase:           "https://pro-api.coinmarketcap.com",
			CacheDurationDays: 1,
			CacheFile:         "cryptocurrency_map.json",
			CacheBackend:      "file",
			CacheDB:           "~/.searchagent/catalog.db",
			MaxRetries:        2,
			Convert:           "USD",
		},
		Memory: MemoryConfig{
			Enabled:                   true,
			DBPath:                    "~/.searchagent/memory.db",
			MaxHistoryPerConversation: 100,
		},
	}
}
