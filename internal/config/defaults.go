package config

const (
	defaultConfigPath            = "~/.config/animelista/config.toml"
	defaultDataDir               = "~/.local/share/animelista"
	defaultLogDir                = "~/.local/share/animelista/logs"
	defaultAPIBind               = "127.0.0.1:7488"
	defaultCatalogBaseURL        = "https://graphql.anilist.co"
	defaultCatalogRequestsPerMin = 60
	defaultCatalogTimeoutSeconds = 20
	defaultCatalogConcurrency    = 4
	defaultLLMBaseURL            = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel              = "google/gemini-3-flash-preview"
	defaultLLMReferer            = "https://github.com/bhaskara2k/animelista"
	defaultLLMTitle              = "animelista"
	defaultLLMTimeoutSeconds     = 60
	defaultTargetLanguage        = "Portuguese (Brazil)"
	defaultNotifyRequestTimeout  = 10
	defaultRefreshMinutes        = 360
	defaultNotifyMinutes         = 30
	defaultBaseXP                = 100
	defaultXPGrowth              = 1.5
	defaultXPPerEpisode          = 10
	defaultXPPerCompletion       = 50
	defaultXPPerRating           = 5
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultLogMaxSizeMB          = 10
	defaultLogMaxBackups         = 5
	defaultLogMaxAgeDays         = 60
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Catalog: Catalog{
			BaseURL:           defaultCatalogBaseURL,
			RequestsPerMinute: defaultCatalogRequestsPerMin,
			TimeoutSeconds:    defaultCatalogTimeoutSeconds,
			SyncConcurrency:   defaultCatalogConcurrency,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
			TargetLanguage: defaultTargetLanguage,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			NewEpisodes:    true,
			BehindSchedule: true,
		},
		Daemon: Daemon{
			RefreshIntervalMinutes: defaultRefreshMinutes,
			NotifyIntervalMinutes:  defaultNotifyMinutes,
		},
		Leveling: Leveling{
			BaseXP:          defaultBaseXP,
			Growth:          defaultXPGrowth,
			XPPerEpisode:    defaultXPPerEpisode,
			XPPerCompletion: defaultXPPerCompletion,
			XPPerRating:     defaultXPPerRating,
		},
		Logging: Logging{
			Format:     defaultLogFormat,
			Level:      defaultLogLevel,
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
			MaxAgeDays: defaultLogMaxAgeDays,
		},
	}
}
