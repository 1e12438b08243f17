package config

import "shortsmith/internal/renderspec"

const (
	defaultConfigPath          = "~/.config/shortsmith/config.toml"
	defaultDataDir             = "~/.local/share/shortsmith"
	defaultLogDir              = "~/.local/share/shortsmith/logs"
	defaultOutputDir           = "~/Videos/shortsmith"
	defaultWorkDir             = "~/.cache/shortsmith/work"
	defaultAPIBind             = "127.0.0.1:7590"
	defaultTTSBaseURL          = "http://127.0.0.1:8000"
	defaultTTSTimeoutSeconds   = 120
	defaultFootageBaseURL      = "https://api.pexels.com"
	defaultClipsPerScene       = 1
	defaultMinClipSeconds      = 3
	defaultOrientation         = "portrait"
	defaultFootageCacheTTL     = 86400
	defaultFootageTimeout      = 30
	defaultFFmpegBinary        = "ffmpeg"
	defaultFontName            = "Arial"
	defaultFontSize            = 72
	defaultWorkDirMaxAge       = 72
	defaultWorkers             = 2
	defaultMaxAttempts         = 3
	defaultRetryBaseDelay      = 5
	defaultRetryMaxDelay       = 120
	defaultStageTimeout        = 180
	defaultRenderTimeout       = 1800
	defaultHealthCheckInterval = 60
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	render := renderspec.Default()
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			LogDir:    defaultLogDir,
			OutputDir: defaultOutputDir,
			WorkDir:   defaultWorkDir,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		TTS: TTS{
			BaseURL:         defaultTTSBaseURL,
			DefaultVoice:    render.Voice,
			DefaultLanguage: render.Language,
			TimeoutSeconds:  defaultTTSTimeoutSeconds,
		},
		Footage: Footage{
			BaseURL:         defaultFootageBaseURL,
			ClipsPerScene:   defaultClipsPerScene,
			MinClipSeconds:  defaultMinClipSeconds,
			Orientation:     defaultOrientation,
			CacheTTLSeconds: defaultFootageCacheTTL,
			TimeoutSeconds:  defaultFootageTimeout,
		},
		Render: Render{
			FFmpegBinary:  defaultFFmpegBinary,
			FontName:      defaultFontName,
			FontSize:      defaultFontSize,
			WorkDirMaxAge: defaultWorkDirMaxAge,
			Defaults:      render,
		},
		Workflow: Workflow{
			Workers:             defaultWorkers,
			MaxAttempts:         defaultMaxAttempts,
			RetryBaseDelay:      defaultRetryBaseDelay,
			RetryMaxDelay:       defaultRetryMaxDelay,
			StageTimeout:        defaultStageTimeout,
			RenderTimeout:       defaultRenderTimeout,
			HealthCheckInterval: defaultHealthCheckInterval,
		},
		Notifications: Notifications{
			RequestTimeout: 10,
			JobReady:       true,
			JobFailed:      true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
