package config

const (
	defaultUploadDir              = "~/.local/share/dubber/uploads"
	defaultOutputDir              = "~/.local/share/dubber/output"
	defaultWorkDir                = "~/.local/share/dubber/work"
	defaultLogDir                 = "~/.local/share/dubber/logs"
	defaultLogRetentionDays       = 30
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultAPIBind                = "127.0.0.1:7488"
	defaultOpenAIBaseURL          = "https://api.openai.com/v1"
	defaultTranscriptionModel     = "whisper-1"
	defaultTranslationModel       = "gpt-3.5-turbo"
	defaultTranslationTemperature = 0.3
	defaultSpeechModel            = "tts-1"
	defaultOpenAITimeoutSeconds   = 120
	defaultMiniMaxBaseURL         = "https://api.minimax.io/v1"
	defaultMiniMaxModel           = "speech-2.5-hd-preview"
	defaultMiniMaxTimeoutSeconds  = 120
	defaultMaxUploadMB            = 200
	defaultMinSpeed               = 0.5
	defaultMaxSpeed               = 2.0
	defaultTargetLanguage         = "en"
	defaultVoice                  = "alloy"
	defaultContainer              = "mp4"
	defaultWorkers                = 2
	defaultMediaTimeoutSeconds    = 600
	defaultRetryAttempts          = 2
	defaultRetryBackoffMillis     = 500
	defaultOutputRetentionHours   = 24
	defaultTextPreviewChars       = 500
	defaultMaxSampleMB            = 10
	defaultNotifyRequestTimeout   = 10
)

var (
	defaultVideoExtensions = []string{"mp4", "avi", "mov", "mkv", "webm"}
	defaultAudioExtensions = []string{"mp3", "wav", "m4a", "ogg", "flac", "webm"}
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			UploadDir: defaultUploadDir,
			OutputDir: defaultOutputDir,
			WorkDir:   defaultWorkDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		OpenAI: OpenAI{
			BaseURL:                defaultOpenAIBaseURL,
			TranscriptionModel:     defaultTranscriptionModel,
			TranslationModel:       defaultTranslationModel,
			TranslationTemperature: defaultTranslationTemperature,
			SpeechModel:            defaultSpeechModel,
			TimeoutSeconds:         defaultOpenAITimeoutSeconds,
		},
		MiniMax: MiniMax{
			BaseURL:        defaultMiniMaxBaseURL,
			Model:          defaultMiniMaxModel,
			TimeoutSeconds: defaultMiniMaxTimeoutSeconds,
		},
		Dubbing: Dubbing{
			MaxUploadMB:           defaultMaxUploadMB,
			AllowedExtensions:     append([]string(nil), defaultVideoExtensions...),
			MinSpeed:              defaultMinSpeed,
			MaxSpeed:              defaultMaxSpeed,
			DefaultTargetLanguage: defaultTargetLanguage,
			DefaultVoice:          defaultVoice,
			DefaultContainer:      defaultContainer,
			Workers:               defaultWorkers,
			MediaTimeoutSeconds:   defaultMediaTimeoutSeconds,
			RetryAttempts:         defaultRetryAttempts,
			RetryBackoffMillis:    defaultRetryBackoffMillis,
			OutputRetentionHours:  defaultOutputRetentionHours,
			TextPreviewChars:      defaultTextPreviewChars,
		},
		VoiceClone: VoiceClone{
			MaxSampleMB:       defaultMaxSampleMB,
			AllowedExtensions: append([]string(nil), defaultAudioExtensions...),
		},
		Notifications: Notifications{
			RequestTimeout:    defaultNotifyRequestTimeout,
			NotifyJobComplete: true,
			NotifyJobFailed:   true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
