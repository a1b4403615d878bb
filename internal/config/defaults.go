package config

const (
	defaultModelDir            = "~/.local/share/facevault/model"
	defaultEmbeddingDimension  = 128
	defaultBackupWindowMinutes = 30
	defaultCountWarnMin        = 5
	defaultCountWarnMax        = 50
	defaultCountFatalMin       = 1
	defaultCountFatalMax       = 100
	defaultCaptureDir          = "~/.local/share/facevault/captures"
	defaultWorkers             = 4
	defaultTopK                = 12
	defaultTolerance           = 0.6
	defaultRetryTolerance      = 0.7
	defaultAutoIntervalSeconds = 300
	defaultCameraWidth         = 640
	defaultCameraHeight        = 480
	defaultFramesPerSec        = 2.0
	defaultWindowSeconds       = 3
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Model: Model{
			Dir:                 defaultModelDir,
			EmbeddingDimension:  defaultEmbeddingDimension,
			BackupWindowMinutes: defaultBackupWindowMinutes,
			CountWarnMin:        defaultCountWarnMin,
			CountWarnMax:        defaultCountWarnMax,
			CountFatalMin:       defaultCountFatalMin,
			CountFatalMax:       defaultCountFatalMax,
		},
		Enrollment: Enrollment{
			CaptureDir: defaultCaptureDir,
			Workers:    defaultWorkers,
			TopK:       defaultTopK,
		},
		Recognition: Recognition{
			Tolerance:      defaultTolerance,
			RetryTolerance: defaultRetryTolerance,
		},
		Refresh: Refresh{
			AutoIntervalSeconds: defaultAutoIntervalSeconds,
		},
		Camera: Camera{
			Width:         defaultCameraWidth,
			Height:        defaultCameraHeight,
			FramesPerSec:  defaultFramesPerSec,
			WindowSeconds: defaultWindowSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
