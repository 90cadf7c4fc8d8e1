package config

const (
	defaultDataDir   = "~/.local/share/reface"
	defaultLogDir    = "~/.local/share/reface/logs"
	defaultImagesDir = "~/.local/share/reface/generated-images"
	defaultAPIBind   = "127.0.0.1:7443"

	defaultCaptureBaseURL = "http://127.0.0.1:3002"

	defaultExtractionModel   = "gemini-2.5-flash"
	defaultAnalysisModel     = "gemini-3-pro-preview"
	defaultSectionImageModel = "gemini-3-pro-image-preview"
	defaultContentImageModel = "gemini-2.5-flash-image"
	defaultCodeModel         = "gemini-3-pro-preview"
	defaultReviewModel       = "gemini-2.5-flash"
	defaultFixModel          = "gemini-3-pro-preview"

	defaultStageTimeoutSeconds     = 180
	defaultContentImagesPerSection = 2
	defaultImageEditMaxAttempts    = 2

	defaultImageStoreBackend = "disk"
	defaultMinIOBucket       = "reface-images"

	defaultNtfyRequestTimeout = 10

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns the configuration used when no file overrides are present.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			LogDir:    defaultLogDir,
			ImagesDir: defaultImagesDir,
			APIBind:   defaultAPIBind,
		},
		Gemini: Gemini{
			ExtractionModel:   defaultExtractionModel,
			AnalysisModel:     defaultAnalysisModel,
			SectionImageModel: defaultSectionImageModel,
			ContentImageModel: defaultContentImageModel,
			CodeModel:         defaultCodeModel,
			ReviewModel:       defaultReviewModel,
			FixModel:          defaultFixModel,
		},
		Capture: Capture{
			BaseURL: defaultCaptureBaseURL,
		},
		Pipeline: Pipeline{
			StageTimeoutSeconds:     defaultStageTimeoutSeconds,
			ContentImagesPerSection: defaultContentImagesPerSection,
			ImageEditMaxAttempts:    defaultImageEditMaxAttempts,
		},
		ImageStore: ImageStore{
			Backend: defaultImageStoreBackend,
			MinIO: MinIO{
				Bucket: defaultMinIOBucket,
			},
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyRequestTimeout,
			RunStarted:     true,
			PlanReady:      true,
			RunCompleted:   true,
			RunFailed:      true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
