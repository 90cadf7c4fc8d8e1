package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeGemini()
	c.normalizeCapture()
	c.normalizePipeline()
	c.normalizeImageStore()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("normalize data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("normalize log_dir: %w", err)
	}
	if c.Paths.ImagesDir, err = expandPath(c.Paths.ImagesDir); err != nil {
		return fmt.Errorf("normalize images_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeGemini() {
	c.Gemini.APIKey = strings.TrimSpace(c.Gemini.APIKey)
	setDefault := func(field *string, fallback string) {
		*field = strings.TrimSpace(*field)
		if *field == "" {
			*field = fallback
		}
	}
	setDefault(&c.Gemini.ExtractionModel, defaultExtractionModel)
	setDefault(&c.Gemini.AnalysisModel, defaultAnalysisModel)
	setDefault(&c.Gemini.SectionImageModel, defaultSectionImageModel)
	setDefault(&c.Gemini.ContentImageModel, defaultContentImageModel)
	setDefault(&c.Gemini.CodeModel, defaultCodeModel)
	setDefault(&c.Gemini.ReviewModel, defaultReviewModel)
	setDefault(&c.Gemini.FixModel, defaultFixModel)
}

func (c *Config) normalizeCapture() {
	c.Capture.BaseURL = strings.TrimRight(strings.TrimSpace(c.Capture.BaseURL), "/")
	if c.Capture.BaseURL == "" {
		c.Capture.BaseURL = defaultCaptureBaseURL
	}
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.StageTimeoutSeconds <= 0 {
		c.Pipeline.StageTimeoutSeconds = defaultStageTimeoutSeconds
	}
	if c.Pipeline.ContentImagesPerSection <= 0 {
		c.Pipeline.ContentImagesPerSection = defaultContentImagesPerSection
	}
	if c.Pipeline.ImageEditMaxAttempts <= 0 {
		c.Pipeline.ImageEditMaxAttempts = defaultImageEditMaxAttempts
	}
}

func (c *Config) normalizeImageStore() {
	c.ImageStore.Backend = strings.ToLower(strings.TrimSpace(c.ImageStore.Backend))
	if c.ImageStore.Backend == "" {
		c.ImageStore.Backend = defaultImageStoreBackend
	}
	c.ImageStore.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.ImageStore.PublicBaseURL), "/")
	c.ImageStore.MinIO.Endpoint = strings.TrimSpace(c.ImageStore.MinIO.Endpoint)
	c.ImageStore.MinIO.Bucket = strings.TrimSpace(c.ImageStore.MinIO.Bucket)
	if c.ImageStore.MinIO.Bucket == "" {
		c.ImageStore.MinIO.Bucket = defaultMinIOBucket
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
