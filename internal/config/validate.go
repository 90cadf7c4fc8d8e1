package config

import (
	"fmt"
	"strings"
)

// Validate reports configuration combinations the daemon cannot run with.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateImageStore(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return fmt.Errorf("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return fmt.Errorf("paths.log_dir must be set")
	}
	if strings.TrimSpace(c.Paths.ImagesDir) == "" {
		return fmt.Errorf("paths.images_dir must be set")
	}
	if strings.TrimSpace(c.Paths.APIBind) == "" {
		return fmt.Errorf("paths.api_bind must be set")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.StageTimeoutSeconds <= 0 {
		return fmt.Errorf("pipeline.stage_timeout_seconds must be positive")
	}
	if c.Pipeline.ContentImagesPerSection <= 0 {
		return fmt.Errorf("pipeline.content_images_per_section must be positive")
	}
	if c.Pipeline.ImageEditMaxAttempts <= 0 {
		return fmt.Errorf("pipeline.image_edit_max_attempts must be positive")
	}
	return nil
}

func (c *Config) validateImageStore() error {
	switch c.ImageStore.Backend {
	case "disk":
		return nil
	case "minio":
		if c.ImageStore.MinIO.Endpoint == "" {
			return fmt.Errorf("image_store.minio.endpoint must be set for the minio backend")
		}
		if c.ImageStore.MinIO.Bucket == "" {
			return fmt.Errorf("image_store.minio.bucket must be set for the minio backend")
		}
		return nil
	default:
		return fmt.Errorf("image_store.backend must be \"disk\" or \"minio\", got %q", c.ImageStore.Backend)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	return nil
}
