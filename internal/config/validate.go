package config

import "fmt"

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateModel(); err != nil {
		return err
	}
	if err := c.validateEnrollment(); err != nil {
		return err
	}
	if err := c.validateRecognition(); err != nil {
		return err
	}
	if err := c.validateRefresh(); err != nil {
		return err
	}
	if err := c.validateCamera(); err != nil {
		return err
	}
	if err := c.validateMirror(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateModel() error {
	if c.Model.Dir == "" {
		return fmt.Errorf("model.dir is required")
	}
	if c.Model.EmbeddingDimension <= 0 {
		return fmt.Errorf("model.embedding_dimension must be positive, got %d", c.Model.EmbeddingDimension)
	}
	if c.Model.BackupWindowMinutes < 0 {
		return fmt.Errorf("model.backup_window_minutes must not be negative")
	}
	b := c.Model
	if b.CountFatalMin > b.CountWarnMin || b.CountWarnMin > b.CountWarnMax || b.CountWarnMax > b.CountFatalMax {
		return fmt.Errorf("model count bounds must nest: fatal_min <= warn_min <= warn_max <= fatal_max")
	}
	return nil
}

func (c *Config) validateEnrollment() error {
	if c.Enrollment.Workers <= 0 {
		return fmt.Errorf("enrollment.workers must be positive, got %d", c.Enrollment.Workers)
	}
	if c.Enrollment.TopK <= 0 {
		return fmt.Errorf("enrollment.top_k must be positive, got %d", c.Enrollment.TopK)
	}
	return nil
}

func (c *Config) validateRecognition() error {
	r := c.Recognition
	if r.Tolerance <= 0 {
		return fmt.Errorf("recognition.tolerance must be positive, got %v", r.Tolerance)
	}
	if r.RetryTolerance < r.Tolerance {
		return fmt.Errorf("recognition.retry_tolerance (%v) must be >= tolerance (%v)", r.RetryTolerance, r.Tolerance)
	}
	return nil
}

func (c *Config) validateRefresh() error {
	if !c.Refresh.Disabled && c.Refresh.AutoIntervalSeconds <= 0 {
		return fmt.Errorf("refresh.auto_interval_seconds must be positive when auto-refresh is enabled")
	}
	return nil
}

func (c *Config) validateCamera() error {
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return fmt.Errorf("camera dimensions must be positive, got %dx%d", c.Camera.Width, c.Camera.Height)
	}
	if c.Camera.FramesPerSec <= 0 {
		return fmt.Errorf("camera.frames_per_sec must be positive, got %v", c.Camera.FramesPerSec)
	}
	if c.Camera.WindowSeconds <= 0 {
		return fmt.Errorf("camera.window_seconds must be positive, got %d", c.Camera.WindowSeconds)
	}
	return nil
}

func (c *Config) validateMirror() error {
	if !c.Mirror.Enabled {
		return nil
	}
	if c.Mirror.Endpoint == "" {
		return fmt.Errorf("mirror.endpoint is required when mirroring is enabled")
	}
	if c.Mirror.Bucket == "" {
		return fmt.Errorf("mirror.bucket is required when mirroring is enabled")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}
