package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateRecognition(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.AttachmentsDir == "" {
		return errors.New("paths.attachments_dir must be set")
	}
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.QueueCapacity < 1 {
		return errors.New("pipeline.queue_capacity must be at least 1")
	}
	if c.Pipeline.Workers < 1 {
		return errors.New("pipeline.workers must be at least 1")
	}
	if c.Pipeline.OCRPoolSize < 1 {
		return errors.New("pipeline.ocr_pool_size must be at least 1")
	}
	if c.Pipeline.SettleMillis < 0 {
		return errors.New("pipeline.settle_millis must not be negative")
	}
	if c.Pipeline.ReviewThreshold < 0 || c.Pipeline.ReviewThreshold > 1 {
		return errors.New("pipeline.review_threshold must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateRecognition() error {
	switch c.Recognition.Engine {
	case "tesseract", "mock":
	default:
		return fmt.Errorf("recognition.engine must be \"tesseract\" or \"mock\", got %q", c.Recognition.Engine)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout < 0 {
		return errors.New("notifications.request_timeout must not be negative")
	}
	return nil
}
