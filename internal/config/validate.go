package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLanguages(); err != nil {
		return err
	}
	if err := c.validateChunking(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLanguages() error {
	if c.Languages.Source == c.Languages.Target {
		return fmt.Errorf("languages.source and languages.target must differ (both %q)", c.Languages.Source)
	}
	return nil
}

func (c *Config) validateChunking() error {
	if c.Chunking.MinDurationMS > c.Chunking.MaxDurationMS {
		return errors.New("chunking.min_duration_ms must not exceed chunking.max_duration_ms")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	if c.Transcription.TimeoutSeconds <= 0 {
		return errors.New("transcription.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
	}); err != nil {
		return err
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		return errors.New("workflow.heartbeat_timeout must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
