package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"reel/internal/media"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validateBatch(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		return errors.New("paths.staging_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	if strings.TrimSpace(c.Paths.ArtifactDir) == "" {
		return errors.New("paths.artifact_dir must be set")
	}
	if strings.TrimSpace(c.Paths.APIBind) == "" {
		return errors.New("paths.api_bind must be set")
	}
	return nil
}

func (c *Config) validateEngine() error {
	if strings.TrimSpace(c.Engine.FFmpegBinary) == "" {
		return errors.New("engine.ffmpeg_binary must be set")
	}
	if strings.TrimSpace(c.Engine.FFprobeBinary) == "" {
		return errors.New("engine.ffprobe_binary must be set")
	}
	if c.Engine.FetchTimeout <= 0 {
		return errors.New("engine.fetch_timeout must be positive (seconds)")
	}
	if c.Engine.ArtifactBaseURL != "" {
		parsed, err := url.Parse(c.Engine.ArtifactBaseURL)
		if err != nil {
			return fmt.Errorf("engine.artifact_base_url is not a valid URL: %w", err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return errors.New("engine.artifact_base_url must use http or https")
		}
	}
	return nil
}

func (c *Config) validateBatch() error {
	if _, ok := media.ParseFormat(c.Batch.DefaultFormat); !ok {
		return fmt.Errorf("batch.default_format %q is not supported (choose one of: %s)",
			c.Batch.DefaultFormat, strings.Join(media.FormatNames(), ", "))
	}
	if _, ok := media.ParseQuality(c.Batch.DefaultQuality); !ok {
		return fmt.Errorf("batch.default_quality %q is not supported (choose high, medium, or low)", c.Batch.DefaultQuality)
	}
	if c.Batch.MinFreeSpaceGiB < 0 {
		return errors.New("batch.min_free_space_gib must be >= 0")
	}
	if c.Batch.MaxSourceMiB < 0 {
		return errors.New("batch.max_source_mib must be >= 0 (0 disables the limit)")
	}
	return nil
}
