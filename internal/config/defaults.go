package config

const (
	defaultStagingDir      = "~/.local/share/reel/staging"
	defaultOutputDir       = "~/videos/reel"
	defaultLogDir          = "~/.local/share/reel/logs"
	defaultArtifactDir     = "~/.local/share/reel/engine"
	defaultAPIBind         = "127.0.0.1:7489"
	defaultFFmpegBinary    = "ffmpeg"
	defaultFFprobeBinary   = "ffprobe"
	defaultFetchTimeout    = 120
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultTargetFormat    = "mp4"
	defaultQualityPreset   = "medium"
	defaultMinFreeSpaceGiB = 1
	defaultMaxSourceMiB    = 2048
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir:  defaultStagingDir,
			OutputDir:   defaultOutputDir,
			LogDir:      defaultLogDir,
			ArtifactDir: defaultArtifactDir,
			APIBind:     defaultAPIBind,
			APIOrigins:  []string{"*"},
		},
		Engine: Engine{
			FFmpegBinary:    defaultFFmpegBinary,
			FFprobeBinary:   defaultFFprobeBinary,
			FetchTimeout:    defaultFetchTimeout,
			AllowSimulation: true,
		},
		Batch: Batch{
			DefaultFormat:   defaultTargetFormat,
			DefaultQuality:  defaultQualityPreset,
			MinFreeSpaceGiB: defaultMinFreeSpaceGiB,
			MaxSourceMiB:    defaultMaxSourceMiB,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
