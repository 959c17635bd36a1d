package config

const (
	defaultWorkDir   = "~/.local/share/subfuse/work"
	defaultOutputDir = "~/subtitles"
	defaultLogDir    = "~/.local/share/subfuse/logs"

	defaultSourceLanguage = "bg"
	defaultTargetLanguage = "en"

	defaultTranscriptionBinary  = "whisperx"
	defaultTranscriptionModel   = "large-v3"
	defaultTranscriptionDevice  = "cpu"
	defaultTranscriptionCompute = "int8"
	defaultTranscriptionTimeout = 3600

	defaultMaxCharsPerLine  = 40
	defaultCharsPerSecond   = 15.0
	defaultMinDurationMS    = 300
	defaultMaxDurationMS    = 2000
	defaultMinGapMS         = 100
	defaultPauseThresholdMS = 200

	defaultBoundaryToleranceMS        = 100
	defaultBoundaryOverlapToleranceMS = 200

	defaultWorkflowQueuePollInterval  = 5
	defaultWorkflowErrorRetryInterval = 10
	defaultWorkflowHeartbeatInterval  = 15
	defaultWorkflowHeartbeatTimeout   = 120

	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 60
)

func defaultDiscoveryExtensions() []string {
	return []string{".mkv", ".mp4", ".avi", ".wav", ".flac", ".m4a", ".mp3"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:   defaultWorkDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Languages: Languages{
			Source: defaultSourceLanguage,
			Target: defaultTargetLanguage,
		},
		Transcription: Transcription{
			Binary:         defaultTranscriptionBinary,
			Model:          defaultTranscriptionModel,
			Device:         defaultTranscriptionDevice,
			ComputeType:    defaultTranscriptionCompute,
			TimeoutSeconds: defaultTranscriptionTimeout,
		},
		Chunking: Chunking{
			MaxCharsPerLine:  defaultMaxCharsPerLine,
			CharsPerSecond:   defaultCharsPerSecond,
			MinDurationMS:    defaultMinDurationMS,
			MaxDurationMS:    defaultMaxDurationMS,
			MinGapMS:         defaultMinGapMS,
			PauseThresholdMS: defaultPauseThresholdMS,
		},
		Merge: Merge{
			BoundaryToleranceMS:        defaultBoundaryToleranceMS,
			BoundaryOverlapToleranceMS: defaultBoundaryOverlapToleranceMS,
		},
		Discovery: Discovery{
			Extensions:  defaultDiscoveryExtensions(),
			SkipSamples: true,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultWorkflowQueuePollInterval,
			ErrorRetryInterval: defaultWorkflowErrorRetryInterval,
			HeartbeatInterval:  defaultWorkflowHeartbeatInterval,
			HeartbeatTimeout:   defaultWorkflowHeartbeatTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
