package config

// Config holds app configuration
type Config struct {
	InputFile  string `mapstructure:"input"`
	OutputFile string `mapstructure:"output"`

	// BuffersOutputDir receives the raw (still compressed) buffer
	// blobs when set
	BuffersOutputDir string `mapstructure:"buffers_dir"`

	DryRun       bool   `mapstructure:"dry_run"`
	LogLevel     string `mapstructure:"log_level"`
	LogOutputDir string `mapstructure:"log_output_dir"`

	// Transcode pipeline settings
	WemDir         string  `mapstructure:"wem_dir"`
	Mp3Dir         string  `mapstructure:"mp3_dir"`
	TracksManifest string  `mapstructure:"tracks"`
	MinDuration    float64 `mapstructure:"min_duration"`
	MaxDuration    float64 `mapstructure:"max_duration"`

	// External tool paths; looked up on PATH when empty
	VgmstreamPath string `mapstructure:"vgmstream_path"`
	FfmpegPath    string `mapstructure:"ffmpeg_path"`
	FfprobePath   string `mapstructure:"ffprobe_path"`
}
