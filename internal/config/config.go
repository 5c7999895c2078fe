// Package config provides the configuration structure for the gsv2p-tts plugin.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

// Defaults for the GSV2P API section. They match the values documented in the
// plugin's config.toml.
const (
	DefaultAPIURL            = "https://gsv2p.acgnai.top/v1/audio/speech"
	DefaultTimeoutSeconds    = 30
	DefaultModel             = "tts-v4"
	DefaultResponseFormat    = "mp3"
	DefaultSpeed             = 1.0
	DefaultTextLang          = "中英混合"
	DefaultPromptLang        = "中文"
	DefaultEmotion           = "默认"
	DefaultTopK              = 10
	DefaultTopP              = 1.0
	DefaultTemperature       = 1.0
	DefaultTextSplitMethod   = "按标点符号切"
	DefaultBatchSize         = 1
	DefaultBatchThreshold    = 0.75
	DefaultSplitBucket       = true
	DefaultFragmentInterval  = 0.3
	DefaultParallelInfer     = true
	DefaultRepetitionPenalty = 1.35
	DefaultSampleSteps       = 16
	DefaultSuperResolution   = false
	DefaultSeed              = -1
)

// Defaults for the host bridge.
const (
	DefaultNATSURL                  = "nats://127.0.0.1:4222"
	DefaultInboundSubject           = "chat.message.received"
	DefaultOutboundSubject          = "chat.message.send"
	DefaultAudioChunkCreatedSubject = "audio.chunk.created"
	DefaultQueueGroup               = "gsv2p-tts"
)

// Static errors.
var (
	ErrAPIURLEmpty     = errors.New("gsv2p.api_url cannot be empty")
	ErrTimeoutInvalid  = errors.New("gsv2p.timeout must be positive")
	ErrCleanupNegative = errors.New("cleanup durations must be non-negative")
)

const (
	errFmtReadFile   = "failed to read config file %s: %w"
	errFmtParseTOML  = "failed to parse config TOML: %w"
	errFmtEnv        = "failed to apply environment overrides: %w"
	errFmtConfigurat = "failed to load configuration from configurator: %w"
)

// PluginConfig holds the plugin-level switches.
type PluginConfig struct {
	Enabled bool `toml:"enabled"`
}

// ComponentsConfig toggles the two trigger handlers.
type ComponentsConfig struct {
	ActionEnabled  bool `toml:"action_enabled"`
	CommandEnabled bool `toml:"command_enabled"`
}

// GSV2PConfig holds the API endpoint, credentials and synthesis tunables.
type GSV2PConfig struct {
	APIURL            string  `toml:"api_url"            env:"GSV2P_API_URL"`
	APIToken          string  `toml:"api_token"          env:"GSV2P_API_TOKEN"`
	DefaultVoice      string  `toml:"default_voice"      env:"GSV2P_DEFAULT_VOICE"`
	Timeout           int     `toml:"timeout"`
	Model             string  `toml:"model"`
	ResponseFormat    string  `toml:"response_format"`
	Speed             float64 `toml:"speed"`
	TextLang          string  `toml:"text_lang"`
	PromptLang        string  `toml:"prompt_lang"`
	Emotion           string  `toml:"emotion"`
	TopK              int     `toml:"top_k"`
	TopP              float64 `toml:"top_p"`
	Temperature       float64 `toml:"temperature"`
	TextSplitMethod   string  `toml:"text_split_method"`
	BatchSize         int     `toml:"batch_size"`
	BatchThreshold    float64 `toml:"batch_threshold"`
	SplitBucket       bool    `toml:"split_bucket"`
	FragmentInterval  float64 `toml:"fragment_interval"`
	ParallelInfer     bool    `toml:"parallel_infer"`
	RepetitionPenalty float64 `toml:"repetition_penalty"`
	SampleSteps       int     `toml:"sample_steps"`
	IfSR              bool    `toml:"if_sr"`
	Seed              int     `toml:"seed"`
}

// NATSConfig holds the configuration for the NATS host bridge.
type NATSConfig struct {
	URL                      string `toml:"url"                         env:"NATS_URL"`
	InboundSubject           string `toml:"inbound_subject"`
	OutboundSubject          string `toml:"outbound_subject"`
	QueueGroup               string `toml:"queue_group"`
	AudioChunkCreatedSubject string `toml:"audio_chunk_created_subject"`
	AudioObjectStoreBucket   string `toml:"audio_object_store_bucket"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
	OutputDir   string `toml:"output_dir"`
}

// CleanupConfig controls the optional sweeper for generated audio files.
// Zero MaxAgeSeconds disables it.
type CleanupConfig struct {
	MaxAgeSeconds   int `toml:"max_age_seconds"`
	IntervalSeconds int `toml:"interval_seconds"`
}

// Config is the root configuration structure.
type Config struct {
	Plugin     PluginConfig     `toml:"plugin"`
	Components ComponentsConfig `toml:"components"`
	GSV2P      GSV2PConfig      `toml:"gsv2p"`
	NATS       NATSConfig       `toml:"nats"`
	Paths      PathsConfig      `toml:"paths"`
	Cleanup    CleanupConfig    `toml:"cleanup"`
}

// Default returns a configuration populated with every documented default.
func Default() *Config {
	return &Config{
		Plugin:     PluginConfig{Enabled: true},
		Components: ComponentsConfig{ActionEnabled: true, CommandEnabled: true},
		GSV2P: GSV2PConfig{
			APIURL:            DefaultAPIURL,
			APIToken:          "",
			DefaultVoice:      "",
			Timeout:           DefaultTimeoutSeconds,
			Model:             DefaultModel,
			ResponseFormat:    DefaultResponseFormat,
			Speed:             DefaultSpeed,
			TextLang:          DefaultTextLang,
			PromptLang:        DefaultPromptLang,
			Emotion:           DefaultEmotion,
			TopK:              DefaultTopK,
			TopP:              DefaultTopP,
			Temperature:       DefaultTemperature,
			TextSplitMethod:   DefaultTextSplitMethod,
			BatchSize:         DefaultBatchSize,
			BatchThreshold:    DefaultBatchThreshold,
			SplitBucket:       DefaultSplitBucket,
			FragmentInterval:  DefaultFragmentInterval,
			ParallelInfer:     DefaultParallelInfer,
			RepetitionPenalty: DefaultRepetitionPenalty,
			SampleSteps:       DefaultSampleSteps,
			IfSR:              DefaultSuperResolution,
			Seed:              DefaultSeed,
		},
		NATS: NATSConfig{
			URL:                      DefaultNATSURL,
			InboundSubject:           DefaultInboundSubject,
			OutboundSubject:          DefaultOutboundSubject,
			QueueGroup:               DefaultQueueGroup,
			AudioChunkCreatedSubject: DefaultAudioChunkCreatedSubject,
			AudioObjectStoreBucket:   "",
		},
		Paths: PathsConfig{
			BaseLogsDir: os.TempDir(),
			OutputDir:   os.TempDir(),
		},
		Cleanup: CleanupConfig{MaxAgeSeconds: 0, IntervalSeconds: 0},
	}
}

// Load loads the configuration through the central configurator, on top of
// the defaults, and applies environment overrides.
func Load(log *logger.Logger) (*Config, error) {
	cfg := Default()

	err := configurator.Load(cfg, log)
	if err != nil {
		return nil, fmt.Errorf(errFmtConfigurat, err)
	}

	return finish(cfg)
}

// LoadFile reads an explicit TOML file, such as the plugin's config.toml.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf(errFmtReadFile, path, err)
	}

	return Parse(data)
}

// Parse decodes TOML data on top of the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	err := toml.Unmarshal(data, cfg)
	if err != nil {
		return nil, fmt.Errorf(errFmtParseTOML, err)
	}

	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	err := env.Parse(cfg)
	if err != nil {
		return nil, fmt.Errorf(errFmtEnv, err)
	}

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that would make every call fail. A missing API token
// is not an error here: it is reported to the chat user at call time.
func (c *Config) Validate() error {
	if c.GSV2P.APIURL == "" {
		return ErrAPIURLEmpty
	}

	if c.GSV2P.Timeout <= 0 {
		return fmt.Errorf("%w: got %d", ErrTimeoutInvalid, c.GSV2P.Timeout)
	}

	if c.Cleanup.MaxAgeSeconds < 0 || c.Cleanup.IntervalSeconds < 0 {
		return ErrCleanupNegative
	}

	return nil
}
