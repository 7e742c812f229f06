// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	AppName    = "cwdecoder"
	ConfigType = "yaml"
	DefaultConfig = `# gocw configuration

# Audio device settings (microphone receive front-end)
audio_device: "hw:1,0"  # ALSA device (use 'arecord -l' to find)
device_index: -1        # -1 for default device
sample_rate: 48000      # Audio sample rate in Hz
channels: 1             # Number of channels (1=mono)
format: "S16_LE"        # Audio format (S16_LE = 16-bit signed little-endian)
buffer_size: 1024       # Audio buffer size

# Tone detection (microphone receive front-end)
tone_frequency: 600     # CW tone frequency in Hz
block_size: 512         # Goertzel block size (samples per detection window)
overlap_pct: 50         # Block overlap percentage (0-99), higher = smoother but more CPU

# Detection thresholds (microphone receive front-end)
threshold: 0.4          # Detection threshold (0.0-1.0), tone magnitude must exceed this
hysteresis: 5           # Consecutive blocks required to confirm state change (reduces noise)
agc_enabled: true       # Enable automatic gain control (normalizes input levels)
agc_decay: 0.9995       # AGC peak decay rate per sample (0.999-0.99999)
agc_attack: 0.1         # AGC attack rate (0.0-1.0), how fast to respond to louder signals
agc_warmup_blocks: 10   # Blocks processed before detection is enabled

# Timing (unused by cmd/ since the tree-walk decoder was retired; kept for
# config-file/flag compatibility)
wpm: 15                        # Initial WPM estimate
adaptive_timing: true          # Adapt to sender's speed
adaptive_smoothing: 0.1        # EMA smoothing factor for timing adaptation
dit_dah_boundary: 2.0          # Threshold ratio between dit and dah
inter_char_boundary: 3.0       # Threshold ratio for inter-character spacing
char_word_boundary: 5.0        # Threshold ratio between character and word space
farnsworth_wpm: 0              # Effective WPM for spacing (0 = same as wpm)

# Pattern-matching correction (unused by cmd/ since the tree-walk adaptive
# decoder was retired; kept for config-file/flag compatibility)
adaptive_pattern_enabled: false  # Enable common-word/prosign pattern correction
adaptive_min_confidence: 0.7     # Minimum match confidence to trigger a correction
adaptive_adjustment_rate: 0.1    # EMA rate for inter_char_boundary adjustments
adaptive_min_matches: 3          # Pattern repeats required before adjusting timing

# Output
debug: false            # Enable debug output

# Receiver (internal/receiver edge-driven state machine)
receive:
  speed_wpm: 20                  # fixed-mode receive speed
  tolerance_pct: 20               # fixed-mode classification tolerance
  gap_units: 0                    # additional inter-character/word gap, dot units
  noise_spike_threshold_us: 2000  # marks shorter than this are suppressed as noise
  adaptive: false                 # derive speed from observed timing instead of speed_wpm

# Generator (internal/generator tone producer)
send:
  speed_wpm: 20             # character speed
  tolerance_pct: 0          # unused in send direction beyond validation range
  gap_units: 0              # additional inter-character/word gap, dot units
  weighting_pct: 50         # dot/dash weighting (20-80, 50=neutral)
  farnsworth_wpm: 0         # spacing speed (0 = same as speed_wpm)
  frequency_hz: 600         # sidetone frequency
  volume: 0.7               # output volume (0.0-1.0)
  queue_capacity: 32        # tone queue bound
  low_water_mark: 4         # low-water callback threshold
  sample_rate_hz: 48000     # synthesizer sample rate
  slope_length_us: 5000     # rise/fall shaping length
  slope_shape: "raised_cosine" # linear | raised_cosine | sine | rectangular
  buffer_frames: 512        # PCM frames per sink write
`
)

// Settings holds all application configuration.
type Settings struct {
	// Audio device settings (microphone receive front-end)
	AudioDevice string  `mapstructure:"audio_device"`
	DeviceIndex int     `mapstructure:"device_index"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Channels    int     `mapstructure:"channels"`
	Format      string  `mapstructure:"format"`
	BufferSize  int     `mapstructure:"buffer_size"`

	// Tone detection (microphone receive front-end)
	ToneFrequency float64 `mapstructure:"tone_frequency"`
	BlockSize     int     `mapstructure:"block_size"`
	OverlapPct    int     `mapstructure:"overlap_pct"`

	// Detection thresholds (microphone receive front-end)
	Threshold       float64 `mapstructure:"threshold"`
	Hysteresis      int     `mapstructure:"hysteresis"`
	AGCEnabled      bool    `mapstructure:"agc_enabled"`
	AGCDecay        float64 `mapstructure:"agc_decay"`
	AGCAttack       float64 `mapstructure:"agc_attack"`
	AGCWarmupBlocks int     `mapstructure:"agc_warmup_blocks"`

	// Timing: unused by cmd/ since the tree-walk decoder was retired (see
	// internal/cw in DESIGN.md); kept so config-file/flag compatibility with
	// earlier deployments isn't broken by their removal.
	WPM               int     `mapstructure:"wpm"`
	AdaptiveTiming    bool    `mapstructure:"adaptive_timing"`
	AdaptiveSmoothing float64 `mapstructure:"adaptive_smoothing"`
	DitDahBoundary    float64 `mapstructure:"dit_dah_boundary"`
	InterCharBoundary float64 `mapstructure:"inter_char_boundary"`
	CharWordBoundary  float64 `mapstructure:"char_word_boundary"`
	FarnsworthWPM     int     `mapstructure:"farnsworth_wpm"`

	// Pattern-matching correction: likewise unused now, same reason as above.
	AdaptivePatternEnabled bool    `mapstructure:"adaptive_pattern_enabled"`
	AdaptiveMinConfidence  float64 `mapstructure:"adaptive_min_confidence"`
	AdaptiveAdjustmentRate float64 `mapstructure:"adaptive_adjustment_rate"`
	AdaptiveMinMatches     int     `mapstructure:"adaptive_min_matches"`

	// Output
	Debug bool `mapstructure:"debug"`

	// Receive is the internal/receiver edge-driven state machine config.
	Receive ReceiveSettings `mapstructure:"receive"`
	// Send is the internal/generator tone-producer config.
	Send SendSettings `mapstructure:"send"`
}

// ReceiveSettings configures internal/timing.ReceiveParams and
// internal/receiver.Receiver.
type ReceiveSettings struct {
	SpeedWPM              int   `mapstructure:"speed_wpm"`
	TolerancePct           int   `mapstructure:"tolerance_pct"`
	GapUnits               int   `mapstructure:"gap_units"`
	NoiseSpikeThresholdUs  int64 `mapstructure:"noise_spike_threshold_us"`
	Adaptive               bool  `mapstructure:"adaptive"`
}

// SendSettings configures internal/timing.SendParams and
// internal/generator.Generator.
type SendSettings struct {
	SpeedWPM      int     `mapstructure:"speed_wpm"`
	TolerancePct  int     `mapstructure:"tolerance_pct"`
	GapUnits      int     `mapstructure:"gap_units"`
	WeightingPct  int     `mapstructure:"weighting_pct"`
	FarnsworthWPM int     `mapstructure:"farnsworth_wpm"`
	FrequencyHz   int32   `mapstructure:"frequency_hz"`
	Volume        float64 `mapstructure:"volume"`
	QueueCapacity int     `mapstructure:"queue_capacity"`
	LowWaterMark  int     `mapstructure:"low_water_mark"`
	SampleRateHz  float64 `mapstructure:"sample_rate_hz"`
	SlopeLengthUs int64   `mapstructure:"slope_length_us"`
	SlopeShape    string  `mapstructure:"slope_shape"`
	BufferFrames  int     `mapstructure:"buffer_frames"`
}

// Init initializes Viper with defaults and config file.
// Config file search order: current directory, then ~/.config/cwdecoder/
func Init() error {
	// Set defaults
	viper.SetDefault("audio_device", "hw:1,0")
	viper.SetDefault("device_index", -1)
	viper.SetDefault("sample_rate", 48000)
	viper.SetDefault("channels", 1)
	viper.SetDefault("format", "S16_LE")
	viper.SetDefault("buffer_size", 1024)
	viper.SetDefault("tone_frequency", 600)
	viper.SetDefault("block_size", 512)
	viper.SetDefault("overlap_pct", 50)
	viper.SetDefault("threshold", 0.4)
	viper.SetDefault("hysteresis", 5)
	viper.SetDefault("agc_enabled", true)
	viper.SetDefault("agc_decay", 0.9995)
	viper.SetDefault("agc_attack", 0.1)
	viper.SetDefault("agc_warmup_blocks", 10)
	viper.SetDefault("wpm", 15)
	viper.SetDefault("adaptive_timing", true)
	viper.SetDefault("adaptive_smoothing", 0.1)
	viper.SetDefault("dit_dah_boundary", 2.0)
	viper.SetDefault("inter_char_boundary", 3.0)
	viper.SetDefault("char_word_boundary", 5.0)
	viper.SetDefault("farnsworth_wpm", 0)
	viper.SetDefault("adaptive_pattern_enabled", false)
	viper.SetDefault("adaptive_min_confidence", 0.7)
	viper.SetDefault("adaptive_adjustment_rate", 0.1)
	viper.SetDefault("adaptive_min_matches", 3)
	viper.SetDefault("debug", false)

	viper.SetDefault("receive.speed_wpm", 20)
	viper.SetDefault("receive.tolerance_pct", 20)
	viper.SetDefault("receive.gap_units", 0)
	viper.SetDefault("receive.noise_spike_threshold_us", 2000)
	viper.SetDefault("receive.adaptive", false)

	viper.SetDefault("send.speed_wpm", 20)
	viper.SetDefault("send.tolerance_pct", 0)
	viper.SetDefault("send.gap_units", 0)
	viper.SetDefault("send.weighting_pct", 50)
	viper.SetDefault("send.farnsworth_wpm", 0)
	viper.SetDefault("send.frequency_hz", 600)
	viper.SetDefault("send.volume", 0.7)
	viper.SetDefault("send.queue_capacity", 32)
	viper.SetDefault("send.low_water_mark", 4)
	viper.SetDefault("send.sample_rate_hz", 48000)
	viper.SetDefault("send.slope_length_us", 5000)
	viper.SetDefault("send.slope_shape", "raised_cosine")
	viper.SetDefault("send.buffer_frames", 512)

	// Support both config.yaml and .config.yaml
	viper.SetConfigType(ConfigType)

	// Priority order: current directory first, then XDG config
	viper.AddConfigPath(".")

	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	viper.AddConfigPath(filepath.Join(configDir, AppName))

	// Try .config.yaml first (hidden file), then config.yaml
	viper.SetConfigName(".config")
	if err = viper.ReadInConfig(); err != nil {
		// Try config.yaml as fallback
		viper.SetConfigName("config")
		err = viper.ReadInConfig()
	}

	// Read config file - if not found, create default in XDG config dir
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// No config found - create default in ~/.config/cwdecoder/
			xdgConfigPath := filepath.Join(configDir, AppName)
			if err = ensureConfigExists(xdgConfigPath); err != nil {
				return err
			}
			// Read the newly created config
			if err = viper.ReadInConfig(); err != nil {
				return fmt.Errorf("read config: %w", err)
			}
		} else {
			return fmt.Errorf("read config: %w", err)
		}
	}

	return nil
}

func ensureConfigExists(configPath string) error {
	configFile := filepath.Join(configPath, "config.yaml")

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if err = os.MkdirAll(configPath, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
		if err = os.WriteFile(configFile, []byte(DefaultConfig), 0644); err != nil {
			return fmt.Errorf("write default config: %w", err)
		}
	}
	return nil
}

// Get returns the current settings.
func Get() (*Settings, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &s, nil
}

// Validate checks that all settings are within acceptable ranges.
func (s *Settings) Validate() error {
	var errs []error

	// Audio device settings
	if s.SampleRate < 8000 || s.SampleRate > 192000 {
		errs = append(errs, fmt.Errorf("sample_rate must be between 8000 and 192000 Hz, got %v", s.SampleRate))
	}
	if s.Channels < 1 || s.Channels > 2 {
		errs = append(errs, fmt.Errorf("channels must be 1 or 2, got %d", s.Channels))
	}
	if s.BufferSize < 64 || s.BufferSize > 8192 {
		errs = append(errs, fmt.Errorf("buffer_size must be between 64 and 8192, got %d", s.BufferSize))
	}
	// Buffer size should be power of 2 for optimal FFT/Goertzel performance
	if s.BufferSize&(s.BufferSize-1) != 0 {
		errs = append(errs, fmt.Errorf("buffer_size should be a power of 2, got %d", s.BufferSize))
	}

	// Tone detection
	if s.ToneFrequency < 100 || s.ToneFrequency > 3000 {
		errs = append(errs, fmt.Errorf("tone_frequency must be between 100 and 3000 Hz, got %v", s.ToneFrequency))
	}
	if s.BlockSize < 32 || s.BlockSize > 4096 {
		errs = append(errs, fmt.Errorf("block_size must be between 32 and 4096, got %d", s.BlockSize))
	}
	if s.BlockSize&(s.BlockSize-1) != 0 {
		errs = append(errs, fmt.Errorf("block_size should be a power of 2, got %d", s.BlockSize))
	}
	if s.OverlapPct < 0 || s.OverlapPct > 99 {
		errs = append(errs, fmt.Errorf("overlap_pct must be between 0 and 99, got %d", s.OverlapPct))
	}

	// Detection thresholds
	if s.Threshold < 0.0 || s.Threshold > 1.0 {
		errs = append(errs, fmt.Errorf("threshold must be between 0.0 and 1.0, got %v", s.Threshold))
	}
	if s.Hysteresis < 1 || s.Hysteresis > 50 {
		errs = append(errs, fmt.Errorf("hysteresis must be between 1 and 50, got %d", s.Hysteresis))
	}
	if s.AGCDecay < 0.99 || s.AGCDecay > 0.99999 {
		errs = append(errs, fmt.Errorf("agc_decay must be between 0.99 and 0.99999, got %v", s.AGCDecay))
	}
	if s.AGCAttack < 0.0 || s.AGCAttack > 1.0 {
		errs = append(errs, fmt.Errorf("agc_attack must be between 0.0 and 1.0, got %v", s.AGCAttack))
	}
	if s.AGCWarmupBlocks < 0 {
		errs = append(errs, fmt.Errorf("agc_warmup_blocks must be non-negative, got %d", s.AGCWarmupBlocks))
	}

	// Timing
	if s.WPM < 5 || s.WPM > 60 {
		errs = append(errs, fmt.Errorf("wpm must be between 5 and 60, got %d", s.WPM))
	}
	if s.AdaptiveSmoothing < 0 || s.AdaptiveSmoothing > 1 {
		errs = append(errs, fmt.Errorf("adaptive_smoothing must be between 0.0 and 1.0, got %v", s.AdaptiveSmoothing))
	}
	if s.DitDahBoundary <= 1.0 {
		errs = append(errs, fmt.Errorf("dit_dah_boundary must be greater than 1.0, got %v", s.DitDahBoundary))
	}
	if s.InterCharBoundary <= 1.0 {
		errs = append(errs, fmt.Errorf("inter_char_boundary must be greater than 1.0, got %v", s.InterCharBoundary))
	}
	if s.CharWordBoundary <= 1.0 {
		errs = append(errs, fmt.Errorf("char_word_boundary must be greater than 1.0, got %v", s.CharWordBoundary))
	}
	if s.FarnsworthWPM < 0 || s.FarnsworthWPM > s.WPM {
		errs = append(errs, fmt.Errorf("farnsworth_wpm must be between 0 and wpm, got %d", s.FarnsworthWPM))
	}

	// Pattern-matching correction
	if s.AdaptiveMinConfidence < 0 || s.AdaptiveMinConfidence > 1 {
		errs = append(errs, fmt.Errorf("adaptive_min_confidence must be between 0.0 and 1.0, got %v", s.AdaptiveMinConfidence))
	}
	if s.AdaptiveAdjustmentRate < 0 || s.AdaptiveAdjustmentRate > 1 {
		errs = append(errs, fmt.Errorf("adaptive_adjustment_rate must be between 0.0 and 1.0, got %v", s.AdaptiveAdjustmentRate))
	}
	if s.AdaptiveMinMatches < 0 {
		errs = append(errs, fmt.Errorf("adaptive_min_matches must be non-negative, got %d", s.AdaptiveMinMatches))
	}

	// Validate audio format
	validFormats := map[string]bool{
		"S16_LE": true,
		"S16_BE": true,
		"S24_LE": true,
		"S24_BE": true,
		"S32_LE": true,
		"S32_BE": true,
		"F32_LE": true,
		"F32_BE": true,
	}
	if !validFormats[s.Format] {
		errs = append(errs, fmt.Errorf("format must be one of S16_LE, S16_BE, S24_LE, S24_BE, S32_LE, S32_BE, F32_LE, F32_BE, got %q", s.Format))
	}

	// Nyquist check: tone frequency must be less than half the sample rate
	if s.ToneFrequency >= s.SampleRate/2 {
		errs = append(errs, fmt.Errorf("tone_frequency (%v Hz) must be less than Nyquist frequency (%v Hz)", s.ToneFrequency, s.SampleRate/2))
	}

	if err := s.Receive.validate(); err != nil {
		errs = append(errs, err)
	}
	if err := s.Send.validate(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func (r *ReceiveSettings) validate() error {
	var errs []error
	if r.SpeedWPM < 5 || r.SpeedWPM > 60 {
		errs = append(errs, fmt.Errorf("receive.speed_wpm must be between 5 and 60, got %d", r.SpeedWPM))
	}
	if r.TolerancePct < 0 || r.TolerancePct > 90 {
		errs = append(errs, fmt.Errorf("receive.tolerance_pct must be between 0 and 90, got %d", r.TolerancePct))
	}
	if r.GapUnits < 0 || r.GapUnits > 60 {
		errs = append(errs, fmt.Errorf("receive.gap_units must be between 0 and 60, got %d", r.GapUnits))
	}
	if r.NoiseSpikeThresholdUs < 0 {
		errs = append(errs, fmt.Errorf("receive.noise_spike_threshold_us must be non-negative, got %d", r.NoiseSpikeThresholdUs))
	}
	return errors.Join(errs...)
}

func (s *SendSettings) validate() error {
	var errs []error
	if s.SpeedWPM < 5 || s.SpeedWPM > 60 {
		errs = append(errs, fmt.Errorf("send.speed_wpm must be between 5 and 60, got %d", s.SpeedWPM))
	}
	if s.WeightingPct < 20 || s.WeightingPct > 80 {
		errs = append(errs, fmt.Errorf("send.weighting_pct must be between 20 and 80, got %d", s.WeightingPct))
	}
	if s.FarnsworthWPM != 0 && (s.FarnsworthWPM < 5 || s.FarnsworthWPM > s.SpeedWPM) {
		errs = append(errs, fmt.Errorf("send.farnsworth_wpm must be 0 or between 5 and speed_wpm, got %d", s.FarnsworthWPM))
	}
	if s.Volume < 0 || s.Volume > 1 {
		errs = append(errs, fmt.Errorf("send.volume must be between 0.0 and 1.0, got %v", s.Volume))
	}
	if s.QueueCapacity <= 0 {
		errs = append(errs, fmt.Errorf("send.queue_capacity must be positive, got %d", s.QueueCapacity))
	}
	if s.LowWaterMark < 0 || s.LowWaterMark >= s.QueueCapacity {
		errs = append(errs, fmt.Errorf("send.low_water_mark must be between 0 and queue_capacity-1, got %d", s.LowWaterMark))
	}
	if s.SampleRateHz < 8000 || s.SampleRateHz > 192000 {
		errs = append(errs, fmt.Errorf("send.sample_rate_hz must be between 8000 and 192000, got %v", s.SampleRateHz))
	}
	switch s.SlopeShape {
	case "linear", "raised_cosine", "sine", "rectangular":
	default:
		errs = append(errs, fmt.Errorf("send.slope_shape must be one of linear, raised_cosine, sine, rectangular, got %q", s.SlopeShape))
	}
	return errors.Join(errs...)
}
