package config

import (
	"os"
	"path/filepath"

	"go-looper/looper"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"gopkg.in/yaml.v3"
)

// AudioConfig selects the device stream
type AudioConfig struct {
	SampleRate     int `yaml:"sample_rate"`
	BufferFrames   int `yaml:"buffer_frames"`
	InputChannels  int `yaml:"input_channels"`
	OutputChannels int `yaml:"output_channels"`
}

// LooperConfig holds the session defaults
type LooperConfig struct {
	BPM             int     `yaml:"bpm"`
	BeatsPerBar     int     `yaml:"beats_per_bar"`
	Bars            int     `yaml:"bars"`
	Metronome       bool    `yaml:"metronome"`
	MetronomeVolume float64 `yaml:"metronome_volume"`
	Tracks          int     `yaml:"tracks"`
	InputGain       float64 `yaml:"input_gain"`
}

// MIDIConfig defines the optional mirror output and footswitch input.
// Empty port names disable them.
type MIDIConfig struct {
	OutputPort    string           `yaml:"output_port,omitempty"`
	OutputChannel int              `yaml:"output_channel"`
	Kit           string           `yaml:"kit"`
	InputPort     string           `yaml:"input_port,omitempty"`
	Controls      map[string]uint8 `yaml:"controls,omitempty"`
}

// LogConfig controls the debug log file
type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path,omitempty"`
}

// UIConfig stores UI preferences
type UIConfig struct {
	Palette string `yaml:"palette,omitempty"` // GIMP .gpl file, built-in plasma when empty
}

// Config is the main configuration structure
type Config struct {
	Audio  AudioConfig  `yaml:"audio"`
	Looper LooperConfig `yaml:"looper"`
	MIDI   MIDIConfig   `yaml:"midi"`
	Log    LogConfig    `yaml:"log"`
	UI     UIConfig     `yaml:"ui,omitempty"`
}

const maxTracks = 9 // one number key per track

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	set := looper.DefaultSettings()
	return &Config{
		Audio: AudioConfig{
			SampleRate:     48000,
			BufferFrames:   256,
			InputChannels:  1,
			OutputChannels: 2,
		},
		Looper: LooperConfig{
			BPM:             set.BPM,
			BeatsPerBar:     set.BeatsPerBar,
			Bars:            set.Bars,
			Metronome:       set.MetronomeActive,
			MetronomeVolume: set.MetronomeVolume,
			Tracks:          looper.DefaultTrackCount,
			InputGain:       looper.DefaultInputGain,
		},
		MIDI: MIDIConfig{
			OutputChannel: 10,
			Kit:           "gm",
			Controls: map[string]uint8{
				"transport": 60,
				"record 1":  62,
				"record 2":  64,
				"record 3":  65,
				"record 4":  67,
			},
		},
		Log: LogConfig{
			Level: "debug",
		},
	}
}

// Settings returns the looper settings the config describes
func (c *Config) Settings() looper.Settings {
	return looper.Settings{
		BPM:             c.Looper.BPM,
		BeatsPerBar:     c.Looper.BeatsPerBar,
		Bars:            c.Looper.Bars,
		MetronomeActive: c.Looper.Metronome,
		MetronomeVolume: c.Looper.MetronomeVolume,
	}.Clamp()
}

// Validate clamps every value into its supported range
func (c *Config) Validate() {
	def := DefaultConfig()

	if c.Audio.SampleRate <= 0 {
		c.Audio.SampleRate = def.Audio.SampleRate
	}
	if c.Audio.BufferFrames <= 0 {
		c.Audio.BufferFrames = def.Audio.BufferFrames
	}
	if c.Audio.InputChannels < 0 {
		c.Audio.InputChannels = 0
	}
	if c.Audio.OutputChannels < 1 {
		c.Audio.OutputChannels = def.Audio.OutputChannels
	}

	set := c.Settings()
	c.Looper.BPM = set.BPM
	c.Looper.BeatsPerBar = set.BeatsPerBar
	c.Looper.Bars = set.Bars
	c.Looper.MetronomeVolume = set.MetronomeVolume
	if c.Looper.Tracks < 1 {
		c.Looper.Tracks = 1
	}
	if c.Looper.Tracks > maxTracks {
		c.Looper.Tracks = maxTracks
	}
	if c.Looper.InputGain < 0 {
		c.Looper.InputGain = 0
	}

	if c.MIDI.OutputChannel < 1 || c.MIDI.OutputChannel > 16 {
		c.MIDI.OutputChannel = def.MIDI.OutputChannel
	}
	if c.MIDI.Kit == "" {
		c.MIDI.Kit = def.MIDI.Kit
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-looper"), nil
}

// ConfigPath returns the full path to config.yaml
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Parse reads YAML on top of the defaults, so missing keys keep their
// default values
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	controls := cfg.MIDI.Controls
	cfg.MIDI.Controls = nil // a configured map replaces the defaults, it does not merge
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fault.Wrap(err, ftag.With(ftag.InvalidArgument), fmsg.With("parse config"))
	}
	if cfg.MIDI.Controls == nil {
		cfg.MIDI.Controls = controls
	}
	cfg.Validate()
	return cfg, nil
}

// Load reads the config from path, or the default location when path is
// empty. A missing file gives the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return DefaultConfig(), nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fault.Wrap(err, fmsg.With("read config"))
	}
	return Parse(data)
}

// Save writes the config to path, or the default location when path is
// empty
func (c *Config) Save(path string) error {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fault.Wrap(err, fmsg.With("create config dir"))
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fault.Wrap(err, fmsg.With("encode config"))
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fault.Wrap(err, fmsg.With("write config"))
	}
	return nil
}
