package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"pitchsync/internal/keys"
)

// Config captures the inputs, linking rules and rendering settings for a game.
type Config struct {
	Version  int            `yaml:"version" toml:"version"`
	Inputs   InputsConfig   `yaml:"inputs" toml:"inputs"`
	Link     LinkConfig     `yaml:"link" toml:"link"`
	Clips    ClipsConfig    `yaml:"clips" toml:"clips"`
	Overlay  OverlayConfig  `yaml:"overlay" toml:"overlay"`
	Encoding EncodingConfig `yaml:"encoding" toml:"encoding"`
	Output   OutputConfig   `yaml:"output" toml:"output"`
	Log      LogConfig      `yaml:"log" toml:"log"`
}

// InputsConfig names the two exports. Relative paths resolve against the
// project root.
type InputsConfig struct {
	Tracking      string            `yaml:"tracking" toml:"tracking"`
	Tagged        string            `yaml:"tagged" toml:"tagged"`
	HeaderAliases map[string]string `yaml:"header_aliases,omitempty" toml:"header_aliases,omitempty"`
}

// LinkConfig controls key construction and how an incomplete join is handled.
type LinkConfig struct {
	Mode                string   `yaml:"mode" toml:"mode"`
	DateLayouts         []string `yaml:"date_layouts,omitempty" toml:"date_layouts,omitempty"`
	ProceedOnIncomplete bool     `yaml:"proceed_on_incomplete" toml:"proceed_on_incomplete"`
}

// ClipsConfig points at the clip directory and optional bonus footage.
type ClipsConfig struct {
	Dir        string   `yaml:"dir" toml:"dir"`
	Extensions []string `yaml:"extensions" toml:"extensions"`
	Extra      []string `yaml:"extra,omitempty" toml:"extra,omitempty"`
}

// OverlayConfig styles the two text blocks.
type OverlayConfig struct {
	FontFile    string `yaml:"font_file,omitempty" toml:"font_file,omitempty"`
	FontSize    int    `yaml:"font_size" toml:"font_size"`
	FontColor   string `yaml:"font_color" toml:"font_color"`
	BoxColor    string `yaml:"box_color" toml:"box_color"`
	BoxBorder   int    `yaml:"box_border" toml:"box_border"`
	Margin      int    `yaml:"margin" toml:"margin"`
	LineSpacing int    `yaml:"line_spacing" toml:"line_spacing"`
}

// EncodingConfig drives the external encoder.
type EncodingConfig struct {
	FFmpeg      string `yaml:"ffmpeg,omitempty" toml:"ffmpeg,omitempty"`
	VideoCodec  string `yaml:"video_codec" toml:"video_codec"`
	Preset      string `yaml:"preset" toml:"preset"`
	CRF         int    `yaml:"crf,omitempty" toml:"crf,omitempty"`
	KeepAudio   bool   `yaml:"keep_audio" toml:"keep_audio"`
	Concurrency int    `yaml:"concurrency" toml:"concurrency"`
}

// OutputConfig controls where annotated clips and the combined video land.
type OutputConfig struct {
	Dir                string `yaml:"dir" toml:"dir"`
	Suffix             string `yaml:"suffix" toml:"suffix"`
	Combined           string `yaml:"combined" toml:"combined"`
	IncludeUnannotated bool   `yaml:"include_unannotated" toml:"include_unannotated"`
}

// LogConfig sets the run log verbosity.
type LogConfig struct {
	Level string `yaml:"level" toml:"level"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Version: 1,
		Inputs: InputsConfig{
			Tracking: "tracking.csv",
			Tagged:   "tagged.csv",
		},
		Link: LinkConfig{
			Mode: keys.ModeCount.String(),
		},
		Clips: ClipsConfig{
			Dir:        "clips",
			Extensions: []string{".mp4", ".mov", ".avi", ".mkv"},
		},
		Overlay: OverlayConfig{
			FontSize:    24,
			FontColor:   "white",
			BoxColor:    "black@0.6",
			BoxBorder:   10,
			Margin:      10,
			LineSpacing: 4,
		},
		Encoding: EncodingConfig{
			VideoCodec:  "libx264",
			Preset:      "ultrafast",
			Concurrency: 2,
		},
		Output: OutputConfig{
			Dir:      "out",
			Suffix:   "_edited",
			Combined: "combined.mp4",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the configuration from disk if it exists, otherwise it returns
// the default configuration. Files ending in .toml are decoded as TOML and
// everything else as YAML.
func Load(path string) (Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			cfg.ApplyDefaults()
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if IsTOML(path) {
		if err := toml.Unmarshal(contents, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse toml config: %w", err)
		}
	} else if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// IsTOML reports whether path names a TOML config file.
func IsTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// ApplyDefaults fills zero values left by a partial config file.
func (c *Config) ApplyDefaults() {
	defaults := Default()

	if c.Version == 0 {
		c.Version = defaults.Version
	}
	if strings.TrimSpace(c.Link.Mode) == "" {
		c.Link.Mode = defaults.Link.Mode
	}
	if strings.TrimSpace(c.Clips.Dir) == "" {
		c.Clips.Dir = defaults.Clips.Dir
	}
	if len(c.Clips.Extensions) == 0 {
		c.Clips.Extensions = defaults.Clips.Extensions
	}
	if c.Overlay.FontSize == 0 {
		c.Overlay.FontSize = defaults.Overlay.FontSize
	}
	if c.Overlay.FontColor == "" {
		c.Overlay.FontColor = defaults.Overlay.FontColor
	}
	if c.Overlay.BoxColor == "" {
		c.Overlay.BoxColor = defaults.Overlay.BoxColor
	}
	if c.Overlay.BoxBorder == 0 {
		c.Overlay.BoxBorder = defaults.Overlay.BoxBorder
	}
	if c.Overlay.Margin == 0 {
		c.Overlay.Margin = defaults.Overlay.Margin
	}
	if c.Encoding.VideoCodec == "" {
		c.Encoding.VideoCodec = defaults.Encoding.VideoCodec
	}
	if c.Encoding.Preset == "" {
		c.Encoding.Preset = defaults.Encoding.Preset
	}
	if c.Encoding.Concurrency == 0 {
		c.Encoding.Concurrency = defaults.Encoding.Concurrency
	}
	if c.Output.Dir == "" {
		c.Output.Dir = defaults.Output.Dir
	}
	if c.Output.Suffix == "" {
		c.Output.Suffix = defaults.Output.Suffix
	}
	if c.Output.Combined == "" {
		c.Output.Combined = defaults.Output.Combined
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
}

// KeyMode parses Link.Mode.
func (c Config) KeyMode() (keys.Mode, error) {
	return keys.ParseMode(c.Link.Mode)
}

// Validate reports the first setting that cannot drive a run.
func (c Config) Validate() error {
	if _, err := c.KeyMode(); err != nil {
		return fmt.Errorf("link.mode: %w", err)
	}
	if strings.TrimSpace(c.Inputs.Tracking) == "" {
		return errors.New("inputs.tracking is required")
	}
	if strings.TrimSpace(c.Inputs.Tagged) == "" {
		return errors.New("inputs.tagged is required")
	}
	if len(c.Clips.Extensions) == 0 {
		return errors.New("clips.extensions must list at least one extension")
	}
	if c.Encoding.Concurrency < 1 {
		return fmt.Errorf("encoding.concurrency must be at least 1 (got %d)", c.Encoding.Concurrency)
	}
	if c.Overlay.FontSize < 1 {
		return fmt.Errorf("overlay.font_size must be positive (got %d)", c.Overlay.FontSize)
	}
	if strings.ContainsAny(c.Output.Suffix, `/\`) {
		return fmt.Errorf("output.suffix %q must not contain path separators", c.Output.Suffix)
	}
	if filepath.Ext(c.Output.Combined) == "" {
		return fmt.Errorf("output.combined %q needs a file extension", c.Output.Combined)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	return nil
}

// Marshal returns the YAML encoding of the configuration.
func (c Config) Marshal() ([]byte, error) {
	buf, err := yaml.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return buf, nil
}

// MarshalTOML returns the TOML encoding of the configuration.
func (c Config) MarshalTOML() ([]byte, error) {
	buf, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal toml config: %w", err)
	}
	return buf, nil
}

// MarshalFor encodes the configuration in the format implied by path.
func (c Config) MarshalFor(path string) ([]byte, error) {
	if IsTOML(path) {
		return c.MarshalTOML()
	}
	return c.Marshal()
}
