// internal/config/config.go
//
// This package loads stacker.yaml, the file that says which g-code to read,
// how tall each stacked copy is, and which outputs to produce.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kingrea/stacker/internal/gcode"
)

const (
	// DefaultFileName is looked up in the working directory when -config is not given
	DefaultFileName = "stacker.yaml"

	defaultLogFile = ".stacker/stacker.log"
)

const defaultConfigYAML = `# stacker configuration
version: 1

# g-code to read. It must contain a line with the start marker and a later
# line with the end marker; the lines between them are repeated.
source: working_example.gcode

# Z thickness of one repetition after slicing (layer height * layer count), mm.
unit_height: 1.1
# Air gap between repetitions, mm. Tweak for easy separation.
gap_height: 0.35

markers:
  start: "<repetition>"
  end: "</repetition>"

# splice rewrites only the Z value; truncate drops everything on a G1 line
# after the Z value.
substitution: splice

# Set to true to copy files without markers instead of failing.
lenient_markers: false

log_file: .stacker/stacker.log

outputs:
  - path: stacking_clips_test.gcode
    count: 4
  - path: 100_clips.gcode
    count: 100
`

// Markers names the substrings that open and close the repeated region.
type Markers struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// Output is one file to produce and how many times the region repeats in it.
type Output struct {
	Path  string `yaml:"path"`
	Count int    `yaml:"count"`
}

// Config models stacker.yaml.
type Config struct {
	Version        int      `yaml:"version"`
	Source         string   `yaml:"source"`
	UnitHeight     float64  `yaml:"unit_height"`
	GapHeight      float64  `yaml:"gap_height"`
	Markers        Markers  `yaml:"markers"`
	Substitution   string   `yaml:"substitution"`
	LenientMarkers bool     `yaml:"lenient_markers"`
	LogFile        string   `yaml:"log_file"`
	Outputs        []Output `yaml:"outputs"`

	// BaseDir anchors relative paths; it is the directory holding the file.
	BaseDir string `yaml:"-"`
}

// Default returns the configuration the tool shipped with, rooted at baseDir.
func Default(baseDir string) *Config {
	var cfg Config
	if err := yaml.Unmarshal([]byte(defaultConfigYAML), &cfg); err != nil {
		panic(fmt.Sprintf("config: default config is invalid: %v", err))
	}
	cfg.applyDefaults()
	cfg.normalize(baseDir)
	return &cfg
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	base, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("config: resolve %s: %w", path, err)
	}
	return Parse(data, base)
}

// Parse decodes a YAML payload whose relative paths are resolved against baseDir.
func Parse(data []byte, baseDir string) (*Config, error) {
	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	parsed.applyDefaults()
	parsed.normalize(baseDir)
	if err := parsed.Validate(); err != nil {
		return nil, err
	}
	return &parsed, nil
}

// Init writes the default configuration to path unless a file is already there.
// It reports whether a file was created.
func Init(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("config: stat %s: %w", path, err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Errorf("config: ensure dir: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(defaultConfigYAML), 0o644); err != nil {
		return false, fmt.Errorf("config: write %s: %w", path, err)
	}
	return true, nil
}

// Mode returns the parsed substitution mode.
func (c *Config) Mode() gcode.Mode {
	mode, err := gcode.ParseMode(c.Substitution)
	if err != nil {
		return gcode.ModeSplice
	}
	return mode
}

// SetSource replaces the source path, resolving it against the working directory.
func (c *Config) SetSource(path string) error {
	abs, err := filepath.Abs(strings.TrimSpace(path))
	if err != nil {
		return fmt.Errorf("config: resolve source: %w", err)
	}
	c.Source = abs
	return nil
}

// SetOutputs replaces the configured outputs. Relative paths resolve against
// the working directory, like any other command line argument.
func (c *Config) SetOutputs(outputs []Output) error {
	resolved := make([]Output, 0, len(outputs))
	for _, out := range outputs {
		abs, err := filepath.Abs(strings.TrimSpace(out.Path))
		if err != nil {
			return fmt.Errorf("config: resolve output %s: %w", out.Path, err)
		}
		resolved = append(resolved, Output{Path: abs, Count: out.Count})
	}
	c.Outputs = resolved
	return nil
}

func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if strings.TrimSpace(c.Markers.Start) == "" {
		c.Markers.Start = gcode.DefaultStartMarker
	}
	if strings.TrimSpace(c.Markers.End) == "" {
		c.Markers.End = gcode.DefaultEndMarker
	}
	if strings.TrimSpace(c.Substitution) == "" {
		c.Substitution = string(gcode.ModeSplice)
	}
	if strings.TrimSpace(c.LogFile) == "" {
		c.LogFile = defaultLogFile
	}
}

func (c *Config) normalize(base string) {
	c.BaseDir = base
	c.Source = resolvePath(base, c.Source)
	c.LogFile = resolvePath(base, c.LogFile)
	c.Substitution = strings.ToLower(strings.TrimSpace(c.Substitution))
	c.Markers.Start = strings.TrimSpace(c.Markers.Start)
	c.Markers.End = strings.TrimSpace(c.Markers.End)
	for i := range c.Outputs {
		c.Outputs[i].Path = resolvePath(base, c.Outputs[i].Path)
	}
}

// Validate checks the configuration for values the rewriter cannot honour.
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if c.Source == "" {
		return fmt.Errorf("source is required")
	}
	if !(c.UnitHeight > 0) {
		return fmt.Errorf("unit_height must be > 0, got %v", c.UnitHeight)
	}
	if !(c.GapHeight >= 0) {
		return fmt.Errorf("gap_height must be >= 0, got %v", c.GapHeight)
	}
	if err := c.Markers.validate(); err != nil {
		return fmt.Errorf("markers: %w", err)
	}
	if _, err := gcode.ParseMode(c.Substitution); err != nil {
		return fmt.Errorf("substitution must be 'splice' or 'truncate'")
	}
	if len(c.Outputs) == 0 {
		return fmt.Errorf("at least one output is required")
	}
	seen := map[string]bool{}
	for i, out := range c.Outputs {
		if err := out.validate(); err != nil {
			return fmt.Errorf("outputs[%d]: %w", i, err)
		}
		if out.Path == c.Source {
			return fmt.Errorf("outputs[%d]: path must differ from source", i)
		}
		if seen[out.Path] {
			return fmt.Errorf("outputs[%d]: duplicate path %s", i, out.Path)
		}
		seen[out.Path] = true
	}
	return nil
}

func (m Markers) validate() error {
	if m.Start == "" || m.End == "" {
		return fmt.Errorf("start and end are required")
	}
	if strings.Contains(m.Start, m.End) || strings.Contains(m.End, m.Start) {
		return fmt.Errorf("start %q and end %q must not contain one another", m.Start, m.End)
	}
	return nil
}

func (o Output) validate() error {
	if o.Path == "" {
		return fmt.Errorf("path is required")
	}
	if o.Count < 0 {
		return fmt.Errorf("count must be >= 0, got %d", o.Count)
	}
	return nil
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}
