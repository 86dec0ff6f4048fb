package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kingrea/stacker/internal/gcode"
)

func TestDefaultMatchesShippedValues(t *testing.T) {
	base := t.TempDir()
	cfg := Default(base)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.UnitHeight != 1.1 || cfg.GapHeight != 0.35 {
		t.Fatalf("heights = %v/%v, want 1.1/0.35", cfg.UnitHeight, cfg.GapHeight)
	}
	if len(cfg.Outputs) != 2 || cfg.Outputs[0].Count != 4 || cfg.Outputs[1].Count != 100 {
		t.Fatalf("unexpected default outputs: %+v", cfg.Outputs)
	}
	if cfg.Markers.Start != gcode.DefaultStartMarker || cfg.Markers.End != gcode.DefaultEndMarker {
		t.Fatalf("markers = %+v", cfg.Markers)
	}
	if cfg.Source != filepath.Join(base, "working_example.gcode") {
		t.Fatalf("source not resolved against base: %s", cfg.Source)
	}
}

func TestLoadParsesYaml(t *testing.T) {
	dir := t.TempDir()
	configYAML := strings.TrimSpace(`
version: 1
source: gcode/working.gcode
unit_height: 2
gap_height: 0
markers:
  start: BEGIN_STACK
  end: END_STACK
substitution: Truncate
lenient_markers: true
outputs:
  - path: out/test.gcode
    count: 3
  - path: /abs/big.gcode
    count: 0
`)
	path := filepath.Join(dir, DefaultFileName)
	if err := os.WriteFile(path, []byte(configYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Source != filepath.Join(dir, "gcode", "working.gcode") {
		t.Fatalf("source = %s", cfg.Source)
	}
	if cfg.Mode() != gcode.ModeTruncate {
		t.Fatalf("mode = %s, want truncate", cfg.Mode())
	}
	if !cfg.LenientMarkers {
		t.Fatalf("expected lenient markers")
	}
	if cfg.Markers.Start != "BEGIN_STACK" {
		t.Fatalf("start marker = %q", cfg.Markers.Start)
	}
	if cfg.Outputs[0].Path != filepath.Join(dir, "out", "test.gcode") {
		t.Fatalf("output path = %s", cfg.Outputs[0].Path)
	}
	if cfg.Outputs[1].Path != filepath.Clean("/abs/big.gcode") {
		t.Fatalf("absolute output path rewritten: %s", cfg.Outputs[1].Path)
	}
	if cfg.LogFile != filepath.Join(dir, ".stacker", "stacker.log") {
		t.Fatalf("log file = %s", cfg.LogFile)
	}
}

func TestParseValidation(t *testing.T) {
	cases := map[string]string{
		"missing source": `
unit_height: 1
outputs: [{path: a.gcode, count: 1}]`,
		"zero unit height": `
source: in.gcode
unit_height: 0
outputs: [{path: a.gcode, count: 1}]`,
		"negative gap": `
source: in.gcode
unit_height: 1
gap_height: -0.1
outputs: [{path: a.gcode, count: 1}]`,
		"negative count": `
source: in.gcode
unit_height: 1
outputs: [{path: a.gcode, count: -2}]`,
		"no outputs": `
source: in.gcode
unit_height: 1`,
		"duplicate outputs": `
source: in.gcode
unit_height: 1
outputs: [{path: a.gcode, count: 1}, {path: ./a.gcode, count: 2}]`,
		"output overwrites source": `
source: in.gcode
unit_height: 1
outputs: [{path: in.gcode, count: 1}]`,
		"nested markers": `
source: in.gcode
unit_height: 1
markers: {start: STACK, end: END_STACK}
outputs: [{path: a.gcode, count: 1}]`,
		"unknown substitution": `
source: in.gcode
unit_height: 1
substitution: regex
outputs: [{path: a.gcode, count: 1}]`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(body), t.TempDir()); err == nil {
				t.Fatalf("expected validation error but got none")
			}
		})
	}
}

func TestInitWritesDefaultOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", DefaultFileName)
	created, err := Init(path)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if !created {
		t.Fatalf("expected file to be created")
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}
	if err := os.WriteFile(path, []byte("custom"), 0o644); err != nil {
		t.Fatal(err)
	}
	created, err = Init(path)
	if err != nil || created {
		t.Fatalf("second Init = %v, %v; want false, nil", created, err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "custom" {
		t.Fatalf("Init overwrote existing file")
	}
}

func TestOverridesResolveAgainstWorkingDir(t *testing.T) {
	cfg := Default(t.TempDir())
	if err := cfg.SetSource("part.gcode"); err != nil {
		t.Fatal(err)
	}
	if err := cfg.SetOutputs([]Output{{Path: "stack.gcode", Count: 7}}); err != nil {
		t.Fatal(err)
	}
	wd, _ := os.Getwd()
	if cfg.Source != filepath.Join(wd, "part.gcode") {
		t.Fatalf("source = %s", cfg.Source)
	}
	if len(cfg.Outputs) != 1 || cfg.Outputs[0].Path != filepath.Join(wd, "stack.gcode") || cfg.Outputs[0].Count != 7 {
		t.Fatalf("outputs = %+v", cfg.Outputs)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}
