package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kingrea/stacker/internal/config"
)

func TestOutputFlagParsesPairs(t *testing.T) {
	var out outputFlag
	for _, v := range []string{"stack4.gcode=4", "dir/a=b.gcode= 0"} {
		if err := out.Set(v); err != nil {
			t.Fatalf("Set(%q): %v", v, err)
		}
	}
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if out[0] != (config.Output{Path: "stack4.gcode", Count: 4}) {
		t.Fatalf("out[0] = %+v", out[0])
	}
	if out[1] != (config.Output{Path: "dir/a=b.gcode", Count: 0}) {
		t.Fatalf("out[1] = %+v", out[1])
	}
	if got := out.String(); got != "stack4.gcode=4, dir/a=b.gcode=0" {
		t.Fatalf("String() = %q", got)
	}
}

func TestOutputFlagRejectsBadValues(t *testing.T) {
	for _, v := range []string{"nocount", "=3", "a.gcode=x", "a.gcode=-1"} {
		var out outputFlag
		if err := out.Set(v); err == nil {
			t.Fatalf("Set(%q) succeeded, want error", v)
		}
	}
}

func TestLoadConfigFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, config.DefaultFileName)
	cfg, err := loadConfig(missing, false)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.UnitHeight != 1.1 {
		t.Fatalf("unit height = %v, want default 1.1", cfg.UnitHeight)
	}
	if _, err := loadConfig(missing, true); err == nil {
		t.Fatalf("explicit missing config should fail")
	}
}

func TestLoadConfigReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, config.DefaultFileName)
	body := "source: in.gcode\nunit_height: 3\noutputs:\n  - path: out.gcode\n    count: 2\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(path, true)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.UnitHeight != 3 || cfg.Source != filepath.Join(dir, "in.gcode") {
		t.Fatalf("cfg = %+v", cfg)
	}
}
