package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestValidateConfig_ValidConfig(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "relaxed.yaml", `
name: Relaxed
description: Triple draw, slow finish
draw_mode: triple
auto_solve: true
auto_solve_interval: 1s
messages:
  welcome: Take your time
`)

	result := validateConfig(path)
	if !result.Valid {
		t.Fatalf("Expected valid config, but got errors: %v", result.Errors)
	}
	notes := strings.Join(result.Notes, "\n")
	for _, want := range []string{"Name: Relaxed", "Draw mode: triple", "Auto-solve every 1s"} {
		if !strings.Contains(notes, want) {
			t.Errorf("Expected note %q, got:\n%s", want, notes)
		}
	}
	if strings.Contains(notes, "welcome") {
		t.Errorf("Did not expect a default-welcome note, got:\n%s", notes)
	}
}

func TestValidateConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{
			name:    "missing name",
			file:    "noname.yaml",
			content: "draw_mode: single\n",
			wantErr: "name is required",
		},
		{
			name:    "bad draw mode",
			file:    "bad.yaml",
			content: "name: Bad\ndraw_mode: double\n",
			wantErr: "Invalid YAML",
		},
		{
			name:    "unknown key",
			file:    "typo.yaml",
			content: "name: Typo\ndraw_mod: single\n",
			wantErr: "draw_mod",
		},
		{
			name:    "interval too long",
			file:    "slow.yaml",
			content: "name: Slow\nauto_solve_interval: 1h\n",
			wantErr: "auto_solve_interval",
		},
		{
			name:    "not yaml",
			file:    "junk.yaml",
			content: "name: [unclosed\n",
			wantErr: "Invalid YAML",
		},
		{
			name:    "unusable file name",
			file:    "my preset.yaml",
			content: "name: Spaces\n",
			wantErr: "usable preset id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.file, tt.content)
			result := validateConfig(path)
			if result.Valid {
				t.Fatal("Expected invalid config")
			}
			joined := strings.Join(result.Errors, "\n")
			if !strings.Contains(joined, tt.wantErr) {
				t.Errorf("Expected error containing %q, got:\n%s", tt.wantErr, joined)
			}
		})
	}
}

func TestValidateConfig_MissingFile(t *testing.T) {
	result := validateConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if result.Valid {
		t.Error("Expected missing file to be invalid")
	}
	if len(result.Errors) == 0 || !strings.Contains(result.Errors[0], "Failed to read file") {
		t.Errorf("Expected read error, got %v", result.Errors)
	}
}

func TestValidateConfig_SeededDeal(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "fixed.yaml", "name: Fixed\nseed: 42\n")

	result := validateConfig(path)
	if !result.Valid {
		t.Fatalf("Expected valid config, got errors: %v", result.Errors)
	}
	notes := strings.Join(result.Notes, "\n")
	if !strings.Contains(notes, "Seed 42 deals") {
		t.Errorf("Expected seeded deal note, got:\n%s", notes)
	}
	if !strings.Contains(notes, "default is used") {
		t.Errorf("Expected default welcome note, got:\n%s", notes)
	}
}

func TestValidateDir_ShippedPresets(t *testing.T) {
	var out bytes.Buffer
	ok, err := validateDir(&out, "../configs")
	if err != nil {
		t.Fatalf("validateDir failed: %v", err)
	}
	if !ok {
		t.Fatalf("Expected shipped presets to be valid:\n%s", out.String())
	}
	for _, name := range []string{"classic.yaml", "triple.yaml", "practice.yaml", "manual.yaml"} {
		if !strings.Contains(out.String(), name) {
			t.Errorf("Expected report for %s", name)
		}
	}
	if !strings.Contains(out.String(), "All presets are valid") {
		t.Errorf("Expected summary line, got:\n%s", out.String())
	}
}

func TestValidateDir_Mixed(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "good.yaml", "name: Good\n")
	writeConfig(t, dir, "bad.yml", "draw_mode: single\n")

	var out bytes.Buffer
	ok, err := validateDir(&out, dir)
	if err != nil {
		t.Fatalf("validateDir failed: %v", err)
	}
	if ok {
		t.Error("Expected directory with a bad preset to fail")
	}
	if !strings.Contains(out.String(), "❌ INVALID") || !strings.Contains(out.String(), "✅ VALID") {
		t.Errorf("Expected both outcomes in report:\n%s", out.String())
	}
}

func TestValidateDir_Empty(t *testing.T) {
	if _, err := validateDir(&bytes.Buffer{}, t.TempDir()); err == nil {
		t.Error("Expected error for a directory without presets")
	}
}
