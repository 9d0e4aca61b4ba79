package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gapidemo.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
backend = "native"
width = 320
frames = 10
tint = [0.0, 1.0, 0.0, 1.0]
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Backend != "native" || cfg.Width != 320 || cfg.Frames != 10 {
		t.Errorf("LoadConfig() = %+v", cfg)
	}
	if cfg.Height != 600 {
		t.Errorf("Height = %d, want default 600", cfg.Height)
	}
	if cfg.Tint != [4]float32{0, 1, 0, 1} {
		t.Errorf("Tint = %v", cfg.Tint)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"syntax", "width = ="},
		{"zero size", "width = 0"},
		{"negative frames", "frames = -1"},
		{"watch without effect", "watch = true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, tt.body)); err == nil {
				t.Error("LoadConfig() error = nil")
			}
		})
	}
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("LoadConfig(missing) error = nil")
	}
}

func TestRotationZ(t *testing.T) {
	m := rotationZ(0)
	for i, v := range m {
		want := float32(0)
		if i%5 == 0 {
			want = 1
		}
		if v != want {
			t.Fatalf("rotationZ(0)[%d] = %v, want %v", i, v, want)
		}
	}
}

func TestMultiply(t *testing.T) {
	a := rotationZ(0.3)
	id := scale(1, 1, 1)
	if got := multiply(a, id); got != a {
		t.Errorf("multiply(a, I) = %v, want %v", got, a)
	}
	s := scale(2, 3, 1)
	got := multiply(s, s)
	if got[0] != 4 || got[5] != 9 || got[10] != 1 || got[15] != 1 {
		t.Errorf("multiply(s, s) = %v", got)
	}
}
