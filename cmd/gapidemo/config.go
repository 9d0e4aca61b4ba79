package main

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/gogpu/gapi"
)

// Config controls the demo. Flags override values read from the file.
type Config struct {
	// Backend is a registered backend name; empty picks the default.
	Backend string `toml:"backend"`
	Width   uint32 `toml:"width"`
	Height  uint32 `toml:"height"`
	// Frames to render; zero renders until interrupted.
	Frames int `toml:"frames"`
	// Effect is a WGSL file replacing the built-in effect.
	Effect string `toml:"effect"`
	// Watch reloads Effect when the file changes.
	Watch bool `toml:"watch"`
	// Speed is the rotation in radians per frame.
	Speed float32    `toml:"speed"`
	Tint  [4]float32 `toml:"tint"`
	Clear [4]float32 `toml:"clear"`
	Debug bool       `toml:"debug"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		Width:  800,
		Height: 600,
		Frames: 120,
		Speed:  0.05,
		Tint:   [4]float32{1, 0.5, 0, 1},
		Clear:  [4]float32{0.1, 0.2, 0.4, 1},
	}
}

// LoadConfig reads path over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("gapidemo: read config: %w", err)
	}
	for _, key := range md.Undecoded() {
		gapi.Logger().Warn("gapidemo: unknown config key", "key", key.String())
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the settings.
func (c Config) Validate() error {
	if c.Width == 0 || c.Height == 0 {
		return fmt.Errorf("gapidemo: invalid size %dx%d", c.Width, c.Height)
	}
	if c.Frames < 0 {
		return fmt.Errorf("gapidemo: negative frame count %d", c.Frames)
	}
	if c.Watch && c.Effect == "" {
		return errors.New("gapidemo: watch needs an effect file")
	}
	return nil
}
