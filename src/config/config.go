package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"auto-shake/src/state"
)

const (
	DefaultFileName  = "auto_shake.toml"
	ConfigPathEnvVar = "AUTO_SHAKE_CONFIG"
	EnvFileEnvVar    = "AUTO_SHAKE_ENV"
	FileLoggingVar   = "ENABLE_FILE_LOGGING"
)

type OCRConfig struct {
	CaptureWidth  uint32 `toml:"capture_width"`
	CaptureHeight uint32 `toml:"capture_height"`
	CaptureX      int32  `toml:"capture_x"`
	CaptureY      int32  `toml:"capture_y"`
}

type HotkeysConfig struct {
	ToggleBox    string `toml:"toggle_box"`
	ToggleAction string `toml:"toggle_action"`
	ExitApp      string `toml:"exit_app"`
}

type UIConfig struct {
	EnableOverlay bool  `toml:"enable_overlay"`
	StatusX       int32 `toml:"status_x"`
	StatusY       int32 `toml:"status_y"`
}

// AppConfig mirrors auto_shake.toml.
type AppConfig struct {
	OCR     OCRConfig     `toml:"ocr"`
	Hotkeys HotkeysConfig `toml:"hotkeys"`
	UI      UIConfig      `toml:"ui"`
}

func Default() AppConfig {
	return AppConfig{
		OCR: OCRConfig{
			CaptureWidth:  1162,
			CaptureHeight: 586,
			CaptureX:      122,
			CaptureY:      40,
		},
		Hotkeys: HotkeysConfig{
			ToggleBox:    "F3",
			ToggleAction: "F4",
			ExitApp:      "F5",
		},
		UI: UIConfig{
			EnableOverlay: true,
			StatusX:       85,
			StatusY:       1,
		},
	}
}

// Region returns the capture rectangle described by the [ocr] section.
func (c AppConfig) Region() state.CaptureRegion {
	return state.CaptureRegion{
		X:      c.OCR.CaptureX,
		Y:      c.OCR.CaptureY,
		Width:  c.OCR.CaptureWidth,
		Height: c.OCR.CaptureHeight,
	}
}

// SetRegion stores region in the [ocr] section.
func (c *AppConfig) SetRegion(region state.CaptureRegion) {
	c.OCR.CaptureX = region.X
	c.OCR.CaptureY = region.Y
	c.OCR.CaptureWidth = region.Width
	c.OCR.CaptureHeight = region.Height
}

// normalize fills hotkeys left blank with the defaults.
func (c *AppConfig) normalize() {
	d := Default().Hotkeys
	if strings.TrimSpace(c.Hotkeys.ToggleBox) == "" {
		c.Hotkeys.ToggleBox = d.ToggleBox
	}
	if strings.TrimSpace(c.Hotkeys.ToggleAction) == "" {
		c.Hotkeys.ToggleAction = d.ToggleAction
	}
	if strings.TrimSpace(c.Hotkeys.ExitApp) == "" {
		c.Hotkeys.ExitApp = d.ExitApp
	}
}

type LoadOptions struct {
	ConfigPathOverride string
}

type Config struct {
	Path              string
	EnableFileLogging bool
	App               AppConfig
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

// LoadWithOptions applies the .env file (if any) to the process environment,
// then reads the TOML config. A missing file is created with defaults; a file
// that does not parse is left alone and defaults are used for this run.
func LoadWithOptions(opts LoadOptions) (*Config, error) {
	if envPath := resolveEnvPath(); envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			log.Printf("Failed to load %s: %v", envPath, err)
		}
	}

	path := resolveConfigPath(opts)
	app, err := ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		app = Default()
		if err := Save(path, app); err != nil {
			return nil, fmt.Errorf("failed to write default config: %w", err)
		}
		log.Printf("Wrote default config to %s", path)
	case err != nil:
		log.Printf("Config %s is invalid, using defaults: %v", path, err)
		app = Default()
	}

	return &Config{
		Path:              path,
		EnableFileLogging: strings.ToLower(os.Getenv(FileLoggingVar)) == "true",
		App:               app,
	}, nil
}

// ReadFile decodes path over the defaults, so keys missing from the file keep
// their default values.
func ReadFile(path string) (AppConfig, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Default(), err
	}
	cfg.normalize()
	return cfg, nil
}

// Save writes cfg as TOML. The file is replaced atomically so a concurrent
// reader (the watcher) never sees a half-written file.
func Save(path string, cfg AppConfig) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// resolveEnvPath looks for .env next to the executable, then in the working
// directory, then at $AUTO_SHAKE_ENV.
func resolveEnvPath() string {
	var candidates []string
	if execPath, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(execPath), ".env"))
	}
	candidates = append(candidates, ".env")
	if alt := os.Getenv(EnvFileEnvVar); alt != "" {
		candidates = append(candidates, alt)
	}

	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func resolveConfigPath(opts LoadOptions) string {
	if override := strings.TrimSpace(opts.ConfigPathOverride); override != "" {
		return override
	}
	return getEnvWithDefault(ConfigPathEnvVar, DefaultFileName)
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}
