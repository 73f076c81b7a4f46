package runtimeinit

import (
	"fmt"
	"image"
	"log"
	"sync"

	"auto-shake/src/config"
	"auto-shake/src/state"
)

type Options struct {
	LoadOptions  config.LoadOptions
	SetupLogging func(fileLogging bool)
	// StartActive sets the activation flag before anything reads it.
	StartActive bool
}

// Runtime is the state shared by the capture loop, hotkeys, tray and watcher.
type Runtime struct {
	Path    string
	Active  *state.Flag
	Region  *state.RegionStore
	ShowBox *state.Flag

	mu  sync.Mutex
	app config.AppConfig
}

func Bootstrap(opts Options) (*Runtime, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if opts.SetupLogging != nil {
		opts.SetupLogging(cfg.EnableFileLogging)
	}
	log.Printf("Config: %s", cfg.Path)

	return New(cfg.Path, cfg.App, opts.StartActive), nil
}

func New(path string, app config.AppConfig, active bool) *Runtime {
	return &Runtime{
		Path:    path,
		Active:  state.NewFlag(active),
		Region:  state.NewRegionStore(app.Region()),
		ShowBox: state.NewFlag(app.UI.EnableOverlay),
		app:     app,
	}
}

// App returns the last applied configuration.
func (r *Runtime) App() config.AppConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.app
}

// Apply publishes a reloaded configuration. The capture loop picks up the new
// region on its next iteration. Hotkey changes need a restart.
func (r *Runtime) Apply(app config.AppConfig) {
	r.mu.Lock()
	old := r.app
	r.app = app
	r.mu.Unlock()

	r.Region.Write(app.Region())
	r.ShowBox.Set(app.UI.EnableOverlay)
	if old.Hotkeys != app.Hotkeys {
		log.Printf("Hotkey changes in %s take effect after restart", r.Path)
	}
}

// ToggleActive flips sampling on or off.
func (r *Runtime) ToggleActive() {
	log.Printf("Sampling active=%v", r.Active.Toggle())
}

// ToggleBox flips the capture box display and persists it to the config file.
func (r *Runtime) ToggleBox() {
	r.mu.Lock()
	r.app.UI.EnableOverlay = !r.app.UI.EnableOverlay
	app := r.app
	r.mu.Unlock()

	r.ShowBox.Set(app.UI.EnableOverlay)
	log.Printf("Capture box display=%v", app.UI.EnableOverlay)
	if err := config.Save(r.Path, app); err != nil {
		log.Printf("Failed to save %s: %v", r.Path, err)
	}
}

// StatusAt is where the overlay draws its status line, from [ui].
func (r *Runtime) StatusAt() image.Point {
	ui := r.App().UI
	return image.Pt(int(ui.StatusX), int(ui.StatusY))
}

// SetRegion moves the capture box and persists it. The loop samples the new
// box on its next iteration.
func (r *Runtime) SetRegion(region state.CaptureRegion) {
	r.mu.Lock()
	r.app.SetRegion(region)
	app := r.app
	r.mu.Unlock()

	r.Region.Write(region)
	log.Printf("Capture box set to %dx%d at (%d,%d)", region.Width, region.Height, region.X, region.Y)
	if err := config.Save(r.Path, app); err != nil {
		log.Printf("Failed to save %s: %v", r.Path, err)
	}
}
