package tray

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/getlantern/systray"

	"auto-shake/src/capture"
	"auto-shake/src/state"
)

const refreshInterval = time.Second

type Config struct {
	Title  string
	Active *state.Flag
	// Stats, Region and ShowRegion feed the tooltip; any may be nil.
	Stats      func() capture.Stats
	Region     func() state.CaptureRegion
	ShowRegion func() bool
	// OnSelectRegion adds a "Select capture box" item when set.
	OnSelectRegion func()
	OnExit         func()
}

// Run shows the tray icon and blocks until Quit is clicked or ctx is done.
// It must be called from the main goroutine on platforms that require it.
func Run(ctx context.Context, cfg Config) {
	systray.Run(func() { onReady(ctx, cfg) }, func() {
		log.Printf("Tray exited")
	})
}

func onReady(ctx context.Context, cfg Config) {
	active := cfg.Active.Get()
	systray.SetIcon(iconPNG(active))
	systray.SetTitle(cfg.Title)
	systray.SetTooltip(Status(cfg.Title, active, nil, nil))

	mActive := systray.AddMenuItemCheckbox("Active", "Toggle sampling", active)
	var selectCh chan struct{}
	if cfg.OnSelectRegion != nil {
		selectCh = systray.AddMenuItem("Select capture box", "Drag a new capture box on screen").ClickedCh
	}
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Quit the application")

	go func() {
		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()
		shown := active
		for {
			select {
			case <-ctx.Done():
				systray.Quit()
				return
			case <-mActive.ClickedCh:
				now := cfg.Active.Toggle()
				log.Printf("Tray: active=%v", now)
			case <-selectCh:
				log.Printf("Tray: capture box selection requested")
				cfg.OnSelectRegion()
			case <-mQuit.ClickedCh:
				log.Printf("Tray: quit requested")
				if cfg.OnExit != nil {
					cfg.OnExit()
				}
				systray.Quit()
				return
			case <-ticker.C:
			}

			// Refresh on every wake so hotkey toggles show up within a second.
			now := cfg.Active.Get()
			if now != shown {
				systray.SetIcon(iconPNG(now))
				if now {
					mActive.Check()
				} else {
					mActive.Uncheck()
				}
				shown = now
			}
			systray.SetTooltip(Status(cfg.Title, now, statsOf(cfg), regionOf(cfg)))
		}
	}()
}

func statsOf(cfg Config) *capture.Stats {
	if cfg.Stats == nil {
		return nil
	}
	s := cfg.Stats()
	return &s
}

func regionOf(cfg Config) *state.CaptureRegion {
	if cfg.Region == nil || cfg.ShowRegion == nil || !cfg.ShowRegion() {
		return nil
	}
	r := cfg.Region()
	return &r
}

// Status renders the tooltip text.
func Status(title string, active bool, stats *capture.Stats, region *state.CaptureRegion) string {
	mode := "idle"
	if active {
		mode = "active"
	}
	s := fmt.Sprintf("%s - %s", title, mode)
	if stats != nil {
		s += fmt.Sprintf(", fired %d", stats.Fired)
		if stats.Skipped > 0 {
			s += fmt.Sprintf(", skipped %d", stats.Skipped)
		}
	}
	if region != nil {
		s += fmt.Sprintf("\nbox %dx%d at (%d,%d)", region.Width, region.Height, region.X, region.Y)
	}
	return s
}
