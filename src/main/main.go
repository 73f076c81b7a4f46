package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"auto-shake/src/capture"
	"auto-shake/src/config"
	"auto-shake/src/hotkey"
	"auto-shake/src/input"
	"auto-shake/src/logutil"
	"auto-shake/src/overlay"
	"auto-shake/src/runtimeinit"
	"auto-shake/src/screenshot"
	"auto-shake/src/tray"
)

const appTitle = "Auto Shake"

var _ capture.Dispatcher = input.Keyboard{}

type mainOptions struct {
	configPath string
	active     bool
	noTray     bool
	verbose    bool
}

func main() {
	// The tray message loop has to own the main OS thread.
	runtime.LockOSThread()

	opts := &mainOptions{}
	if err := newRootCmd(opts).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "auto-shake",
		Short:         "Press Enter whenever the bright marker shows up in the capture box",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(*opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "", "Path to auto_shake.toml (overrides AUTO_SHAKE_CONFIG)")
	cmd.Flags().BoolVar(&opts.active, "active", false, "Start with sampling enabled")
	cmd.Flags().BoolVar(&opts.noTray, "no-tray", false, "Run without the tray icon")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log to stderr")

	return cmd
}

func run(opts mainOptions) error {
	enableDPIAwareness()

	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions: config.LoadOptions{ConfigPathOverride: opts.configPath},
		SetupLogging: func(fileLogging bool) {
			logutil.Setup(logutil.Options{File: fileLogging, Verbose: opts.verbose})
		},
		StartActive: opts.active,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	screen := screenshot.New()
	loop := capture.New(capture.Options{
		Active:     rt.Active,
		Region:     rt.Region,
		Source:     screen,
		Dispatcher: input.NewKeyboard(),
	})
	display := primaryBounds(screen)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return loop.Run(gctx)
	})
	g.Go(func() error {
		if err := config.Watch(gctx, rt.Path, rt.Apply); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Config watcher stopped, edits need a restart: %v", err)
		}
		return nil
	})

	g.Go(func() error {
		err := overlay.Run(gctx, overlay.Config{
			Title:    appTitle,
			ShowBox:  rt.ShowBox,
			Active:   rt.Active,
			Region:   rt.Region.Read,
			StatusAt: rt.StatusAt,
			Display:  display,
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Capture box overlay unavailable: %v", err)
		}
		return nil
	})

	app := rt.App()
	err = hotkey.Listen(gctx, bindings(rt, app.Hotkeys, cancel))
	if err != nil {
		log.Printf("Hotkeys unavailable: %v", err)
	}

	log.Printf("%s started: toggle %s, box %s, exit %s, active=%v",
		appTitle, app.Hotkeys.ToggleAction, app.Hotkeys.ToggleBox, app.Hotkeys.ExitApp, rt.Active.Get())

	if opts.noTray {
		<-gctx.Done()
	} else {
		tray.Run(gctx, tray.Config{
			Title:      appTitle,
			Active:     rt.Active,
			Stats:      loop.Stats,
			Region:     rt.Region.Read,
			ShowRegion: rt.ShowBox.Get,
			OnSelectRegion: func() {
				go selectRegion(gctx, rt, display)
			},
			OnExit: cancel,
		})
		cancel()
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	stats := loop.Stats()
	log.Printf("%s stopped: %d cycles, %d fired, %d skipped", appTitle, stats.Cycles, stats.Fired, stats.Skipped)
	return nil
}

func bindings(rt *runtimeinit.Runtime, keys config.HotkeysConfig, exit func()) []hotkey.Binding {
	return []hotkey.Binding{
		{Name: "toggle_action", Combo: keys.ToggleAction, Action: rt.ToggleActive},
		{Name: "toggle_box", Combo: keys.ToggleBox, Action: func() {
			// Saving touches the disk; keep it off the hook goroutine.
			go rt.ToggleBox()
		}},
		{Name: "exit_app", Combo: keys.ExitApp, Action: func() {
			log.Printf("Exit hotkey pressed")
			exit()
		}},
	}
}

// primaryBounds reports the bounds of the display the loop samples.
func primaryBounds(src screenshot.Source) func() (image.Rectangle, bool) {
	return func() (image.Rectangle, bool) {
		d, ok := screenshot.Primary(src.Displays())
		return d.Bounds, ok
	}
}

func selectRegion(ctx context.Context, rt *runtimeinit.Runtime, display func() (image.Rectangle, bool)) {
	bounds, ok := display()
	if !ok {
		log.Printf("No display to select a capture box on")
		return
	}
	region, err := overlay.Select(ctx, bounds)
	if err != nil {
		if !errors.Is(err, overlay.ErrSelectionCancelled) && !errors.Is(err, context.Canceled) {
			log.Printf("Capture box selection failed: %v", err)
		}
		return
	}
	rt.SetRegion(region)
}
