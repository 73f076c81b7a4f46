package runtimeinit

import (
	"image"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"auto-shake/src/config"
	"auto-shake/src/state"
)

func TestBootstrap(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.DefaultFileName)
	var fileLogging *bool

	rt, err := Bootstrap(Options{
		LoadOptions:  config.LoadOptions{ConfigPathOverride: path},
		SetupLogging: func(b bool) { fileLogging = &b },
		StartActive:  true,
	})
	require.NoError(t, err)
	require.NotNil(t, fileLogging)
	require.Equal(t, path, rt.Path)
	require.True(t, rt.Active.Get())
	require.True(t, rt.ShowBox.Get())
	require.Equal(t, config.Default().Region(), rt.Region.Read())
}

func TestApplyUpdatesRegion(t *testing.T) {
	rt := New(filepath.Join(t.TempDir(), config.DefaultFileName), config.Default(), false)

	app := config.Default()
	app.OCR.CaptureX = -20
	app.OCR.CaptureWidth = 64
	app.UI.EnableOverlay = false
	rt.Apply(app)

	require.Equal(t, state.CaptureRegion{X: -20, Y: 40, Width: 64, Height: 586}, rt.Region.Read())
	require.False(t, rt.ShowBox.Get())
	require.Equal(t, app, rt.App())
}

func TestToggleActive(t *testing.T) {
	rt := New("unused.toml", config.Default(), false)
	rt.ToggleActive()
	require.True(t, rt.Active.Get())
	rt.ToggleActive()
	require.False(t, rt.Active.Get())
}

func TestToggleBoxPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.DefaultFileName)
	rt := New(path, config.Default(), false)

	rt.ToggleBox()
	require.False(t, rt.ShowBox.Get())

	saved, err := config.ReadFile(path)
	require.NoError(t, err)
	require.False(t, saved.UI.EnableOverlay)
	require.Equal(t, config.Default().OCR, saved.OCR)
}

func TestStatusAtFollowsConfig(t *testing.T) {
	rt := New("unused.toml", config.Default(), false)
	require.Equal(t, image.Pt(85, 1), rt.StatusAt())

	app := config.Default()
	app.UI.StatusX = 300
	app.UI.StatusY = -4
	rt.Apply(app)
	require.Equal(t, image.Pt(300, -4), rt.StatusAt())
}

func TestSetRegionPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.DefaultFileName)
	rt := New(path, config.Default(), false)

	region := state.CaptureRegion{X: 400, Y: 300, Width: 220, Height: 90}
	rt.SetRegion(region)
	require.Equal(t, region, rt.Region.Read())
	require.Equal(t, region, rt.App().Region())

	saved, err := config.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, region, saved.Region())
	require.Equal(t, config.Default().UI, saved.UI)
}
