//go:build windows

package overlay

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"runtime"
	"sync"
	"syscall"
	"time"
	"unsafe"

	"github.com/lxn/win"

	"auto-shake/src/state"
)

const (
	wsExLayered     = 0x00080000
	wsExTransparent = 0x00000020
	wsExToolWindow  = 0x00000080
	wsExNoActivate  = 0x08000000
	lwaColorKey     = 0x00000001
	lwaAlpha        = 0x00000002

	refreshTimerID = 1

	// COLORREF is 0x00BBGGRR. Red and yellow stay below the bright threshold
	// in luma, in case a capture ever includes the overlay.
	colorKey       = 0x00FF00FF
	boxColor       = 0x000000FF
	textColor      = 0x0000FFFF
	dimColor       = 0x00000000
	selectionAlpha = 96
)

var (
	user32DLL                      = syscall.NewLazyDLL("user32.dll")
	procSetLayeredWindowAttributes = user32DLL.NewProc("SetLayeredWindowAttributes")
	procFillRect                   = user32DLL.NewProc("FillRect")

	gdi32DLL             = syscall.NewLazyDLL("gdi32.dll")
	procCreateSolidBrush = gdi32DLL.NewProc("CreateSolidBrush")
	procCreatePen        = gdi32DLL.NewProc("CreatePen")
	procRectangle        = gdi32DLL.NewProc("Rectangle")
)

// Box window state. The window procedure is a package-level callback, so
// what it paints lives here too. Only one box window exists at a time.
var (
	boxMu    sync.Mutex
	boxCfg   Config
	boxScene Scene
)

// Selection window state, owned by the selection thread.
var (
	selecting      sync.Mutex
	selDragging    bool
	selStart       image.Point
	selEnd         image.Point
	selResult      *state.CaptureRegion
	selCrossCursor win.HCURSOR
)

// Run shows a click-through topmost window over the sampled display and keeps
// it in sync with cfg until ctx is done. The window is hidden, not destroyed,
// while ShowBox is off.
func Run(ctx context.Context, cfg Config) error {
	cfg = cfg.withDefaults()
	if cfg.Display == nil {
		return errors.New("overlay needs a display")
	}

	boxMu.Lock()
	boxCfg = cfg
	boxScene = Scene{}
	boxMu.Unlock()

	hwndc := make(chan win.HWND, 1)
	errc := make(chan error, 1)
	go func() {
		// The thread exits with the goroutine, taking its message queue along.
		runtime.LockOSThread()
		errc <- runBoxWindow(cfg, hwndc)
	}()

	var hwnd win.HWND
	select {
	case hwnd = <-hwndc:
	case err := <-errc:
		return err
	}
	log.Printf("OVERLAY: capture box window ready, hwnd: %v", hwnd)

	select {
	case <-ctx.Done():
		win.PostMessage(hwnd, win.WM_CLOSE, 0, 0)
		<-errc
		return ctx.Err()
	case err := <-errc:
		return err
	}
}

func runBoxWindow(cfg Config, hwndc chan<- win.HWND) error {
	display, ok := cfg.Display()
	if !ok || display.Empty() {
		return errors.New("no display to draw on")
	}

	className := syscall.StringToUTF16Ptr(fmt.Sprintf("AutoShakeBox_%d", time.Now().UnixNano()))
	wndClass := win.WNDCLASSEX{
		CbSize:        uint32(unsafe.Sizeof(win.WNDCLASSEX{})),
		Style:         win.CS_HREDRAW | win.CS_VREDRAW,
		LpfnWndProc:   syscall.NewCallback(boxWndProc),
		HInstance:     win.GetModuleHandle(nil),
		LpszClassName: className,
	}
	if win.RegisterClassEx(&wndClass) == 0 {
		return errors.New("failed to register overlay window class")
	}
	defer win.UnregisterClass(className)

	hwnd := win.CreateWindowEx(
		win.WS_EX_TOPMOST|wsExLayered|wsExTransparent|wsExToolWindow|wsExNoActivate,
		className,
		syscall.StringToUTF16Ptr(cfg.Title),
		win.WS_POPUP,
		int32(display.Min.X), int32(display.Min.Y), int32(display.Dx()), int32(display.Dy()),
		0, 0, win.GetModuleHandle(nil), nil,
	)
	if hwnd == 0 {
		return errors.New("failed to create overlay window")
	}
	procSetLayeredWindowAttributes.Call(uintptr(hwnd), colorKey, 0, lwaColorKey)

	if win.SetTimer(hwnd, refreshTimerID, uint32(cfg.Interval/time.Millisecond), 0) == 0 {
		win.DestroyWindow(hwnd)
		return errors.New("failed to start overlay refresh timer")
	}
	refreshBox(hwnd)
	hwndc <- hwnd

	var msg win.MSG
	for {
		ret := win.GetMessage(&msg, 0, 0, 0)
		if ret == 0 {
			return nil
		}
		if ret == -1 {
			return errors.New("overlay message loop failed")
		}
		win.TranslateMessage(&msg)
		win.DispatchMessage(&msg)
	}
}

func boxWndProc(hwnd win.HWND, msg uint32, wParam, lParam uintptr) uintptr {
	switch msg {
	case win.WM_TIMER:
		if wParam == refreshTimerID {
			refreshBox(hwnd)
		}
		return 0

	case win.WM_PAINT:
		var ps win.PAINTSTRUCT
		hdc := win.BeginPaint(hwnd, &ps)
		boxMu.Lock()
		scene := boxScene
		boxMu.Unlock()
		paintScene(hwnd, hdc, scene)
		win.EndPaint(hwnd, &ps)
		return 0

	case win.WM_CLOSE:
		win.DestroyWindow(hwnd)
		return 0

	case win.WM_DESTROY:
		win.KillTimer(hwnd, refreshTimerID)
		win.PostQuitMessage(0)
		return 0
	}
	return win.DefWindowProc(hwnd, msg, wParam, lParam)
}

// refreshBox recomposes the scene and only touches the window when something
// visible changed.
func refreshBox(hwnd win.HWND) {
	boxMu.Lock()
	prev := boxScene
	next := Compose(boxCfg)
	boxScene = next
	boxMu.Unlock()

	if next == prev {
		return
	}
	if next.Display != prev.Display && !next.Display.Empty() {
		win.SetWindowPos(hwnd, win.HWND_TOPMOST,
			int32(next.Display.Min.X), int32(next.Display.Min.Y),
			int32(next.Display.Dx()), int32(next.Display.Dy()),
			win.SWP_NOACTIVATE)
	}
	if next.Visible != prev.Visible {
		log.Printf("OVERLAY: capture box visible=%v", next.Visible)
		if next.Visible {
			win.ShowWindow(hwnd, win.SW_SHOWNOACTIVATE)
		} else {
			win.ShowWindow(hwnd, win.SW_HIDE)
		}
	}
	win.InvalidateRect(hwnd, nil, true)
}

func paintScene(hwnd win.HWND, hdc win.HDC, scene Scene) {
	var rc win.RECT
	win.GetClientRect(hwnd, &rc)
	fillRect(hdc, rc, colorKey)
	if !scene.Visible {
		return
	}

	for _, strip := range Borders(scene.Box, BorderWidth) {
		fillRect(hdc, win.RECT{
			Left:   int32(strip.Min.X),
			Top:    int32(strip.Min.Y),
			Right:  int32(strip.Max.X),
			Bottom: int32(strip.Max.Y),
		}, boxColor)
	}

	if scene.Status != "" {
		text, err := syscall.UTF16FromString(scene.Status)
		if err != nil {
			return
		}
		win.SetBkMode(hdc, win.TRANSPARENT)
		win.SetTextColor(hdc, win.COLORREF(textColor))
		win.TextOut(hdc, int32(scene.StatusAt.X), int32(scene.StatusAt.Y), &text[0], int32(len(text)-1))
	}
}

func fillRect(hdc win.HDC, rc win.RECT, color uintptr) {
	brush, _, _ := procCreateSolidBrush.Call(color)
	if brush == 0 {
		return
	}
	procFillRect.Call(uintptr(hdc), uintptr(unsafe.Pointer(&rc)), brush)
	win.DeleteObject(win.HGDIOBJ(brush))
}

// Select covers display with a dimmed window and returns the rectangle the
// user drags, relative to display. ESC or ctx cancels. Only one selection
// runs at a time.
func Select(ctx context.Context, display image.Rectangle) (state.CaptureRegion, error) {
	if !selecting.TryLock() {
		return state.CaptureRegion{}, errors.New("a selection is already in progress")
	}
	defer selecting.Unlock()
	if display.Empty() {
		return state.CaptureRegion{}, errors.New("display has empty bounds")
	}

	type result struct {
		region state.CaptureRegion
		err    error
	}
	hwndc := make(chan win.HWND, 1)
	done := make(chan result, 1)
	go func() {
		runtime.LockOSThread()
		region, err := runSelection(display, hwndc)
		done <- result{region: region, err: err}
	}()

	var hwnd win.HWND
	select {
	case hwnd = <-hwndc:
	case res := <-done:
		return res.region, res.err
	}

	select {
	case res := <-done:
		return res.region, res.err
	case <-ctx.Done():
		win.PostMessage(hwnd, win.WM_CLOSE, 0, 0)
		<-done
		return state.CaptureRegion{}, ctx.Err()
	}
}

func runSelection(display image.Rectangle, hwndc chan<- win.HWND) (state.CaptureRegion, error) {
	log.Printf("OVERLAY: starting capture box selection on %v", display)

	selDragging = false
	selResult = nil
	if selCrossCursor == 0 {
		selCrossCursor = win.LoadCursor(0, win.MAKEINTRESOURCE(win.IDC_CROSS))
	}

	className := syscall.StringToUTF16Ptr(fmt.Sprintf("AutoShakeSelect_%d", time.Now().UnixNano()))
	wndClass := win.WNDCLASSEX{
		CbSize:        uint32(unsafe.Sizeof(win.WNDCLASSEX{})),
		Style:         win.CS_HREDRAW | win.CS_VREDRAW,
		LpfnWndProc:   syscall.NewCallback(selectWndProc),
		HInstance:     win.GetModuleHandle(nil),
		HCursor:       selCrossCursor,
		LpszClassName: className,
	}
	if win.RegisterClassEx(&wndClass) == 0 {
		return state.CaptureRegion{}, errors.New("failed to register selection window class")
	}
	defer win.UnregisterClass(className)

	hwnd := win.CreateWindowEx(
		win.WS_EX_TOPMOST|wsExLayered|wsExToolWindow,
		className,
		syscall.StringToUTF16Ptr("Drag the capture box, ESC cancels"),
		win.WS_POPUP|win.WS_VISIBLE,
		int32(display.Min.X), int32(display.Min.Y), int32(display.Dx()), int32(display.Dy()),
		0, 0, win.GetModuleHandle(nil), nil,
	)
	if hwnd == 0 {
		return state.CaptureRegion{}, errors.New("failed to create selection window")
	}
	procSetLayeredWindowAttributes.Call(uintptr(hwnd), 0, selectionAlpha, lwaAlpha)

	win.ShowWindow(hwnd, win.SW_SHOW)
	win.SetForegroundWindow(hwnd)
	win.SetFocus(hwnd)
	win.UpdateWindow(hwnd)
	hwndc <- hwnd

	var msg win.MSG
	for {
		ret := win.GetMessage(&msg, 0, 0, 0)
		if ret == 0 {
			break
		}
		if ret == -1 {
			return state.CaptureRegion{}, errors.New("selection message loop failed")
		}
		win.TranslateMessage(&msg)
		win.DispatchMessage(&msg)
	}

	if selResult == nil {
		return state.CaptureRegion{}, ErrSelectionCancelled
	}
	log.Printf("OVERLAY: selected %dx%d at (%d,%d)", selResult.Width, selResult.Height, selResult.X, selResult.Y)
	return *selResult, nil
}

func selectWndProc(hwnd win.HWND, msg uint32, wParam, lParam uintptr) uintptr {
	switch msg {
	case win.WM_LBUTTONDOWN:
		win.SetCapture(hwnd)
		selDragging = true
		selStart = pointFromLParam(lParam)
		selEnd = selStart
		win.InvalidateRect(hwnd, nil, false)
		return 0

	case win.WM_MOUSEMOVE:
		if selDragging {
			selEnd = pointFromLParam(lParam)
			win.InvalidateRect(hwnd, nil, false)
		}
		return 0

	case win.WM_LBUTTONUP:
		if !selDragging {
			return 0
		}
		win.ReleaseCapture()
		selDragging = false
		selEnd = pointFromLParam(lParam)
		region, ok := Selection(selStart, selEnd, MinSelectionSpan)
		if !ok {
			log.Printf("OVERLAY: selection too small, ignoring")
			win.InvalidateRect(hwnd, nil, false)
			return 0
		}
		selResult = &region
		win.DestroyWindow(hwnd)
		return 0

	case win.WM_KEYDOWN:
		if wParam == win.VK_ESCAPE {
			log.Printf("OVERLAY: selection cancelled")
			win.DestroyWindow(hwnd)
		}
		return 0

	case win.WM_PAINT:
		var ps win.PAINTSTRUCT
		hdc := win.BeginPaint(hwnd, &ps)
		var rc win.RECT
		win.GetClientRect(hwnd, &rc)
		fillRect(hdc, rc, dimColor)
		drawSelectionHint(hdc)
		if selDragging {
			drawSelectionRectangle(hdc, image.Rectangle{Min: selStart, Max: selEnd}.Canon())
		}
		win.EndPaint(hwnd, &ps)
		return 0

	case win.WM_SETCURSOR:
		if selCrossCursor != 0 {
			win.SetCursor(selCrossCursor)
			return 1
		}

	case win.WM_NCHITTEST:
		return uintptr(win.HTCLIENT)

	case win.WM_CLOSE:
		win.DestroyWindow(hwnd)
		return 0

	case win.WM_DESTROY:
		win.PostQuitMessage(0)
		return 0
	}
	return win.DefWindowProc(hwnd, msg, wParam, lParam)
}

func pointFromLParam(lParam uintptr) image.Point {
	// Coordinates are signed 16-bit values packed into lParam.
	x := int16(win.LOWORD(uint32(lParam)))
	y := int16(win.HIWORD(uint32(lParam)))
	return image.Pt(int(x), int(y))
}

func drawSelectionHint(hdc win.HDC) {
	text, err := syscall.UTF16FromString("Drag the capture box   ESC cancel")
	if err != nil {
		return
	}
	win.SetBkMode(hdc, win.TRANSPARENT)
	win.SetTextColor(hdc, win.COLORREF(textColor))
	win.TextOut(hdc, 16, 16, &text[0], int32(len(text)-1))
}

func drawSelectionRectangle(hdc win.HDC, r image.Rectangle) {
	pen, _, _ := procCreatePen.Call(0, 3, boxColor)
	if pen == 0 {
		return
	}
	oldPen := win.SelectObject(hdc, win.HGDIOBJ(pen))
	oldBrush := win.SelectObject(hdc, win.GetStockObject(win.NULL_BRUSH))

	procRectangle.Call(uintptr(hdc), uintptr(r.Min.X), uintptr(r.Min.Y), uintptr(r.Max.X), uintptr(r.Max.Y))

	win.SelectObject(hdc, oldPen)
	win.SelectObject(hdc, oldBrush)
	win.DeleteObject(win.HGDIOBJ(pen))
}
