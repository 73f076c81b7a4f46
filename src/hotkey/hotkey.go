package hotkey

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	gohook "github.com/robotn/gohook"
)

// Binding ties a key combination such as "F4" or "Ctrl+Alt+Q" to an action.
type Binding struct {
	Name   string
	Combo  string
	Action func()
}

// Listen starts the global keyboard hook and runs each binding's Action when
// its combination goes down. Holding the keys fires once; the combination has
// to be released before it fires again. Actions run on the hook goroutine and
// must not block. The hook is stopped when ctx is done.
func Listen(ctx context.Context, bindings []Binding) error {
	m := newMatcher(bindings)
	if len(m.combos) == 0 {
		return fmt.Errorf("no usable hotkeys among %d bindings", len(bindings))
	}
	for _, c := range m.combos {
		log.Printf("Hotkey %s: %s", c.binding.Name, c.binding.Combo)
	}

	evChan := gohook.Start()
	if evChan == nil {
		return errors.New("gohook.Start() returned nil channel")
	}

	go func() {
		<-ctx.Done()
		gohook.End()
	}()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("PANIC in hotkey goroutine: %v", r)
			}
		}()
		for ev := range evChan {
			for _, action := range m.handle(ev) {
				action()
			}
		}
		log.Printf("Hotkey event channel closed")
	}()
	return nil
}

type keyState struct {
	name     string
	rawcodes []uint16
	pressed  bool
}

type combo struct {
	binding Binding
	keys    []keyState
	latched bool
}

// matcher tracks held keys per binding. It is driven from a single goroutine.
type matcher struct {
	combos []*combo
}

func newMatcher(bindings []Binding) *matcher {
	m := &matcher{}
	for _, b := range bindings {
		if b.Action == nil {
			continue
		}
		c := &combo{binding: b}
		ok := true
		for _, name := range parseHotkey(b.Combo) {
			rawcodes := keyNameToRawcodes(name)
			if len(rawcodes) == 0 {
				log.Printf("ERROR: Cannot map key '%s' of hotkey %s (%s)", name, b.Name, b.Combo)
				ok = false
				break
			}
			c.keys = append(c.keys, keyState{name: name, rawcodes: rawcodes})
		}
		if ok && len(c.keys) > 0 {
			m.combos = append(m.combos, c)
		}
	}
	return m
}

// handle updates key state for ev and returns the actions that became due.
func (m *matcher) handle(ev gohook.Event) []func() {
	if ev.Kind != gohook.KeyDown && ev.Kind != gohook.KeyHold && ev.Kind != gohook.KeyUp {
		return nil
	}
	down := ev.Kind != gohook.KeyUp

	var due []func()
	for _, c := range m.combos {
		if !c.press(ev.Rawcode, down) {
			continue
		}
		if !down {
			c.latched = false
			continue
		}
		if !c.latched && c.allPressed() {
			c.latched = true
			log.Printf("Hotkey %s (%s) triggered", c.binding.Name, c.binding.Combo)
			due = append(due, c.binding.Action)
		}
	}
	return due
}

// press records the key state and reports whether rawcode belongs to c.
func (c *combo) press(rawcode uint16, down bool) bool {
	for i := range c.keys {
		for _, rc := range c.keys[i].rawcodes {
			if rc == rawcode {
				c.keys[i].pressed = down
				return true
			}
		}
	}
	return false
}

func (c *combo) allPressed() bool {
	for _, k := range c.keys {
		if !k.pressed {
			return false
		}
	}
	return true
}

// parseHotkey converts a hotkey string like "Ctrl+Alt+q" to normalized key names
func parseHotkey(hotkeyConfig string) []string {
	var keys []string
	for _, part := range strings.Split(strings.ToLower(hotkeyConfig), "+") {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			continue
		case "control":
			part = "ctrl"
		case "win", "super", "meta":
			part = "cmd"
		}
		keys = append(keys, part)
	}
	return keys
}

// rawcodes maps key names to Windows virtual key codes. Modifiers list both
// the left and right variants.
var rawcodes = buildRawcodes()

func buildRawcodes() map[string][]uint16 {
	m := map[string][]uint16{
		"ctrl":  {162, 163}, // VK_LCONTROL, VK_RCONTROL
		"alt":   {164, 165}, // VK_LMENU, VK_RMENU
		"shift": {160, 161}, // VK_LSHIFT, VK_RSHIFT
		"cmd":   {91, 92},   // VK_LWIN, VK_RWIN

		"space":     {32},
		"enter":     {13},
		"return":    {13},
		"esc":       {27},
		"escape":    {27},
		"tab":       {9},
		"backspace": {8},
		"delete":    {46},
		"del":       {46},
		"insert":    {45},
		"ins":       {45},
		"home":      {36},
		"end":       {35},
		"pageup":    {33},
		"pgup":      {33},
		"pagedown":  {34},
		"pgdn":      {34},
		"left":      {37},
		"up":        {38},
		"right":     {39},
		"down":      {40},
	}
	for i := 0; i < 26; i++ {
		m[string(rune('a'+i))] = []uint16{uint16(65 + i)}
	}
	for i := 0; i < 10; i++ {
		m[string(rune('0'+i))] = []uint16{uint16(48 + i)}
	}
	for i := 1; i <= 24; i++ {
		m[fmt.Sprintf("f%d", i)] = []uint16{uint16(111 + i)}
	}
	return m
}

func keyNameToRawcodes(keyName string) []uint16 {
	keyName = strings.ToLower(strings.TrimSpace(keyName))
	if keyName == "win" || keyName == "super" {
		keyName = "cmd"
	}
	codes, ok := rawcodes[keyName]
	if !ok {
		log.Printf("WARNING: Unknown key name '%s', cannot map to rawcode", keyName)
		return nil
	}
	return codes
}
