// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package menu

import (
	"fmt"
	"sort"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/samber/oops"

	"github.com/marquee-player/marquee/internal/fault"
)

// Modifier is a key binding modifier.
type Modifier string

// Modifiers in canonical order.
const (
	ModCtrl  Modifier = "Ctrl"
	ModAlt   Modifier = "Alt"
	ModShift Modifier = "Shift"
	ModMeta  Modifier = "Meta"
)

var modifierOrder = map[Modifier]int{ModCtrl: 0, ModAlt: 1, ModShift: 2, ModMeta: 3}

var modifierAliases = map[string]Modifier{
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"alt":     ModAlt,
	"opt":     ModAlt,
	"option":  ModAlt,
	"shift":   ModShift,
	"meta":    ModMeta,
	"cmd":     ModMeta,
	"command": ModMeta,
}

var namedKeys = map[string]string{
	"space": "Space", "enter": "Enter", "esc": "Esc", "tab": "Tab",
	"bs": "BS", "del": "Del", "ins": "Ins", "home": "Home", "end": "End",
	"pgup": "PgUp", "pgdwn": "PgDwn", "left": "Left", "right": "Right",
	"up": "Up", "down": "Down", "plus": "Plus",
	"f1": "F1", "f2": "F2", "f3": "F3", "f4": "F4", "f5": "F5", "f6": "F6",
	"f7": "F7", "f8": "F8", "f9": "F9", "f10": "F10", "f11": "F11", "f12": "F12",
}

var keyLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Plus", Pattern: `\+`},
	{Name: "Ident", Pattern: `[A-Za-z][A-Za-z0-9]*`},
	{Name: "Char", Pattern: `[^\s+]`},
	{Name: "whitespace", Pattern: `\s+`},
})

// chord is the parsed form of a binding: parts joined by '+'.
//
// Grammar: part { "+" part }
type chord struct {
	Parts []string `parser:"@(Ident | Char) (Plus @(Ident | Char))*"`
}

var keyParser = participle.MustBuild[chord](participle.Lexer(keyLexer))

// KeyBinding is a parsed key combination such as "Meta+Shift+k".
type KeyBinding struct {
	Modifiers []Modifier
	Key       string
}

// ParseKeyBinding parses s. Modifier names are case-insensitive and
// accept common aliases (cmd, opt, control); the last part is the key.
func ParseKeyBinding(s string) (*KeyBinding, error) {
	c, err := keyParser.ParseString("", s)
	if err != nil {
		return nil, oops.Code(fault.CodeInvalidArgument).
			In("menu").
			With("binding", s).
			Wrapf(err, "parse key binding")
	}

	kb := &KeyBinding{}
	seen := make(map[Modifier]bool)
	for _, part := range c.Parts[:len(c.Parts)-1] {
		mod, ok := modifierAliases[strings.ToLower(part)]
		if !ok {
			return nil, fault.InvalidArgument("key binding %q: %q is not a modifier", s, part)
		}
		if seen[mod] {
			return nil, fault.InvalidArgument("key binding %q repeats %s", s, mod)
		}
		seen[mod] = true
		kb.Modifiers = append(kb.Modifiers, mod)
	}
	sort.Slice(kb.Modifiers, func(i, j int) bool {
		return modifierOrder[kb.Modifiers[i]] < modifierOrder[kb.Modifiers[j]]
	})

	key := c.Parts[len(c.Parts)-1]
	switch {
	case len(key) == 1:
		kb.Key = key
	default:
		named, ok := namedKeys[strings.ToLower(key)]
		if !ok {
			return nil, fault.InvalidArgument("key binding %q: unknown key %q", s, key)
		}
		kb.Key = named
	}
	return kb, nil
}

// Has reports whether the binding includes mod.
func (k *KeyBinding) Has(mod Modifier) bool {
	for _, m := range k.Modifiers {
		if m == mod {
			return true
		}
	}
	return false
}

// String returns the canonical form, modifiers first in a fixed order.
func (k *KeyBinding) String() string {
	if k == nil {
		return ""
	}
	var b strings.Builder
	for _, m := range k.Modifiers {
		fmt.Fprintf(&b, "%s+", m)
	}
	b.WriteString(k.Key)
	return b.String()
}
