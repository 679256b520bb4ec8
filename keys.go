package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"

	"github.com/matheusfillipe/euporie/internal/config"
)

type Action string

type Binding struct {
	Action Action
	Keys   []string
	Help   string
	Scopes []string
}

type KeyRegistry struct {
	bindingsByScope map[string][]*Binding
	indexByScope    map[string]map[string]*Binding
}

const (
	scopeGlobal         = "global"
	scopeNotebook       = "notebook"
	scopeCellEdit       = "cell_edit"
	scopeCommandPalette = "command_palette"
	scopeKernelPicker   = "kernel_picker"
	scopeConfirmDialog  = "confirm_dialog"
	scopeLogs           = "logs"
)

const (
	actionQuit           Action = "quit"
	actionNextTab        Action = "next_tab"
	actionPrevTab        Action = "prev_tab"
	actionCommandPalette Action = "command_palette"

	actionNavUp      Action = "nav_up"
	actionNavDown    Action = "nav_down"
	actionExtendUp   Action = "extend_up"
	actionExtendDown Action = "extend_down"
	actionFirstCell  Action = "first_cell"
	actionLastCell   Action = "last_cell"
	actionPageUp     Action = "page_up"
	actionPageDown   Action = "page_down"
	actionSelectAll  Action = "select_all"

	actionAddAbove   Action = "add_above"
	actionAddBelow   Action = "add_below"
	actionDeleteCell Action = "delete_cell"
	actionCutCells   Action = "cut_cells"
	actionCopyCells  Action = "copy_cells"
	actionPasteCells Action = "paste_cells"
	actionMergeCells Action = "merge_cells"
	actionEditCell   Action = "edit_cell"
	actionExitEdit   Action = "exit_edit"

	actionRunCell    Action = "run_cell"
	actionRunAdvance Action = "run_advance"
	actionRunInsert  Action = "run_insert"

	actionInterruptKernel Action = "interrupt_kernel"
	actionRestartKernel   Action = "restart_kernel"
	actionSave            Action = "save"
	actionRecallHistory   Action = "recall_history"

	actionNavigate Action = "navigate"
	actionSelect   Action = "select"
	actionClose    Action = "close"
	actionConfirm  Action = "confirm"
	actionCancel   Action = "cancel"
	actionJumpTop  Action = "jump_top"
	actionJumpBot  Action = "jump_bottom"
)

func NewKeyRegistry() *KeyRegistry {
	r := &KeyRegistry{
		bindingsByScope: make(map[string][]*Binding),
		indexByScope:    make(map[string]map[string]*Binding),
	}

	reg := func(scope string, action Action, keys []string, help string) {
		r.Register(Binding{Action: action, Keys: keys, Help: help, Scopes: []string{scope}})
	}

	// Global fallback lookup.
	reg(scopeGlobal, actionQuit, []string{"ctrl+q", "ctrl+c"}, "quit")
	reg(scopeGlobal, actionNextTab, []string{"tab"}, "next tab")
	reg(scopeGlobal, actionPrevTab, []string{"shift+tab"}, "prev tab")
	reg(scopeGlobal, actionCommandPalette, []string{"ctrl+k"}, "commands")
	reg(scopeGlobal, actionSave, []string{"ctrl+s"}, "save")

	// Notebook command mode. Two-key chords ("d d", "I I", "0 0") are
	// registered as doubled key names; update.go assembles them.
	reg(scopeNotebook, actionNavUp, []string{"up", "k"}, "up")
	reg(scopeNotebook, actionNavDown, []string{"down", "j"}, "down")
	reg(scopeNotebook, actionExtendUp, []string{"K", "shift+up"}, "extend up")
	reg(scopeNotebook, actionExtendDown, []string{"J", "shift+down"}, "extend down")
	reg(scopeNotebook, actionFirstCell, []string{"home", "ctrl+up"}, "first")
	reg(scopeNotebook, actionLastCell, []string{"end", "ctrl+down"}, "last")
	reg(scopeNotebook, actionPageUp, []string{"pgup"}, "page up")
	reg(scopeNotebook, actionPageDown, []string{"pgdown"}, "page down")
	reg(scopeNotebook, actionSelectAll, []string{"ctrl+a"}, "select all")
	reg(scopeNotebook, actionAddAbove, []string{"a"}, "add above")
	reg(scopeNotebook, actionAddBelow, []string{"b"}, "add below")
	reg(scopeNotebook, actionDeleteCell, []string{"dd"}, "delete")
	reg(scopeNotebook, actionCutCells, []string{"x"}, "cut")
	reg(scopeNotebook, actionCopyCells, []string{"c"}, "copy")
	reg(scopeNotebook, actionPasteCells, []string{"v"}, "paste")
	reg(scopeNotebook, actionMergeCells, []string{"M"}, "merge")
	reg(scopeNotebook, actionEditCell, []string{"enter"}, "edit")
	reg(scopeNotebook, actionRunCell, []string{"ctrl+e"}, "run")
	reg(scopeNotebook, actionRunAdvance, []string{"shift+enter"}, "run+next")
	reg(scopeNotebook, actionRunInsert, []string{"alt+enter"}, "run+insert")
	reg(scopeNotebook, actionInterruptKernel, []string{"II"}, "interrupt")
	reg(scopeNotebook, actionRestartKernel, []string{"00"}, "restart")

	// Editing a cell: printable keys are text; only these chords escape.
	reg(scopeCellEdit, actionExitEdit, []string{"esc"}, "done")
	reg(scopeCellEdit, actionRunAdvance, []string{"shift+enter"}, "run+next")
	reg(scopeCellEdit, actionRunInsert, []string{"alt+enter"}, "run+insert")
	reg(scopeCellEdit, actionSave, []string{"ctrl+s"}, "save")
	reg(scopeCellEdit, actionRecallHistory, []string{"ctrl+r"}, "history")

	reg(scopeCommandPalette, actionNavigate, []string{"up", "down", "ctrl+p", "ctrl+n"}, "navigate")
	reg(scopeCommandPalette, actionSelect, []string{"enter"}, "run")
	reg(scopeCommandPalette, actionClose, []string{"esc"}, "close")

	reg(scopeKernelPicker, actionNavigate, []string{"j/k", "j", "k", "up", "down"}, "navigate")
	reg(scopeKernelPicker, actionSelect, []string{"enter"}, "select")
	reg(scopeKernelPicker, actionClose, []string{"esc"}, "cancel")

	reg(scopeConfirmDialog, actionConfirm, []string{"y", "enter"}, "yes")
	reg(scopeConfirmDialog, actionCancel, []string{"n", "esc"}, "no")

	reg(scopeLogs, actionNavUp, []string{"up", "k"}, "up")
	reg(scopeLogs, actionNavDown, []string{"down", "j"}, "down")
	reg(scopeLogs, actionJumpTop, []string{"g", "home"}, "top")
	reg(scopeLogs, actionJumpBot, []string{"G", "end"}, "bottom")

	return r
}

func (r *KeyRegistry) Register(b Binding) {
	if r == nil {
		return
	}
	for _, scope := range b.Scopes {
		scope = strings.TrimSpace(scope)
		if scope == "" {
			continue
		}
		if len(b.Keys) == 0 {
			continue
		}
		if _, ok := r.bindingsByScope[scope]; !ok {
			r.bindingsByScope[scope] = nil
		}
		if _, ok := r.indexByScope[scope]; !ok {
			r.indexByScope[scope] = make(map[string]*Binding)
		}
		normKeys := normalizeKeyList(b.Keys)
		if len(normKeys) == 0 {
			continue
		}
		if r.scopeHasAnyKey(scope, normKeys) {
			continue
		}

		copyBinding := b
		copyBinding.Keys = normKeys
		copyBinding.Scopes = []string{scope}
		r.bindingsByScope[scope] = append(r.bindingsByScope[scope], &copyBinding)
		for _, k := range copyBinding.Keys {
			r.indexByScope[scope][k] = &copyBinding
		}
	}
}

func (r *KeyRegistry) BindingsForScope(scope string) []Binding {
	if r == nil {
		return nil
	}
	items := r.bindingsByScope[scope]
	out := make([]Binding, 0, len(items))
	for _, b := range items {
		out = append(out, *b)
	}
	return out
}

func (r *KeyRegistry) Lookup(keyName, scope string) *Binding {
	if r == nil || keyName == "" {
		return nil
	}
	keyName = normalizeKeyName(keyName)
	if b := r.lookupInScope(keyName, scope); b != nil {
		return b
	}
	if scope != scopeGlobal {
		if b := r.lookupInScope(keyName, scopeGlobal); b != nil {
			return b
		}
	}
	return nil
}

// IsChordPrefix reports whether keyName starts a registered two-key chord in
// the scope (e.g. "d" when "dd" is bound).
func (r *KeyRegistry) IsChordPrefix(keyName, scope string) bool {
	if r == nil {
		return false
	}
	keyName = normalizeKeyName(keyName)
	if len(keyName) != 1 {
		return false
	}
	lookup := r.indexByScope[scope]
	_, ok := lookup[keyName+keyName]
	return ok
}

func (r *KeyRegistry) HelpBindings(scope string) []key.Binding {
	items := r.BindingsForScope(scope)
	out := make([]key.Binding, 0, len(items))
	for _, b := range items {
		if len(b.Keys) == 0 {
			continue
		}
		helpKey := b.Keys[0]
		if len(helpKey) == 2 && helpKey[0] == helpKey[1] {
			helpKey = helpKey[:1] + "," + helpKey[1:]
		}
		out = append(out, key.NewBinding(key.WithKeys(b.Keys...), key.WithHelp(helpKey, b.Help)))
	}
	return out
}

func (r *KeyRegistry) lookupInScope(keyName, scope string) *Binding {
	if scope == "" {
		return nil
	}
	lookup, ok := r.indexByScope[scope]
	if !ok {
		return nil
	}
	return lookup[keyName]
}

func (r *KeyRegistry) scopeHasAnyKey(scope string, keys []string) bool {
	lookup := r.indexByScope[scope]
	for _, k := range keys {
		if _, exists := lookup[k]; exists {
			return true
		}
	}
	return false
}

func normalizeKeyList(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]bool)
	for _, k := range keys {
		n := normalizeKeyName(k)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func normalizeKeyName(k string) string {
	if k == " " {
		return "space"
	}
	trimmed := strings.TrimSpace(k)
	if trimmed == "" {
		return ""
	}
	if isAllUpperASCII(trimmed) {
		// Preserve uppercase runes so uppercase/lowercase bindings (and
		// uppercase chords like "II") stay distinct from their lowercase
		// counterparts within the same scope.
		return trimmed
	}
	s := strings.ToLower(trimmed)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "control+", "ctrl+")
	s = strings.ReplaceAll(s, "ctl+", "ctrl+")
	s = strings.ReplaceAll(s, "return", "enter")
	s = strings.ReplaceAll(s, "pageup", "pgup")
	s = strings.ReplaceAll(s, "pagedown", "pgdown")
	s = strings.ReplaceAll(s, "spacebar", "space")
	return s
}

func isAllUpperASCII(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}

// ApplyOverrides rebinds actions from config. Each override replaces the key
// list for one (scope, action) pair; conflicts within a scope are rejected.
func (r *KeyRegistry) ApplyOverrides(items []config.KeybindingOverride) error {
	if r == nil || len(items) == 0 {
		return nil
	}
	type pair struct {
		scope  string
		action Action
	}
	seenPair := make(map[pair]bool)
	for _, o := range items {
		scope := strings.TrimSpace(o.Scope)
		if scope == "" {
			return fmt.Errorf("keybinding override: scope is required")
		}
		action := Action(strings.TrimSpace(o.Action))
		if action == "" {
			return fmt.Errorf("keybinding override scope=%q: action is required", scope)
		}
		keys := normalizeKeyList(o.Keys)
		if len(keys) == 0 {
			return fmt.Errorf("keybinding override scope=%q action=%q: keys are required", scope, action)
		}

		bindings := r.bindingsByScope[scope]
		if len(bindings) == 0 {
			return fmt.Errorf("keybinding override scope=%q action=%q: unknown scope", scope, action)
		}
		var target *Binding
		for _, b := range bindings {
			if b.Action == action {
				target = b
				break
			}
		}
		if target == nil {
			return fmt.Errorf("keybinding override scope=%q action=%q: unknown action in scope", scope, action)
		}
		p := pair{scope: scope, action: action}
		if seenPair[p] {
			return fmt.Errorf("keybinding override scope=%q action=%q: duplicated override entry", scope, action)
		}
		seenPair[p] = true
		target.Keys = keys
	}

	r.rebuildIndex()
	for scope, bindings := range r.bindingsByScope {
		seen := make(map[string]Action)
		for _, b := range bindings {
			for _, k := range b.Keys {
				if prev, ok := seen[k]; ok {
					return fmt.Errorf("keybinding conflict in scope=%q: key %q used by both %q and %q", scope, k, prev, b.Action)
				}
				seen[k] = b.Action
			}
		}
	}
	return nil
}

func (r *KeyRegistry) rebuildIndex() {
	r.indexByScope = make(map[string]map[string]*Binding, len(r.bindingsByScope))
	for scope, bindings := range r.bindingsByScope {
		r.indexByScope[scope] = make(map[string]*Binding)
		for _, b := range bindings {
			for _, k := range b.Keys {
				r.indexByScope[scope][k] = b
			}
		}
	}
}
