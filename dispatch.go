package main

// ---------------------------------------------------------------------------
// Shared dispatch table: single source of truth for overlay priority
// ---------------------------------------------------------------------------
//
// Three consumers read this table:
//   - Update (update.go)       - finds the active handler for a tea.KeyMsg
//   - renderFooter (render.go) - finds the active scope for footer hints
//   - commandContextScope (update.go) - finds the active scope for command availability
//
// Adding a new overlay: add one entry in the correct priority position and
// all three consumers stay in sync.

import tea "github.com/charmbracelet/bubbletea"

// overlayEntry defines one level in the overlay precedence chain.
// Guard returns true when this overlay is active; Handler dispatches
// tea.KeyMsg to the overlay's update function.
type overlayEntry struct {
	name            string
	guard           func(m model) bool
	scope           func(m model) string
	handler         func(m model, msg tea.KeyMsg) (tea.Model, tea.Cmd)
	forCommandScope bool
}

// overlayPrecedence returns the authoritative overlay priority table, ordered
// highest to lowest. The first matching guard wins. This is a function (not a
// package var) to avoid Go initialization cycles, since some handler closures
// transitively reference functions that call back into this table.
func overlayPrecedence() []overlayEntry {
	return []overlayEntry{
		{
			name:            "confirm",
			guard:           func(m model) bool { return m.confirm != nil },
			scope:           func(m model) string { return scopeConfirmDialog },
			handler:         func(m model, msg tea.KeyMsg) (tea.Model, tea.Cmd) { return m.updateConfirm(msg) },
			forCommandScope: true,
		},
		{
			name:            "kernelPicker",
			guard:           func(m model) bool { return m.kernelPicker != nil },
			scope:           func(m model) string { return scopeKernelPicker },
			handler:         func(m model, msg tea.KeyMsg) (tea.Model, tea.Cmd) { return m.updateKernelPicker(msg) },
			forCommandScope: true,
		},
		{
			name:            "command",
			guard:           func(m model) bool { return m.commandOpen },
			scope:           func(m model) string { return scopeCommandPalette },
			handler:         func(m model, msg tea.KeyMsg) (tea.Model, tea.Cmd) { return m.updateCommandPalette(msg) },
			forCommandScope: false, // unreachable from executeBoundCommand
		},
	}
}

// dispatchOverlayKey finds the first matching overlay and dispatches the key.
// Returns (model, cmd, true) if an overlay handled it, or (model, nil, false)
// if no overlay matched and the caller should continue with tab-level dispatch.
func (m model) dispatchOverlayKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	for _, entry := range overlayPrecedence() {
		if entry.guard(m) {
			result, cmd := entry.handler(m, msg)
			return result, cmd, true
		}
	}
	return m, nil, false
}

// activeOverlayScope returns the scope of the highest-priority active overlay,
// or "" if no overlay is active. Pass forFooter=true from renderFooter,
// forFooter=false from commandContextScope.
func (m model) activeOverlayScope(forFooter bool) string {
	for _, entry := range overlayPrecedence() {
		if !forFooter && !entry.forCommandScope {
			continue
		}
		if entry.guard(m) {
			return entry.scope(m)
		}
	}
	return ""
}

// tabScope resolves the active scope for tab-level dispatch (no overlay
// active). Used by Update, renderFooter, and commandContextScope for the
// non-overlay fallthrough.
func (m model) tabScope() string {
	switch m.activeTab {
	case tabLogs:
		return scopeLogs
	default:
		if m.editing {
			return scopeCellEdit
		}
		return scopeNotebook
	}
}
