package main

import (
	"fmt"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/matheusfillipe/euporie/internal/kernel"
	"github.com/matheusfillipe/euporie/internal/notebook"
)

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.editor.SetWidth(msg.Width - 12)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case kernelStatusMsg:
		if msg.status == kernel.StatusDead {
			m.setError("Kernel disconnected.")
		}
		return m, nil

	case kernelMessageMsg:
		if m.tab != nil {
			m.tab.ApplyKernelMessage(msg.msg)
		}
		return m, nil

	case kernelStartedMsg:
		if msg.err != nil {
			m.setError(fmt.Sprintf("Kernel start failed: %v", msg.err))
			return m, nil
		}
		m.setStatus(fmt.Sprintf("Kernel %s ready.", m.tab.KernelDisplayName()))
		return m, nil

	case kernelRestartedMsg:
		if msg.err != nil {
			m.setError(fmt.Sprintf("Kernel restart failed: %v", msg.err))
			return m, nil
		}
		m.setStatus("Kernel restarted.")
		return m, nil

	case notebookSavedMsg:
		if msg.err != nil {
			m.setError(fmt.Sprintf("Save failed: %v", msg.err))
			return m, nil
		}
		m.setStatus("Notebook saved.")
		return m, nil

	case logRecordMsg:
		return m, nil

	case startupMsg:
		next, cmd := m.changeKernel(true)
		return next, cmd

	case autosaveTickMsg:
		var cmd tea.Cmd
		if m.tab != nil && m.tab.Dirty() {
			cmd = saveCmd(m.tab)
		}
		return m, tea.Batch(cmd, autosaveTick(m.cfg.UI.AutosaveSecs))

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func saveCmd(t *NotebookTab) tea.Cmd {
	err := t.Save()
	return func() tea.Msg { return notebookSavedMsg{err: err} }
}

// ---------------------------------------------------------------------------
// Key routing
// ---------------------------------------------------------------------------

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if next, cmd, handled := m.dispatchOverlayKey(msg); handled {
		return next, cmd
	}

	scope := m.tabScope()
	keyName := normalizeKeyName(msg.String())

	if scope == scopeCellEdit {
		return m.updateCellEdit(msg, keyName)
	}

	// Two-key chords (d d, I I, 0 0).
	if m.pendingChord != "" {
		combined := m.pendingChord + keyName
		m.pendingChord = ""
		if b := m.keys.Lookup(combined, scope); b != nil {
			return m.executeAction(b.Action)
		}
		// fall through: the second key stands on its own
	}
	if m.keys.IsChordPrefix(keyName, scope) {
		m.pendingChord = keyName
		return m, nil
	}

	if b := m.keys.Lookup(keyName, scope); b != nil {
		return m.executeAction(b.Action)
	}
	return m, nil
}

func (m model) executeAction(action Action) (tea.Model, tea.Cmd) {
	switch action {
	case actionQuit:
		next, cmd, _ := m.requestQuit()
		return next, cmd
	case actionNextTab:
		m.activeTab = (m.activeTab + 1) % tabCount
		return m, nil
	case actionPrevTab:
		m.activeTab = (m.activeTab - 1 + tabCount) % tabCount
		return m, nil
	case actionCommandPalette:
		m.openCommandPalette()
		return m, nil
	case actionSave:
		next, cmd, err := m.saveNotebook()
		if err != nil {
			next.setError(err.Error())
		}
		return next, cmd
	}

	if m.activeTab == tabLogs {
		return m.executeLogsAction(action)
	}
	if m.tab == nil {
		return m, nil
	}
	return m.executeNotebookAction(action)
}

func (m model) executeLogsAction(action Action) (tea.Model, tea.Cmd) {
	max := m.logs.Len()
	switch action {
	case actionNavUp:
		if m.logScroll < max-1 {
			m.logScroll++
		}
	case actionNavDown:
		if m.logScroll > 0 {
			m.logScroll--
		}
	case actionJumpTop:
		m.logScroll = max - 1
		if m.logScroll < 0 {
			m.logScroll = 0
		}
	case actionJumpBot:
		m.logScroll = 0
	}
	return m, nil
}

func (m model) executeNotebookAction(action Action) (tea.Model, tea.Cmd) {
	t := m.tab
	n := t.doc.Len()
	if n == 0 {
		return m, nil
	}
	step := m.cfg.UI.ScrollStep
	if step <= 0 {
		step = 5
	}

	switch action {
	case actionNavUp:
		t.sel = t.sel.MoveUp(1)
	case actionNavDown:
		t.sel = t.sel.MoveDown(1)
	case actionExtendUp:
		t.sel = t.sel.ExtendUp()
	case actionExtendDown:
		t.sel = t.sel.ExtendDown()
	case actionFirstCell:
		t.sel = notebook.First()
	case actionLastCell:
		t.sel = notebook.Last(n)
	case actionPageUp:
		t.sel = t.sel.MoveUp(step)
	case actionPageDown:
		t.sel = t.sel.MoveDown(step)
	case actionSelectAll:
		t.sel = notebook.All(n)

	case actionAddAbove:
		t.AddAbove()
	case actionAddBelow:
		t.AddBelow()
	case actionDeleteCell:
		t.DeleteSelected()
	case actionCutCells:
		t.CutSelected()
	case actionCopyCells:
		t.CopySelected()
		m.setStatus(fmt.Sprintf("Copied %d cell(s).", len(t.doc.Clipboard)))
	case actionPasteCells:
		t.PasteBelow()
	case actionMergeCells:
		if t.SelectedCount() < 2 {
			m.setError("Select at least two cells to merge.")
		} else {
			t.MergeSelected()
		}

	case actionEditCell:
		m.startEditing()

	case actionRunCell:
		next, cmd, err := m.runSelected(false, false)
		if err != nil {
			next.setError(err.Error())
		}
		return next, cmd
	case actionRunAdvance:
		next, cmd, err := m.runSelected(true, false)
		if err != nil {
			next.setError(err.Error())
		}
		return next, cmd
	case actionRunInsert:
		next, cmd, err := m.runSelected(false, true)
		if err != nil {
			next.setError(err.Error())
		}
		return next, cmd

	case actionInterruptKernel:
		t.InterruptKernel()
		m.setStatus("Interrupt sent.")
	case actionRestartKernel:
		return m.restartKernel(), nil
	}

	m.ensureVisible()
	return m, nil
}

// ---------------------------------------------------------------------------
// Cell editing
// ---------------------------------------------------------------------------

func (m *model) startEditing() {
	idx := m.tab.resolved().Anchor()
	if idx < 0 || idx >= m.tab.doc.Len() {
		return
	}
	m.editing = true
	m.editor.SetValue(m.tab.doc.Cells[idx].Source)
	m.editor.Focus()
}

func (m *model) stopEditing() {
	if !m.editing {
		return
	}
	idx := m.tab.resolved().Anchor()
	if idx >= 0 && idx < m.tab.doc.Len() {
		if m.tab.doc.Cells[idx].Source != m.editor.Value() {
			m.tab.doc.Cells[idx].Source = m.editor.Value()
			m.tab.doc.Dirty = true
		}
	}
	m.editing = false
	m.editor.Blur()
	m.histEntries = nil
	m.histPos = 0
}

// recallHistory replaces the editor's content with a past input for the
// current kernel: the first press loads the most recent entry, repeats step
// toward older ones and wrap around at the end.
func (m *model) recallHistory() {
	if m.histEntries == nil {
		entries := m.tab.RecentHistory(50)
		if len(entries) == 0 {
			m.setStatus("No history for this kernel yet.")
			return
		}
		m.histEntries = entries
		m.histPos = 0
	} else {
		m.histPos = (m.histPos + 1) % len(m.histEntries)
	}
	m.editor.SetValue(m.histEntries[m.histPos].Source)
}

func (m model) updateCellEdit(msg tea.KeyMsg, keyName string) (tea.Model, tea.Cmd) {
	if b := m.keys.lookupInScope(keyName, scopeCellEdit); b != nil {
		switch b.Action {
		case actionExitEdit:
			m.stopEditing()
			return m, nil
		case actionRunAdvance, actionRunInsert:
			m.stopEditing()
			next, cmd, err := m.runSelected(b.Action == actionRunAdvance, b.Action == actionRunInsert)
			if err != nil {
				next.setError(err.Error())
			}
			return next, cmd
		case actionSave:
			m.stopEditing()
			next, cmd, err := m.saveNotebook()
			if err != nil {
				next.setError(err.Error())
			}
			next.startEditing()
			return next, cmd
		case actionRecallHistory:
			m.recallHistory()
			return m, nil
		}
	}
	if keyName == "ctrl+q" || keyName == "ctrl+c" {
		m.stopEditing()
		next, cmd, _ := m.requestQuit()
		return next, cmd
	}
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

// ---------------------------------------------------------------------------
// Kernel flows
// ---------------------------------------------------------------------------

func (m model) runSelected(advance, insert bool) (model, tea.Cmd, error) {
	if m.tab == nil {
		return m, nil, nil
	}
	if !m.tab.Connected() {
		return m, nil, fmt.Errorf("no kernel connected")
	}
	if err := m.tab.RunSelected(advance, insert); err != nil {
		return m, nil, err
	}
	m.ensureVisible()
	return m, nil, nil
}

func (m model) runAll() (model, tea.Cmd, error) {
	if m.tab == nil {
		return m, nil, nil
	}
	if !m.tab.Connected() {
		return m, nil, fmt.Errorf("no kernel connected")
	}
	m.tab.RunAll()
	return m, nil, nil
}

func (m model) saveNotebook() (model, tea.Cmd, error) {
	if m.tab == nil {
		return m, nil, nil
	}
	return m, saveCmd(m.tab), nil
}

// restartKernel gates the restart behind the confirm dialog.
func (m model) restartKernel() model {
	if m.tab == nil || !m.tab.Connected() {
		m.setError("No kernel connected.")
		return m
	}
	m.confirm = &confirmState{
		title:  "Restart kernel",
		prompt: "Restart the kernel? All kernel state will be lost.",
		accept: func(m model) (model, tea.Cmd) {
			m.tab.RestartKernel()
			m.setStatus("Restarting kernel...")
			return m, nil
		},
	}
	return m
}

// changeKernel drives kernel selection: a one-shot notice when nothing is
// declared, silent auto-connect for a single spec at startup, the picker
// otherwise.
func (m model) changeKernel(startup bool) (model, tea.Cmd) {
	if m.tab == nil {
		return m, nil
	}
	choice, spec, notify := m.tab.ChooseKernel(startup)
	switch choice {
	case kernelChoiceNone:
		if notify {
			m.setError("No kernels are configured.")
		}
		return m, nil
	case kernelChoiceAuto:
		return m.connectKernel(spec), nil
	default:
		m.kernelPicker = newKernelPickerState(m.tab.specs.Specs())
		return m, nil
	}
}

func (m model) connectKernel(spec kernel.Spec) model {
	if err := m.tab.Connect(spec); err != nil {
		m.setError(fmt.Sprintf("Kernel connect failed: %v", err))
		return m
	}
	m.setStatus(fmt.Sprintf("Starting kernel %s...", spec.Name))
	return m
}

func (m model) requestQuit() (model, tea.Cmd, error) {
	if m.tab != nil && m.tab.Dirty() && m.cfg.UI.ConfirmOnExit {
		m.confirm = &confirmState{
			title:  "Unsaved changes",
			prompt: fmt.Sprintf("%s has unsaved changes. Quit anyway?", m.tab.Title()),
			accept: func(m model) (model, tea.Cmd) {
				return m.quit()
			},
		}
		return m, nil, nil
	}
	next, cmd := m.quit()
	return next, cmd, nil
}

func (m model) quit() (model, tea.Cmd) {
	if m.tab != nil {
		m.tab.Disconnect()
	}
	m.quitting = true
	return m, tea.Quit
}

// ---------------------------------------------------------------------------
// Overlay handlers
// ---------------------------------------------------------------------------

func (m model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	b := m.keys.Lookup(normalizeKeyName(msg.String()), scopeConfirmDialog)
	if b == nil {
		return m, nil
	}
	switch b.Action {
	case actionConfirm:
		accept := m.confirm.accept
		m.confirm = nil
		if accept != nil {
			next, cmd := accept(m)
			return next, cmd
		}
		return m, nil
	case actionCancel:
		m.confirm = nil
	}
	return m, nil
}

func (m model) updateKernelPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := m.kernelPicker
	b := m.keys.Lookup(normalizeKeyName(msg.String()), scopeKernelPicker)
	if b == nil {
		return m, nil
	}
	switch b.Action {
	case actionNavigate:
		switch normalizeKeyName(msg.String()) {
		case "up", "k":
			if p.cursor > 0 {
				p.cursor--
			}
		case "down", "j":
			if p.cursor < len(p.specs)-1 {
				p.cursor++
			}
		}
	case actionSelect:
		if p.cursor >= 0 && p.cursor < len(p.specs) {
			spec := p.specs[p.cursor]
			m.kernelPicker = nil
			return m.connectKernel(spec), nil
		}
	case actionClose:
		m.kernelPicker = nil
	}
	return m, nil
}

// ---------------------------------------------------------------------------
// Command palette
// ---------------------------------------------------------------------------

func (m *model) openCommandPalette() {
	m.commandOpen = true
	m.commandQuery = ""
	m.commandCursor = 0
	m.rebuildCommandMatches()
}

func (m *model) closeCommandPalette() {
	m.commandOpen = false
	m.commandQuery = ""
	m.commandMatches = nil
	m.commandCursor = 0
}

// commandContextScope is the scope commands are checked against: the active
// overlay below the palette, or the tab scope.
func (m model) commandContextScope() string {
	if scope := m.activeOverlayScope(false); scope != "" {
		return scope
	}
	return m.tabScope()
}

func (m *model) rebuildCommandMatches() {
	m.commandMatches = m.commands.Search(m.commandQuery, m.commandContextScope(), *m, m.lastCommandID)
	if m.commandCursor >= len(m.commandMatches) {
		m.commandCursor = len(m.commandMatches) - 1
	}
	if m.commandCursor < 0 {
		m.commandCursor = 0
	}
}

func (m model) updateCommandPalette(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keyName := normalizeKeyName(msg.String())

	if b := m.keys.lookupInScope(keyName, scopeCommandPalette); b != nil {
		switch b.Action {
		case actionClose:
			m.closeCommandPalette()
			return m, nil
		case actionNavigate:
			switch keyName {
			case "up", "ctrl+p":
				if m.commandCursor > 0 {
					m.commandCursor--
				}
			case "down", "ctrl+n":
				if m.commandCursor < len(m.commandMatches)-1 {
					m.commandCursor++
				}
			}
			return m, nil
		case actionSelect:
			return m.executeSelectedCommand()
		}
	}

	switch keyName {
	case "backspace":
		if len(m.commandQuery) > 0 {
			_, size := utf8.DecodeLastRuneInString(m.commandQuery)
			m.commandQuery = m.commandQuery[:len(m.commandQuery)-size]
			m.rebuildCommandMatches()
		}
		return m, nil
	case "space":
		m.commandQuery += " "
		m.rebuildCommandMatches()
		return m, nil
	}
	if len(msg.Runes) > 0 && msg.Type == tea.KeyRunes {
		m.commandQuery += string(msg.Runes)
		m.rebuildCommandMatches()
	}
	return m, nil
}

func (m model) executeSelectedCommand() (tea.Model, tea.Cmd) {
	if len(m.commandMatches) == 0 || m.commandCursor >= len(m.commandMatches) {
		return m, nil
	}
	match := m.commandMatches[m.commandCursor]
	if !match.Enabled {
		reason := match.DisabledReason
		if reason == "" {
			reason = "Command is disabled."
		}
		m.setError(reason)
		return m, nil
	}
	scope := m.commandContextScope()
	m.closeCommandPalette()
	m.lastCommandID = match.Command.ID
	next, cmd, err := m.commands.ExecuteByID(match.Command.ID, scope, m)
	if err != nil {
		next.setError(err.Error())
		return next, cmd
	}
	return next, cmd
}

// ---------------------------------------------------------------------------
// Viewport
// ---------------------------------------------------------------------------

// ensureVisible scrolls the notebook viewport so the selection anchor stays
// on screen. Cell heights mirror what renderCell produces.
func (m *model) ensureVisible() {
	if m.tab == nil || m.height == 0 {
		return
	}
	anchor := m.tab.resolved().Anchor()
	top := 0
	for i := 0; i < anchor && i < m.tab.doc.Len(); i++ {
		top += m.cellHeight(i)
	}
	bottom := top
	if anchor < m.tab.doc.Len() {
		bottom = top + m.cellHeight(anchor)
	}

	viewHeight := m.height - 3
	if viewHeight < 1 {
		viewHeight = 1
	}
	if top < m.scroll {
		m.scroll = top
	}
	if bottom > m.scroll+viewHeight {
		m.scroll = bottom - viewHeight
	}
	if m.scroll < 0 {
		m.scroll = 0
	}
}

func (m *model) cellHeight(i int) int {
	cell := m.tab.doc.Cells[i]
	h := len(viewLines(cell.Source))
	for _, out := range cell.Outputs {
		h += len(viewLines(renderOutput(out)))
	}
	return h
}
