package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matheusfillipe/euporie/internal/kernel"
	"github.com/matheusfillipe/euporie/internal/logq"
	"github.com/matheusfillipe/euporie/internal/notebook"
)

func (m model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "loading..."
	}

	header := m.renderTabBar()
	statusBar := m.renderStatusBar()
	footer := m.renderFooter()

	bodyHeight := m.height - lipgloss.Height(header) - lipgloss.Height(statusBar) - lipgloss.Height(footer)
	if bodyHeight < 1 {
		bodyHeight = 1
	}

	var body string
	switch m.activeTab {
	case tabLogs:
		body = m.renderLogs(bodyHeight)
	default:
		body = m.renderNotebook(bodyHeight)
	}
	body = fitHeight(body, bodyHeight)

	view := strings.Join([]string{header, body, statusBar, footer}, "\n")

	if m.commandOpen {
		view = overlayCenter(view, m.renderCommandPalette(), m.width, m.height)
	}
	if m.kernelPicker != nil {
		view = overlayCenter(view, m.renderKernelPicker(), m.width, m.height)
	}
	if m.confirm != nil {
		view = overlayCenter(view, m.renderConfirm(), m.width, m.height)
	}
	return view
}

func (m model) renderTabBar() string {
	title := titleStyle.Render(appName)
	labels := []string{m.notebookTabLabel(), "logs"}
	parts := make([]string, 0, len(labels)+1)
	parts = append(parts, title)
	for i, label := range labels {
		if i == m.activeTab {
			parts = append(parts, tabActiveStyle.Render(label))
		} else {
			parts = append(parts, tabStyle.Render(label))
		}
	}
	return padToWidth(strings.Join(parts, " "), m.width)
}

func (m model) notebookTabLabel() string {
	if m.tab == nil {
		return "notebook"
	}
	label := m.tab.Title()
	if m.tab.Dirty() {
		label += statusDirtyMark.Render(" *")
	}
	return label
}

// ---------------------------------------------------------------------------
// Notebook body
// ---------------------------------------------------------------------------

func (m model) renderNotebook(height int) string {
	if m.tab == nil {
		return dimStyle.Render("no notebook open")
	}
	doc := m.tab.doc
	selected := make(map[int]bool)
	for _, i := range m.tab.SelectedIndices() {
		selected[i] = true
	}

	var b strings.Builder
	line := 0
	for i := range doc.Cells {
		if line >= m.scroll+height {
			break
		}
		block := m.renderCell(i, doc.Cells[i], selected[i])
		for _, l := range viewLines(block) {
			if line >= m.scroll && line < m.scroll+height {
				b.WriteString(l)
				b.WriteString("\n")
			}
			line++
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m model) renderCell(index int, cell notebook.Cell, selected bool) string {
	prompt := m.cellPrompt(cell)
	marker := "  "
	if selected {
		marker = cursorStyle.Render("> ")
	}

	source := cell.Source
	if selected && m.editing {
		source = m.editor.View()
	} else if source == "" {
		source = dimStyle.Render("(empty)")
	}

	lines := viewLines(source)
	var b strings.Builder
	for i, l := range lines {
		head := strings.Repeat(" ", ansiWidth(prompt))
		if i == 0 {
			head = prompt
		}
		text := l
		if selected && !m.editing {
			text = cellSelectedStyle.Render(l)
		} else if cell.Type == notebook.CellMarkdown {
			text = cellMarkdownStyle.Render(l)
		} else if cell.Type == notebook.CellRaw {
			text = cellRawStyle.Render(l)
		}
		b.WriteString(marker + head + text + "\n")
		marker = "  "
	}
	for _, out := range cell.Outputs {
		for _, l := range viewLines(renderOutput(out)) {
			b.WriteString("  " + strings.Repeat(" ", ansiWidth(prompt)) + l + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m model) cellPrompt(cell notebook.Cell) string {
	if cell.Type != notebook.CellCode {
		return "      "
	}
	if m.tab.running[cell.ID] {
		return cellBusyStyle.Render("In [*] ")
	}
	if cell.ExecutionCount > 0 {
		return cellPromptStyle.Render(fmt.Sprintf("In [%d] ", cell.ExecutionCount))
	}
	return cellPromptStyle.Render("In [ ] ")
}

func renderOutput(out notebook.Output) string {
	switch out.Kind {
	case "stream":
		text, _ := out.Data["text"].(string)
		return outputStyle.Render(strings.TrimRight(text, "\n"))
	case "error":
		ename, _ := out.Data["ename"].(string)
		evalue, _ := out.Data["evalue"].(string)
		return outputErrStyle.Render(strings.TrimSpace(ename + ": " + evalue))
	default:
		// mime bundle; text/plain is the terminal-renderable fallback
		if text, ok := out.Data["text/plain"].(string); ok {
			return outputStyle.Render(strings.TrimRight(text, "\n"))
		}
		return dimStyle.Render(fmt.Sprintf("<%s>", out.Kind))
	}
}

// ---------------------------------------------------------------------------
// Logs body
// ---------------------------------------------------------------------------

func (m model) renderLogs(height int) string {
	records := m.logs.Records()
	start := len(records) - height - m.logScroll
	if start < 0 {
		start = 0
	}
	end := start + height
	if end > len(records) {
		end = len(records)
	}

	var b strings.Builder
	for _, r := range records[start:end] {
		b.WriteString(renderLogRecord(r, m.width))
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return dimStyle.Render("no log records")
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderLogRecord(r logq.Record, width int) string {
	style := logInfoStyle
	switch r.Level {
	case "error", "dpanic", "panic", "fatal":
		style = logErrorStyle
	case "warn":
		style = logWarnStyle
	case "debug":
		style = logDebugStyle
	}
	line := fmt.Sprintf("%s %-5s %s", r.Time.Format("15:04:05"), r.Level, r.Message)
	if r.Logger != "" {
		line = fmt.Sprintf("%s %-5s [%s] %s", r.Time.Format("15:04:05"), r.Level, r.Logger, r.Message)
	}
	return style.Render(clip(line, width))
}

// ---------------------------------------------------------------------------
// Status bar + footer
// ---------------------------------------------------------------------------

// kernelGlyph mirrors the classic notebook status indicators.
func kernelGlyph(s kernel.Status) string {
	switch s {
	case kernel.StatusStarting:
		return kernelStartingStyle.Render("◍")
	case kernel.StatusIdle:
		return kernelIdleStyle.Render("○")
	case kernel.StatusBusy:
		return kernelBusyStyle.Render("●")
	case kernel.StatusDead:
		return kernelDeadStyle.Render("☹")
	default:
		return dimStyle.Render("⨂")
	}
}

func (m model) renderStatusBar() string {
	left := m.status
	if m.statusErr {
		left = statusErrStyle.Render(m.status)
	}

	right := ""
	if m.tab != nil {
		name := m.tab.KernelDisplayName()
		if name == "" {
			name = "no kernel"
		}
		status := m.tab.Status()
		glyph := kernelGlyph(status)
		if status == kernel.StatusBusy || status == kernel.StatusStarting {
			glyph = m.spin.View()
		}
		right = fmt.Sprintf("%s %s", name, glyph)
	}

	gap := m.width - ansiWidth(left) - ansiWidth(right) - 2
	if gap < 1 {
		gap = 1
	}
	return statusBarStyle.Render(clip(left, m.width-ansiWidth(right)-3) + strings.Repeat(" ", gap) + right)
}

func (m model) renderFooter() string {
	scope := m.activeOverlayScope(true)
	if scope == "" {
		scope = m.tabScope()
	}
	bindings := m.keys.HelpBindings(scope)
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, fmt.Sprintf("%s %s", cursorStyle.Render(h.Key), h.Desc))
	}
	return footerStyle.Render(clip(strings.Join(parts, "  "), m.width-2))
}

// ---------------------------------------------------------------------------
// Overlays
// ---------------------------------------------------------------------------

func (m model) renderConfirm() string {
	c := m.confirm
	var b strings.Builder
	b.WriteString(modalTitleStyle.Render(c.title))
	b.WriteString("\n\n")
	b.WriteString(c.prompt)
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("y/enter yes   n/esc no"))
	return modalStyle.Render(b.String())
}

func (m model) renderKernelPicker() string {
	p := m.kernelPicker
	var b strings.Builder
	b.WriteString(modalTitleStyle.Render("Select kernel"))
	b.WriteString("\n\n")
	for i, spec := range p.specs {
		prefix := "  "
		if i == p.cursor {
			prefix = cursorStyle.Render("> ")
		}
		label := spec.DisplayName
		if label == "" {
			label = spec.Name
		}
		line := fmt.Sprintf("%s%s", prefix, label)
		if spec.Language != "" {
			line += dimStyle.Render(" (" + spec.Language + ")")
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("enter select   esc cancel"))
	return modalStyle.Render(b.String())
}

func (m model) renderCommandPalette() string {
	var b strings.Builder
	b.WriteString(modalTitleStyle.Render("Commands"))
	b.WriteString("\n")
	b.WriteString("> " + m.commandQuery + cursorStyle.Render("█"))
	b.WriteString("\n\n")

	limit := 10
	if len(m.commandMatches) == 0 {
		b.WriteString(dimStyle.Render("no matching commands"))
	}
	for i, match := range m.commandMatches {
		if i >= limit {
			break
		}
		prefix := "  "
		if i == m.commandCursor {
			prefix = cursorStyle.Render("> ")
		}
		label := match.Command.Label
		if !match.Enabled {
			label = dimStyle.Render(label)
		}
		b.WriteString(fmt.Sprintf("%s%s %s\n", prefix, label, dimStyle.Render(match.Command.Category)))
	}
	return modalStyle.Render(strings.TrimRight(b.String(), "\n"))
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func ansiWidth(s string) int {
	return lipgloss.Width(s)
}

// fitHeight pads or trims body to exactly height lines.
func fitHeight(body string, height int) string {
	lines := viewLines(body)
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}
