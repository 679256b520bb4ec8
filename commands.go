package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/matheusfillipe/euporie/internal/notebook"
)

type Command struct {
	ID          string
	Label       string
	Description string
	Category    string
	Scopes      []string
	Enabled     func(m model) (bool, string)
	Execute     func(m model) (model, tea.Cmd, error)
}

type CommandMatch struct {
	Command        Command
	Score          int
	Enabled        bool
	DisabledReason string
}

type CommandRegistry struct {
	commands []Command
	byID     map[string]Command
}

func NewCommandRegistry() *CommandRegistry {
	r := &CommandRegistry{}
	r.commands = []Command{
		{
			ID:          "nav:next-tab",
			Label:       "Next Tab",
			Description: "Switch to the next tab",
			Category:    "Navigation",
			Enabled:     commandAlwaysEnabled,
			Execute: func(m model) (model, tea.Cmd, error) {
				m.activeTab = (m.activeTab + 1) % tabCount
				return m, nil, nil
			},
		},
		{
			ID:          "nav:prev-tab",
			Label:       "Previous Tab",
			Description: "Switch to the previous tab",
			Category:    "Navigation",
			Enabled:     commandAlwaysEnabled,
			Execute: func(m model) (model, tea.Cmd, error) {
				m.activeTab = (m.activeTab - 1 + tabCount) % tabCount
				return m, nil, nil
			},
		},
		{
			ID:          "nav:notebook",
			Label:       "Go to Notebook",
			Description: "Switch to the notebook tab",
			Category:    "Navigation",
			Enabled:     commandAlwaysEnabled,
			Execute: func(m model) (model, tea.Cmd, error) {
				m.activeTab = tabNotebook
				return m, nil, nil
			},
		},
		{
			ID:          "nav:logs",
			Label:       "Go to Logs",
			Description: "Switch to the log viewer tab",
			Category:    "Navigation",
			Enabled:     commandAlwaysEnabled,
			Execute: func(m model) (model, tea.Cmd, error) {
				m.activeTab = tabLogs
				m.logScroll = 0
				return m, nil, nil
			},
		},
		{
			ID:          "cell:run",
			Label:       "Run Selected Cells",
			Description: "Execute the selected cells on the kernel",
			Category:    "Cells",
			Scopes:      []string{scopeNotebook, scopeCellEdit},
			Enabled:     commandNeedsKernel,
			Execute: func(m model) (model, tea.Cmd, error) {
				return m.runSelected(false, false)
			},
		},
		{
			ID:          "cell:run-advance",
			Label:       "Run and Advance",
			Description: "Execute the selected cells, then select the next cell",
			Category:    "Cells",
			Scopes:      []string{scopeNotebook, scopeCellEdit},
			Enabled:     commandNeedsKernel,
			Execute: func(m model) (model, tea.Cmd, error) {
				return m.runSelected(true, false)
			},
		},
		{
			ID:          "cell:run-insert",
			Label:       "Run and Insert Below",
			Description: "Execute the selected cells, then insert a new cell below",
			Category:    "Cells",
			Scopes:      []string{scopeNotebook, scopeCellEdit},
			Enabled:     commandNeedsKernel,
			Execute: func(m model) (model, tea.Cmd, error) {
				return m.runSelected(false, true)
			},
		},
		{
			ID:          "cell:run-all",
			Label:       "Run All Cells",
			Description: "Execute every code cell from top to bottom",
			Category:    "Cells",
			Enabled:     commandNeedsKernel,
			Execute: func(m model) (model, tea.Cmd, error) {
				return m.runAll()
			},
		},
		{
			ID:          "cell:add-above",
			Label:       "Add Cell Above",
			Description: "Insert a new cell above the selection",
			Category:    "Cells",
			Enabled:     commandNeedsTab,
			Execute: func(m model) (model, tea.Cmd, error) {
				m.tab.AddAbove()
				return m, nil, nil
			},
		},
		{
			ID:          "cell:add-below",
			Label:       "Add Cell Below",
			Description: "Insert a new cell below the selection",
			Category:    "Cells",
			Enabled:     commandNeedsTab,
			Execute: func(m model) (model, tea.Cmd, error) {
				m.tab.AddBelow()
				return m, nil, nil
			},
		},
		{
			ID:          "cell:delete",
			Label:       "Delete Cells",
			Description: "Delete the selected cells",
			Category:    "Cells",
			Enabled:     commandNeedsTab,
			Execute: func(m model) (model, tea.Cmd, error) {
				m.tab.DeleteSelected()
				return m, nil, nil
			},
		},
		{
			ID:          "cell:cut",
			Label:       "Cut Cells",
			Description: "Cut the selected cells to the cell clipboard",
			Category:    "Cells",
			Enabled:     commandNeedsTab,
			Execute: func(m model) (model, tea.Cmd, error) {
				m.tab.CutSelected()
				return m, nil, nil
			},
		},
		{
			ID:          "cell:copy",
			Label:       "Copy Cells",
			Description: "Copy the selected cells to the cell clipboard",
			Category:    "Cells",
			Enabled:     commandNeedsTab,
			Execute: func(m model) (model, tea.Cmd, error) {
				m.tab.CopySelected()
				return m, nil, nil
			},
		},
		{
			ID:          "cell:paste",
			Label:       "Paste Cells",
			Description: "Paste the cell clipboard below the selection",
			Category:    "Cells",
			Enabled: func(m model) (bool, string) {
				if m.tab == nil {
					return false, "No notebook open."
				}
				if len(m.tab.doc.Clipboard) == 0 {
					return false, "Cell clipboard is empty."
				}
				return true, ""
			},
			Execute: func(m model) (model, tea.Cmd, error) {
				m.tab.PasteBelow()
				return m, nil, nil
			},
		},
		{
			ID:          "cell:merge",
			Label:       "Merge Cells",
			Description: "Merge the selected cells into one",
			Category:    "Cells",
			Enabled: func(m model) (bool, string) {
				if m.tab == nil {
					return false, "No notebook open."
				}
				if m.tab.SelectedCount() < 2 {
					return false, "Select at least two cells to merge."
				}
				return true, ""
			},
			Execute: func(m model) (model, tea.Cmd, error) {
				m.tab.MergeSelected()
				return m, nil, nil
			},
		},
		{
			ID:          "cell:clear-outputs",
			Label:       "Clear Outputs",
			Description: "Clear outputs of the selected cells",
			Category:    "Cells",
			Enabled:     commandNeedsTab,
			Execute: func(m model) (model, tea.Cmd, error) {
				m.tab.ClearSelectedOutputs()
				return m, nil, nil
			},
		},
		{
			ID:          "select:all",
			Label:       "Select All Cells",
			Description: "Select every cell in the notebook",
			Category:    "Selection",
			Enabled:     commandNeedsTab,
			Execute: func(m model) (model, tea.Cmd, error) {
				if m.tab.doc.Len() > 0 {
					m.tab.sel = notebook.All(m.tab.doc.Len())
				}
				return m, nil, nil
			},
		},
		{
			ID:          "select:first",
			Label:       "Select First Cell",
			Description: "Jump to the first cell",
			Category:    "Selection",
			Enabled:     commandNeedsTab,
			Execute: func(m model) (model, tea.Cmd, error) {
				if m.tab.doc.Len() > 0 {
					m.tab.sel = notebook.First()
				}
				return m, nil, nil
			},
		},
		{
			ID:          "select:last",
			Label:       "Select Last Cell",
			Description: "Jump to the last cell",
			Category:    "Selection",
			Enabled:     commandNeedsTab,
			Execute: func(m model) (model, tea.Cmd, error) {
				if m.tab.doc.Len() > 0 {
					m.tab.sel = notebook.Last(m.tab.doc.Len())
				}
				return m, nil, nil
			},
		},
		{
			ID:          "kernel:interrupt",
			Label:       "Interrupt Kernel",
			Description: "Send an interrupt to the running kernel",
			Category:    "Kernel",
			Enabled:     commandNeedsKernel,
			Execute: func(m model) (model, tea.Cmd, error) {
				m.tab.InterruptKernel()
				m.setStatus("Interrupt sent.")
				return m, nil, nil
			},
		},
		{
			ID:          "kernel:restart",
			Label:       "Restart Kernel",
			Description: "Restart the kernel, losing its state",
			Category:    "Kernel",
			Enabled:     commandNeedsKernel,
			Execute: func(m model) (model, tea.Cmd, error) {
				return m.restartKernel(), nil, nil
			},
		},
		{
			ID:          "kernel:change",
			Label:       "Change Kernel",
			Description: "Pick a different kernel for this notebook",
			Category:    "Kernel",
			Enabled:     commandNeedsTab,
			Execute: func(m model) (model, tea.Cmd, error) {
				m2, cmd := m.changeKernel(false)
				return m2, cmd, nil
			},
		},
		{
			ID:          "file:save",
			Label:       "Save Notebook",
			Description: "Write the notebook to disk",
			Category:    "File",
			Enabled:     commandNeedsTab,
			Execute: func(m model) (model, tea.Cmd, error) {
				return m, saveCmd(m.tab), nil
			},
		},
		{
			ID:          "app:quit",
			Label:       "Quit",
			Description: "Exit the application",
			Category:    "Application",
			Enabled:     commandAlwaysEnabled,
			Execute: func(m model) (model, tea.Cmd, error) {
				return m.requestQuit()
			},
		},
	}
	r.byID = make(map[string]Command, len(r.commands))
	for _, cmd := range r.commands {
		r.byID[cmd.ID] = cmd
	}
	return r
}

func commandAlwaysEnabled(model) (bool, string) {
	return true, ""
}

func commandNeedsTab(m model) (bool, string) {
	if m.tab == nil {
		return false, "No notebook open."
	}
	return true, ""
}

func commandNeedsKernel(m model) (bool, string) {
	if m.tab == nil {
		return false, "No notebook open."
	}
	if !m.tab.Connected() {
		return false, "No kernel connected."
	}
	return true, ""
}

func (r *CommandRegistry) All() []Command {
	if r == nil {
		return nil
	}
	out := make([]Command, len(r.commands))
	copy(out, r.commands)
	return out
}

func (r *CommandRegistry) Search(query, scope string, m model, lastCommandID string) []CommandMatch {
	if r == nil {
		return nil
	}
	q := strings.TrimSpace(query)
	out := make([]CommandMatch, 0, len(r.commands))
	for _, cmd := range r.commands {
		if !commandInScope(cmd, scope) {
			continue
		}
		matched, score := commandMatchScore(cmd, q)
		if !matched {
			continue
		}
		enabled := true
		reason := ""
		if cmd.Enabled != nil {
			enabled, reason = cmd.Enabled(m)
		}
		out = append(out, CommandMatch{
			Command:        cmd,
			Score:          score,
			Enabled:        enabled,
			DisabledReason: reason,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Enabled != out[j].Enabled {
			return out[i].Enabled
		}
		iMRU := lastCommandID != "" && out[i].Command.ID == lastCommandID
		jMRU := lastCommandID != "" && out[j].Command.ID == lastCommandID
		if iMRU != jMRU {
			return iMRU
		}
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if q != "" {
			di := levenshtein.ComputeDistance(strings.ToLower(out[i].Command.Label), strings.ToLower(q))
			dj := levenshtein.ComputeDistance(strings.ToLower(out[j].Command.Label), strings.ToLower(q))
			if di != dj {
				return di < dj
			}
		}
		li := strings.ToLower(out[i].Command.Label)
		lj := strings.ToLower(out[j].Command.Label)
		if li != lj {
			return li < lj
		}
		return out[i].Command.ID < out[j].Command.ID
	})
	return out
}

func (r *CommandRegistry) ExecuteByID(id, scope string, m model) (model, tea.Cmd, error) {
	if r == nil {
		return m, nil, fmt.Errorf("command registry is not initialized")
	}
	cmd, ok := r.byID[id]
	if !ok {
		return m, nil, fmt.Errorf("unknown command %q", id)
	}
	if !commandInScope(cmd, scope) {
		return m, nil, fmt.Errorf("command %q unavailable in scope %q", id, scope)
	}
	if cmd.Enabled != nil {
		enabled, reason := cmd.Enabled(m)
		if !enabled {
			if strings.TrimSpace(reason) == "" {
				reason = "command is disabled"
			}
			return m, nil, fmt.Errorf("%s", reason)
		}
	}
	if cmd.Execute == nil {
		return m, nil, fmt.Errorf("command %q has no executor", id)
	}
	return cmd.Execute(m)
}

func commandInScope(cmd Command, scope string) bool {
	if len(cmd.Scopes) == 0 {
		return true
	}
	for _, s := range cmd.Scopes {
		if strings.EqualFold(strings.TrimSpace(s), scopeGlobal) {
			return true
		}
	}
	for _, s := range cmd.Scopes {
		if strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(scope)) {
			return true
		}
	}
	return false
}

func commandMatchScore(cmd Command, query string) (bool, int) {
	if query == "" {
		return true, 0
	}
	best := -1
	fields := []string{cmd.Label, cmd.ID, cmd.Description}
	for _, field := range fields {
		matched, score := fuzzyMatchScore(field, query)
		if !matched {
			continue
		}
		if strings.EqualFold(field, query) {
			score += 15
		}
		if score > best {
			best = score
		}
	}
	if best < 0 {
		return false, 0
	}
	return true, best
}

// fuzzyMatchScore does in-order subsequence matching: every query char must
// appear in the label in order. Prefix and adjacency matches score higher.
func fuzzyMatchScore(label, query string) (bool, int) {
	if query == "" {
		return true, 0
	}
	labelLower := strings.ToLower(label)
	queryLower := strings.ToLower(query)

	matchIdx := make([]int, 0, len(queryLower))
	searchFrom := 0
	for i := 0; i < len(queryLower); i++ {
		ch := queryLower[i]
		found := false
		for j := searchFrom; j < len(labelLower); j++ {
			if labelLower[j] == ch {
				matchIdx = append(matchIdx, j)
				searchFrom = j + 1
				found = true
				break
			}
		}
		if !found {
			return false, 0
		}
	}

	score := len(queryLower)
	if len(matchIdx) > 0 && matchIdx[0] == 0 {
		score += 10
	}
	for i := 1; i < len(matchIdx); i++ {
		if matchIdx[i] == matchIdx[i-1]+1 {
			score += 3
		}
	}
	if strings.EqualFold(strings.TrimSpace(label), strings.TrimSpace(query)) {
		score += 20
	}
	return true, score
}
