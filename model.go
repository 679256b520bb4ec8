package main

import (
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/matheusfillipe/euporie/internal/config"
	"github.com/matheusfillipe/euporie/internal/history"
	"github.com/matheusfillipe/euporie/internal/kernel"
	"github.com/matheusfillipe/euporie/internal/logq"
	"go.uber.org/zap"
)

const appName = "euporie"

// Tab indices
const (
	tabNotebook = 0
	tabLogs     = 1
	tabCount    = 2
)

// ---------------------------------------------------------------------------
// Bubble Tea messages
// ---------------------------------------------------------------------------

// kernelStatusMsg is forwarded from the session's delivery goroutine whenever
// the kernel's execution status changes.
type kernelStatusMsg struct {
	status kernel.Status
}

// kernelMessageMsg carries a broadcast protocol message (stream output,
// execute_result, display_data, error, execute_reply) into the UI loop.
type kernelMessageMsg struct {
	msg kernel.Message
}

type kernelStartedMsg struct {
	err error
}

type kernelRestartedMsg struct {
	err error
}

type notebookSavedMsg struct {
	err error
}

// logRecordMsg nudges the UI after the log queue appends a record.
type logRecordMsg struct{}

// startupMsg fires once when the program starts, driving initial kernel
// selection.
type startupMsg struct{}

type autosaveTickMsg struct{}

// ---------------------------------------------------------------------------
// Overlay state
// ---------------------------------------------------------------------------

// confirmState is a modal yes/no prompt. accept runs when the user confirms.
type confirmState struct {
	title  string
	prompt string
	accept func(m model) (model, tea.Cmd)
}

// kernelPickerState lists the available kernel specs for selection.
type kernelPickerState struct {
	specs  []kernel.Spec
	cursor int
}

func newKernelPickerState(specs map[string]kernel.Spec) *kernelPickerState {
	items := make([]kernel.Spec, 0, len(specs))
	for _, s := range specs {
		items = append(items, s)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return &kernelPickerState{specs: items}
}

// ---------------------------------------------------------------------------
// Model
// ---------------------------------------------------------------------------

type model struct {
	cfg    config.Config
	logger *zap.Logger
	logs   *logq.Queue

	keys     *KeyRegistry
	commands *CommandRegistry

	tab *NotebookTab

	width  int
	height int

	activeTab int
	scroll    int // notebook viewport offset, in cells
	logScroll int

	status    string
	statusErr bool

	spin spinner.Model

	// cell editing
	editing bool
	editor  textarea.Model

	// history recall: past inputs loaded on the first recall keypress of
	// an edit, cycled oldest-ward on repeats
	histEntries []history.Entry
	histPos     int

	// chord state: first key of a two-key sequence like "d d"
	pendingChord string

	// command palette
	commandOpen    bool
	commandQuery   string
	commandCursor  int
	commandMatches []CommandMatch
	lastCommandID  string

	// overlays
	confirm      *confirmState
	kernelPicker *kernelPickerState

	quitting bool
}

func newModel(cfg config.Config, tab *NotebookTab, logger *zap.Logger, logs *logq.Queue) model {
	keys := NewKeyRegistry()

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = kernelBusyStyle

	ed := textarea.New()
	ed.ShowLineNumbers = false
	ed.Prompt = ""

	m := model{
		cfg:    cfg,
		logger: logger,
		logs:   logs,
		keys:   keys,
		tab:    tab,
		spin:   sp,
		editor: ed,
	}
	m.commands = NewCommandRegistry()
	return m
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spin.Tick, func() tea.Msg { return startupMsg{} }}
	if m.cfg.UI.AutosaveSecs > 0 {
		cmds = append(cmds, autosaveTick(m.cfg.UI.AutosaveSecs))
	}
	return tea.Batch(cmds...)
}

func autosaveTick(secs int) tea.Cmd {
	return tea.Tick(time.Duration(secs)*time.Second, func(time.Time) tea.Msg {
		return autosaveTickMsg{}
	})
}

func (m *model) setError(text string) {
	m.status = text
	m.statusErr = true
	m.logger.Warn(text)
}

func (m *model) setStatus(text string) {
	m.status = text
	m.statusErr = false
}
