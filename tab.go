package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matheusfillipe/euporie/internal/config"
	"github.com/matheusfillipe/euporie/internal/history"
	"github.com/matheusfillipe/euporie/internal/kernel"
	"github.com/matheusfillipe/euporie/internal/notebook"
)

// NotebookTab owns one open notebook: its document, cell selection, kernel
// session, comm registry, and execution history handle. All fields are
// mutated on the UI goroutine; kernel callbacks hand off through send, and
// comm hooks run on the session's delivery goroutine where the registry
// lives.
type NotebookTab struct {
	cfg config.Config
	log *zap.Logger

	path  string
	store notebook.Store
	doc   *notebook.Document
	sel   notebook.Selection

	session *kernel.Session
	comms   *kernel.Registry
	specs   kernel.SpecLister
	hist    *history.Store

	// send forwards messages into the Bubble Tea loop; set before the
	// program runs.
	send func(tea.Msg)

	// runs maps in-flight execute request ids to cell ids.
	runs map[string]string
	// running marks cells with an in-flight execution, keyed by cell id.
	running map[string]bool

	// noKernelNotice suppresses the "no kernels" notice after the first
	// startup occurrence.
	noKernelNotice bool
}

// NewNotebookTab loads (or creates) the notebook at path.
func NewNotebookTab(cfg config.Config, path string, store notebook.Store, specs kernel.SpecLister, hist *history.Store, log *zap.Logger) (*NotebookTab, error) {
	doc, err := store.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load notebook: %w", err)
	}
	return &NotebookTab{
		cfg:     cfg,
		log:     log,
		path:    path,
		store:   store,
		doc:     doc,
		sel:     notebook.First(),
		specs:   specs,
		hist:    hist,
		runs:    make(map[string]string),
		running: make(map[string]bool),
	}, nil
}

func (t *NotebookTab) Title() string {
	name := filepath.Base(t.path)
	if name == "." || name == "" {
		name = "untitled.ipynb"
	}
	return name
}

func (t *NotebookTab) Dirty() bool { return t.doc.Dirty }

// ---------------------------------------------------------------------------
// Metadata projections
// ---------------------------------------------------------------------------

// KernelName is the notebook's kernelspec name, falling back to the
// configured default.
func (t *NotebookTab) KernelName() string {
	if name := t.doc.KernelName(); name != "" {
		return name
	}
	return t.cfg.Kernel.Default
}

// KernelDisplayName falls back to the kernel name when the notebook carries
// no display name.
func (t *NotebookTab) KernelDisplayName() string {
	if name := t.doc.KernelDisplayName(); name != "" {
		return name
	}
	return t.KernelName()
}

func (t *NotebookTab) Language() string {
	return t.doc.Language()
}

// FileExtension falls back to ".txt" when neither the notebook metadata nor
// the kernel spec names one.
func (t *NotebookTab) FileExtension() string {
	if ext := t.doc.FileExtension(); ext != "" {
		return ext
	}
	if spec, ok := t.specs.Specs()[t.KernelName()]; ok && spec.FileExtension != "" {
		return spec.FileExtension
	}
	return ".txt"
}

// ---------------------------------------------------------------------------
// Kernel lifecycle
// ---------------------------------------------------------------------------

func (t *NotebookTab) Connected() bool {
	if t.session == nil {
		return false
	}
	s := t.session.Status()
	return s != kernel.StatusDead && s != kernel.StatusUnknown
}

func (t *NotebookTab) Status() kernel.Status {
	if t.session == nil {
		return kernel.StatusUnknown
	}
	return t.session.Status()
}

// kernelChoice is the tab's decision for a change-kernel request.
type kernelChoice int

const (
	kernelChoiceNone   kernelChoice = iota // no kernels: notify (or stay silent)
	kernelChoiceAuto                       // exactly one spec at startup: connect silently
	kernelChoicePicker                     // open the picker overlay
)

// ChooseKernel gates kernel selection. With no declared kernels the first
// startup call produces a one-shot notice and later startup calls stay
// silent; a single spec at startup is selected automatically; anything else
// asks for a picker.
func (t *NotebookTab) ChooseKernel(startup bool) (kernelChoice, kernel.Spec, bool) {
	specs := t.specs.Specs()
	if len(specs) == 0 {
		notify := true
		if startup {
			notify = !t.noKernelNotice
			t.noKernelNotice = true
		}
		return kernelChoiceNone, kernel.Spec{}, notify
	}
	if startup && len(specs) == 1 {
		for _, s := range specs {
			return kernelChoiceAuto, s, false
		}
	}
	return kernelChoicePicker, kernel.Spec{}, false
}

// Connect dials the kernel endpoint, wires the session and comm registry,
// and starts the kernel-info handshake. The previous session, if any, is
// closed first.
func (t *NotebookTab) Connect(spec kernel.Spec) error {
	if spec.URL == "" {
		return fmt.Errorf("kernel %q has no endpoint url", spec.Name)
	}
	t.Disconnect()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	transport, err := kernel.Dial(ctx, spec.URL)
	if err != nil {
		return fmt.Errorf("dial kernel %q: %w", spec.Name, err)
	}

	sess := kernel.NewSession(transport, t.log.Named("session"))
	t.session = sess
	t.comms = kernel.NewRegistry(sess, t.log.Named("comms"))

	t.doc.SetKernelName(spec.Name)
	if spec.DisplayName != "" {
		t.doc.SetKernelDisplayName(spec.DisplayName)
	}
	if spec.Language != "" {
		t.doc.SetLanguageInfo(map[string]any{
			"name":           spec.Language,
			"file_extension": spec.FileExtension,
		})
	}

	t.wireHooks(sess)

	sess.Start(func(err error) {
		t.post(kernelStartedMsg{err: err})
	}, false)
	return nil
}

// wireHooks registers broadcast handlers. They run on the session's delivery
// goroutine: output kinds hand off to the UI loop, comm kinds drive the
// registry in place (it is owned by that goroutine), input requests are
// answered with an empty reply so the kernel never hangs on stdin.
func (t *NotebookTab) wireHooks(sess *kernel.Session) {
	forward := func(msg kernel.Message) {
		t.post(kernelMessageMsg{msg: msg})
	}
	sess.Hook(kernel.KindStream, forward)
	sess.Hook(kernel.KindExecuteResult, forward)
	sess.Hook(kernel.KindDisplayData, forward)
	sess.Hook(kernel.KindError, forward)

	sess.Hook("status_changed", func(msg kernel.Message) {
		t.post(kernelStatusMsg{status: kernel.Status(msg.ContentString("status"))})
	})

	sess.Hook(kernel.KindCommOpen, func(msg kernel.Message) {
		t.comms.OnOpen(msg.CommID, msg.ContentString("target_name"), msg.ContentMap("data"), msg.Buffers)
	})
	sess.Hook(kernel.KindCommMsg, func(msg kernel.Message) {
		if msg.CommID == "" {
			return
		}
		t.comms.OnMessage(msg.CommID, msg.ContentMap("data"), msg.Buffers)
	})
	sess.Hook(kernel.KindCommClose, func(msg kernel.Message) {
		if msg.CommID == "" {
			return
		}
		t.comms.OnClose(msg.CommID, msg.ContentMap("data"), msg.Buffers)
	})

	sess.Hook(kernel.KindInputRequest, func(msg kernel.Message) {
		sess.Send(kernel.Message{
			Kind:     kernel.KindInputReply,
			ParentID: msg.ID,
			Content:  map[string]any{"value": ""},
		}, nil)
	})
}

// Disconnect tears down the session and releases every open comm.
func (t *NotebookTab) Disconnect() {
	if t.session == nil {
		return
	}
	t.session.Close()
	if t.comms != nil {
		t.comms.CloseAll()
	}
	t.session = nil
	t.comms = nil
	t.runs = make(map[string]string)
	t.running = make(map[string]bool)
}

func (t *NotebookTab) InterruptKernel() {
	if t.session == nil {
		return
	}
	t.session.Interrupt()
}

// RestartKernel restarts without confirmation; gating through the confirm
// dialog is the model's job.
func (t *NotebookTab) RestartKernel() {
	if t.session == nil {
		return
	}
	t.session.Restart(func(err error) {
		t.post(kernelRestartedMsg{err: err})
	})
}

func (t *NotebookTab) post(msg tea.Msg) {
	if t.send != nil {
		t.send(msg)
	}
}

// ---------------------------------------------------------------------------
// Cell operations
// ---------------------------------------------------------------------------

// resolved returns the selection clamped to the current cell count.
func (t *NotebookTab) resolved() notebook.Selection {
	return t.sel.Clamp(t.doc.Len())
}

func (t *NotebookTab) SelectedIndices() []int {
	return t.sel.Indices(t.doc.Len())
}

func (t *NotebookTab) SelectedCount() int {
	return len(t.SelectedIndices())
}

func (t *NotebookTab) AddAbove() {
	at := t.resolved().Anchor()
	t.doc.Add(at)
	t.sel = notebook.Selection{Start: at, Stop: at + 1}
}

func (t *NotebookTab) AddBelow() {
	at := t.resolved().Anchor() + 1
	t.doc.Add(at)
	t.sel = notebook.Selection{Start: at, Stop: at + 1}
}

func (t *NotebookTab) DeleteSelected() {
	at := t.doc.Delete(t.sel)
	t.sel = notebook.Selection{Start: at, Stop: at + 1}
}

func (t *NotebookTab) CutSelected() {
	at := t.doc.Cut(t.sel)
	t.sel = notebook.Selection{Start: at, Stop: at + 1}
}

func (t *NotebookTab) CopySelected() {
	t.doc.Copy(t.sel)
}

func (t *NotebookTab) PasteBelow() {
	at := t.resolved().Anchor()
	n := t.doc.Paste(at)
	if n > 0 {
		t.sel = notebook.Selection{Start: at + 1, Stop: at + 1 + n}
	}
}

func (t *NotebookTab) MergeSelected() {
	at := t.doc.Merge(t.sel)
	if at >= 0 {
		t.sel = notebook.Selection{Start: at, Stop: at + 1}
	}
}

func (t *NotebookTab) ClearSelectedOutputs() {
	for _, i := range t.SelectedIndices() {
		t.doc.ClearOutputs(i)
	}
}

func (t *NotebookTab) cellIndexByID(id string) int {
	for i := range t.doc.Cells {
		if t.doc.Cells[i].ID == id {
			return i
		}
	}
	return -1
}

// ---------------------------------------------------------------------------
// Execution
// ---------------------------------------------------------------------------

// RunSelected executes the selected code cells in document order. With
// advance the selection moves past the run range afterwards, appending a new
// cell when it would fall off the end; with insert a fresh cell is added
// below the range and selected.
func (t *NotebookTab) RunSelected(advance, insert bool) error {
	indices := t.SelectedIndices()
	if len(indices) == 0 {
		return nil
	}
	for _, i := range indices {
		t.runCell(i)
	}
	last := indices[len(indices)-1]
	switch {
	case insert:
		t.doc.Add(last + 1)
		t.sel = notebook.Selection{Start: last + 1, Stop: last + 2}
	case advance:
		next := last + 1
		if next >= t.doc.Len() {
			t.doc.Add(t.doc.Len())
		}
		t.sel = notebook.Selection{Start: next, Stop: next + 1}
	}
	return nil
}

// RunAll executes every code cell from top to bottom.
func (t *NotebookTab) RunAll() {
	for i := range t.doc.Cells {
		t.runCell(i)
	}
}

// runCell submits one cell for execution. Markdown and raw cells, empty
// cells, and a missing session are all silent no-ops.
func (t *NotebookTab) runCell(index int) {
	if t.session == nil || index < 0 || index >= t.doc.Len() {
		return
	}
	cell := &t.doc.Cells[index]
	if cell.Type != notebook.CellCode || cell.Source == "" {
		return
	}
	t.doc.ClearOutputs(index)

	req := kernel.NewExecuteRequest(cell.Source, false)
	req.ID = uuid.NewString()
	t.runs[req.ID] = cell.ID
	t.running[cell.ID] = true

	source := cell.Source
	t.session.Send(req, func(msg kernel.Message, err error) {
		if err != nil {
			msg = kernel.Message{
				Kind:     kernel.KindError,
				ParentID: req.ID,
				Content: map[string]any{
					"ename":  "KernelError",
					"evalue": err.Error(),
				},
			}
		}
		t.post(kernelMessageMsg{msg: msg})
	})

	if t.hist != nil {
		if err := t.hist.Append(t.KernelName(), source); err != nil {
			t.log.Warn("history append failed", zap.Error(err))
		}
	}
}

// RecentHistory returns up to limit of the most recent inputs recorded for
// this tab's kernel, newest first. No history store means no suggestions.
func (t *NotebookTab) RecentHistory(limit int) []history.Entry {
	if t.hist == nil {
		return nil
	}
	entries, err := t.hist.Recent(t.KernelName(), limit)
	if err != nil {
		t.log.Warn("history lookup failed", zap.Error(err))
		return nil
	}
	return entries
}

// ApplyKernelMessage folds one protocol message into the document. Runs on
// the UI goroutine. Messages whose parent id maps to no known run are
// dropped, matching the session's tolerance for unsolicited traffic.
func (t *NotebookTab) ApplyKernelMessage(msg kernel.Message) {
	cellID, ok := t.runs[msg.ParentID]
	if !ok {
		return
	}
	idx := t.cellIndexByID(cellID)

	switch msg.Kind {
	case kernel.KindStream:
		t.appendOutput(idx, notebook.Output{Kind: "stream", Data: map[string]any{
			"name": msg.ContentString("name"),
			"text": msg.ContentString("text"),
		}})
	case kernel.KindExecuteResult, kernel.KindDisplayData:
		t.appendOutput(idx, notebook.Output{Kind: msg.Kind, Data: msg.ContentMap("data")})
	case kernel.KindError:
		t.appendOutput(idx, notebook.Output{Kind: "error", Data: map[string]any{
			"ename":     msg.ContentString("ename"),
			"evalue":    msg.ContentString("evalue"),
			"traceback": msg.Content["traceback"],
		}})
		delete(t.runs, msg.ParentID)
		delete(t.running, cellID)
	case kernel.KindExecuteReply:
		if idx >= 0 {
			if count, ok := msg.Content["execution_count"].(float64); ok {
				t.doc.Cells[idx].ExecutionCount = int(count)
			}
		}
		delete(t.runs, msg.ParentID)
		delete(t.running, cellID)
	}
}

func (t *NotebookTab) appendOutput(idx int, out notebook.Output) {
	if idx < 0 {
		return
	}
	t.doc.AppendOutput(idx, out)
}

// ---------------------------------------------------------------------------
// Persistence
// ---------------------------------------------------------------------------

func (t *NotebookTab) Save() error {
	return t.store.Save(t.path, t.doc)
}
