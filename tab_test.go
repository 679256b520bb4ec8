package main

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/matheusfillipe/euporie/internal/config"
	"github.com/matheusfillipe/euporie/internal/kernel"
	"github.com/matheusfillipe/euporie/internal/notebook"
)

func newTestTab(t *testing.T, specs kernel.SpecLister) *NotebookTab {
	t.Helper()
	return newTestTabCfg(t, config.Config{}, specs)
}

func newTestTabCfg(t *testing.T, cfg config.Config, specs kernel.SpecLister) *NotebookTab {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nb.ipynb")
	tab, err := NewNotebookTab(cfg, path, notebook.JSONStore{}, specs, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewNotebookTab: %v", err)
	}
	return tab
}

// fakeTransport records sent envelopes and lets tests inject inbound traffic.
type fakeTransport struct {
	sent chan kernel.Message
	recv func(kernel.Message)
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{sent: make(chan kernel.Message, 16)}
}

func (f *fakeTransport) Send(msg kernel.Message) (string, error) {
	f.sent <- msg
	return msg.ID, nil
}

func (f *fakeTransport) OnReceive(fn func(kernel.Message)) { f.recv = fn }
func (f *fakeTransport) OnDisconnect(fn func(error))       {}
func (f *fakeTransport) Close() error                      { return nil }

func (f *fakeTransport) waitSent(t *testing.T) kernel.Message {
	t.Helper()
	select {
	case msg := <-f.sent:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a sent message")
		return kernel.Message{}
	}
}

// ---------------------------------------------------------------------------
// Cell operations
// ---------------------------------------------------------------------------

func TestAddBelowSelectsNewCell(t *testing.T) {
	tab := newTestTab(t, kernel.StaticSpecs{})

	tab.AddBelow()
	if got := tab.doc.Len(); got != 2 {
		t.Fatalf("cell count = %d, want 2", got)
	}
	if tab.sel != (notebook.Selection{Start: 1, Stop: 2}) {
		t.Fatalf("selection = %+v, want {1 2}", tab.sel)
	}
	if !tab.Dirty() {
		t.Fatal("document should be dirty after adding a cell")
	}
}

func TestAddAboveSelectsNewCell(t *testing.T) {
	tab := newTestTab(t, kernel.StaticSpecs{})
	tab.AddBelow()
	tab.AddAbove()

	if got := tab.doc.Len(); got != 3 {
		t.Fatalf("cell count = %d, want 3", got)
	}
	if tab.sel != (notebook.Selection{Start: 1, Stop: 2}) {
		t.Fatalf("selection = %+v, want {1 2}", tab.sel)
	}
}

func TestDeleteAllLeavesOneFreshCell(t *testing.T) {
	tab := newTestTab(t, kernel.StaticSpecs{})
	tab.AddBelow()
	tab.AddBelow()
	tab.doc.Cells[0].Source = "x = 1"
	tab.sel = notebook.All(tab.doc.Len())

	tab.DeleteSelected()
	if got := tab.doc.Len(); got != 1 {
		t.Fatalf("cell count = %d, want 1", got)
	}
	if tab.doc.Cells[0].Source != "" {
		t.Fatalf("surviving cell source = %q, want empty", tab.doc.Cells[0].Source)
	}
	if tab.sel != (notebook.Selection{Start: 0, Stop: 1}) {
		t.Fatalf("selection = %+v, want {0 1}", tab.sel)
	}
}

func TestCutThenPasteSelectsPastedRange(t *testing.T) {
	tab := newTestTab(t, kernel.StaticSpecs{})
	tab.AddBelow()
	tab.AddBelow()
	tab.doc.Cells[0].Source = "a"
	tab.doc.Cells[1].Source = "b"
	tab.sel = notebook.Selection{Start: 0, Stop: 2}

	tab.CutSelected()
	if got := tab.doc.Len(); got != 1 {
		t.Fatalf("cell count after cut = %d, want 1", got)
	}
	if got := len(tab.doc.Clipboard); got != 2 {
		t.Fatalf("clipboard size = %d, want 2", got)
	}

	tab.PasteBelow()
	if got := tab.doc.Len(); got != 3 {
		t.Fatalf("cell count after paste = %d, want 3", got)
	}
	if tab.sel != (notebook.Selection{Start: 1, Stop: 3}) {
		t.Fatalf("selection = %+v, want {1 3}", tab.sel)
	}
	if tab.doc.Cells[1].Source != "a" || tab.doc.Cells[2].Source != "b" {
		t.Fatalf("pasted sources = %q, %q, want a, b", tab.doc.Cells[1].Source, tab.doc.Cells[2].Source)
	}
}

func TestMergeSelectedLandsOnMergedCell(t *testing.T) {
	tab := newTestTab(t, kernel.StaticSpecs{})
	tab.AddBelow()
	tab.doc.Cells[0].Source = "a = 1"
	tab.doc.Cells[1].Source = "b = 2"
	tab.sel = notebook.Selection{Start: 0, Stop: 2}

	tab.MergeSelected()
	if got := tab.doc.Len(); got != 1 {
		t.Fatalf("cell count = %d, want 1", got)
	}
	if got := tab.doc.Cells[0].Source; got != "a = 1\n\nb = 2" {
		t.Fatalf("merged source = %q", got)
	}
	if tab.sel != (notebook.Selection{Start: 0, Stop: 1}) {
		t.Fatalf("selection = %+v, want {0 1}", tab.sel)
	}
}

// ---------------------------------------------------------------------------
// Metadata projections
// ---------------------------------------------------------------------------

func TestKernelNameFallsBackToDefault(t *testing.T) {
	cfg := config.Config{}
	cfg.Kernel.Default = "python3"
	tab := newTestTabCfg(t, cfg, kernel.StaticSpecs{})

	if got := tab.KernelName(); got != "python3" {
		t.Fatalf("KernelName = %q, want python3", got)
	}
	tab.doc.SetKernelName("julia")
	if got := tab.KernelName(); got != "julia" {
		t.Fatalf("KernelName = %q, want julia", got)
	}
}

func TestFileExtensionFallbacks(t *testing.T) {
	cfg := config.Config{}
	cfg.Kernel.Default = "python3"
	specs := kernel.StaticSpecs{
		"python3": {Name: "python3", FileExtension: ".py"},
	}
	tab := newTestTabCfg(t, cfg, specs)

	if got := tab.FileExtension(); got != ".py" {
		t.Fatalf("FileExtension = %q, want .py from the kernel spec", got)
	}

	bare := newTestTab(t, kernel.StaticSpecs{})
	if got := bare.FileExtension(); got != ".txt" {
		t.Fatalf("FileExtension = %q, want .txt fallback", got)
	}
}

// ---------------------------------------------------------------------------
// Kernel selection gating
// ---------------------------------------------------------------------------

func TestChooseKernelNoSpecsNotifiesOnceAtStartup(t *testing.T) {
	tab := newTestTab(t, kernel.StaticSpecs{})

	choice, _, notify := tab.ChooseKernel(true)
	if choice != kernelChoiceNone || !notify {
		t.Fatalf("first startup call = (%v, %v), want (none, notify)", choice, notify)
	}
	_, _, notify = tab.ChooseKernel(true)
	if notify {
		t.Fatal("second startup call should stay silent")
	}
	_, _, notify = tab.ChooseKernel(false)
	if !notify {
		t.Fatal("an explicit change-kernel request should always notify")
	}
}

func TestChooseKernelSingleSpecAutoSelectsAtStartup(t *testing.T) {
	specs := kernel.StaticSpecs{"python3": {Name: "python3", URL: "ws://localhost:8888"}}
	tab := newTestTab(t, specs)

	choice, spec, _ := tab.ChooseKernel(true)
	if choice != kernelChoiceAuto {
		t.Fatalf("startup choice = %v, want auto", choice)
	}
	if spec.Name != "python3" {
		t.Fatalf("auto spec = %q, want python3", spec.Name)
	}

	choice, _, _ = tab.ChooseKernel(false)
	if choice != kernelChoicePicker {
		t.Fatalf("explicit choice = %v, want picker even with one spec", choice)
	}
}

func TestChooseKernelMultipleSpecsOpensPicker(t *testing.T) {
	specs := kernel.StaticSpecs{
		"python3": {Name: "python3"},
		"julia":   {Name: "julia"},
	}
	tab := newTestTab(t, specs)

	choice, _, _ := tab.ChooseKernel(true)
	if choice != kernelChoicePicker {
		t.Fatalf("startup choice = %v, want picker", choice)
	}
}

func TestConnectRejectsSpecWithoutURL(t *testing.T) {
	tab := newTestTab(t, kernel.StaticSpecs{})
	if err := tab.Connect(kernel.Spec{Name: "python3"}); err == nil {
		t.Fatal("expected an error for a spec with no endpoint url")
	}
}

// ---------------------------------------------------------------------------
// Execution
// ---------------------------------------------------------------------------

func TestRunSelectedSendsExecuteRequest(t *testing.T) {
	tab := newTestTab(t, kernel.StaticSpecs{})
	ft := newFakeTransport()
	tab.session = kernel.NewSession(ft, zap.NewNop())
	defer tab.session.Close()

	tab.doc.Cells[0].Source = "print(1)"
	if err := tab.RunSelected(false, false); err != nil {
		t.Fatalf("RunSelected: %v", err)
	}

	msg := ft.waitSent(t)
	if msg.Kind != kernel.KindExecuteRequest {
		t.Fatalf("sent kind = %q, want %q", msg.Kind, kernel.KindExecuteRequest)
	}
	if got := msg.ContentString("code"); got != "print(1)" {
		t.Fatalf("sent code = %q, want print(1)", got)
	}
	if msg.ID == "" {
		t.Fatal("execute request should carry a pre-assigned id")
	}
	if got := tab.runs[msg.ID]; got != tab.doc.Cells[0].ID {
		t.Fatalf("runs[%q] = %q, want %q", msg.ID, got, tab.doc.Cells[0].ID)
	}
	if !tab.running[tab.doc.Cells[0].ID] {
		t.Fatal("cell should be marked running")
	}
}

func TestRunSelectedSkipsNonCodeAndEmptyCells(t *testing.T) {
	tab := newTestTab(t, kernel.StaticSpecs{})
	ft := newFakeTransport()
	tab.session = kernel.NewSession(ft, zap.NewNop())
	defer tab.session.Close()

	tab.AddBelow()
	tab.doc.Cells[0].Type = notebook.CellMarkdown
	tab.doc.Cells[0].Source = "# heading"
	tab.sel = notebook.All(tab.doc.Len())

	if err := tab.RunSelected(false, false); err != nil {
		t.Fatalf("RunSelected: %v", err)
	}
	if len(tab.runs) != 0 {
		t.Fatalf("runs = %d entries, want 0", len(tab.runs))
	}
}

func TestRunSelectedAdvanceAppendsAtEnd(t *testing.T) {
	tab := newTestTab(t, kernel.StaticSpecs{})
	if err := tab.RunSelected(true, false); err != nil {
		t.Fatalf("RunSelected: %v", err)
	}
	if got := tab.doc.Len(); got != 2 {
		t.Fatalf("cell count = %d, want a cell appended past the end", got)
	}
	if tab.sel != (notebook.Selection{Start: 1, Stop: 2}) {
		t.Fatalf("selection = %+v, want {1 2}", tab.sel)
	}
}

func TestRunSelectedInsertAddsCellBelow(t *testing.T) {
	tab := newTestTab(t, kernel.StaticSpecs{})
	tab.AddBelow()
	tab.sel = notebook.First()

	if err := tab.RunSelected(false, true); err != nil {
		t.Fatalf("RunSelected: %v", err)
	}
	if got := tab.doc.Len(); got != 3 {
		t.Fatalf("cell count = %d, want 3", got)
	}
	if tab.sel != (notebook.Selection{Start: 1, Stop: 2}) {
		t.Fatalf("selection = %+v, want the inserted cell", tab.sel)
	}
}

// ---------------------------------------------------------------------------
// Folding protocol messages into the document
// ---------------------------------------------------------------------------

func TestApplyKernelMessageStreamAppendsOutput(t *testing.T) {
	tab := newTestTab(t, kernel.StaticSpecs{})
	cellID := tab.doc.Cells[0].ID
	tab.runs["req-1"] = cellID
	tab.running[cellID] = true

	tab.ApplyKernelMessage(kernel.Message{
		Kind:     kernel.KindStream,
		ParentID: "req-1",
		Content:  map[string]any{"name": "stdout", "text": "hello\n"},
	})

	outs := tab.doc.Cells[0].Outputs
	if len(outs) != 1 {
		t.Fatalf("outputs = %d, want 1", len(outs))
	}
	if outs[0].Kind != "stream" || outs[0].Data["text"] != "hello\n" {
		t.Fatalf("output = %+v", outs[0])
	}
	if !tab.running[cellID] {
		t.Fatal("stream output should not end the run")
	}
}

func TestApplyKernelMessageUnknownParentIsDropped(t *testing.T) {
	tab := newTestTab(t, kernel.StaticSpecs{})

	tab.ApplyKernelMessage(kernel.Message{
		Kind:     kernel.KindStream,
		ParentID: "nobody",
		Content:  map[string]any{"name": "stdout", "text": "noise"},
	})
	if got := len(tab.doc.Cells[0].Outputs); got != 0 {
		t.Fatalf("outputs = %d, want unsolicited message dropped", got)
	}
}

func TestApplyKernelMessageExecuteReplyEndsRun(t *testing.T) {
	tab := newTestTab(t, kernel.StaticSpecs{})
	cellID := tab.doc.Cells[0].ID
	tab.runs["req-1"] = cellID
	tab.running[cellID] = true

	tab.ApplyKernelMessage(kernel.Message{
		Kind:     kernel.KindExecuteReply,
		ParentID: "req-1",
		Content:  map[string]any{"execution_count": float64(3)},
	})

	if got := tab.doc.Cells[0].ExecutionCount; got != 3 {
		t.Fatalf("execution count = %d, want 3", got)
	}
	if tab.running[cellID] {
		t.Fatal("run should be cleared after the reply")
	}
	if _, ok := tab.runs["req-1"]; ok {
		t.Fatal("request id should be released after the reply")
	}
}

func TestApplyKernelMessageErrorEndsRun(t *testing.T) {
	tab := newTestTab(t, kernel.StaticSpecs{})
	cellID := tab.doc.Cells[0].ID
	tab.runs["req-1"] = cellID
	tab.running[cellID] = true

	tab.ApplyKernelMessage(kernel.Message{
		Kind:     kernel.KindError,
		ParentID: "req-1",
		Content: map[string]any{
			"ename":  "NameError",
			"evalue": "name 'x' is not defined",
		},
	})

	outs := tab.doc.Cells[0].Outputs
	if len(outs) != 1 || outs[0].Kind != "error" {
		t.Fatalf("outputs = %+v, want one error output", outs)
	}
	if outs[0].Data["ename"] != "NameError" {
		t.Fatalf("ename = %v", outs[0].Data["ename"])
	}
	if tab.running[cellID] {
		t.Fatal("run should be cleared after the error")
	}
}

func TestApplyKernelMessageSurvivesDeletedCell(t *testing.T) {
	tab := newTestTab(t, kernel.StaticSpecs{})
	tab.runs["req-1"] = "gone"

	tab.ApplyKernelMessage(kernel.Message{
		Kind:     kernel.KindStream,
		ParentID: "req-1",
		Content:  map[string]any{"name": "stdout", "text": "late"},
	})
	// No panic and no output on the surviving cell.
	if got := len(tab.doc.Cells[0].Outputs); got != 0 {
		t.Fatalf("outputs = %d, want 0", got)
	}
}

// Comm hooks run on the session's delivery goroutine and read t.comms, so
// Disconnect must not release the registry while deliveries are still in
// flight. Session.Close joins the loop before Disconnect touches the fields.
func TestDisconnectWhileCommTrafficInFlight(t *testing.T) {
	tab := newTestTab(t, kernel.StaticSpecs{})
	ft := newFakeTransport()
	tab.session = kernel.NewSession(ft, zap.NewNop())
	tab.comms = kernel.NewRegistry(tab.session, zap.NewNop())
	tab.wireHooks(tab.session)

	flooded := make(chan struct{})
	go func() {
		defer close(flooded)
		for i := 0; i < 500; i++ {
			ft.recv(kernel.Message{
				Kind:    kernel.KindCommOpen,
				CommID:  fmt.Sprintf("widget-%d", i),
				Content: map[string]any{"target_name": "jupyter.widget"},
			})
		}
	}()

	tab.Disconnect()
	<-flooded

	if tab.session != nil || tab.comms != nil {
		t.Fatal("disconnect should release the session and the comm registry")
	}
}
