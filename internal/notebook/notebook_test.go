package notebook

import (
	"path/filepath"
	"strings"
	"testing"
)

func docWithSources(sources ...string) *Document {
	d := NewDocument()
	d.Cells = d.Cells[:0]
	for _, s := range sources {
		c := NewCodeCell()
		c.Source = s
		d.Cells = append(d.Cells, c)
	}
	d.Dirty = false
	return d
}

func TestAddInsertsAtIndex(t *testing.T) {
	d := docWithSources("a", "b")
	d.Add(1)
	if d.Len() != 3 {
		t.Fatalf("Len = %d", d.Len())
	}
	if d.Cells[1].Source != "" || d.Cells[2].Source != "b" {
		t.Fatalf("cells out of order: %q %q", d.Cells[1].Source, d.Cells[2].Source)
	}
	if !d.Dirty {
		t.Fatalf("Add did not mark dirty")
	}
}

func TestDeleteKeepsAtLeastOneCell(t *testing.T) {
	d := docWithSources("a", "b")
	at := d.Delete(All(2))
	if d.Len() != 1 {
		t.Fatalf("Len = %d, want 1", d.Len())
	}
	if d.Cells[0].Source != "" {
		t.Fatalf("surviving cell should be fresh, got %q", d.Cells[0].Source)
	}
	if at != 0 {
		t.Fatalf("landing index = %d", at)
	}
}

func TestCutPasteRoundTripWithFreshIDs(t *testing.T) {
	d := docWithSources("a", "b", "c")
	origID := d.Cells[1].ID
	d.Cut(Selection{1, 2})
	if d.Len() != 2 {
		t.Fatalf("Len after cut = %d", d.Len())
	}
	n := d.Paste(1)
	if n != 1 || d.Len() != 3 {
		t.Fatalf("paste n=%d len=%d", n, d.Len())
	}
	if d.Cells[2].Source != "b" {
		t.Fatalf("pasted below index 1, got order %q %q %q",
			d.Cells[0].Source, d.Cells[1].Source, d.Cells[2].Source)
	}
	if d.Cells[2].ID == origID {
		t.Fatalf("pasted cell reused id")
	}
	// Pasting again must mint another id.
	d.Paste(2)
	if d.Cells[3].ID == d.Cells[2].ID {
		t.Fatalf("double paste duplicated id")
	}
}

func TestPasteEmptyClipboardIsNoop(t *testing.T) {
	d := docWithSources("a")
	if n := d.Paste(0); n != 0 || d.Len() != 1 {
		t.Fatalf("n=%d len=%d", n, d.Len())
	}
}

func TestMergeCommentsMarkdownIntoCode(t *testing.T) {
	d := docWithSources("x = 1", "ignored")
	d.Cells[1].Type = CellMarkdown
	d.Cells[1].Source = "# Title\nbody"
	at := d.Merge(Selection{0, 2})
	if at != 0 {
		t.Fatalf("merge landed at %d", at)
	}
	if d.Len() != 1 {
		t.Fatalf("Len = %d", d.Len())
	}
	got := d.Cells[0].Source
	want := "x = 1\n\n# # Title\n# body"
	if got != want {
		t.Fatalf("merged source = %q, want %q", got, want)
	}
	if d.Cells[0].Type != CellCode {
		t.Fatalf("merged type = %q", d.Cells[0].Type)
	}
}

func TestMergeSingleCellIsNoop(t *testing.T) {
	d := docWithSources("a", "b")
	if at := d.Merge(Selection{0, 1}); at != -1 {
		t.Fatalf("merge of one cell returned %d", at)
	}
	if d.Len() != 2 {
		t.Fatalf("Len = %d", d.Len())
	}
}

func TestSetKernelNamePreservesSiblingMetadata(t *testing.T) {
	d := NewDocument()
	d.Metadata["kernelspec"] = map[string]any{
		"name":         "python3",
		"display_name": "Python 3",
		"language":     "python",
	}
	d.SetKernelName("julia-1.9")
	if got := d.KernelName(); got != "julia-1.9" {
		t.Fatalf("KernelName = %q", got)
	}
	if got := d.KernelDisplayName(); got != "Python 3" {
		t.Fatalf("display name lost: %q", got)
	}
	if got := d.Language(); got != "python" {
		t.Fatalf("language lost: %q", got)
	}
}

func TestMetadataProjectionsOnEmptyDocument(t *testing.T) {
	d := NewDocument()
	if d.KernelName() != "" || d.KernelDisplayName() != "" || d.Language() != "" || d.FileExtension() != "" {
		t.Fatalf("projections on empty metadata should be empty")
	}
	d.SetKernelName("python3")
	if d.KernelName() != "python3" {
		t.Fatalf("KernelName = %q", d.KernelName())
	}
}

func TestJSONStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nb.ipynb")

	d := docWithSources("print(1)", "")
	d.Cells[1].Type = CellMarkdown
	d.Cells[1].Source = "## heading"
	d.Cells[0].ExecutionCount = 3
	d.AppendOutput(0, Output{Kind: "stream", Data: map[string]any{"name": "stdout", "text": "1\n"}})
	d.SetKernelName("python3")

	store := JSONStore{}
	if err := store.Save(path, d); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if d.Dirty {
		t.Fatalf("Save should clear dirty flag")
	}

	got, err := store.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Len() != 2 {
		t.Fatalf("Len = %d", got.Len())
	}
	if got.Cells[0].Source != "print(1)" || got.Cells[1].Type != CellMarkdown {
		t.Fatalf("cells did not round-trip: %+v", got.Cells)
	}
	if got.Cells[0].ExecutionCount != 3 {
		t.Fatalf("execution count = %d", got.Cells[0].ExecutionCount)
	}
	if len(got.Cells[0].Outputs) != 1 || !strings.Contains(got.Cells[0].Outputs[0].Data["text"].(string), "1") {
		t.Fatalf("outputs did not round-trip: %+v", got.Cells[0].Outputs)
	}
	if got.KernelName() != "python3" {
		t.Fatalf("KernelName = %q", got.KernelName())
	}
}

func TestJSONStoreLoadMissingFileYieldsFreshDocument(t *testing.T) {
	got, err := JSONStore{}.Load(filepath.Join(t.TempDir(), "absent.ipynb"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Len() != 1 || got.Cells[0].Type != CellCode {
		t.Fatalf("fresh document = %+v", got)
	}
}
