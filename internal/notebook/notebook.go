// Package notebook holds the in-memory document model for a notebook: an
// ordered cell sequence, document metadata, the clipboard, and the selection
// state machine. Reading and writing the on-disk format is a collaborator
// behind the Store interface; nothing here touches the filesystem.
package notebook

import (
	"strings"

	"github.com/google/uuid"
)

// CellType discriminates cell content kinds.
type CellType string

const (
	CellCode     CellType = "code"
	CellMarkdown CellType = "markdown"
	CellRaw      CellType = "raw"
)

// Output is one rendered output chunk attached to a code cell.
type Output struct {
	Kind string         // stream, execute_result, display_data, error
	Data map[string]any // mime bundle or stream payload
}

// Cell is one editable unit of the document.
type Cell struct {
	ID             string
	Type           CellType
	Source         string
	Outputs        []Output
	ExecutionCount int
}

// NewCodeCell returns an empty code cell with a fresh id.
func NewCodeCell() Cell {
	return Cell{ID: uuid.NewString(), Type: CellCode}
}

// Document is an open notebook: cells, notebook-level metadata, and the cell
// clipboard. Dirty tracks unsaved edits.
type Document struct {
	Cells     []Cell
	Metadata  map[string]any
	Clipboard []Cell
	Dirty     bool
}

// Store persists documents. The concrete notebook file format lives behind
// this boundary.
type Store interface {
	Load(path string) (*Document, error)
	Save(path string, doc *Document) error
}

// NewDocument returns a document with a single empty code cell, matching
// the invariant that a notebook always holds at least one cell.
func NewDocument() *Document {
	return &Document{
		Cells:    []Cell{NewCodeCell()},
		Metadata: map[string]any{},
	}
}

// Len returns the cell count.
func (d *Document) Len() int { return len(d.Cells) }

// Add inserts a new empty code cell at index, clamped into [0, len].
func (d *Document) Add(index int) {
	if index < 0 {
		index = 0
	}
	if index > len(d.Cells) {
		index = len(d.Cells)
	}
	d.Cells = append(d.Cells, Cell{})
	copy(d.Cells[index+1:], d.Cells[index:])
	d.Cells[index] = NewCodeCell()
	d.Dirty = true
}

// Copy places copies of the selected cells on the clipboard, in document
// order. The document is unchanged.
func (d *Document) Copy(sel Selection) {
	indices := sel.Indices(len(d.Cells))
	clip := make([]Cell, 0, len(indices))
	for _, i := range indices {
		clip = append(clip, cloneCell(d.Cells[i]))
	}
	d.Clipboard = clip
}

// Delete removes the selected cells. A notebook always keeps at least one
// cell, so deleting everything leaves one fresh empty cell. Returns the index
// the selection should land on afterwards.
func (d *Document) Delete(sel Selection) int {
	indices := sel.Indices(len(d.Cells))
	if len(indices) == 0 {
		return 0
	}
	lowest := indices[0]
	keep := make([]Cell, 0, len(d.Cells)-len(indices))
	drop := make(map[int]bool, len(indices))
	for _, i := range indices {
		drop[i] = true
	}
	for i, c := range d.Cells {
		if !drop[i] {
			keep = append(keep, c)
		}
	}
	d.Cells = keep
	if len(d.Cells) == 0 {
		d.Cells = []Cell{NewCodeCell()}
	}
	d.Dirty = true
	if lowest > len(d.Cells)-1 {
		lowest = len(d.Cells) - 1
	}
	return lowest
}

// Cut copies then deletes the selected cells.
func (d *Document) Cut(sel Selection) int {
	d.Copy(sel)
	return d.Delete(sel)
}

// Paste inserts clipboard contents below index. Pasted cells get fresh ids so
// a double paste never duplicates an id. Returns the number of cells pasted.
func (d *Document) Paste(index int) int {
	if len(d.Clipboard) == 0 {
		return 0
	}
	pasted := make([]Cell, 0, len(d.Clipboard))
	for _, c := range d.Clipboard {
		c = cloneCell(c)
		c.ID = uuid.NewString()
		pasted = append(pasted, c)
	}
	at := index + 1
	if at < 0 {
		at = 0
	}
	if at > len(d.Cells) {
		at = len(d.Cells)
	}
	d.Cells = append(d.Cells[:at], append(pasted, d.Cells[at:]...)...)
	d.Dirty = true
	return len(pasted)
}

// Merge combines two or more selected cells into one. The merged cell takes
// the type of the first selected cell; markdown sources merged into a code
// cell are commented out line by line. Sources join with a blank line. The
// merged cell replaces the selection and the function returns its index, or
// -1 when fewer than two cells are selected.
func (d *Document) Merge(sel Selection) int {
	indices := sel.Indices(len(d.Cells))
	if len(indices) < 2 {
		return -1
	}
	first := d.Cells[indices[0]]
	sources := make([]string, 0, len(indices))
	for _, i := range indices {
		src := d.Cells[i].Source
		if first.Type == CellCode && d.Cells[i].Type == CellMarkdown {
			lines := strings.Split(src, "\n")
			for j, line := range lines {
				lines[j] = "# " + line
			}
			src = strings.Join(lines, "\n")
		}
		sources = append(sources, src)
	}
	merged := NewCodeCell()
	merged.Type = first.Type
	merged.Source = strings.Join(sources, "\n\n")

	// Insert after the selection, then delete the selection.
	after := indices[len(indices)-1] + 1
	d.Cells = append(d.Cells[:after], append([]Cell{merged}, d.Cells[after:]...)...)
	at := d.Delete(sel)
	d.Dirty = true
	return at
}

// ClearOutputs drops the outputs of the cell at index.
func (d *Document) ClearOutputs(index int) {
	if index < 0 || index >= len(d.Cells) {
		return
	}
	d.Cells[index].Outputs = nil
	d.Dirty = true
}

// AppendOutput attaches an output chunk to the cell at index.
func (d *Document) AppendOutput(index int, out Output) {
	if index < 0 || index >= len(d.Cells) {
		return
	}
	d.Cells[index].Outputs = append(d.Cells[index].Outputs, out)
	d.Dirty = true
}

func cloneCell(c Cell) Cell {
	out := c
	out.Outputs = make([]Output, len(c.Outputs))
	for i, o := range c.Outputs {
		data := make(map[string]any, len(o.Data))
		for k, v := range o.Data {
			data[k] = v
		}
		out.Outputs[i] = Output{Kind: o.Kind, Data: data}
	}
	return out
}
