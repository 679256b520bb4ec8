package notebook

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
)

// JSONStore reads and writes ipynb-shaped JSON. It is deliberately loose: no
// schema validation, unknown keys round-trip untouched inside Metadata, and
// outputs are carried as raw maps. The editor only depends on the Store
// interface, so a richer format layer can replace this wholesale.
type JSONStore struct{}

type fileCell struct {
	ID             string         `json:"id,omitempty"`
	CellType       string         `json:"cell_type"`
	Source         string         `json:"source"`
	Outputs        []fileOutput   `json:"outputs,omitempty"`
	ExecutionCount *int           `json:"execution_count,omitempty"`
	Metadata       map[string]any `json:"metadata"`
}

type fileOutput struct {
	OutputType string         `json:"output_type"`
	Data       map[string]any `json:"data,omitempty"`
	Text       string         `json:"text,omitempty"`
	Name       string         `json:"name,omitempty"`
}

type fileDoc struct {
	Cells         []fileCell     `json:"cells"`
	Metadata      map[string]any `json:"metadata"`
	NBFormat      int            `json:"nbformat"`
	NBFormatMinor int            `json:"nbformat_minor"`
}

// Load reads the notebook at path. A missing file yields a fresh single-cell
// document rather than an error, matching editor open-new semantics.
func (JSONStore) Load(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read notebook: %w", err)
	}
	var f fileDoc
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse notebook: %w", err)
	}
	doc := &Document{Metadata: f.Metadata}
	if doc.Metadata == nil {
		doc.Metadata = map[string]any{}
	}
	for _, fc := range f.Cells {
		c := Cell{ID: fc.ID, Type: CellType(fc.CellType), Source: fc.Source}
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if c.Type == "" {
			c.Type = CellCode
		}
		if fc.ExecutionCount != nil {
			c.ExecutionCount = *fc.ExecutionCount
		}
		for _, fo := range fc.Outputs {
			data := fo.Data
			if data == nil {
				data = map[string]any{}
			}
			if fo.Text != "" {
				data["text"] = fo.Text
			}
			if fo.Name != "" {
				data["name"] = fo.Name
			}
			c.Outputs = append(c.Outputs, Output{Kind: fo.OutputType, Data: data})
		}
		doc.Cells = append(doc.Cells, c)
	}
	if len(doc.Cells) == 0 {
		doc.Cells = []Cell{NewCodeCell()}
	}
	return doc, nil
}

// Save writes the document to path and clears the dirty flag.
func (JSONStore) Save(path string, doc *Document) error {
	f := fileDoc{
		Metadata:      doc.Metadata,
		NBFormat:      4,
		NBFormatMinor: 5,
		Cells:         make([]fileCell, 0, len(doc.Cells)),
	}
	if f.Metadata == nil {
		f.Metadata = map[string]any{}
	}
	for _, c := range doc.Cells {
		fc := fileCell{
			ID:       c.ID,
			CellType: string(c.Type),
			Source:   c.Source,
			Metadata: map[string]any{},
		}
		if c.ExecutionCount > 0 {
			n := c.ExecutionCount
			fc.ExecutionCount = &n
		}
		for _, o := range c.Outputs {
			fo := fileOutput{OutputType: o.Kind}
			switch o.Kind {
			case "stream":
				fo.Name, _ = o.Data["name"].(string)
				fo.Text, _ = o.Data["text"].(string)
			default:
				fo.Data = o.Data
			}
			fc.Outputs = append(fc.Outputs, fo)
		}
		f.Cells = append(f.Cells, fc)
	}
	raw, err := json.MarshalIndent(f, "", " ")
	if err != nil {
		return fmt.Errorf("encode notebook: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write notebook: %w", err)
	}
	doc.Dirty = false
	return nil
}
