package notebook

// Metadata accessors for the nested kernelspec / language_info maps. Setters
// create the nested map when missing and never discard sibling keys.

func (d *Document) metaSection(name string) map[string]any {
	if d.Metadata == nil {
		d.Metadata = map[string]any{}
	}
	if m, ok := d.Metadata[name].(map[string]any); ok {
		return m
	}
	m := map[string]any{}
	d.Metadata[name] = m
	return m
}

func metaString(meta map[string]any, section, key string) string {
	m, ok := meta[section].(map[string]any)
	if !ok {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

// KernelName returns the kernelspec name recorded in the document, or "".
func (d *Document) KernelName() string {
	return metaString(d.Metadata, "kernelspec", "name")
}

// SetKernelName records the kernelspec name, keeping sibling metadata.
func (d *Document) SetKernelName(name string) {
	d.metaSection("kernelspec")["name"] = name
	d.Dirty = true
}

// KernelDisplayName returns the kernelspec display name, or "".
func (d *Document) KernelDisplayName() string {
	return metaString(d.Metadata, "kernelspec", "display_name")
}

// SetKernelDisplayName records the kernelspec display name.
func (d *Document) SetKernelDisplayName(name string) {
	d.metaSection("kernelspec")["display_name"] = name
	d.Dirty = true
}

// Language returns the kernelspec language, or "".
func (d *Document) Language() string {
	return metaString(d.Metadata, "kernelspec", "language")
}

// FileExtension returns the language_info file extension, or "".
func (d *Document) FileExtension() string {
	return metaString(d.Metadata, "language_info", "file_extension")
}

// SetLanguageInfo replaces the language_info section wholesale, the way a
// kernel-info reply delivers it.
func (d *Document) SetLanguageInfo(info map[string]any) {
	if d.Metadata == nil {
		d.Metadata = map[string]any{}
	}
	d.Metadata["language_info"] = info
}
