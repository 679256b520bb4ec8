package logq

import (
	"fmt"
	"sort"
	"strings"
)

// appendFields renders structured fields in a stable key=value order after
// the message text, the way the log tab expects a single display line.
func appendFields(msg string, fields map[string]any) string {
	if len(fields) == 0 {
		return msg
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(msg)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}
	return b.String()
}
