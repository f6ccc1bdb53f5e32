package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

func writeJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// formatValues renders values on one line, eliding the middle of long
// arrays.
func formatValues(vals []float64, limit int) string {
	parts := make([]string, 0, min(len(vals), limit+1))
	for i, v := range vals {
		if len(vals) > limit && i == limit/2 {
			parts = append(parts, "...")
		}
		if len(vals) > limit && i >= limit/2 && i < len(vals)-limit/2 {
			continue
		}
		parts = append(parts, strconv.FormatFloat(v, 'g', -1, 64))
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func formatAny(v any) string {
	switch x := v.(type) {
	case nil:
		return "<none>"
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		return strconv.Quote(x)
	}
	return fmt.Sprint(v)
}
