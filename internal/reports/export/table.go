package export

import (
	"fmt"
	"strconv"
	"time"
)

// Column maps a row key to its header label.
type Column struct {
	Key   string
	Label string
	// Width is the spreadsheet column width; zero sizes from content.
	Width float64
}

// Table is a dataset ready for export.
type Table struct {
	Name    string
	Columns []Column
	Rows    []map[string]interface{}
}

func (t *Table) Labels() []string {
	labels := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		labels[i] = c.Label
	}
	return labels
}

// formatValue renders a cell for text formats.
func formatValue(val interface{}, dateFormat string) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		if v {
			return "true"
		}
		return "false"
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.Format(dateFormat)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
