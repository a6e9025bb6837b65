package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// TableFormatter formats output as aligned text tables.
type TableFormatter struct{}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{}
}

// Name returns the formatter name.
func (f *TableFormatter) Name() string {
	return "table"
}

// Format writes one row per record, with upper-cased column headers.
func (f *TableFormatter) Format(w io.Writer, t Table, opts Options) error {
	if len(t.Rows) == 0 {
		kind := t.Kind
		if kind == "" {
			kind = "records"
		}
		fmt.Fprintf(w, "No %s found.\n", kind)
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if !opts.NoHeader {
		headers := make([]string, len(t.Columns))
		for i, col := range t.Columns {
			headers[i] = strings.ToUpper(col)
		}
		fmt.Fprintln(tw, strings.Join(headers, "\t"))
	}

	for _, row := range t.Rows {
		values := make([]string, len(t.Columns))
		for i, col := range t.Columns {
			values[i] = formatValue(row[col], opts.MaxWidth)
		}
		fmt.Fprintln(tw, strings.Join(values, "\t"))
	}

	return tw.Flush()
}

// formatValue formats a value for a table cell.
func formatValue(val any, maxWidth int) string {
	if val == nil {
		return "-"
	}

	var str string
	switch v := val.(type) {
	case string:
		str = v
	case []string:
		str = strings.Join(v, ",")
	case bool:
		if v {
			str = "yes"
		} else {
			str = "no"
		}
	case int:
		str = fmt.Sprintf("%d", v)
	case float64:
		if v == float64(int64(v)) {
			str = fmt.Sprintf("%d", int64(v))
		} else {
			str = fmt.Sprintf("%.2f", v)
		}
	case fmt.Stringer:
		str = v.String()
	default:
		b, _ := json.Marshal(v)
		str = string(b)
	}

	if str == "" {
		str = "-"
	}
	if maxWidth > 3 && len(str) > maxWidth {
		str = str[:maxWidth-3] + "..."
	}
	return str
}
