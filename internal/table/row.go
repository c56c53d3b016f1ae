// Package table reads and writes the delimited location table.
package table

import "strings"

// ParseRow splits one table line into fields. A double quote toggles quoted
// mode, and a comma outside quotes ends the field. Inside a quoted field a
// doubled quote yields one literal quote. Each field is trimmed. Quotes that
// toggle quoted mode are never kept, so literal quotes at either end of a
// field survive.
func ParseRow(line string) []string {
	var fields []string
	var cur strings.Builder
	inQuotes := false

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"' && inQuotes && i+1 < len(line) && line[i+1] == '"':
			cur.WriteByte('"')
			i++
		case c == '"':
			inQuotes = !inQuotes
		case c == ',' && !inQuotes:
			fields = append(fields, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	fields = append(fields, strings.TrimSpace(cur.String()))
	return fields
}

// FormatRow joins fields into one line, quoting only fields that contain a
// comma or a quote.
func FormatRow(fields []string) string {
	out := make([]string, len(fields))
	for i, f := range fields {
		if strings.ContainsAny(f, `,"`) {
			out[i] = QuoteField(f)
			continue
		}
		out[i] = f
	}
	return strings.Join(out, ",")
}

// QuoteField wraps s in double quotes, doubling any internal quotes.
func QuoteField(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// SplitLines splits table text into lines, tolerating CRLF and a trailing
// newline.
func SplitLines(text string) []string {
	text = strings.ReplaceAll(strings.TrimSpace(text), "\r\n", "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
