// Package output renders command results as a table, JSON or YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// Format selects how results are written.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates the value of --output.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (use table, json or yaml)", s)
	}
}

// Table is the human-readable form of a result. A Table without Headers is
// printed as aligned "key: value" lines.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	// Empty is printed instead of the table when there are no rows.
	Empty string
}

// KV builds a header-less table from key/value pairs.
func KV(title string, pairs ...string) *Table {
	t := &Table{Title: title}
	for i := 0; i+1 < len(pairs); i += 2 {
		t.Rows = append(t.Rows, []string{pairs[i] + ":", pairs[i+1]})
	}
	return t
}

// Renderer writes results in one format.
type Renderer struct {
	w      io.Writer
	format Format
}

// New returns a Renderer writing to w.
func New(w io.Writer, format Format) *Renderer {
	return &Renderer{w: w, format: format}
}

// Format returns the renderer's format.
func (r *Renderer) Format() Format {
	return r.format
}

// Render writes v as JSON or YAML, or t in table mode.
func (r *Renderer) Render(v any, t *Table) error {
	switch r.format {
	case FormatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode JSON output: %w", err)
		}
		_, err = fmt.Fprintln(r.w, string(data))
		return err
	case FormatYAML:
		return r.yaml(v)
	default:
		return r.table(t)
	}
}

// Message prints a confirmation line. It is suppressed in JSON and YAML mode
// so that output stays parseable; those modes render the result instead.
func (r *Renderer) Message(format string, args ...any) {
	if r.format != FormatTable {
		return
	}
	fmt.Fprintf(r.w, format+"\n", args...)
}

func (r *Renderer) table(t *Table) error {
	if t == nil {
		return nil
	}

	if len(t.Rows) == 0 && t.Empty != "" {
		_, err := fmt.Fprintln(r.w, t.Empty)
		return err
	}

	if t.Title != "" {
		fmt.Fprintf(r.w, "%s\n\n", t.Title)
	}

	w := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', 0)
	if len(t.Headers) > 0 {
		fmt.Fprintln(w, strings.Join(t.Headers, "\t"))
		rules := make([]string, len(t.Headers))
		for i, h := range t.Headers {
			rules[i] = strings.Repeat("─", len([]rune(h)))
		}
		fmt.Fprintln(w, strings.Join(rules, "\t"))
	}
	for _, row := range t.Rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	return w.Flush()
}

// yaml goes through JSON so the json tags and custom marshalers of the API
// types decide the field names. Parsing the JSON as YAML keeps field order.
func (r *Renderer) yaml(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode YAML output: %w", err)
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return fmt.Errorf("failed to encode YAML output: %w", err)
	}
	blockStyle(&node)

	enc := yaml.NewEncoder(r.w)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return fmt.Errorf("failed to encode YAML output: %w", err)
	}
	return enc.Close()
}

// blockStyle drops the flow and quoting styles inherited from JSON.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}

// Orf returns s, or "-" when s is empty.
func Orf(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// Ptr formats an optional value, or "-" when it is nil.
func Ptr[T any](p *T) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprint(*p)
}

// Percent formats a 0..1 score as a percentage.
func Percent(score float64) string {
	return fmt.Sprintf("%.0f%%", score*100)
}
