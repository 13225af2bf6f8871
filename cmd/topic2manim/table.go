package main

import (
	"strconv"

	prettytable "github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// listTable collects rows for the rounded tables printed by the list
// commands. Short rows are padded and surplus cells dropped.
type listTable struct {
	headers []string
	right   map[int]bool
	rows    []prettytable.Row
	footer  string
}

func newListTable(headers ...string) *listTable {
	return &listTable{headers: headers, right: map[int]bool{}}
}

// alignRight right-aligns the given zero-based columns.
func (t *listTable) alignRight(columns ...int) *listTable {
	for _, c := range columns {
		t.right[c] = true
	}
	return t
}

func (t *listTable) addRow(cells ...string) {
	row := make(prettytable.Row, len(t.headers))
	for i := range row {
		if i < len(cells) {
			row[i] = cells[i]
		} else {
			row[i] = ""
		}
	}
	t.rows = append(t.rows, row)
}

// setFooter prints summary text under the first column, as typed.
func (t *listTable) setFooter(summary string) {
	t.footer = summary
}

func (t *listTable) render() string {
	if len(t.headers) == 0 {
		return ""
	}

	style := prettytable.StyleRounded
	style.Format.Footer = text.FormatDefault
	tw := prettytable.NewWriter()
	tw.SetStyle(style)

	header := make(prettytable.Row, len(t.headers))
	for i, h := range t.headers {
		header[i] = h
	}
	tw.AppendHeader(header)
	tw.AppendRows(t.rows)
	if t.footer != "" {
		footer := make(prettytable.Row, len(t.headers))
		footer[0] = t.footer
		tw.AppendFooter(footer)
	}

	configs := make([]prettytable.ColumnConfig, 0, len(t.headers))
	for i := range t.headers {
		align := text.AlignLeft
		if t.right[i] {
			align = text.AlignRight
		}
		configs = append(configs, prettytable.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
			AlignFooter: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}
