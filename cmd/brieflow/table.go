package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// renderTable draws rows under headers. Rows shorter than the header are
// padded; extra cells are dropped. A trailing row whose first cell is
// "Total" becomes the table footer.
func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	if len(headers) == 0 {
		return ""
	}
	toRow := func(cells []string) table.Row {
		row := make(table.Row, len(headers))
		for i := range row {
			if i < len(cells) {
				row[i] = cells[i]
			}
		}
		return row
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Footer = text.FormatDefault
	tw.AppendHeader(toRow(headers))
	if n := len(rows); n > 1 && len(rows[n-1]) > 0 && rows[n-1][0] == "Total" {
		tw.AppendFooter(toRow(rows[n-1]))
		rows = rows[:n-1]
	}
	for _, cells := range rows {
		tw.AppendRow(toRow(cells))
	}

	configs := make([]table.ColumnConfig, len(headers))
	for i := range configs {
		configs[i] = table.ColumnConfig{Number: i + 1, AlignHeader: text.AlignLeft}
		if i < len(aligns) && aligns[i] == alignRight {
			configs[i].Align = text.AlignRight
			configs[i].AlignFooter = text.AlignRight
		}
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}
