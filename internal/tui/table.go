package tui

import (
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"declutter/internal/processor"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

// RenderPlan lists where every file of a dry run would go.
func RenderPlan(report *processor.Report) string {
	rows := make([][]string, 0, len(report.Results))
	for _, res := range report.Results {
		dest := relative(report.Root, res.Dest)
		if res.Err != nil {
			dest = res.Err.Error()
		}
		rows = append(rows, []string{
			res.Entry.RelPath,
			res.Classification.Category.String(),
			dest,
			humanize.Bytes(uint64(max(res.Entry.Size, 0))),
		})
	}
	return renderTable(
		[]string{"File", "Category", "Destination", "Size"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
	)
}

// RenderFailures lists failed paths relative to root.
func RenderFailures(root string, failures []processor.Failure) string {
	rows := make([][]string, 0, len(failures))
	for _, f := range failures {
		reason := ""
		if f.Err != nil {
			reason, _, _ = strings.Cut(f.Err.Error(), "\n")
		}
		rows = append(rows, []string{relative(root, f.Path), f.Kind, reason})
	}
	return renderTable([]string{"Path", "Kind", "Reason"}, rows, nil)
}

func relative(root, path string) string {
	if path == "" {
		return ""
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return rel
}
