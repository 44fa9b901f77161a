package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"declutter/internal/processor"
)

type SummaryRow struct {
	Label string
	Value string
}

func RenderSummary(rows []SummaryRow) string {
	labelWidth := 0
	valueWidth := 0
	for _, row := range rows {
		if len(row.Label) > labelWidth {
			labelWidth = len(row.Label)
		}
		if len(row.Value) > valueWidth {
			valueWidth = len(row.Value)
		}
	}

	hline := strings.Repeat("-", labelWidth+valueWidth+3)
	lines := []string{hline}

	for _, row := range rows {
		label := padRight(row.Label, labelWidth)
		value := padRight(row.Value, valueWidth)
		line := fmt.Sprintf("%s | %s", labelStyle.Render(label), valueStyle.Render(value))
		lines = append(lines, line)
	}

	lines = append(lines, hline)
	return strings.Join(lines, "\n")
}

// SummaryRows lists the counters of a finished run.
func SummaryRows(report *processor.Report) []SummaryRow {
	s := report.Summary
	rows := []SummaryRow{
		{Label: "Files", Value: strconv.Itoa(s.Files)},
	}
	if report.DryRun {
		return append(rows, SummaryRow{Label: "Planned size", Value: humanize.Bytes(uint64(max(s.Bytes, 0)))})
	}
	return append(rows,
		SummaryRow{Label: "Moved", Value: strconv.Itoa(s.Moved)},
		SummaryRow{Label: "Extracted", Value: strconv.Itoa(s.Extracted)},
		SummaryRow{Label: "Not archives", Value: strconv.Itoa(s.NotArchives)},
		SummaryRow{Label: "Vanished", Value: strconv.Itoa(s.Vanished)},
		SummaryRow{Label: "Failed", Value: strconv.Itoa(s.Failed)},
		SummaryRow{Label: "Dirs removed", Value: strconv.Itoa(s.DirsRemoved)},
		SummaryRow{Label: "Dirs kept", Value: strconv.Itoa(s.DirsKept)},
		SummaryRow{Label: "Sorted size", Value: humanize.Bytes(uint64(max(s.Bytes, 0)))},
	)
}

// RenderReport renders the summary followed by tables of everything that
// needs attention.
func RenderReport(report *processor.Report) string {
	sections := []string{RenderSummary(SummaryRows(report))}

	if len(report.Failures) > 0 {
		sections = append(sections,
			errorStyle.Render(fmt.Sprintf("%d file(s) could not be processed:", len(report.Failures))),
			RenderFailures(report.Root, report.Failures))
	}
	if len(report.NotArchives) > 0 {
		sections = append(sections,
			warnStyle.Render(fmt.Sprintf("%d file(s) named like archives were left in place:", len(report.NotArchives))),
			RenderFailures(report.Root, report.NotArchives))
	}
	if len(report.KeptDirs) > 0 {
		sections = append(sections,
			dimStyle.Render(fmt.Sprintf("%d folder(s) were not empty and were kept:", len(report.KeptDirs))),
			RenderFailures(report.Root, report.KeptDirs))
	}
	if len(report.Failures) == 0 && !report.DryRun {
		sections = append(sections, successStyle.Render("Done."))
	}

	return strings.Join(sections, "\n")
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
