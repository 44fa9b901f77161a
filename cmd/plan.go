package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"declutter/internal/tui"
)

var planCmd = &cobra.Command{
	Use:   "plan <folder>",
	Short: "Show where every file would go without changing anything",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := organize(cmd, args[0], true)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(report.Results) == 0 {
			fmt.Fprintln(out, planDimStyle.Render("Nothing to sort."))
			return nil
		}

		fmt.Fprintln(out, planTitleStyle.Render(report.Root))
		fmt.Fprintln(out, tui.RenderPlan(report))
		fmt.Fprintln(out, tui.RenderReport(report))
		fmt.Fprintln(out, planDimStyle.Render("Nothing was changed. Archives are checked when they are unpacked."))
		return nil
	},
}

var (
	planTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(tui.ColorAccent)
	planDimStyle   = lipgloss.NewStyle().Foreground(tui.ColorDim)
)

func init() {
	rootCmd.AddCommand(planCmd)
}
