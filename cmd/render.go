package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theapemachine/goldmine/pkg/distill"
)

var (
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	agentStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	scoreStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	categoryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// renderReport formats a run report for the console.
func renderReport(report *distill.RunReport) string {
	var builder strings.Builder

	builder.WriteString(titleStyle.Render(fmt.Sprintf("run %s", report.RunID)))
	builder.WriteString("\n")
	builder.WriteString(fmt.Sprintf(
		"processed %d  kept %d  discarded %d\n",
		report.Processed, report.Kept, report.Discarded,
	))

	for _, agent := range report.Agents {
		builder.WriteString("\n")
		builder.WriteString(agentStyle.Render(agent.Agent))
		builder.WriteString(fmt.Sprintf("  processed %d, kept %d\n", agent.Processed, agent.Kept))

		for _, entry := range agent.Preview {
			builder.WriteString(fmt.Sprintf(
				"  %s %s %s\n",
				scoreStyle.Render(fmt.Sprintf("%3d", entry.Score)),
				categoryStyle.Render(string(entry.Category)),
				dimStyle.Render(entry.Text),
			))
		}
	}

	if report.SnapshotPath != "" {
		builder.WriteString("\n")
		builder.WriteString(fmt.Sprintf("snapshot: %s\n", report.SnapshotPath))
	}

	return builder.String()
}
