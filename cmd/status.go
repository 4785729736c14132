package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Yates-Labs/deadwave/internal/story"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pool and active-story state for every timeline",
	Long: `Prints a per-timeline table: pool size, the active story's id and act
progression (if any), its simulated engagement score, and its cooldown.

Examples:
  deadwave status`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	eng, _, err := buildEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer eng.Store.Close()

	var (
		timelineColor = lipgloss.Color("#BD93F9") // Purple
		numberColor   = lipgloss.Color("#FF79C6") // Pink
		storyColor    = lipgloss.Color("#E9E9F4") // Light purple/white
		borderColor   = lipgloss.Color("#6272A4") // Muted purple
	)

	const (
		timelineWidth = 10
		poolWidth     = 6
		activeWidth   = 28
		progressWidth = 10
		engagementWidth = 11
		cooldownWidth = 9
	)

	headerStyle := lipgloss.NewStyle().Foreground(timelineColor).Bold(true).Padding(0, 1)
	borderStyle := lipgloss.NewStyle().Foreground(borderColor)

	headers := []string{
		headerStyle.Width(timelineWidth).Render("TIMELINE"),
		headerStyle.Width(poolWidth).Render("POOL"),
		headerStyle.Width(activeWidth).Render("ACTIVE STORY"),
		headerStyle.Width(progressWidth).Render("PROGRESS"),
		headerStyle.Width(engagementWidth).Render("ENGAGEMENT"),
		headerStyle.Width(cooldownWidth).Render("COOLDOWN"),
	}
	fmt.Println(strings.Join(headers, borderStyle.Render("│")))

	sep := []string{
		strings.Repeat("─", timelineWidth), strings.Repeat("─", poolWidth),
		strings.Repeat("─", activeWidth), strings.Repeat("─", progressWidth),
		strings.Repeat("─", engagementWidth), strings.Repeat("─", cooldownWidth),
	}
	fmt.Println(borderStyle.Render(strings.Join(sep, "┼")))

	timelineStyle := lipgloss.NewStyle().Foreground(timelineColor).Padding(0, 1).Width(timelineWidth)
	numStyle := lipgloss.NewStyle().Foreground(numberColor).Padding(0, 1).Width(poolWidth).Align(lipgloss.Right)
	activeStyle := lipgloss.NewStyle().Foreground(storyColor).Padding(0, 1).Width(activeWidth)
	progressStyle := lipgloss.NewStyle().Foreground(storyColor).Padding(0, 1).Width(progressWidth)
	engagementStyle := lipgloss.NewStyle().Foreground(numberColor).Padding(0, 1).Width(engagementWidth).Align(lipgloss.Right)
	cooldownStyle := lipgloss.NewStyle().Foreground(numberColor).Padding(0, 1).Width(cooldownWidth).Align(lipgloss.Right)

	for _, t := range story.TimelineOrder {
		activeID := "-"
		progress := "-"
		engagement := "-"

		if a := eng.State.Active(t); a != nil {
			activeID = a.StoryID
			progress = fmt.Sprintf("act %d", a.CurrentActIndex)
			engagement = fmt.Sprintf("%.2f", a.EngagementScore)
		}

		cells := []string{
			timelineStyle.Render(string(t)),
			numStyle.Render(fmt.Sprintf("%d", len(eng.State.Pool(t)))),
			activeStyle.Render(activeID),
			progressStyle.Render(progress),
			engagementStyle.Render(engagement),
			cooldownStyle.Render(fmt.Sprintf("%d", eng.State.Cooldown(t))),
		}
		fmt.Println(strings.Join(cells, borderStyle.Render("│")))
	}

	return nil
}
