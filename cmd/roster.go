package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Yates-Labs/deadwave/internal/djprofile"
)

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "List configured DJ profiles",
	Long: `Prints every DJ profile in the configured roster: era, in-universe year,
home region, and knowledge tier ceiling.

Examples:
  deadwave roster`,
	RunE: runRoster,
}

func init() {
	rootCmd.AddCommand(rosterCmd)
}

func runRoster(cmd *cobra.Command, args []string) error {
	roster, err := djprofile.LoadRoster(cfg.App.DJRosterPath)
	if err != nil {
		return fmt.Errorf("loading DJ roster: %w", err)
	}
	var (
		idColor     = lipgloss.Color("#BD93F9")
		valueColor  = lipgloss.Color("#E9E9F4")
		borderColor = lipgloss.Color("#6272A4")
	)

	const (
		idWidth     = 24
		eraWidth    = 14
		yearWidth   = 6
		regionWidth = 16
		tierWidth   = 12
	)

	headerStyle := lipgloss.NewStyle().Foreground(idColor).Bold(true).Padding(0, 1)
	borderStyle := lipgloss.NewStyle().Foreground(borderColor)

	headers := []string{
		headerStyle.Width(idWidth).Render("DJ"),
		headerStyle.Width(eraWidth).Render("ERA"),
		headerStyle.Width(yearWidth).Render("YEAR"),
		headerStyle.Width(regionWidth).Render("REGION"),
		headerStyle.Width(tierWidth).Render("TIER CEILING"),
	}
	fmt.Println(strings.Join(headers, borderStyle.Render("│")))

	idStyle := lipgloss.NewStyle().Foreground(idColor).Padding(0, 1).Width(idWidth)
	valStyle := lipgloss.NewStyle().Foreground(valueColor).Padding(0, 1)

	for _, dj := range roster.DJs {
		cells := []string{
			idStyle.Render(dj.ID),
			valStyle.Width(eraWidth).Render(dj.Era),
			valStyle.Width(yearWidth).Align(lipgloss.Right).Render(fmt.Sprintf("%d", dj.Year)),
			valStyle.Width(regionWidth).Render(dj.Region),
			valStyle.Width(tierWidth).Render(string(dj.KnowledgeTierCeiling)),
		}
		fmt.Println(strings.Join(cells, borderStyle.Render("│")))
	}

	return nil
}
