package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Yates-Labs/deadwave/internal/story"
)

var extractDJ string

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Run the Story Extractor against the lore store and refresh the timeline pools",
	Long: `Mines quest and event content from the lore knowledge base for the given
DJ's temporal and spatial bounds, validates it against canon and the DJ's
knowledge ceiling, scores its narrative weight, and admits the survivors
into their assigned timeline's pool.

Examples:
  deadwave extract --dj dj-mojave-2281`,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().StringVar(&extractDJ, "dj", "", "DJ profile id to extract for (required)")
	_ = extractCmd.MarkFlagRequired("dj")
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	eng, roster, err := buildEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Store.Close()

	dj, ok := roster.Find(extractDJ)
	if !ok {
		return fmt.Errorf("no DJ profile %q in roster", extractDJ)
	}

	if err := eng.RefreshPools(ctx, dj, cfg.Scheduler.ExtractionLimit); err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	if err := saveEngine(eng); err != nil {
		return fmt.Errorf("saving state: %w", err)
	}

	for _, t := range story.TimelineOrder {
		fmt.Printf("%-8s pool now holds %d stories\n", t, len(eng.State.Pool(t)))
	}
	return nil
}
