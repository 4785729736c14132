package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	tickDJ        string
	tickPreempt   bool
	tickJSON      bool
)

var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Advance the engine one broadcast tick and print the composition packet",
	Long: `Runs one broadcast tick across all four timelines for the given DJ,
prints the resulting composition packet, and persists the updated state.

Examples:
  deadwave tick --dj dj-mojave-2281
  deadwave tick --dj dj-commonwealth-2287 --preempt --json`,
	RunE: runTick,
}

func init() {
	rootCmd.AddCommand(tickCmd)
	tickCmd.Flags().StringVar(&tickDJ, "dj", "", "DJ profile id to broadcast as (required)")
	tickCmd.Flags().BoolVar(&tickPreempt, "preempt", false, "emit an emergency-preempt packet with no regular beats")
	tickCmd.Flags().BoolVar(&tickJSON, "json", true, "output the packet as JSON (the packet is printed as JSON whether or not this is set)")
	_ = tickCmd.MarkFlagRequired("dj")
}

func runTick(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	eng, roster, err := buildEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Store.Close()

	dj, ok := roster.Find(tickDJ)
	if !ok {
		return fmt.Errorf("no DJ profile %q in roster", tickDJ)
	}

	packet, err := eng.Tick(dj, time.Now(), tickPreempt)
	if err != nil {
		return fmt.Errorf("tick failed: %w", err)
	}

	if err := saveEngine(eng); err != nil {
		return fmt.Errorf("saving state: %w", err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(packet)
}
