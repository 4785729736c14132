package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Yates-Labs/deadwave/internal/config"
)

var (
	cfgFile string
	cfg     *config.Config
	log     zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "deadwave",
	Short: "Deadwave - multi-temporal story subsystem for a wasteland radio station",
	Long: `Deadwave mines a lore knowledge base for stories and broadcasts them across
four timelines at once: daily rumor, weekly arc, monthly saga, yearly epoch.

It extracts candidate stories from a vector store, validates them against
canon and each DJ's knowledge boundaries, schedules their beats across
ticks, and weaves the result into composition packets for the broadcast
generator.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded

		level, err := zerolog.ParseLevel(cfg.Logging.Level)
		if err != nil {
			level = zerolog.InfoLevel
		}
		zerolog.SetGlobalLevel(level)

		if cfg.Logging.Pretty {
			log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
		} else {
			log = zerolog.New(os.Stderr).With().Timestamp().Logger()
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to deadwave config file")
}
