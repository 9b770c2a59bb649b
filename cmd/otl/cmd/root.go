package cmd

import (
	"fmt"
	"os"

	"github.com/OpenTraceLab/OpenTraceLogic/internal/observability"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose   bool
	logLevel  string
	logFormat string

	logger = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "otl",
	Short: "OpenTraceLogic - protocol decoding for logic analyzer captures",
	Long: `OpenTraceLogic (otl) decodes SPI, I2C and UART traffic from raw logic
analyzer captures and serves the decoded state timelines to viewers.

Examples:
  otl protocols                                     # List decoders and options
  otl simulate spi -o spi.bin --words 0xa5,0x3c     # Write a synthetic capture
  otl decode spi.bin -d "spi ssn:0 sclk:1 mosi:2"   # Decode a raw capture
  otl serve --config session.yaml                   # Serve the query API`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := logLevel
		if verbose {
			level = "debug"
		}
		l, err := observability.InitLogger(os.Stderr, level, logFormat)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", observability.FormatConsole, "log format (console, json)")
}
