// cmd/root.go
package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	seed        int64
	runDuration float64
	warmup      float64
	logLevel    string
	configPath  string
)

var rootCmd = &cobra.Command{
	Use:   "desim",
	Short: "Discrete-event simulation kernel with bundled queueing demos",
}

// Execute runs the root command, exiting non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().Int64Var(&seed, "seed", 1, "Master seed for the partitioned RNG")
	rootCmd.PersistentFlags().Float64Var(&runDuration, "duration", 1000, "Run duration, in simulation ticks")
	rootCmd.PersistentFlags().Float64Var(&warmup, "warmup", 0, "Warm-up period, in simulation ticks (0 disables)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Optional YAML scenario config file")

	rootCmd.AddCommand(mmckCmd, restaurantCmd)
}

func setupLogging() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}
