package commands

import (
	"fmt"
	"os"

	"grow_controller/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "grow_controller",
	Short: "Greenhouse climate controller and scheduler",
	Long: `Reads the sensor boards over serial, runs the climate control laws,
the light and irrigation schedules, and drives the actuator controller.

The operator GUI and the actuator controller connect over websockets; the
REST API exposes state, schedules and history.`,
	SilenceUsage: true,
}

func init() {
	config.Bind(viper.GetViper())

	rootCmd.PersistentFlags().StringP(config.KeyConfig, "c", "", "Path to a config file (default configs/config.yml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
	_ = viper.BindPFlag(config.KeyConfig, rootCmd.PersistentFlags().Lookup(config.KeyConfig))
	_ = viper.BindPFlag(config.KeyLogLevel, rootCmd.PersistentFlags().Lookup("log-level"))
}

// Execute is the main entry point for the cobra commands.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
