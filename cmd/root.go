package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/adaptive/cmd/perf"
	"github.com/ValentinKolb/adaptive/cmd/stress"
	"github.com/ValentinKolb/adaptive/cmd/util"
	"github.com/ValentinKolb/adaptive/lib/adaptive"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "adaptive",
		Short: "adaptive copy-on-write containers",
		Long: fmt.Sprintf(`adaptive (v%s)

Tools for the adaptive containers: thread-safe lists and maps that switch
at runtime between a locked mode and a lock-free copy-on-write mode.`, Version),
		SilenceUsage:      true,
		PersistentPreRunE: initLogging,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of adaptive",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("adaptive v%s\n", Version)
		},
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(perf.PerfCmd)
	RootCmd.AddCommand(stress.StressCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "log-level"
	RootCmd.PersistentFlags().String(key, "info", util.WrapString("Log level (debug, info, warn, error)"))
}

// initLogging installs the log format for the library and the tools
func initLogging(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlag("log-level", cmd.Flags().Lookup("log-level")); err != nil {
		return err
	}
	return adaptive.InitLoggers(viper.GetString("log-level"), os.Stdout, perf.LoggerName, stress.LoggerName)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
