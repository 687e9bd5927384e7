package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/veilfs/veilfs/internal/exitcodes"
	"github.com/veilfs/veilfs/internal/tlog"
)

// Version is the veilfs version string, set via ldflags on release builds.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   tlog.ProgramName,
	Short: "Filename and key encryption toolkit for encrypted volumes",
	Long: `veilfs manages encrypted volume headers and the filename encryption
layer: create a volume header with a password-wrapped random key, inspect
it, and encode or decode filenames the way the encrypted volume stores
them.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if viper.GetBool("debug") {
			tlog.Debug.Enabled = true
		}
		if viper.GetBool("quiet") {
			tlog.Info.Enabled = false
		}
		if viper.GetBool("wpanic") {
			tlog.Warn.Wpanic = true
		}
	},
}

// Execute runs the CLI and exits the process with a well-defined code on
// error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s%v%s\n", tlog.ColorRed, err, tlog.ColorReset)
		exitcodes.Exit(err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("conf", "c", "veilfs.conf", "path to the volume header")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug output")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "suppress informational output")
	rootCmd.PersistentFlags().Bool("wpanic", false, "turn warnings into panics (for debugging)")

	viper.SetEnvPrefix("VEILFS")
	viper.AutomaticEnv()
	viper.BindPFlag("conf", rootCmd.PersistentFlags().Lookup("conf"))
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	viper.BindPFlag("wpanic", rootCmd.PersistentFlags().Lookup("wpanic"))
}
