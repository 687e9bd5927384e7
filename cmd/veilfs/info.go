package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/veilfs/veilfs/internal/configfile"
	"github.com/veilfs/veilfs/internal/exitcodes"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show volume header details",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cf, err := configfile.Load(viper.GetString("conf"))
		if err != nil {
			return exitcodes.NewErr(fmt.Sprintf("loading volume header: %v", err), exitcodes.LoadConf)
		}
		fmt.Printf("Creator:        %s\n", cf.Creator)
		fmt.Printf("Version:        %d\n", cf.Version)
		fmt.Printf("Volume ID:      %s\n", cf.VolumeID)
		fmt.Printf("Cipher:         %v, %d bit key\n", cf.Cipher, cf.KeySize)
		fmt.Printf("Name codec:     %v\n", cf.NameCodec)
		fmt.Printf("KDF iterations: %d\n", cf.KDFIterations)
		fmt.Printf("Feature flags:  %v\n", cf.FeatureFlags)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
