package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/veilfs/veilfs/internal/configfile"
	"github.com/veilfs/veilfs/internal/cryptocore"
	"github.com/veilfs/veilfs/internal/exitcodes"
	"github.com/veilfs/veilfs/internal/nametransform"
	"github.com/veilfs/veilfs/internal/tlog"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a new volume header",
	Long: `init generates a random volume key, wraps it under a password-derived
key and writes the volume header. The key derivation iteration count is
calibrated on this machine and persisted in the header.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readNewPassword()
		if err != nil {
			return err
		}
		cf, err := configfile.Create(cryptocore.StandardRegistry(), nametransform.StandardRegistry(),
			configfile.CreateArgs{
				Filename:    viper.GetString("conf"),
				Password:    password,
				Cipher:      viper.GetString("cipher"),
				KeyBits:     viper.GetInt("keybits"),
				NameCodec:   viper.GetString("namecodec"),
				Creator:     "veilfs " + Version,
				KDFDuration: viper.GetDuration("kdf-duration"),
			})
		if err != nil {
			return exitcodes.NewErr(fmt.Sprintf("creating volume header: %v", err), exitcodes.Init)
		}
		tlog.Info.Printf("Volume %s created with cipher %v, name codec %v, %d KDF iterations",
			cf.VolumeID, cf.Cipher, cf.NameCodec, cf.KDFIterations)
		return nil
	},
}

func init() {
	initCmd.Flags().String("cipher", "aes", "cipher algorithm (see \"veilfs algorithms\")")
	initCmd.Flags().Int("keybits", 0, "key length in bits, 0 selects the cipher default")
	initCmd.Flags().String("namecodec", "block", "filename codec (see \"veilfs algorithms\")")
	initCmd.Flags().Duration("kdf-duration", configfile.DefaultKDFDuration,
		"calibration budget for the password key derivation")
	viper.BindPFlag("cipher", initCmd.Flags().Lookup("cipher"))
	viper.BindPFlag("keybits", initCmd.Flags().Lookup("keybits"))
	viper.BindPFlag("namecodec", initCmd.Flags().Lookup("namecodec"))
	viper.BindPFlag("kdf-duration", initCmd.Flags().Lookup("kdf-duration"))
	rootCmd.AddCommand(initCmd)
}
