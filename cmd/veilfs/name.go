package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/veilfs/veilfs/internal/configfile"
	"github.com/veilfs/veilfs/internal/cryptocore"
	"github.com/veilfs/veilfs/internal/exitcodes"
	"github.com/veilfs/veilfs/internal/nametransform"
)

var nameCmd = &cobra.Command{
	Use:   "name",
	Short: "Encode or decode filenames against an unlocked volume",
}

var nameEncodeCmd = &cobra.Command{
	Use:   "encode PATH",
	Short: "Encode a plaintext path, component by component",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return nameXform(args[0], true)
	},
}

var nameDecodeCmd = &cobra.Command{
	Use:   "decode PATH",
	Short: "Decode a ciphertext path, component by component",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return nameXform(args[0], false)
	},
}

// nameXform walks the path components, threading the chain value from the
// volume root down, and prints the transformed path.
func nameXform(p string, encode bool) error {
	cf, err := configfile.Load(viper.GetString("conf"))
	if err != nil {
		return exitcodes.NewErr(fmt.Sprintf("loading volume header: %v", err), exitcodes.LoadConf)
	}
	password, err := readPassword("Password: ")
	if err != nil {
		return err
	}
	c, key, err := cf.UnlockKey(cryptocore.StandardRegistry(), password)
	if err != nil {
		if errors.Is(err, cryptocore.ErrIntegrity) {
			return exitcodes.NewErr("password incorrect", exitcodes.PasswordIncorrect)
		}
		return exitcodes.NewErr(err.Error(), exitcodes.Other)
	}
	defer key.Zero()
	n, err := cf.NameIO(nametransform.StandardRegistry(), c, key)
	if err != nil {
		return exitcodes.NewErr(err.Error(), exitcodes.Other)
	}

	iv := uint64(0)
	var out []string
	for _, comp := range strings.Split(strings.Trim(p, "/"), "/") {
		var res string
		if encode {
			res, err = n.EncodeName(comp, &iv)
		} else {
			res, err = n.DecodeName(comp, &iv)
		}
		if err != nil {
			return exitcodes.NewErr(fmt.Sprintf("component %q: %v", comp, err), exitcodes.InvalidName)
		}
		out = append(out, res)
	}
	fmt.Println(strings.Join(out, "/"))
	return nil
}

func init() {
	nameCmd.AddCommand(nameEncodeCmd)
	nameCmd.AddCommand(nameDecodeCmd)
	rootCmd.AddCommand(nameCmd)
}
