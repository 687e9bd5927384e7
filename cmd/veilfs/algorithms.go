package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veilfs/veilfs/internal/cryptocore"
	"github.com/veilfs/veilfs/internal/nametransform"
	"github.com/veilfs/veilfs/internal/speed"
)

var algorithmsCmd = &cobra.Command{
	Use:   "algorithms",
	Short: "List available ciphers and name codecs",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Ciphers:")
		for _, a := range cryptocore.StandardRegistry().List(false) {
			stream := ""
			if a.HasStreamMode {
				stream = ", stream mode"
			}
			fmt.Printf("  %-10s %v  key %d-%d bits%s\n      %s\n",
				a.Name, a.Iface, a.KeyLength.Min, a.KeyLength.Max, stream, a.Description)
		}
		fmt.Println("Name codecs:")
		for _, c := range nametransform.StandardRegistry().List(false) {
			needs := ""
			if c.NeedsStreamMode {
				needs = "  (needs a stream-mode cipher)"
			}
			fmt.Printf("  %-10s %v%s\n      %s\n", c.Name, c.Iface, needs, c.Description)
		}
	},
}

var speedCmd = &cobra.Command{
	Use:   "speed",
	Short: "Benchmark ciphers and name codecs",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		speed.Run()
	},
}

func init() {
	rootCmd.AddCommand(algorithmsCmd)
	rootCmd.AddCommand(speedCmd)
}
