package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("fxterm version %s\n", version)
		fmt.Println("A simulated FX trading terminal")
		fmt.Println("https://github.com/rustyeddy/fxterm")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
