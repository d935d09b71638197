package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/structrel/calfactor/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of calfactor",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("calfactor v%s\n", version.Version)
		fmt.Println("Partial Safety Factor Calibration Tool")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
