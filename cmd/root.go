package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/structrel/calfactor/internal/version"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "calfactor",
	Short: "Partial Safety Factor Calibration Tool",
	Long: `calfactor - Code Calibration for Structural Design

A CLI tool for calibrating the partial safety factors of structural design
codes: the resistance factor phi, the load factors gamma, and the load
combination factors psi, such that designs following the code equation

    z * phi * Rk >= sum( psi_i * gamma_i * Sk_i )

achieve a target reliability index across all governing load cases.

The tool runs first-order reliability (FORM) analyses per load case,
calibrates the design parameter to the target reliability, estimates the
factors from the calibrated design points, and verifies the resulting
design by forward analysis.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println()
		fmt.Printf("  calfactor v%s - partial safety factor calibration\n", version.Version)
		fmt.Println()
		fmt.Println("  Features:")
		fmt.Println("    • Per-case design point calibration to a target reliability index")
		fmt.Println("    • Factor estimation by matrix or coefficient comparison methods")
		fmt.Println("    • Forward design verification across all load cases")
		fmt.Println("    • Spreadsheet, PDF and chart exports of the factor tables")
		fmt.Println()
		fmt.Println("  Use 'calfactor --help' to see available commands.")
		fmt.Println()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug output of calibration iterations")
}
