package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/structrel/calfactor/internal/calib"
	"github.com/structrel/calfactor/internal/config"
	"github.com/structrel/calfactor/internal/report"
)

var (
	calibrateFile      string
	calibrateMethod    string
	calibrateEstimator string
	calibrateSetMax    bool
	calibrateXLSX      string
	calibratePDF       string
	calibratePlot      string
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Calibrate partial safety factors for a load combination problem",
	Long: `Calibrate the design parameter of every load case to the target
reliability index, estimate the phi, gamma, and psi factor tables from the
calibrated design points, and verify the resulting design by forward FORM
analysis.

Examples:
  # Calibrate using the default optimize/matrix algorithms
  calfactor calibrate -f problem.yaml

  # Alpha-projection calibration with coefficient estimation and exports
  calfactor calibrate -f problem.yaml --method alpha --estimator coeff \
      --xlsx factors.xlsx --pdf report.pdf --plot betas.png`,
	RunE: runCalibrate,
}

func init() {
	rootCmd.AddCommand(calibrateCmd)

	calibrateCmd.Flags().StringVarP(&calibrateFile, "file", "f", "", "Problem definition YAML file [required]")
	calibrateCmd.Flags().StringVar(&calibrateMethod, "method", "", "Calibration method override: optimize or alpha")
	calibrateCmd.Flags().StringVar(&calibrateEstimator, "estimator", "", "Estimation method override: matrix or coeff")
	calibrateCmd.Flags().BoolVar(&calibrateSetMax, "set-max", false, "Collapse case-varying factors to their maxima")
	calibrateCmd.Flags().StringVar(&calibrateXLSX, "xlsx", "", "Export factor tables to a spreadsheet")
	calibrateCmd.Flags().StringVar(&calibratePDF, "pdf", "", "Export a PDF calibration report")
	calibrateCmd.Flags().StringVar(&calibratePlot, "plot", "", "Export a design reliability chart (png, svg, pdf)")

	calibrateCmd.MarkFlagRequired("file")
}

func runCalibrate(cmd *cobra.Command, args []string) error {
	problem, err := config.Load(calibrateFile)
	if err != nil {
		return err
	}
	if calibrateMethod != "" {
		problem.Calibration = calibrateMethod
	}
	if calibrateEstimator != "" {
		problem.Estimation = calibrateEstimator
	}
	if calibrateSetMax {
		problem.SetMax = true
	}

	lc, cfg, err := problem.Build()
	if err != nil {
		return err
	}
	cal, err := calib.New(lc, cfg)
	if err != nil {
		return err
	}
	if err := cal.Run(); err != nil {
		return err
	}
	check, err := cal.CheckDesign()
	if err != nil {
		return err
	}

	printCalibration(cal, check)

	if verbose {
		for _, cs := range lc.CaseNames() {
			if chart := report.ConvergenceChart(cal.History(cs), cal.TargetBeta()); chart != "" {
				fmt.Printf("\nCASE %s:\n%s\n", cs, chart)
			}
		}
	}

	data := &report.Data{
		TargetBeta:   cal.TargetBeta(),
		Cases:        check.Cases,
		DesignPoints: cal.DesignPoints(),
		Phi:          cal.Phi(),
		Gamma:        cal.Gamma(),
		Psi:          cal.Psi(),
		CaseZ:        check.CaseZ,
		DesignZ:      check.DesignZ,
		DesignBetas:  check.Betas,
	}
	if calibrateXLSX != "" {
		if err := report.WriteXLSX(calibrateXLSX, data); err != nil {
			return err
		}
		fmt.Printf("Factor tables exported to: %s\n", calibrateXLSX)
	}
	if calibratePDF != "" {
		if err := report.WritePDF(calibratePDF, data); err != nil {
			return err
		}
		fmt.Printf("Report exported to: %s\n", calibratePDF)
	}
	if calibratePlot != "" {
		if err := report.SaveBetaPlot(calibratePlot, check.Cases, check.Betas, check.TargetBeta); err != nil {
			return err
		}
		fmt.Printf("Reliability chart exported to: %s\n", calibratePlot)
	}
	return nil
}

func printCalibration(cal *calib.Calibration, check *calib.DesignCheck) {
	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Println("     PARTIAL SAFETY FACTOR CALIBRATION")
	fmt.Println("═══════════════════════════════════════════════════════════════")

	fmt.Println()
	fmt.Println("DESIGN POINTS (X*):")
	fmt.Println("───────────────────────────────────────────────────────────────")
	fmt.Print(cal.DesignPoints().String())

	fmt.Println()
	fmt.Println("RESISTANCE FACTORS (phi):")
	fmt.Println("───────────────────────────────────────────────────────────────")
	fmt.Print(cal.Phi().String())

	fmt.Println()
	fmt.Println("LOAD FACTORS (gamma):")
	fmt.Println("───────────────────────────────────────────────────────────────")
	fmt.Print(cal.Gamma().String())

	fmt.Println()
	fmt.Println("COMBINATION FACTORS (psi):")
	fmt.Println("───────────────────────────────────────────────────────────────")
	fmt.Print(cal.Psi().String())

	printDesignCheck(check)
}

func printDesignCheck(check *calib.DesignCheck) {
	fmt.Println()
	fmt.Println("DESIGN CHECK:")
	fmt.Println("───────────────────────────────────────────────────────────────")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  Case\tz\tbeta\ttarget\n")
	for i, cs := range check.Cases {
		marker := "✓"
		if check.Betas[i] < check.TargetBeta-1e-3 {
			marker = "✗"
		}
		fmt.Fprintf(w, "  %s\t%.4f\t%.3f\t%.2f %s\n", cs, check.CaseZ[i], check.Betas[i], check.TargetBeta, marker)
	}
	w.Flush()
	fmt.Println()
	fmt.Printf("  Governing design parameter z = %.4f\n", check.DesignZ)
	if check.Passed {
		fmt.Println("  Status: DESIGN OK, all load cases meet the target reliability")
	} else {
		fmt.Printf("  Status: DESIGN FAILS for cases %v\n", check.Failing)
	}
	fmt.Println()
}
