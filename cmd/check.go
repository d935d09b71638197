package cmd

import (
	"github.com/spf13/cobra"

	"github.com/structrel/calfactor/internal/calib"
	"github.com/structrel/calfactor/internal/config"
)

var (
	checkFile    string
	checkFactors string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify a factor set against the target reliability",
	Long: `Run the forward design check for a load combination problem using an
externally supplied factor set, without calibrating.

The factors file holds one phi/gamma/psi value per variable, applied across
all load cases, the format an outer optimization across several problems
would produce.

Example:
  calfactor check -f problem.yaml --factors factors.yaml`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVarP(&checkFile, "file", "f", "", "Problem definition YAML file [required]")
	checkCmd.Flags().StringVar(&checkFactors, "factors", "", "Factor override YAML file [required]")

	checkCmd.MarkFlagRequired("file")
	checkCmd.MarkFlagRequired("factors")
}

func runCheck(cmd *cobra.Command, args []string) error {
	problem, err := config.Load(checkFile)
	if err != nil {
		return err
	}
	lc, cfg, err := problem.Build()
	if err != nil {
		return err
	}
	cal, err := calib.New(lc, cfg)
	if err != nil {
		return err
	}

	factors, err := config.LoadFactors(checkFactors)
	if err != nil {
		return err
	}
	phi, gamma, psi, err := factors.Tables(lc.CaseNames(), lc.ResistanceNames(), lc.LoadNames())
	if err != nil {
		return err
	}
	if err := cal.SetFactors(phi, gamma, psi); err != nil {
		return err
	}

	check, err := cal.CheckDesign()
	if err != nil {
		return err
	}
	printDesignCheck(check)
	return nil
}
