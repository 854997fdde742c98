package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "uco-udo-recon",
	Short: "UCO to UDO quarterly reconciliation tool",
	Long: `uco-udo-recon reconciles a component's Unfilled Customer Orders against
its trading partners' Undelivered Orders. It annotates a copy of the
quarterly reconciliation workbook with tickmarks and verification
formulas, cross-referencing the Certification sheet, the component's
trial balance and the UCO to UDO TIER extract.

Examples:
  uco-udo-recon reconcile --target-file recon.xlsx --trial-balance-file tb.xlsx \
    --uco-file tier.xlsx --component FEM --skip-recalc
  uco-udo-recon reconcile -t recon.xlsx -b tb.xlsx -u tier.xlsx -c CBP \
    --recalc-cmd "libreoffice,--headless,--convert-to,xlsx,{path}" --output-format json
  uco-udo-recon version`,
	Version:       getVersionString(),
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command and maps the outcome to a process exit
// code. This is called by main.main().
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		return NewCLIErrorHandler().HandleError(err)
	}
	return 0
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Bind flags to viper
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and ENV variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)

		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
			os.Exit(1)
		}

		if viper.GetBool("verbose") {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	}

	// Read environment variables that match
	viper.SetEnvPrefix("UCO_UDO_RECON")
	viper.AutomaticEnv()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	}
	return version
}
