package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"uco-udo-recon/cmd/uco-udo-recon/config"
	"uco-udo-recon/internal/engine"
	"uco-udo-recon/internal/models"
	"uco-udo-recon/internal/reporter"
	"uco-udo-recon/internal/worker"
	reconerrors "uco-udo-recon/pkg/errors"
	"uco-udo-recon/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the reconcile command
var (
	targetFile       string
	trialBalanceFile string
	ucoFile          string
	component        string
	outputFormat     string
	outputFile       string
	recalcCmd        []string
	skipRecalc       bool
	logDir           string
	showProgress     bool
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile a component's UCO against its partners' UDO",
	Long: `Reconcile copies the target reconciliation workbook, imports the
component's trial balance sheet and the UCO to UDO TIER extract into
the copy, and annotates it with tickmarks and verification formulas.

This command requires:
- The target reconciliation workbook (xlsx)
- The trial balance workbook containing the "<component> Total" sheet
- The TIER workbook containing the "UCO to UDO" sheet

The copy is recalculated before its cached values are read. Pass
--recalc-cmd with a spreadsheet engine command ({path} is substituted
with the workbook path), or --skip-recalc when cached values are
already current.

Examples:
  # Reconcile FEMA with cached values taken as-is
  uco-udo-recon reconcile -t recon.xlsx -b tb.xlsx -u tier.xlsx -c FEM --skip-recalc

  # Recalculate through LibreOffice, write a JSON report to a file
  uco-udo-recon reconcile -t recon.xlsx -b tb.xlsx -u tier.xlsx -c CBP \
    --recalc-cmd "soffice,--headless,--calc,{path}" \
    --output-format json --output-file run.json

  # Keep a debug log of the run
  uco-udo-recon reconcile -t recon.xlsx -b tb.xlsx -u tier.xlsx -c TSA \
    --skip-recalc --log-dir ./logs --progress`,

	PreRunE: validateReconcileFlags,
	RunE:    runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	// Required flags
	reconcileCmd.Flags().StringVarP(&targetFile, "target-file", "t", "", "path to the target reconciliation workbook (required)")
	reconcileCmd.Flags().StringVarP(&trialBalanceFile, "trial-balance-file", "b", "", "path to the trial balance workbook (required)")
	reconcileCmd.Flags().StringVarP(&ucoFile, "uco-file", "u", "", "path to the UCO to UDO TIER workbook (required)")
	reconcileCmd.Flags().StringVarP(&component, "component", "c", "", "TIER component code to reconcile (required)")

	// Output flags
	reconcileCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "report format: console, json")
	reconcileCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "report file path (default: stdout)")

	// Recalculation flags
	reconcileCmd.Flags().StringSliceVar(&recalcCmd, "recalc-cmd", []string{}, "spreadsheet engine command for recalculation, comma-separated ({path} substituted)")
	reconcileCmd.Flags().BoolVar(&skipRecalc, "skip-recalc", false, "skip recalculation and trust cached values")

	// UI flags
	reconcileCmd.Flags().StringVar(&logDir, "log-dir", "", "directory for the persistent run log (default: stderr only)")
	reconcileCmd.Flags().BoolVar(&showProgress, "progress", false, "show progress indicators")

	// Mark required flags
	reconcileCmd.MarkFlagRequired("target-file")
	reconcileCmd.MarkFlagRequired("trial-balance-file")
	reconcileCmd.MarkFlagRequired("uco-file")
	reconcileCmd.MarkFlagRequired("component")

	// Bind flags to viper
	viper.BindPFlag("target-file", reconcileCmd.Flags().Lookup("target-file"))
	viper.BindPFlag("trial-balance-file", reconcileCmd.Flags().Lookup("trial-balance-file"))
	viper.BindPFlag("uco-file", reconcileCmd.Flags().Lookup("uco-file"))
	viper.BindPFlag("component", reconcileCmd.Flags().Lookup("component"))
	viper.BindPFlag("output-format", reconcileCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output-file", reconcileCmd.Flags().Lookup("output-file"))
	viper.BindPFlag("recalc-cmd", reconcileCmd.Flags().Lookup("recalc-cmd"))
	viper.BindPFlag("skip-recalc", reconcileCmd.Flags().Lookup("skip-recalc"))
	viper.BindPFlag("log-dir", reconcileCmd.Flags().Lookup("log-dir"))
	viper.BindPFlag("progress", reconcileCmd.Flags().Lookup("progress"))
}

func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	// Get values from viper (allows override from config file)
	targetFile = viper.GetString("target-file")
	trialBalanceFile = viper.GetString("trial-balance-file")
	ucoFile = viper.GetString("uco-file")
	component = viper.GetString("component")
	outputFormat = viper.GetString("output-format")
	outputFile = viper.GetString("output-file")
	recalcCmd = viper.GetStringSlice("recalc-cmd")
	skipRecalc = viper.GetBool("skip-recalc")
	logDir = viper.GetString("log-dir")
	showProgress = viper.GetBool("progress")

	// Validate required flags
	if targetFile == "" {
		return fmt.Errorf("target-file is required")
	}
	if trialBalanceFile == "" {
		return fmt.Errorf("trial-balance-file is required")
	}
	if ucoFile == "" {
		return fmt.Errorf("uco-file is required")
	}
	if component == "" {
		return fmt.Errorf("component is required")
	}

	// Validate file existence
	if err := validateFileExists(targetFile, "target reconciliation workbook"); err != nil {
		return err
	}
	if err := validateFileExists(trialBalanceFile, "trial balance workbook"); err != nil {
		return err
	}
	if err := validateFileExists(ucoFile, "UCO to UDO workbook"); err != nil {
		return err
	}

	// Validate component code
	component = strings.ToUpper(strings.TrimSpace(component))
	if !models.ValidComponent(component) {
		return fmt.Errorf("unknown component code '%s'. Valid codes: %s",
			component, strings.Join(models.ComponentCodes(), ", "))
	}

	// Validate output format
	if !reporter.OutputFormat(outputFormat).IsValid() {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json", outputFormat)
	}

	// Recalculation must be either configured or explicitly skipped
	if !skipRecalc && len(recalcCmd) == 0 {
		return fmt.Errorf("no recalculation engine configured: pass --recalc-cmd or --skip-recalc")
	}
	if skipRecalc && len(recalcCmd) > 0 {
		return fmt.Errorf("--recalc-cmd and --skip-recalc are mutually exclusive")
	}

	// Validate log and output directories exist if specified
	if logDir != "" {
		if info, err := os.Stat(logDir); err != nil || !info.IsDir() {
			return fmt.Errorf("log directory does not exist: %s", logDir)
		}
	}
	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("output directory does not exist: %s", dir)
			}
		}
	}

	return nil
}

func validateFileExists(filePath, description string) error {
	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("%s is not readable: %w", description, err)
	}
	file.Close()

	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	log, err := logger.NewLogger(config.CreateLoggerConfig(viper.GetBool("verbose"), logDir))
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Starting reconciliation...\n")
		fmt.Fprintf(os.Stderr, "Target file: %s\n", targetFile)
		fmt.Fprintf(os.Stderr, "Trial balance file: %s\n", trialBalanceFile)
		fmt.Fprintf(os.Stderr, "UCO to UDO file: %s\n", ucoFile)
		fmt.Fprintf(os.Stderr, "Component: %s\n", component)
	}

	request := engine.Request{
		TargetFile:       targetFile,
		TrialBalanceFile: trialBalanceFile,
		UcoToUdoFile:     ucoFile,
		Component:        component,
		Recalc:           config.CreateRecalculator(recalcCmd, skipRecalc, log),
	}

	// The run executes on a background worker so an interrupt can
	// request cancellation; the run stops at its next checkpoint.
	w := worker.NewWorker(log)
	if showProgress {
		w.OnProgress = func(percent int, message string) {
			fmt.Fprintf(os.Stderr, "\r[%3d%%] %-50s", percent, message)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			fmt.Fprintf(os.Stderr, "\nInterrupt received, finishing current step...\n")
			w.Cancel()
		}
	}()

	w.Start(func(progress logger.ProgressSink, cancel worker.Canceller) (interface{}, error) {
		return engine.Run(request, log, logger.NewProgressReporter(progress, log), cancel)
	})
	w.Wait()

	if showProgress {
		fmt.Fprintf(os.Stderr, "\n")
	}

	raw, runErr := w.Result()
	result, _ := raw.(*engine.RunResult)
	if result == nil {
		result = &engine.RunResult{Summary: &reconerrors.RunSummary{
			Fatal: reconerrors.WrapIfNeeded(runErr, reconerrors.CategoryInternal, reconerrors.CodeUnexpectedError, "run produced no result"),
		}}
	}

	if err := writeReport(result); err != nil {
		return err
	}

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "\n%s\n", result.Summary)
	}

	return runErr
}

// writeReport renders the run result to the configured destination.
func writeReport(result *engine.RunResult) error {
	generator, err := reporter.NewReportGenerator(reporter.OutputFormat(outputFormat))
	if err != nil {
		return fmt.Errorf("failed to create report generator: %w", err)
	}

	output := os.Stdout
	if outputFile != "" {
		output, err = os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer output.Close()
	}

	if err := generator.GenerateReport(result, output); err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}
	return nil
}
