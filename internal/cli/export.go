package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/campaign-refresh/pkg/report"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the campaign performance summary as CSV and Excel",
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringP("output", "o", "", "Output directory (default from config)")
}

func runExport(cmd *cobra.Command, _ []string) error {
	cfg, logger, logFile := setup()
	defer logFile.Close()

	outDir, _ := cmd.Flags().GetString("output")
	if outDir == "" {
		outDir = cfg.Paths.ReportDir
	}

	exp := report.NewExporter(newSnapshots(cfg), outDir, logger)
	csvPath, xlsxPath, err := exp.ExportSummary(time.Now())
	if err != nil {
		return fmt.Errorf("export summary: %w", err)
	}

	fmt.Printf("CSV report:   %s\n", csvPath)
	fmt.Printf("Excel report: %s\n", xlsxPath)
	return nil
}
