package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marcus/visita/internal/backup"
	"github.com/marcus/visita/internal/output"
)

var backupCmd = &cobra.Command{
	Use:     "backup",
	Short:   "Export and import the full data set",
	GroupID: "data",
}

var backupExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export everything to a .json or .xlsx file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		snap, err := backup.Fetch(cmd.Context(), newClient())
		if err != nil {
			return err
		}

		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		defer f.Close()

		switch strings.ToLower(filepath.Ext(path)) {
		case ".json":
			err = backup.ExportJSON(f, snap)
		case ".xlsx":
			err = backup.ExportExcel(f, snap)
		default:
			return fmt.Errorf("unsupported extension %q, want .json or .xlsx", filepath.Ext(path))
		}
		if err != nil {
			return err
		}
		output.Success("exported %d stores, %d orders, %d visit logs to %s",
			len(snap.Stores), len(snap.Orders), len(snap.VisitLogs), path)
		return nil
	},
}

var backupImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a .json or .xlsx backup",
	Long: `Imports a backup file. Regions and products already on the server are
matched by name rather than duplicated. Records that fail to write are
skipped and the rest of the import continues.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()

		var snap *backup.Snapshot
		switch strings.ToLower(filepath.Ext(path)) {
		case ".json":
			snap, err = backup.ParseJSON(f)
		case ".xlsx":
			snap, err = backup.ParseExcel(f)
		default:
			return fmt.Errorf("unsupported extension %q, want .json or .xlsx", filepath.Ext(path))
		}
		if err != nil {
			return err
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		sum, err := backup.Import(cmd.Context(), newClient(), snap, logger)
		if err != nil {
			return err
		}
		output.Success("imported %d records (%d regions, %d products, %d stores, %d orders, %d visits, %d visit logs)",
			sum.Total(), sum.Regions, sum.Products, sum.Stores, sum.Orders, sum.Visits, sum.VisitLogs)
		if sum.Skipped > 0 {
			output.Warning("%d records skipped", sum.Skipped)
		}
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:     "report <file>",
	Short:   "Export a flattened order report workbook",
	GroupID: "data",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		snap, err := backup.Fetch(cmd.Context(), newClient())
		if err != nil {
			return err
		}

		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		defer f.Close()

		if err := backup.ExportReport(f, snap); err != nil {
			return err
		}
		output.Success("wrote order report for %d orders to %s", len(snap.Orders), path)
		return nil
	},
}

func init() {
	backupCmd.AddCommand(backupExportCmd, backupImportCmd)
	rootCmd.AddCommand(backupCmd, reportCmd)
}
