package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/staffdesk/internal/core"
	"github.com/JonMunkholm/staffdesk/internal/core/tables"
)

func newImportCommand(opts *options) *cobra.Command {
	var (
		skipInvalid bool
		dryRun      bool
		columns     int
		dateLayout  string
	)

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import employees from a CSV file",
		Long: `Import employees from a CSV export.

The first row is a header and is skipped. Rows with the wrong number of
cells are skipped. A row with an unreadable date aborts the import and
nothing is saved, unless --skip-invalid is given. --dry-run reads and
checks the whole file and reports what would be imported.

Examples:
  staffctl import Personnel_Records.csv
  staffctl import export.csv --skip-invalid
  staffctl import export.csv --dry-run
  staffctl import export.csv --columns 12 --date-layout 2006-01-02`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			importOpts := s.cfg.Import.Options()
			if cmd.Flags().Changed("skip-invalid") {
				importOpts.SkipInvalidRows = skipInvalid
			}
			if columns > 0 {
				importOpts.ExpectedColumns = columns
			}
			if dateLayout != "" {
				importOpts.DateLayout = dateLayout
			}

			importer := core.NewImporter(s.store, tables.Employees())
			if dryRun {
				return previewImport(cmd, importer, args[0], importOpts)
			}
			count, err := importer.ImportFile(cmd.Context(), args[0], importOpts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d rows from %s\n", count, args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipInvalid, "skip-invalid", false, "Skip rows with unreadable cells instead of aborting")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Check the file and report counts without saving")
	cmd.Flags().IntVar(&columns, "columns", 0, "Expected cells per row (default from IMPORT_EXPECTED_COLUMNS)")
	cmd.Flags().StringVar(&dateLayout, "date-layout", "", "Go time layout of date cells (default from IMPORT_DATE_LAYOUT)")
	return cmd
}

// previewImport runs a dry-run import and prints its counts.
func previewImport(cmd *cobra.Command, importer *core.Importer[*tables.Employee], path string, opts core.ImportOptions) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()

	opts.DryRun = true
	res, err := importer.Import(cmd.Context(), f, filepath.Base(path), opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "dry run: %d rows read, %d would be imported, %d skipped, %d invalid\n",
		res.Rows, res.Accepted, res.Skipped, res.Invalid)
	return nil
}
