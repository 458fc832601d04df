package cli

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"daybook-ndjson-backend/internal/services/conversion"
	"daybook-ndjson-backend/internal/services/flattener"
	"daybook-ndjson-backend/internal/storage"

	"github.com/spf13/cobra"
)

func newConvertCmd(root *rootOptions) *cobra.Command {
	var (
		outputDir string
		toStdout  bool
	)

	cmd := &cobra.Command{
		Use:   "convert <input.json>",
		Short: "Convert a daybook export to NDJSON",
		Long: `Convert reads a daybook JSON export and writes <name>.ndjson to the output
directory (NDJSON_OUTPUT_DIR unless -o is given). With --stdout the rows are
printed instead and nothing is stored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := root.load(cmd, "console")
			if err != nil {
				return err
			}

			input := args[0]
			raw, err := os.ReadFile(input)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", input, err)
			}

			if toStdout {
				return writeRows(cmd, raw)
			}

			if outputDir == "" {
				outputDir = cfg.OutputDir
			}
			store, err := storage.NewNDJSONStore(outputDir)
			if err != nil {
				return err
			}

			res, err := conversion.NewService(store, nil, log).Convert(cmd.Context(), filepath.Base(input), raw)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Converted %s\n", input)
			fmt.Fprintf(out, "  Vouchers:         %d\n", res.VoucherCount)
			fmt.Fprintf(out, "  Rows:             %d\n", res.RowsCreated)
			fmt.Fprintf(out, "  Skipped entries:  %d\n", res.Stats.SkippedEntries)
			fmt.Fprintf(out, "  Unparsed amounts: %d\n", res.Stats.UnparsedAmounts)
			fmt.Fprintf(out, "  Output:           %s\n", filepath.Join(store.Dir(), res.NDJSONFile))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory")
	cmd.Flags().BoolVar(&toStdout, "stdout", false, "write NDJSON to stdout instead of a file")
	return cmd
}

func writeRows(cmd *cobra.Command, raw []byte) error {
	doc, err := flattener.Decode(raw)
	if err != nil {
		return err
	}
	rows := flattener.Flatten(doc)
	if len(rows) == 0 {
		return conversion.ErrNoRows
	}

	w := bufio.NewWriter(cmd.OutOrStdout())
	if err := flattener.WriteNDJSON(w, rows); err != nil {
		return err
	}
	return w.Flush()
}
