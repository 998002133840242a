package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/axellelanca/shortlinks/cmd"
	"github.com/axellelanca/shortlinks/internal/transfer"
)

var importFileFlag string

// ImportCmd loads links written by 'export'. Existing codes are left untouched.
var ImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Imports links from a JSON or YAML export file.",
	Long: `Reads a document produced by 'export' and inserts its links, analytics included.
The format follows the file extension (.yaml/.yml, otherwise JSON). Codes that
already exist in the store are skipped; a record whose id is taken by another
code gets a fresh id. Records whose click total disagrees with their per-day
counts stop the import.`,
	Args: cobra.NoArgs,
	RunE: func(c *cobra.Command, args []string) error {
		f, err := os.Open(importFileFlag)
		if err != nil {
			return err
		}
		defer f.Close()

		doc, err := transfer.Decode(f, transfer.FormatFromPath(importFileFlag))
		if err != nil {
			return err
		}

		repo, closeStore, err := openStore(c.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		res, err := transfer.Import(c.Context(), repo, doc)
		if err != nil {
			return fmt.Errorf("import stopped after %d links: %w", res.Imported, err)
		}
		fmt.Fprintf(c.OutOrStdout(), "Imported %d links, skipped %d existing codes.\n", res.Imported, res.Skipped)
		if res.Reassigned > 0 {
			fmt.Fprintf(c.OutOrStdout(), "%d links got a new id because theirs was already used.\n", res.Reassigned)
		}
		return nil
	},
}

func init() {
	ImportCmd.Flags().StringVarP(&importFileFlag, "file", "f", "", "Export file to read")
	_ = ImportCmd.MarkFlagRequired("file")

	cmd.RootCmd.AddCommand(ImportCmd)
}
