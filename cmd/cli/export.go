package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/axellelanca/shortlinks/cmd"
	"github.com/axellelanca/shortlinks/internal/transfer"
)

var (
	exportFormatFlag string
	exportOutputFlag string
)

// ExportCmd writes every link, analytics included, to stdout or a file.
var ExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Exports all links and their statistics as JSON or YAML.",
	Args:  cobra.NoArgs,
	RunE: func(c *cobra.Command, args []string) error {
		format, err := transfer.ParseFormat(exportFormatFlag)
		if err != nil {
			return err
		}

		repo, closeStore, err := openStore(c.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		doc, err := transfer.Export(c.Context(), repo, time.Now())
		if err != nil {
			return fmt.Errorf("failed to read links: %w", err)
		}

		var out io.Writer = c.OutOrStdout()
		if exportOutputFlag != "" && exportOutputFlag != "-" {
			f, err := os.Create(exportOutputFlag)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}

		if err := transfer.Encode(out, doc, format); err != nil {
			return fmt.Errorf("failed to write export: %w", err)
		}
		if exportOutputFlag != "" && exportOutputFlag != "-" {
			fmt.Fprintf(c.ErrOrStderr(), "Exported %d links to %s\n", len(doc.Links), exportOutputFlag)
		}
		return nil
	},
}

func init() {
	ExportCmd.Flags().StringVar(&exportFormatFlag, "format", "json", "Output format: json or yaml")
	ExportCmd.Flags().StringVarP(&exportOutputFlag, "output", "o", "", "Output file (stdout when empty)")

	cmd.RootCmd.AddCommand(ExportCmd)
}
