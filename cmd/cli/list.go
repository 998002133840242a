package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/axellelanca/shortlinks/cmd"
	"github.com/axellelanca/shortlinks/internal/services"
)

// ListCmd prints every stored link.
var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists all short links with their click count.",
	Args:  cobra.NoArgs,
	RunE: func(c *cobra.Command, args []string) error {
		repo, closeStore, err := openStore(c.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		rows, err := services.NewStatsService(repo).List(c.Context(), cmd.Cfg.ShortURL)
		if err != nil {
			return fmt.Errorf("failed to list links: %w", err)
		}

		w := tabwriter.NewWriter(c.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CODE\tCLICKS\tCREATED\tSHORT URL\tORIGINAL URL")
		for _, row := range rows {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n",
				row.Code, row.Clicks, row.CreatedAt.Format("2006-01-02 15:04"), row.ShortURL, row.OriginalURL)
		}
		return w.Flush()
	},
}

func init() {
	cmd.RootCmd.AddCommand(ListCmd)
}
