package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/axellelanca/shortlinks/cmd"
	customerrors "github.com/axellelanca/shortlinks/internal/errors"
	"github.com/axellelanca/shortlinks/internal/services"
)

// StatsCmd représente la commande 'stats'
var StatsCmd = &cobra.Command{
	Use:   "stats [short-code]",
	Short: "Get statistics for a short URL",
	Long:  `Prints the click totals, per-day counts, top referrers and user agents and the latest clicks of a short code.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func init() {
	cmd.RootCmd.AddCommand(StatsCmd)
}

// runStats exécute la logique pour la commande stats
func runStats(c *cobra.Command, args []string) error {
	shortCode := args[0]

	repo, closeStore, err := openStore(c.Context())
	if err != nil {
		return err
	}
	defer closeStore()

	summary, err := services.NewStatsService(repo).Summarize(c.Context(), shortCode)
	if err != nil {
		if errors.Is(err, customerrors.ErrShortCodeNotFound) {
			return fmt.Errorf("short code '%s' not found", shortCode)
		}
		return fmt.Errorf("error retrieving statistics: %w", err)
	}

	out := c.OutOrStdout()
	fmt.Fprintf(out, "Statistics for short code: %s\n", summary.Code)
	fmt.Fprintf(out, "Long URL: %s\n", summary.OriginalURL)
	fmt.Fprintf(out, "Created: %s\n", summary.CreatedAt.Format("2006-01-02 15:04:05"))
	if summary.ExpireAt != nil {
		fmt.Fprintf(out, "Expires: %s\n", summary.ExpireAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(out, "Total clicks: %d\n", summary.Clicks)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	if len(summary.ClicksByDay) > 0 {
		fmt.Fprintln(w, "\nDAY\tCLICKS")
		for _, e := range summary.ClicksByDay {
			fmt.Fprintf(w, "%s\t%d\n", e.Key, e.Count)
		}
	}
	if len(summary.Referrers) > 0 {
		fmt.Fprintln(w, "\nREFERRER\tCLICKS")
		for _, e := range summary.Referrers {
			fmt.Fprintf(w, "%s\t%d\n", e.Key, e.Count)
		}
	}
	if len(summary.UserAgents) > 0 {
		fmt.Fprintln(w, "\nUSER AGENT\tCLICKS")
		for _, ua := range summary.UserAgents {
			fmt.Fprintf(w, "%s\t%d\n", ua.UA, ua.Count)
		}
	}
	if len(summary.LastClicks) > 0 {
		fmt.Fprintln(w, "\nTIME\tREFERRER\tIP")
		for _, click := range summary.LastClicks {
			fmt.Fprintf(w, "%s\t%s\t%s\n", click.At.Format("2006-01-02 15:04:05"), click.Referrer, click.IPAddress)
		}
	}
	return w.Flush()
}
