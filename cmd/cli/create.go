package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/axellelanca/shortlinks/cmd"
	"github.com/axellelanca/shortlinks/internal/services"
)

var (
	longURLFlag    string
	customCodeFlag string
	expireAtFlag   string
)

// CreateCmd représente la commande 'create'
var CreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Creates a short link for a long URL.",
	Long: `Shortens the given URL and prints the code and the public short URL.
A custom code (3-30 characters among letters, digits, '-' and '_') and an
expiry instant may be given.

Example:
  shortlinks create --url="https://www.google.com/search?q=go+lang" --code=golang --expire=2030-01-01`,
	RunE: func(c *cobra.Command, args []string) error {
		repo, closeStore, err := openStore(c.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		gen, err := services.NewNanoidGenerator(cmd.Cfg.Shortener.CodeLength)
		if err != nil {
			return err
		}
		// No click sink: the CLI never resolves links.
		linkService := services.NewLinkService(repo, gen, nil, services.WithMaxAttempts(cmd.Cfg.Shortener.MaxAttempts))

		link, err := linkService.CreateLink(c.Context(), services.CreateLinkInput{
			URL:        longURLFlag,
			CustomCode: customCodeFlag,
			ExpireAt:   expireAtFlag,
		})
		if err != nil {
			return fmt.Errorf("failed to create short link: %w", err)
		}

		out := c.OutOrStdout()
		fmt.Fprintln(out, "Short link created:")
		fmt.Fprintf(out, "Code: %s\n", link.Code)
		fmt.Fprintf(out, "Short URL: %s\n", cmd.Cfg.ShortURL(link.Code))
		if link.ExpireAt != nil {
			fmt.Fprintf(out, "Expires: %s\n", link.ExpireAt.Format("2006-01-02 15:04:05 MST"))
		}
		return nil
	},
}

func init() {
	CreateCmd.Flags().StringVar(&longURLFlag, "url", "", "The long URL to shorten")
	CreateCmd.Flags().StringVar(&customCodeFlag, "code", "", "Optional custom short code")
	CreateCmd.Flags().StringVar(&expireAtFlag, "expire", "", "Optional expiry (RFC 3339, 2006-01-02T15:04 or 2006-01-02, UTC)")
	_ = CreateCmd.MarkFlagRequired("url")

	cmd.RootCmd.AddCommand(CreateCmd)
}
