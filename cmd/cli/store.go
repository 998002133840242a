package cli

import (
	"context"
	"fmt"

	"github.com/axellelanca/shortlinks/cmd"
	"github.com/axellelanca/shortlinks/internal/repository"
)

// openStore opens the link store configured for the current invocation.
// The returned function closes it.
func openStore(ctx context.Context) (repository.LinkRepository, func(), error) {
	repo, err := repository.Open(ctx, cmd.Cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open link store: %w", err)
	}
	return repo, func() { _ = repo.Close() }, nil
}
