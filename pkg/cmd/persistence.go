// Package cmd provides common initialization for the command-line binaries,
// turning flag values into concrete components.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/donorpilot/donorpilot/pkg/persistence"
	"github.com/donorpilot/donorpilot/pkg/persistence/file"
	"github.com/donorpilot/donorpilot/pkg/persistence/postgresql"
)

// NewPersistence dispatches on the database URL scheme: postgres:// for
// PostgreSQL, anything else is treated as a file store path.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	scheme, _, found := strings.Cut(databaseURL, "://")
	if found && (scheme == "postgres" || scheme == "postgresql") {
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL persistence: %w", err)
		}

		return p, nil
	}

	return file.NewPersistence(strings.TrimPrefix(databaseURL, "file://")), nil
}
