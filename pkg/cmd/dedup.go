package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/donorpilot/donorpilot/pkg/dedup"
	"github.com/donorpilot/donorpilot/pkg/persistence"
)

// NewDedupGuard dispatches on the store value: a redis:// URL selects the
// Redis guard, anything else falls back to subject tag markers.
func NewDedupGuard(ctx context.Context, store string, subjects persistence.SubjectRepository) (dedup.Guard, error) {
	if strings.HasPrefix(store, "redis://") || strings.HasPrefix(store, "rediss://") {
		guard, err := dedup.NewRedisGuard(ctx, store)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis dedup guard: %w", err)
		}

		return guard, nil
	}

	return dedup.NewTagGuard(subjects), nil
}
