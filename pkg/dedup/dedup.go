// Package dedup guards the periodic trigger scans against firing the same
// automation twice for the same subject. Condition-based triggers (inactive
// donor, upgrade opportunity) stay true across scans, so without a marker
// every scan would start a fresh execution.
package dedup

import "context"

// Guard records and checks subject/automation pairs that already fired.
type Guard interface {
	// IsProcessed reports whether the automation already fired for the
	// subject.
	IsProcessed(ctx context.Context, automationID, subjectID string) (bool, error)

	// MarkProcessed records that the automation fired for the subject.
	MarkProcessed(ctx context.Context, automationID, subjectID string) error
}
