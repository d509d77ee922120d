package dedup

import (
	"context"
	"fmt"

	"github.com/donorpilot/donorpilot/pkg/persistence"
)

// TagGuard stores the fired marker as a tag on the subject record itself.
// It needs no extra infrastructure and the marker is visible to operators
// browsing the subject, at the cost of polluting the tag list.
type TagGuard struct {
	subjects persistence.SubjectRepository
}

func NewTagGuard(subjects persistence.SubjectRepository) *TagGuard {
	return &TagGuard{subjects: subjects}
}

func markerTag(automationID string) string {
	return "automation_processed_" + automationID
}

func (g *TagGuard) IsProcessed(ctx context.Context, automationID, subjectID string) (bool, error) {
	subject, err := g.subjects.GetByID(ctx, subjectID)
	if err != nil {
		return false, fmt.Errorf("failed to load subject %s: %w", subjectID, err)
	}

	return subject.HasTag(markerTag(automationID)), nil
}

func (g *TagGuard) MarkProcessed(ctx context.Context, automationID, subjectID string) error {
	subject, err := g.subjects.GetByID(ctx, subjectID)
	if err != nil {
		return fmt.Errorf("failed to load subject %s: %w", subjectID, err)
	}

	tag := markerTag(automationID)
	if subject.HasTag(tag) {
		return nil
	}

	err = g.subjects.UpdateTags(ctx, subjectID, append(subject.Tags, tag))
	if err != nil {
		return fmt.Errorf("failed to mark subject %s: %w", subjectID, err)
	}

	return nil
}
