package dispatch

import (
	"github.com/google/uuid"

	"github.com/pobredward/inschoolz-push-api/internal/model"
)

// aggregate reduces per-destination outcomes to one verdict for the
// logical event: succeeded iff at least one destination accepted the
// message. Zero destinations is a vacuous success, not a failure.
func aggregate(eventID uuid.UUID, kind model.Kind, outcomes []model.DeliveryOutcome) *model.DispatchReport {
	report := &model.DispatchReport{
		EventID:   eventID,
		Kind:      kind,
		Succeeded: len(outcomes) == 0,
		Outcomes:  outcomes,
	}

	for _, o := range outcomes {
		if o.OK {
			report.Succeeded = true
		} else {
			report.Failures = append(report.Failures, o.Error)
		}
	}

	return report
}
