package dispatch

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/pobredward/inschoolz-push-api/internal/model"
)

func TestAggregateSucceededIffAtLeastOneOK(t *testing.T) {
	for n := 1; n <= 4; n++ {
		for k := 0; k <= n; k++ {
			outcomes := make([]model.DeliveryOutcome, 0, n)
			for i := 0; i < k; i++ {
				outcomes = append(outcomes, model.DeliveryOutcome{OK: true})
			}
			for i := k; i < n; i++ {
				outcomes = append(outcomes, model.DeliveryOutcome{Error: fmt.Sprintf("err-%d", i)})
			}

			report := aggregate(uuid.New(), model.KindLike, outcomes)

			assert.Equal(t, k >= 1, report.Succeeded, "n=%d k=%d", n, k)
			assert.Len(t, report.Failures, n-k, "n=%d k=%d", n, k)
		}
	}
}

func TestAggregateZeroOutcomesIsVacuousSuccess(t *testing.T) {
	report := aggregate(uuid.New(), model.KindSystem, nil)

	assert.True(t, report.Succeeded)
	assert.Empty(t, report.Outcomes)
	assert.Empty(t, report.Failures)
}

func TestAggregatePreservesFailureMessages(t *testing.T) {
	outcomes := []model.DeliveryOutcome{
		{OK: true, ReceiptID: "r1"},
		{Error: "DeviceNotRegistered"},
		{Error: "MessageRateExceeded"},
	}

	report := aggregate(uuid.New(), model.KindFollow, outcomes)

	assert.True(t, report.Succeeded)
	assert.Equal(t, []string{"DeviceNotRegistered", "MessageRateExceeded"}, report.Failures)
}
